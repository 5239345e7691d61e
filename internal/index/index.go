package index

// WorkIndex defines the interface for work indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type WorkIndex interface {
	UpsertWork(w WorkRow, body string, assets []string) error
	DeleteWork(id string) error
	GetChecksum(id string) (string, error)
	GetWork(id string) (*WorkRow, error)
	ListWorks(limit, offset int, sort string) ([]WorkRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AssetUsers(src string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies WorkIndex at compile time.
var _ WorkIndex = (*DB)(nil)
