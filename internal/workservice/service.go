// Package workservice coordinates work storage, the works index and the
// live editor sessions opened on works.
package workservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/pagecraft/internal/apperr"
	"github.com/starford/pagecraft/internal/assets"
	"github.com/starford/pagecraft/internal/checksum"
	"github.com/starford/pagecraft/internal/editor"
	"github.com/starford/pagecraft/internal/index"
	"github.com/starford/pagecraft/internal/models"
	"github.com/starford/pagecraft/internal/storage"
	"github.com/starford/pagecraft/internal/workdoc"
)

// Event kinds reported to the Notifier besides the index watcher kinds.
const (
	EventSaved     = "saved"
	EventPublished = "published"
)

// Notifier receives work and history events, typically the SSE broker.
type Notifier interface {
	PublishWorkEvent(kind, workID string)
	PublishHistory(workID string, data any)
}

// WorkDetail is a persisted work plus its document checksum.
type WorkDetail struct {
	models.Work
	Checksum string   `json:"checksum"`
	Assets   []string `json:"assets"`
}

// Service coordinates storage, index and editor sessions.
type Service struct {
	store    storage.Provider
	db       index.WorkIndex
	notifier Notifier
	logger   *slog.Logger

	editorOpts []editor.Option
	newID      func() string
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier forwards work and history events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the service logger. Editor sessions log through it too.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEditorOptions adds options applied to every editor session.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(s *Service) {
		s.editorOpts = append(s.editorOpts, opts...)
	}
}

// WithIDGenerator replaces the uuid generator for work ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		s.now = fn
	}
}

// New creates a work service.
func New(store storage.Provider, db index.WorkIndex, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		logger:   slog.New(slog.DiscardHandler),
		newID:    uuid.NewString,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWork writes a new blank work and indexes it.
func (s *Service) CreateWork(_ context.Context, title string) (*WorkDetail, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = workdoc.UntitledTitle
	}
	id := s.newID()
	if s.store.Exists(id) {
		return nil, fmt.Errorf("work %s: %w", id, apperr.ErrAlreadyExists)
	}

	w := models.Work{
		ID:        id,
		Title:     title,
		UUID:      strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		UpdatedAt: s.now().UTC(),
		Content: models.WorkContent{
			Components: []models.Component{},
			Props:      editor.DefaultPageProps(),
			Setting:    map[string]any{},
		},
	}
	detail, err := s.write(w)
	if err != nil {
		return nil, err
	}
	s.notify(index.EventCreated, id)
	return detail, nil
}

// GetWork reads the persisted document of a work. Unsaved editor changes
// are not included.
func (s *Service) GetWork(_ context.Context, id string) (*WorkDetail, error) {
	data, err := s.store.Read(id)
	if err != nil {
		return nil, err
	}
	return buildDetail(id, data)
}

// DeleteWork closes any editor session and removes the work from storage
// and index.
func (s *Service) DeleteWork(_ context.Context, id string) error {
	s.closeSession(id)
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if err := s.db.DeleteWork(id); err != nil {
		return err
	}
	s.notify(index.EventDeleted, id)
	return nil
}

// ListWorks returns one page of indexed works.
func (s *Service) ListWorks(_ context.Context, limit, offset int, sort string) ([]index.WorkRow, int, error) {
	return s.db.ListWorks(limit, offset, sort)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// SaveAsset validates and stores an uploaded image.
func (s *Service) SaveAsset(_ context.Context, filename, fallbackExt string, data []byte) (*assets.Asset, error) {
	a, err := assets.Save(s.store, filename, fallbackExt, data)
	if err != nil {
		return nil, err
	}
	s.logger.Info("asset stored", slog.String("filename", a.Filename), slog.Int("size", a.Size))
	return a, nil
}

// AssetUsers lists the works whose components reference the asset URL.
func (s *Service) AssetUsers(_ context.Context, url string) ([]string, error) {
	users, err := s.db.AssetUsers(url)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(users), nil
}

// write encodes w, stores it and indexes it.
func (s *Service) write(w models.Work) (*WorkDetail, error) {
	data, err := workdoc.Encode(w)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(w.ID, data); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, w.ID, data); err != nil {
		return nil, err
	}
	return buildDetail(w.ID, data)
}

func (s *Service) notify(kind, id string) {
	if s.notifier != nil {
		s.notifier.PublishWorkEvent(kind, id)
	}
}

func buildDetail(id string, data []byte) (*WorkDetail, error) {
	res, err := workdoc.Parse(data)
	if err != nil {
		return nil, err
	}
	w := res.Work
	w.ID = id
	return &WorkDetail{
		Work:     w,
		Checksum: checksum.Sum(data),
		Assets:   nonNilSlice(res.Assets),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// AssetPath resolves an asset file name to its path on disk.
func (s *Service) AssetPath(name string) (string, error) {
	return s.store.AssetPath(name)
}
