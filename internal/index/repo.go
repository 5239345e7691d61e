package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/pagecraft/internal/apperr"
)

// WorkRow represents a row in the works table.
type WorkRow struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Checksum    string     `json:"checksum"`
	Components  int        `json:"components"`
	IsTemplate  bool       `json:"isTemplate"`
	PublishedAt *time.Time `json:"latestPublishAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Sort orders accepted by ListWorks.
const (
	SortUpdated = "updated"
	SortTitle   = "title"
)

// UpsertWork inserts or replaces a work, its FTS entry and its asset
// references within a transaction.
func (db *DB) UpsertWork(w WorkRow, body string, assets []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var published any
	if w.PublishedAt != nil && !w.PublishedAt.IsZero() {
		published = w.PublishedAt.UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO works (id, title, checksum, components, is_template, body, published_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			checksum     = excluded.checksum,
			components   = excluded.components,
			is_template  = excluded.is_template,
			body         = excluded.body,
			published_at = excluded.published_at,
			updated_at   = excluded.updated_at
	`, w.ID, w.Title, w.Checksum, w.Components, w.IsTemplate, body, published, w.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert work: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, w.ID, w.Title, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM asset_refs WHERE work_id = ?`, w.ID); err != nil {
		return fmt.Errorf("index: clear asset refs: %w", err)
	}
	if len(assets) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO asset_refs (work_id, src) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare asset insert: %w", err)
		}
		defer stmt.Close()
		for _, src := range assets {
			if _, err := stmt.Exec(w.ID, src); err != nil {
				return fmt.Errorf("index: insert asset ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteWork removes a work, its FTS entry and its asset references.
func (db *DB) DeleteWork(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM asset_refs WHERE work_id = ?`, id); err != nil {
		return fmt.Errorf("index: delete asset refs: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM works WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete work: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a work, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM works WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const workColumns = `id, title, checksum, components, is_template, published_at, updated_at`

func scanWork(row interface{ Scan(...any) error }) (WorkRow, error) {
	var w WorkRow
	var published sql.NullTime
	if err := row.Scan(&w.ID, &w.Title, &w.Checksum, &w.Components, &w.IsTemplate, &published, &w.UpdatedAt); err != nil {
		return WorkRow{}, err
	}
	if published.Valid {
		t := published.Time
		w.PublishedAt = &t
	}
	return w, nil
}

// GetWork returns the indexed row of one work.
func (db *DB) GetWork(id string) (*WorkRow, error) {
	w, err := scanWork(db.conn.QueryRow(`SELECT `+workColumns+` FROM works WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: work %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get work: %w", err)
	}
	return &w, nil
}

// ListWorks returns one page of works and the total count. sort is
// SortUpdated (newest first, the default) or SortTitle.
func (db *DB) ListWorks(limit, offset int, sort string) ([]WorkRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order := `updated_at DESC, id`
	if sort == SortTitle {
		order = `title COLLATE NOCASE, id`
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM works`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count works: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+workColumns+` FROM works ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list works: %w", err)
	}
	defer rows.Close()

	out := []WorkRow{}
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan work: %w", err)
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum of every indexed work keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM works`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// AssetUsers returns the ids of works whose components reference src.
func (db *DB) AssetUsers(src string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT work_id FROM asset_refs WHERE src = ? ORDER BY work_id`, src)
	if err != nil {
		return nil, fmt.Errorf("index: asset users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
