package index

import (
	"log/slog"

	"github.com/starford/pagecraft/internal/checksum"
	"github.com/starford/pagecraft/internal/storage"
	"github.com/starford/pagecraft/internal/workdoc"
)

// Sync walks the works directory and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db WorkIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := store.Read(m.ID)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("work_id", m.ID), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m.ID, data); err != nil {
			logger.Warn("sync: index failed", slog.String("work_id", m.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("work_id", m.ID))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteWork(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("work_id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("work_id", id))
			}
		}
	}

	return nil
}

// IndexDocument parses a work document and upserts it under id. The id
// of the file wins over any id stored inside the document.
func IndexDocument(db WorkIndex, id string, data []byte) error {
	res, err := workdoc.Parse(data)
	if err != nil {
		return err
	}
	w := res.Work
	row := WorkRow{
		ID:         id,
		Title:      res.Title,
		Checksum:   checksum.Sum(data),
		Components: res.Components,
		IsTemplate: w.IsTemplate,
		UpdatedAt:  w.UpdatedAt,
	}
	if !w.LatestPublishAt.IsZero() {
		t := w.LatestPublishAt
		row.PublishedAt = &t
	}
	return db.UpsertWork(row, res.Text, res.Assets)
}
