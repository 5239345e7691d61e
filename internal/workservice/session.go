package workservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/pagecraft/internal/apperr"
	"github.com/starford/pagecraft/internal/checksum"
	"github.com/starford/pagecraft/internal/editor"
	"github.com/starford/pagecraft/internal/index"
	"github.com/starford/pagecraft/internal/workdoc"
)

// session is one open editor on a work.
type session struct {
	engine *editor.Engine
	// checksum of the document the session last loaded or wrote, used to
	// tell our own writes apart from external edits.
	checksum string
}

// HistoryEvent is the payload of history.changed notifications.
type HistoryEvent struct {
	WorkID string `json:"workId"`
	editor.Change
}

// Editor returns the editor session of a work, opening it from the
// persisted document on first use.
func (s *Service) Editor(_ context.Context, id string) (*editor.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess.engine, nil
	}

	data, err := s.store.Read(id)
	if err != nil {
		return nil, err
	}
	res, err := workdoc.Parse(data)
	if err != nil {
		return nil, err
	}
	work := res.Work
	work.ID = id

	opts := []editor.Option{editor.WithLogger(s.logger.With(slog.String("work_id", id)))}
	opts = append(opts, s.editorOpts...)
	opts = append(opts, editor.WithListener(func(c editor.Change) {
		if s.notifier != nil {
			s.notifier.PublishHistory(id, HistoryEvent{WorkID: id, Change: c})
		}
	}))
	eng := editor.New(opts...)
	eng.Hydrate(work)

	s.sessions[id] = &session{engine: eng, checksum: checksum.Sum(data)}
	s.logger.Info("editor session opened", slog.String("work_id", id), slog.Int("components", res.Components))
	return eng, nil
}

// Sessions returns the ids of works with an open editor, sorted.
func (s *Service) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CloseEditor ends the editor session of a work. Unsaved changes and the
// history are dropped.
func (s *Service) CloseEditor(_ context.Context, id string) error {
	if !s.closeSession(id) {
		return fmt.Errorf("editor session %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Close ends every editor session.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.engine.Close()
		delete(s.sessions, id)
	}
}

func (s *Service) closeSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.engine.Close()
	delete(s.sessions, id)
	s.logger.Info("editor session closed", slog.String("work_id", id))
	return true
}

// Save commits pending property bursts and writes the editor state to the
// work document. A non-empty ifMatch must match the checksum of the
// document on disk.
func (s *Service) Save(ctx context.Context, id, ifMatch string) (*WorkDetail, error) {
	return s.persist(ctx, id, ifMatch, false)
}

// Publish saves the work and stamps its publish time.
func (s *Service) Publish(ctx context.Context, id, ifMatch string) (*WorkDetail, error) {
	return s.persist(ctx, id, ifMatch, true)
}

func (s *Service) persist(ctx context.Context, id, ifMatch string, publish bool) (*WorkDetail, error) {
	eng, err := s.Editor(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Read(id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if existing != nil && !checksum.Match(ifMatch, checksum.Sum(existing)) {
		return nil, fmt.Errorf("work %s changed on disk: %w", id, apperr.ErrConflict)
	}

	w, rev := eng.Checkpoint()
	at := s.now().UTC()
	w.ID = id
	w.UpdatedAt = at
	if publish {
		w.LatestPublishAt = at
	}

	detail, err := s.write(w)
	if err != nil {
		return nil, err
	}
	if sess, ok := s.sessions[id]; ok {
		sess.checksum = detail.Checksum
	}

	clean := eng.MarkSavedAt(rev, at)
	kind := EventSaved
	if publish {
		eng.MarkPublishedAt(rev, at)
		kind = EventPublished
	}
	if !clean {
		s.logger.Debug("editor changed during save, staying dirty", slog.String("work_id", id))
	}
	s.logger.Info("work "+kind, slog.String("work_id", id), slog.String("checksum", detail.Checksum))
	s.notify(kind, id)
	return detail, nil
}

// HandleExternalChange reacts to a work document changed outside the
// service. A clean session is reloaded from disk, a deleted work closes
// its session, and a dirty session is left alone so no edit is lost.
func (s *Service) HandleExternalChange(kind, id string) {
	s.notify(kind, id)

	if kind == index.EventDeleted {
		if s.store.Exists(id) {
			return
		}
		s.closeSession(id)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	data, err := s.store.Read(id)
	if err != nil {
		return
	}
	sum := checksum.Sum(data)
	if sum == sess.checksum {
		return
	}
	if sess.engine.IsDirty() {
		s.logger.Warn("work changed on disk while editing; keeping editor state",
			slog.String("work_id", id))
		return
	}
	res, err := workdoc.Parse(data)
	if err != nil {
		s.logger.Warn("reload failed", slog.String("work_id", id), slog.String("error", err.Error()))
		return
	}
	w := res.Work
	w.ID = id
	sess.engine.Hydrate(w)
	sess.checksum = sum
	s.logger.Info("editor session reloaded", slog.String("work_id", id))
}
