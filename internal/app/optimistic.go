package app

import (
	"context"

	"github.com/hylla/lanes/internal/domain"
)

// optimisticOp describes one optimistic store mutation.
// mutate runs before the remote call and commit after it succeeds; either may be nil.
// pending is empty for operations that track no per-id marker (add).
type optimisticOp[T any] struct {
	op      Op
	id      int
	pending PendingOp
	mutate  func([]domain.Todo) []domain.Todo
	remote  func(context.Context) (T, error)
	commit  func([]domain.Todo, T) []domain.Todo
	success string
}

// applyOptimistic snapshots the list, applies mutate, awaits remote, then
// commits on success or restores the snapshot on failure. The pending marker
// is cleared on both paths.
func applyOptimistic[T any](ctx context.Context, s *Store, op optimisticOp[T]) error {
	s.mu.Lock()
	snapshot := domain.CloneTodos(s.todos)
	if op.mutate != nil {
		s.todos = op.mutate(s.todos)
	}
	s.markLocked(op.id, op.pending)
	s.changedLocked()
	s.mu.Unlock()
	s.notify()
	s.logger.Debug("optimistic op started", "op", op.op, "id", op.id)

	result, err := op.remote(ctx)

	s.mu.Lock()
	s.unmarkLocked(op.id, op.pending)
	var todoErr *TodoError
	if err != nil {
		s.todos = snapshot
		todoErr = normalizeError(op.op, op.id, err)
		s.raiseLocked(domain.MessageError, todoErr.Message)
	} else {
		if op.commit != nil {
			s.todos = op.commit(s.todos, result)
		}
		s.raiseLocked(domain.MessageSuccess, op.success)
	}
	s.changedLocked()
	s.mu.Unlock()
	s.notify()

	if todoErr != nil {
		s.logger.Warn("optimistic op rolled back", "op", op.op, "id", op.id, "err", err)
		return todoErr
	}
	s.logger.Info("optimistic op committed", "op", op.op, "id", op.id)
	return nil
}

// markLocked records one in-flight operation; the newest operation on an id
// holds the display marker. An empty kind counts an in-flight add instead.
func (s *Store) markLocked(id int, kind PendingOp) {
	if kind == "" {
		s.adding++
		return
	}
	s.loading.begin(id, kind)
}

// unmarkLocked drops one in-flight operation. The marker stays while any
// operation on the id is still pending.
func (s *Store) unmarkLocked(id int, kind PendingOp) {
	if kind == "" {
		if s.adding > 0 {
			s.adding--
		}
		return
	}
	s.loading.finish(id, kind)
}
