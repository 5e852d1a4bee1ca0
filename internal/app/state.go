package app

import (
	"maps"
	"slices"

	"github.com/hylla/lanes/internal/domain"
)

// PendingOp names the in-flight operation holding a todo's marker.
type PendingOp string

// PendingUpdating and related constants define per-id pending operation kinds.
const (
	PendingUpdating PendingOp = "updating"
	PendingMoving   PendingOp = "moving"
	PendingDeleting PendingOp = "deleting"
)

// LoadingState tracks in-flight work. Pending holds one display marker per
// todo id: the newest operation still in flight. The Is* accessors report any
// in-flight operation of their kind, even one whose marker was superseded.
type LoadingState struct {
	IsLoading bool
	IsAdding  bool
	Pending   map[int]PendingOp

	inflight map[int]map[PendingOp]int
}

// IsUpdating reports whether id has an update in flight.
func (l LoadingState) IsUpdating(id int) bool { return l.has(id, PendingUpdating) }

// IsMoving reports whether id has a move in flight.
func (l LoadingState) IsMoving(id int) bool { return l.has(id, PendingMoving) }

// IsDeleting reports whether id has a delete in flight.
func (l LoadingState) IsDeleting(id int) bool { return l.has(id, PendingDeleting) }

// UpdatingIDs returns sorted ids with an update in flight.
func (l LoadingState) UpdatingIDs() []int { return l.idsFor(PendingUpdating) }

// MovingIDs returns sorted ids with a move in flight.
func (l LoadingState) MovingIDs() []int { return l.idsFor(PendingMoving) }

// DeletingIDs returns sorted ids with a delete in flight.
func (l LoadingState) DeletingIDs() []int { return l.idsFor(PendingDeleting) }

func (l LoadingState) has(id int, kind PendingOp) bool {
	return l.Pending[id] == kind || l.inflight[id][kind] > 0
}

func (l LoadingState) idsFor(kind PendingOp) []int {
	out := make([]int, 0, len(l.Pending))
	for id := range l.Pending {
		if l.has(id, kind) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// begin records one in-flight operation of kind on id and makes it the marker.
func (l *LoadingState) begin(id int, kind PendingOp) {
	if l.inflight == nil {
		l.inflight = map[int]map[PendingOp]int{}
	}
	if l.inflight[id] == nil {
		l.inflight[id] = map[PendingOp]int{}
	}
	l.inflight[id][kind]++
	l.Pending[id] = kind
}

// finish drops one in-flight operation of kind on id. The marker moves to a
// kind still in flight, or is removed once nothing is left for id.
func (l *LoadingState) finish(id int, kind PendingOp) {
	counts := l.inflight[id]
	if counts[kind] > 0 {
		counts[kind]--
		if counts[kind] == 0 {
			delete(counts, kind)
		}
	}
	if len(counts) == 0 {
		delete(l.inflight, id)
		delete(l.Pending, id)
		return
	}
	if counts[l.Pending[id]] > 0 {
		return
	}
	for _, next := range []PendingOp{PendingDeleting, PendingMoving, PendingUpdating} {
		if counts[next] > 0 {
			l.Pending[id] = next
			return
		}
	}
}

func (l LoadingState) clone() LoadingState {
	l.Pending = maps.Clone(l.Pending)
	if l.Pending == nil {
		l.Pending = map[int]PendingOp{}
	}
	if l.inflight != nil {
		inflight := make(map[int]map[PendingOp]int, len(l.inflight))
		for id, counts := range l.inflight {
			inflight[id] = maps.Clone(counts)
		}
		l.inflight = inflight
	}
	return l
}

// State is a point-in-time copy of the store.
// Version increases with every change; MessageSeq increases with every raised message.
type State struct {
	Todos      []domain.Todo
	Loading    LoadingState
	Message    *domain.Message
	MessageSeq uint64
	Version    uint64
}

// Todo returns the todo with id from the snapshot.
func (s State) Todo(id int) (domain.Todo, bool) {
	for _, todo := range s.Todos {
		if todo.ID == id {
			return todo, true
		}
	}
	return domain.Todo{}, false
}

// TodosByStatus returns todos in lane, preserving list order.
func (s State) TodosByStatus(status domain.Status) []domain.Todo {
	out := make([]domain.Todo, 0)
	for _, todo := range s.Todos {
		if todo.Status == status {
			out = append(out, todo)
		}
	}
	return out
}
