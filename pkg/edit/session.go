// Package edit governs edit mode: while a session is active every committed
// drag outcome is absorbed into a PendingChangeSet instead of being sent to
// the server, and the full set is flushed exactly once when the session ends.
package edit

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/domain"
)

// Flusher reconciles a batch of placements with the persistence gateway.
// Implemented by reconcile.Engine.
type Flusher interface {
	Flush(ctx context.Context, placements []domain.ItemPlacement) error
	InFlight() bool
}

// Session is the edit-mode controller. A new session cannot begin while a
// previous session's flush is still unresolved; this serializes canonical
// replacement operations across edit cycles.
type Session struct {
	mu      sync.Mutex
	flusher Flusher
	logger  *slog.Logger

	id       string
	active   bool
	flushing bool
	pending  *PendingChangeSet
}

// Option configures the Session.
type Option func(*Session)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates an inactive edit controller over the given flusher.
func NewSession(flusher Flusher, opts ...Option) *Session {
	s := &Session{
		flusher: flusher,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin enters edit mode, allocating a fresh PendingChangeSet. It returns
// domain.ErrEditActive if already editing and domain.ErrFlushInFlight while a
// prior flush has not resolved.
func (s *Session) Begin() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return "", domain.ErrEditActive
	}
	if s.flushing || s.flusher.InFlight() {
		return "", domain.ErrFlushInFlight
	}

	s.id = uuid.NewString()
	s.active = true
	s.pending = NewPendingChangeSet()
	s.logger.Debug("edit session started", "session", s.id)
	return s.id, nil
}

// Record buffers one placement intent. A single drag of one item typically
// records many entries: the moved item plus every sibling whose index
// shifted, each superseding any prior entry for the same ID.
func (s *Session) Record(itemID, container string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return domain.ErrNotEditing
	}
	s.pending.Set(domain.ItemPlacement{ItemID: itemID, Container: container, Position: position})
	return nil
}

// RecordAll buffers a batch of settled placements from one drop.
func (s *Session) RecordAll(placements []domain.ItemPlacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return domain.ErrNotEditing
	}
	for _, p := range placements {
		s.pending.Set(p)
	}
	return nil
}

// WorkingLayout projects the buffered intents over a canonical snapshot. A
// follow-up drag within the same session must be seeded from this projection,
// not the snapshot itself: diffs taken against the pre-flush canonical state
// would merge into conflicting positions. Items come back (container,
// position)-ordered, the same shape a store snapshot has.
func (s *Session) WorkingLayout(base domain.Layout) domain.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := base.Clone()
	if s.pending == nil || s.pending.Empty() {
		return out
	}
	for i := range out.Items {
		if p, ok := s.pending.Get(out.Items[i].ID); ok {
			out.Items[i].Container = p.Container
			out.Items[i].Position = p.Position
		}
	}
	sort.Slice(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		if a.Container != b.Container {
			return a.Container < b.Container
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return out
}

// End exits edit mode. A non-empty set is handed to the flusher exactly once;
// the set is discarded regardless of the flush outcome. A failed flush
// triggers the engine's canonical resync, never a retry of the same set.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return domain.ErrNotEditing
	}
	id := s.id
	set := s.pending
	s.active = false
	s.pending = nil
	// The gate must be closed before the mutex is released: a concurrent
	// Begin between unlock and the flusher raising its own in-flight state
	// would start a session against soon-to-be-replaced canonical state.
	s.flushing = !set.Empty()
	s.mu.Unlock()

	if set.Empty() {
		s.logger.Debug("edit session ended with no changes", "session", id)
		return nil
	}
	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	s.logger.Debug("edit session flushing", "session", id, "changes", set.Len())
	return s.flusher.Flush(ctx, set.Changes())
}

// Active reports whether edit mode is on.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// PendingCount returns the number of buffered item intents.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return 0
	}
	return s.pending.Len()
}
