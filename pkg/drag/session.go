package drag

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/observability"
)

// State is the phase of a drag gesture.
type State string

const (
	StateIdle      State = "idle"
	StateArmed     State = "armed"
	StateDragging  State = "dragging"
	StateDropped   State = "dropped"
	StateCancelled State = "cancelled"
)

// Input is the activation source of a gesture.
type Input string

const (
	InputPointer  Input = "pointer"
	InputTouch    Input = "touch"
	InputKeyboard Input = "keyboard"
)

// Config tunes gesture activation.
//
// A pointer press only becomes a drag after MovementThreshold, so plain
// clicks are never hijacked. A touch press must hold still (within
// TouchTolerance) for TouchHoldDelay before it becomes a drag, so page
// scrolling is never hijacked. Keyboard activation arms immediately.
type Config struct {
	MovementThreshold float64
	TouchHoldDelay    time.Duration
	TouchTolerance    float64
	Now               func() time.Time
}

// DefaultConfig returns the standard activation thresholds.
func DefaultConfig() Config {
	return Config{
		MovementThreshold: 5,
		TouchHoldDelay:    200 * time.Millisecond,
		TouchTolerance:    10,
		Now:               time.Now,
	}
}

// Outcome is the terminal result of one gesture. Dropped outcomes carry the
// settled placements of every entity whose index shifted; a Cancelled outcome
// carries nothing and is always safe to discard.
type Outcome struct {
	State    State
	Mode     Mode
	EntityID string

	// Final resting place of the dragged entity (Dropped only).
	Container string
	Index     int

	// Moved is false when the entity landed exactly where it started.
	Moved bool

	Items    []domain.ItemPlacement
	Sections []domain.SectionPlacement
}

// Session is the state machine for a single drag gesture:
//
//	Idle -> Armed -> Dragging -> {Dropped, Cancelled} -> Idle
//
// It owns the ephemeral live view used for visual feedback and never writes
// the PlacementStore. All event methods serialize on an internal mutex, so
// pointer events are processed strictly in arrival order.
type Session struct {
	mu      sync.Mutex
	id      string
	cfg     Config
	base    domain.Layout
	logger  *slog.Logger
	metrics *observability.Metrics

	state     State
	mode      Mode
	input     Input
	entityID  string
	pressed   bool
	origin    Point
	pressedAt time.Time

	view *liveView

	lastContainer string
	lastIndex     int
	hasLast       bool
}

// Option configures a Session.
type Option func(*Session)

// WithConfig overrides the activation thresholds.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		if cfg.Now == nil {
			cfg.Now = time.Now
		}
		s.cfg = cfg
	}
}

// WithLogger configures a logger for gesture diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics counts terminal gesture outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession creates an idle session over a canonical layout snapshot.
func NewSession(base domain.Layout, opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		cfg:    DefaultConfig(),
		base:   base.Clone(),
		logger: logging.NewNop(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the gesture's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Press begins an activation. A press while another activation is live is an
// ambiguous gesture (e.g. a second simultaneous touch point) and is ignored.
// Keyboard input arms immediately; pointer and touch stay idle until the
// activation policy confirms an intentional drag.
func (s *Session) Press(input Input, mode Mode, entityID string, at Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pressed || s.state != StateIdle {
		s.logger.Debug("ignoring secondary activation", "entity", entityID)
		return
	}

	s.pressed = true
	s.input = input
	s.mode = mode
	s.entityID = entityID
	s.origin = at
	s.pressedAt = s.cfg.Now()

	if input == InputKeyboard {
		s.state = StateArmed
	}
}

// Move feeds a pointer position and the current drop-target geometry. Before
// arming it evaluates the activation policy; while dragging it runs collision
// detection and live-reorders the view when the insertion point changes.
func (s *Session) Move(at Point, targets []Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		if !s.pressed {
			return
		}
		switch s.input {
		case InputPointer:
			if distance(at, s.origin) >= s.cfg.MovementThreshold {
				s.state = StateArmed
				s.lift()
			}
		case InputTouch:
			if s.cfg.Now().Sub(s.pressedAt) < s.cfg.TouchHoldDelay {
				if distance(at, s.origin) > s.cfg.TouchTolerance {
					// Moving before the hold elapsed: this is a scroll.
					s.resetLocked()
				}
				return
			}
			s.state = StateArmed
			s.lift()
		}
	case StateArmed:
		s.lift()
	case StateDragging:
		// fall through to the live reorder below
	default:
		return
	}

	if s.state == StateDragging {
		s.reorder(at, targets)
	}
}

// Release ends the gesture. Over a valid target the last live reorder becomes
// the outcome; otherwise the gesture cancels and the view reverts. A release
// before a drag ever began (a plain click, or an armed-but-unmoved keyboard
// activation) cancels with no effect.
func (s *Session) Release(at Point, targets []Target) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDragging {
		return s.cancelLocked()
	}

	if _, ok := Resolve(at, targets, s.mode); !ok {
		return s.cancelLocked()
	}
	s.reorder(at, targets)

	out := Outcome{
		State:    StateDropped,
		Mode:     s.mode,
		EntityID: s.entityID,
	}
	switch s.mode {
	case ModeSection:
		out.Sections = s.view.sectionDiff(s.base)
		out.Index = indexOfID(s.view.sections, s.entityID)
		out.Moved = len(out.Sections) > 0
	default:
		out.Items = s.view.itemDiff(s.base)
		out.Container, out.Index, _ = s.view.indexOf(s.entityID)
		out.Moved = len(out.Items) > 0
	}

	if s.metrics != nil {
		s.metrics.DragOutcomes.WithLabelValues(string(StateDropped)).Inc()
	}
	s.logger.Debug("drag dropped",
		"session", s.id, "entity", s.entityID, "moved", out.Moved, "changes", len(out.Items)+len(out.Sections))
	s.resetLocked()
	return out
}

// Cancel aborts the gesture (escape key, focus loss). Always safe: the live
// view is discarded and nothing is recorded.
func (s *Session) Cancel() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked()
}

// Container projects the current ordering of one container for rendering:
// the live view while a drag is active, the committed snapshot otherwise.
func (s *Session) Container(containerID string) []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDragging {
		return s.view.container(containerID)
	}
	var items []domain.Item
	for _, it := range s.base.Items {
		if it.Container == containerID {
			items = append(items, it)
		}
	}
	return items
}

// SectionOrder projects the current section ordering for rendering.
func (s *Session) SectionOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDragging && s.mode == ModeSection {
		out := make([]string, len(s.view.sections))
		copy(out, s.view.sections)
		return out
	}
	out := make([]string, 0, len(s.base.Sections))
	for _, sec := range s.base.Sections {
		out = append(out, sec.ID)
	}
	return out
}

func (s *Session) lift() {
	s.state = StateDragging
	s.view = newLiveView(s.base)
	s.hasLast = false
}

func (s *Session) reorder(at Point, targets []Target) {
	t, ok := Resolve(at, targets, s.mode)
	if !ok {
		return
	}
	if s.hasLast && t.Container == s.lastContainer && t.Index == s.lastIndex {
		return
	}
	if s.mode == ModeSection {
		s.view.moveSection(s.entityID, t.Index)
	} else {
		s.view.moveItem(s.entityID, t.Container, t.Index)
	}
	s.lastContainer = t.Container
	s.lastIndex = t.Index
	s.hasLast = true
}

func (s *Session) cancelLocked() Outcome {
	out := Outcome{State: StateCancelled, Mode: s.mode, EntityID: s.entityID}
	if s.metrics != nil {
		s.metrics.DragOutcomes.WithLabelValues(string(StateCancelled)).Inc()
	}
	s.logger.Debug("drag cancelled", "session", s.id, "entity", s.entityID)
	s.resetLocked()
	return out
}

func (s *Session) resetLocked() {
	s.state = StateIdle
	s.pressed = false
	s.view = nil
	s.hasLast = false
}

func indexOfID(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
