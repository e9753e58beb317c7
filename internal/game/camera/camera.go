package camera

import (
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// Mode names a pre-configured viewpoint.
type Mode string

const (
	ModeOverhead   Mode = "overhead"
	ModeBallFollow Mode = "ball_follow"
	ModeManual     Mode = "manual"
	ModeAiming     Mode = "aiming"
)

// State is an immutable per-mode camera record. Updates swap the whole value;
// nothing aliases between registered mode states and the live transform.
type State struct {
	Position physics.Vec3 `json:"position"`
	Target   physics.Vec3 `json:"target"`
	Up       physics.Vec3 `json:"up"`
	FOV      float64      `json:"fov"`
}

// DefaultDuration is the transition length used when no option overrides it.
const DefaultDuration = 0.8

// Easing maps transition progress in [0,1] to an eased curve value.
type Easing func(t float64) float64

// EaseLinear passes progress through unchanged.
func EaseLinear(t float64) float64 { return t }

// EaseInOutCubic accelerates from rest and decelerates into the target, so a
// transition has no velocity discontinuity at either end.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// TransitionOption configures one animated mode switch.
type TransitionOption func(*transition)

func WithDuration(seconds float64) TransitionOption {
	return func(tr *transition) {
		if seconds > 0 {
			tr.duration = seconds
		}
	}
}

func WithEasing(fn Easing) TransitionOption {
	return func(tr *transition) {
		if fn != nil {
			tr.easing = fn
		}
	}
}

type transition struct {
	from     State
	to       State
	target   Mode
	progress float64
	duration float64
	easing   Easing
}

// ModeChangedFunc is notified after the logical mode changes (both immediate
// switches and completed transitions).
type ModeChangedFunc func(from, to Mode)

// Controller is a finite state machine over named viewpoints with one
// always-available transitioning state that interpolates between them.
// The controller is in exactly one of: steady in a mode, or transitioning.
type Controller struct {
	logger *zap.Logger

	states map[Mode]State
	mode   Mode
	live   State

	trans         *transition
	onModeChanged ModeChangedFunc
}

// NewController builds a controller steady in the given initial mode. The
// provided states map seeds the registered viewpoints; the initial mode must
// be among them.
func NewController(logger *zap.Logger, initial Mode, states map[Mode]State) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		logger: logger,
		states: make(map[Mode]State, len(states)),
		mode:   initial,
	}
	for m, s := range states {
		c.states[m] = s
	}
	if s, ok := c.states[initial]; ok {
		c.live = s
	} else {
		logger.Warn("initial camera mode has no registered state",
			zap.String("mode", string(initial)),
		)
	}
	return c
}

// SetModeChangedCallback registers the mode-change notification hook.
func (c *Controller) SetModeChangedCallback(fn ModeChangedFunc) {
	c.onModeChanged = fn
}

// RegisterMode registers or replaces the stored state for a mode.
func (c *Controller) RegisterMode(mode Mode, state State) {
	c.states[mode] = state
}

// Mode returns the logical mode. During a transition this is still the mode
// the camera is leaving; it becomes the target once the transition completes.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Transitioning reports whether an interpolation is in flight.
func (c *Controller) Transitioning() bool {
	return c.trans != nil
}

// Transform returns the live camera transform the renderer consumes.
func (c *Controller) Transform() State {
	return c.live
}

// ModeState returns the registered state for a mode.
func (c *Controller) ModeState(mode Mode) (State, bool) {
	s, ok := c.states[mode]
	return s, ok
}

// SetMode switches to a named viewpoint. Unknown modes are rejected with a
// warning and a false return. Switching to the current steady mode is a
// no-op. With immediate set, the registered state is copied straight onto
// the live transform; otherwise an eased transition starts from the current
// (possibly mid-flight) transform. Starting a new transition while one is in
// flight preempts it: the old transition is discarded, never queued.
func (c *Controller) SetMode(mode Mode, immediate bool, opts ...TransitionOption) bool {
	target, ok := c.states[mode]
	if !ok {
		c.logger.Warn("unknown camera mode requested",
			zap.String("mode", string(mode)),
		)
		return false
	}
	if mode == c.mode && c.trans == nil {
		return false
	}

	if immediate {
		from := c.mode
		c.trans = nil
		c.live = target
		c.mode = mode
		c.notifyModeChanged(from, mode)
		return true
	}

	tr := &transition{
		from:     c.live,
		to:       target,
		target:   mode,
		duration: DefaultDuration,
		easing:   EaseInOutCubic,
	}
	for _, opt := range opts {
		opt(tr)
	}
	c.trans = tr
	return true
}

// Update advances an in-flight transition by dt seconds and writes the
// interpolated transform. No-op while steady.
func (c *Controller) Update(dt float64) {
	tr := c.trans
	if tr == nil {
		return
	}
	tr.progress += dt / tr.duration
	if tr.progress >= 1 {
		tr.progress = 1
	}
	c.applyTransition(tr)
	if tr.progress >= 1 {
		c.finishTransition(tr)
	}
}

// CompleteTransition forces an in-flight transition to its end state with one
// final update. No-op while steady. Used when a hole change must not be
// delayed by a camera animation.
func (c *Controller) CompleteTransition() {
	tr := c.trans
	if tr == nil {
		return
	}
	tr.progress = 1
	c.applyTransition(tr)
	c.finishTransition(tr)
}

func (c *Controller) applyTransition(tr *transition) {
	t := tr.easing(tr.progress)
	c.live = State{
		Position: tr.from.Position.Lerp(tr.to.Position, t),
		Target:   tr.from.Target.Lerp(tr.to.Target, t),
		Up:       tr.from.Up.Lerp(tr.to.Up, t).Normalize(),
		FOV:      tr.from.FOV + (tr.to.FOV-tr.from.FOV)*t,
	}
}

func (c *Controller) finishTransition(tr *transition) {
	from := c.mode
	// Land exactly on the registered state, not the last interpolated frame.
	c.live = tr.to
	c.mode = tr.target
	c.trans = nil
	c.notifyModeChanged(from, tr.target)
}

func (c *Controller) notifyModeChanged(from, to Mode) {
	if c.onModeChanged != nil && from != to {
		c.onModeChanged(from, to)
	}
}

// UpdateModeState replaces a registered mode's stored state with the value
// produced by apply. When the controller is steady in that mode the change is
// written to the live transform immediately; when a transition toward that
// mode is in flight, the transition is retargeted.
func (c *Controller) UpdateModeState(mode Mode, apply func(State) State) bool {
	s, ok := c.states[mode]
	if !ok {
		c.logger.Warn("update for unknown camera mode",
			zap.String("mode", string(mode)),
		)
		return false
	}
	next := apply(s)
	c.states[mode] = next

	if c.trans != nil {
		if c.trans.target == mode {
			c.trans.to = next
		}
		return true
	}
	if c.mode == mode {
		c.live = next
	}
	return true
}
