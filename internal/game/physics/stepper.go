package physics

import (
	"go.uber.org/zap"
)

// FixedTimestep is the simulation sub-step in seconds. The variable frame
// delta only decides how many fixed sub-steps to run.
const FixedTimestep = 1.0 / 60.0

const (
	// maxSubSteps bounds the work per Step call so a long stall cannot cause
	// a spiral of death; backlog beyond the bound is dropped.
	maxSubSteps = 5
	// maxFrameDelta clamps pathological frame deltas before accumulation.
	maxFrameDelta = 0.25
)

// DefaultGravity is standard downward gravity.
var DefaultGravity = Vec3{Y: -9.81}

// Stepper wraps a World and advances it on a fixed timestep independent of
// the variable frame rate. Simulation faults never propagate to the frame
// driver: the stepper logs, freezes every body in place for one frame, and
// returns normally so the next frame can retry.
type Stepper struct {
	world       *World
	logger      *zap.Logger
	accumulator float64
	paused      bool
	lastSteps   int
}

// NewStepper constructs an uninitialized stepper. Call Init before stepping.
func NewStepper(logger *zap.Logger) *Stepper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stepper{logger: logger}
}

// Init constructs the physics world with fixed gravity and the named material
// set. Returns the stepper for chaining.
func (s *Stepper) Init() *Stepper {
	s.world = NewWorld(DefaultGravity)
	s.accumulator = 0
	s.lastSteps = 0
	return s
}

// World exposes the underlying world for read access (body positions).
func (s *Stepper) World() *World {
	return s.world
}

// Step advances the simulation by running fixed sub-steps out of the
// accumulated frame delta. Never panics and never returns an error: faults
// are recovered by freezing the scene for one frame.
func (s *Stepper) Step(frameDelta float64) {
	if s.paused || s.world == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("physics step panicked; freezing scene",
				zap.Any("panic", r),
			)
			s.freezeAll()
			s.accumulator = 0
		}
	}()

	if frameDelta < 0 {
		frameDelta = 0
	}
	if frameDelta > maxFrameDelta {
		frameDelta = maxFrameDelta
	}
	s.accumulator += frameDelta

	steps := 0
	for s.accumulator >= FixedTimestep && steps < maxSubSteps {
		if err := s.world.StepOnce(FixedTimestep); err != nil {
			s.logger.Error("physics step failed; freezing scene",
				zap.Error(err),
			)
			s.freezeAll()
			s.accumulator = 0
			s.lastSteps = steps
			return
		}
		s.accumulator -= FixedTimestep
		steps++
	}
	if steps == maxSubSteps {
		// Drop the backlog rather than trying to catch up next frame.
		s.accumulator = 0
	}
	s.lastSteps = steps
}

// LastSubSteps reports how many fixed sub-steps the previous Step call ran.
func (s *Stepper) LastSubSteps() int {
	return s.lastSteps
}

func (s *Stepper) freezeAll() {
	for _, b := range s.world.Bodies() {
		b.Freeze()
	}
}

// AddBody adds a body to the world.
func (s *Stepper) AddBody(b *Body) {
	s.world.AddBody(b)
}

// RemoveBody removes a body; the world freezes it first.
func (s *Stepper) RemoveBody(b *Body) {
	s.world.RemoveBody(b)
}

// Reset removes every body and rebuilds the contact-material table. Used when
// restarting a hole or the whole round.
func (s *Stepper) Reset() {
	s.world.Clear()
	s.accumulator = 0
	s.lastSteps = 0
}

// Pause suspends stepping. Idempotent.
func (s *Stepper) Pause() {
	s.paused = true
}

// Resume re-enables stepping. Idempotent.
func (s *Stepper) Resume() {
	s.paused = false
}

// Paused reports whether the stepper is suspended.
func (s *Stepper) Paused() bool {
	return s.paused
}

func (s *Stepper) SetGravity(g Vec3) {
	s.world.SetGravity(g)
}

// Material looks up a named material; unknown names are logged and return the
// zero Material.
func (s *Stepper) Material(name string) Material {
	m, ok := s.world.Material(name)
	if !ok {
		s.logger.Warn("unknown physics material requested",
			zap.String("material", name),
		)
		return Material{}
	}
	return m
}

// SetCollisionCallback registers the contact notification hook. The callback
// receives role tags, not engine internals.
func (s *Stepper) SetCollisionCallback(fn CollisionFunc) {
	s.world.SetCollisionCallback(fn)
}
