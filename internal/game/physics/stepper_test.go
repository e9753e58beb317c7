package physics

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

func newTestStepper() *Stepper {
	return NewStepper(zap.NewNop()).Init()
}

func TestStepRunsFixedSubSteps(t *testing.T) {
	s := newTestStepper()
	s.AddBody(NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 10}))

	s.Step(FixedTimestep)
	if got := s.LastSubSteps(); got != 1 {
		t.Errorf("one timestep of delta ran %d sub-steps, want 1", got)
	}

	s.Step(2 * FixedTimestep)
	if got := s.LastSubSteps(); got != 2 {
		t.Errorf("double delta ran %d sub-steps, want 2", got)
	}
}

func TestStepBoundsSubStepsAfterStall(t *testing.T) {
	s := newTestStepper()
	s.AddBody(NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 10}))

	s.Step(3.0) // simulated stall, far beyond the clamp
	if got := s.LastSubSteps(); got != maxSubSteps {
		t.Errorf("stalled frame ran %d sub-steps, want bound %d", got, maxSubSteps)
	}

	// The backlog is dropped: the next normal frame runs normally.
	s.Step(FixedTimestep)
	if got := s.LastSubSteps(); got != 1 {
		t.Errorf("frame after stall ran %d sub-steps, want 1", got)
	}
}

func TestSmallDeltaAccumulates(t *testing.T) {
	s := newTestStepper()
	s.AddBody(NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 10}))

	half := FixedTimestep / 2
	s.Step(half)
	if got := s.LastSubSteps(); got != 0 {
		t.Errorf("half timestep ran %d sub-steps, want 0", got)
	}
	s.Step(half)
	if got := s.LastSubSteps(); got != 1 {
		t.Errorf("accumulated timestep ran %d sub-steps, want 1", got)
	}
}

func TestFaultFreezesEveryBody(t *testing.T) {
	s := newTestStepper()
	broken := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 1})
	bystander := NewSphere(0.02, 0.045, MaterialBall, Vec3{X: 5, Y: 1})
	bystander.Velocity = Vec3{X: 2}
	s.AddBody(broken)
	s.AddBody(bystander)

	broken.Position.X = math.NaN()
	s.Step(FixedTimestep) // must not panic and must not propagate the error

	for _, b := range s.World().Bodies() {
		if !b.Velocity.IsZero() || !b.AngularVelocity.IsZero() {
			t.Errorf("body %d not frozen after fault: vel=%+v ang=%+v",
				b.ID, b.Velocity, b.AngularVelocity)
		}
		if b.Sleeping {
			t.Errorf("body %d asleep after fault; must be awake", b.ID)
		}
	}

	// Next frame retries cleanly once the bad state is repaired.
	broken.Position = Vec3{Y: 1}
	s.Step(FixedTimestep)
	if got := s.LastSubSteps(); got != 1 {
		t.Errorf("retry frame ran %d sub-steps, want 1", got)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	s := newTestStepper()
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 10})
	s.AddBody(ball)

	s.Pause()
	s.Pause()
	start := ball.Position
	s.Step(FixedTimestep)
	if ball.Position != start {
		t.Error("paused stepper moved a body")
	}

	s.Resume()
	s.Resume()
	s.Step(FixedTimestep)
	if ball.Position == start {
		t.Error("resumed stepper did not move the body")
	}
}

func TestResetClearsWorld(t *testing.T) {
	s := newTestStepper()
	s.AddBody(NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 1}))
	s.AddBody(NewPlane(0, MaterialGround))

	s.Reset()
	if n := len(s.World().Bodies()); n != 0 {
		t.Errorf("world holds %d bodies after reset", n)
	}

	// Contact table is rebuilt, not lost.
	c := s.World().ContactFor(MaterialBall, MaterialGround)
	if c.Friction == 0 && c.Restitution == 0 {
		t.Error("contact table missing after reset")
	}
}

func TestMaterialLookup(t *testing.T) {
	s := newTestStepper()
	if m := s.Material(MaterialBall); m.Name != MaterialBall {
		t.Errorf("Material(ball) = %+v", m)
	}
	if m := s.Material("lava"); m.Name != "" {
		t.Errorf("unknown material should return zero value, got %+v", m)
	}
}
