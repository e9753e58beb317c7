package physics

import (
	"math"
	"testing"
)

func TestGravityIntegration(t *testing.T) {
	w := NewWorld(DefaultGravity)
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 10})
	w.AddBody(ball)

	for i := 0; i < 60; i++ {
		if err := w.StepOnce(FixedTimestep); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if ball.Position.Y >= 10 {
		t.Errorf("ball did not fall: y = %v", ball.Position.Y)
	}
	if ball.Velocity.Y >= 0 {
		t.Errorf("ball not moving down: vy = %v", ball.Velocity.Y)
	}
}

func TestSpherePlaneContactStopsFall(t *testing.T) {
	w := NewWorld(DefaultGravity)
	w.AddBody(NewPlane(0, MaterialGround))
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 0.5})
	w.AddBody(ball)

	for i := 0; i < 600; i++ {
		if err := w.StepOnce(FixedTimestep); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if got := ball.Position.Y; math.Abs(got-ball.Radius) > 1e-6 {
		t.Errorf("ball resting height = %v, want %v", got, ball.Radius)
	}
	if !ball.Sleeping {
		t.Error("ball should be asleep after settling")
	}
}

func TestRollingBallSleepsFromFriction(t *testing.T) {
	w := NewWorld(DefaultGravity)
	w.AddBody(NewPlane(0, MaterialGround))
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 0.02})
	ball.Velocity = Vec3{X: 1.5}
	w.AddBody(ball)

	for i := 0; i < 60*30 && !ball.Sleeping; i++ {
		if err := w.StepOnce(FixedTimestep); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if !ball.Sleeping {
		t.Fatalf("ball never came to rest, speed = %v", ball.Speed())
	}
	if !ball.Velocity.IsZero() {
		t.Errorf("sleeping ball retains velocity %+v", ball.Velocity)
	}
}

func TestWallBounceReflectsVelocity(t *testing.T) {
	w := NewWorld(Vec3{}) // no gravity, pure reflection
	wall := NewBox(Vec3{X: 1, Y: -1, Z: -1}, Vec3{X: 1.2, Y: 1, Z: 1}, MaterialWall)
	wall.SetRole("wall")
	w.AddBody(wall)
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{X: 0.9})
	ball.SetRole("ball")
	ball.Velocity = Vec3{X: 2}
	w.AddBody(ball)

	var hits []Collision
	w.SetCollisionCallback(func(c Collision) { hits = append(hits, c) })

	for i := 0; i < 30; i++ {
		if err := w.StepOnce(FixedTimestep); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if ball.Velocity.X >= 0 {
		t.Errorf("ball not reflected: vx = %v", ball.Velocity.X)
	}
	if len(hits) == 0 {
		t.Fatal("no collision reported")
	}
	if hits[0].RoleA != "ball" || hits[0].RoleB != "wall" {
		t.Errorf("collision roles = %q/%q", hits[0].RoleA, hits[0].RoleB)
	}
}

func TestSensorReportsWithoutImpulse(t *testing.T) {
	w := NewWorld(Vec3{})
	zone := NewBox(Vec3{X: 0.5, Y: -1, Z: -1}, Vec3{X: 2, Y: 1, Z: 1}, MaterialHazard)
	zone.Sensor = true
	zone.SetRole("hazard")
	w.AddBody(zone)
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{X: 0.4})
	ball.SetRole("ball")
	ball.Velocity = Vec3{X: 2}
	w.AddBody(ball)

	var overlaps int
	w.SetCollisionCallback(func(c Collision) {
		if c.RoleB == "hazard" {
			overlaps++
		}
	})

	for i := 0; i < 30; i++ {
		if err := w.StepOnce(FixedTimestep); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if overlaps == 0 {
		t.Error("sensor overlap never reported")
	}
	if ball.Velocity.X <= 0 {
		t.Errorf("sensor must not deflect the ball: vx = %v", ball.Velocity.X)
	}
}

func TestSphereSphereImpulseExchange(t *testing.T) {
	w := NewWorld(Vec3{})
	a := NewSphere(0.02, 0.045, MaterialBall, Vec3{})
	a.Velocity = Vec3{X: 1}
	b := NewSphere(0.02, 0.045, MaterialBall, Vec3{X: 0.05})
	w.AddBody(a)
	w.AddBody(b)

	for i := 0; i < 10; i++ {
		if err := w.StepOnce(FixedTimestep); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if b.Velocity.X <= 0 {
		t.Errorf("struck ball did not move: vx = %v", b.Velocity.X)
	}
	if a.Velocity.X >= 1 {
		t.Errorf("striking ball kept full speed: vx = %v", a.Velocity.X)
	}
}

func TestStepOnceReportsNonFiniteState(t *testing.T) {
	w := NewWorld(DefaultGravity)
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 1})
	w.AddBody(ball)
	ball.Position.X = math.NaN()

	if err := w.StepOnce(FixedTimestep); err == nil {
		t.Fatal("expected non-finite state error")
	}
}

func TestRemoveBodyFreezesAndRemovesExactlyOnce(t *testing.T) {
	w := NewWorld(DefaultGravity)
	ball := NewSphere(0.02, 0.045, MaterialBall, Vec3{Y: 1})
	ball.Velocity = Vec3{X: 3}
	ball.Force = Vec3{Y: 1}
	w.AddBody(ball)

	w.RemoveBody(ball)
	if len(w.Bodies()) != 0 {
		t.Fatalf("world still holds %d bodies", len(w.Bodies()))
	}
	if !ball.Velocity.IsZero() || !ball.Force.IsZero() {
		t.Errorf("removed body retains motion: vel=%+v force=%+v", ball.Velocity, ball.Force)
	}
	if ball.Sleeping {
		t.Error("removed body should be awake")
	}

	// Double removal is a no-op.
	w.RemoveBody(ball)
}
