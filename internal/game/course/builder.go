package course

import (
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// Ball dimensions for a regulation mini-golf ball.
const (
	BallRadius = 0.0215
	BallMass   = 0.046
)

// BodySink is the slice of the physics stepper the builder needs.
type BodySink interface {
	AddBody(*physics.Body)
	RemoveBody(*physics.Body)
}

// Builder creates and tears down the physics bodies for one hole at a time.
// Every body it adds is tracked in exactly one owning slice so teardown
// removes each exactly once.
type Builder struct {
	sink   BodySink
	logger *zap.Logger
	built  []*physics.Body
}

func NewBuilder(sink BodySink, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{sink: sink, logger: logger}
}

// BuildHole creates the ground plane, perimeter walls and hazard sensor
// zones for a hole. Any previously built hole is torn down first.
func (b *Builder) BuildHole(h Hole) {
	if len(b.built) > 0 {
		b.logger.Warn("building hole over existing geometry; tearing down first",
			zap.Int("hole", h.Index),
		)
		b.Teardown()
	}

	ground := physics.NewPlane(h.SurfaceLevel, physics.MaterialGround).SetRole("ground")
	b.add(ground)

	for _, wall := range h.Walls {
		body := physics.NewBox(wall.Min, wall.Max, physics.MaterialWall).SetRole("wall")
		b.add(body)
	}

	for _, hz := range h.Hazards {
		body := physics.NewBox(hz.Zone.Min, hz.Zone.Max, physics.MaterialHazard).SetRole("hazard")
		body.Sensor = true
		body.Tags["hazard"] = string(hz.Kind)
		b.add(body)
	}

	b.logger.Debug("hole geometry built",
		zap.Int("hole", h.Index),
		zap.Int("bodies", len(b.built)),
	)
}

// NewBall creates the ball body at the given position. The ball is added to
// the world but not tracked by the builder: it survives hole teardown and is
// repositioned instead of rebuilt.
func (b *Builder) NewBall(pos physics.Vec3) *physics.Body {
	ball := physics.NewSphere(BallRadius, BallMass, physics.MaterialBall, pos).SetRole("ball")
	b.sink.AddBody(ball)
	return ball
}

// Teardown removes every body built for the current hole. Idempotent: a
// second call finds nothing to remove.
func (b *Builder) Teardown() {
	for _, body := range b.built {
		b.sink.RemoveBody(body)
	}
	b.built = nil
}

// BuiltCount reports how many bodies the current hole owns.
func (b *Builder) BuiltCount() int {
	return len(b.built)
}

func (b *Builder) add(body *physics.Body) {
	b.sink.AddBody(body)
	b.built = append(b.built, body)
}
