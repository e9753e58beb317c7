package game

import (
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/game/events"
	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// ProgressionState is the hole/course state machine.
type ProgressionState int

const (
	ProgressionActiveHole ProgressionState = iota
	ProgressionHoleCompleted
	ProgressionRoundCompleted
)

var progressionNames = map[ProgressionState]string{
	ProgressionActiveHole:     "ACTIVE_HOLE",
	ProgressionHoleCompleted:  "HOLE_COMPLETED",
	ProgressionRoundCompleted: "ROUND_COMPLETED",
}

func (s ProgressionState) String() string {
	if name, ok := progressionNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// continueDelay is how long after hole completion the continue prompt is
// raised, measured on the frame clock.
const continueDelay = 1.5

// Publisher is the event-publishing slice of the bus.
type Publisher interface {
	Publish(eventType events.EventType, data map[string]any, source string)
}

// Scorer supplies stroke counts for completion event payloads.
type Scorer interface {
	CurrentHoleStrokes() int
	TotalStrokes() int
	Scorecard() []HoleScore
}

// CourseHost builds and tears down hole geometry.
type CourseHost interface {
	HoleCount() int
	Hole(index int) (course.Hole, bool)
	BuildHole(index int) bool
}

// BallHost exposes the ball's physical state.
type BallHost interface {
	BallPosition() (physics.Vec3, bool)
	BallAtRest() bool
	PlaceBall(pos physics.Vec3)
}

// CameraHost repositions the camera when a hole starts.
type CameraHost interface {
	FrameHole(h course.Hole)
}

// Progression decides when the ball is in the hole, finalizes scoring for the
// current hole, and advances through the course. It is the single writer of
// "which hole is active".
type Progression struct {
	logger *zap.Logger
	bus    Publisher
	sched  *Scheduler
	crs    CourseHost
	ball   BallHost
	camera CameraHost
	score  Scorer

	state         ProgressionState
	holeIndex     int
	holeCompleted bool
	cancelPrompt  func()
}

// NewProgression wires a progression controller to its collaborators.
func NewProgression(bus Publisher, sched *Scheduler, crs CourseHost, ball BallHost, cam CameraHost, score Scorer, logger *zap.Logger) *Progression {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Progression{
		logger: logger,
		bus:    bus,
		sched:  sched,
		crs:    crs,
		ball:   ball,
		camera: cam,
		score:  score,
		state:  ProgressionActiveHole,
	}
}

// State returns the current progression state.
func (p *Progression) State() ProgressionState {
	return p.state
}

// HoleIndex returns the index of the active hole.
func (p *Progression) HoleIndex() int {
	return p.holeIndex
}

// Start begins the round at hole zero.
func (p *Progression) Start() bool {
	if p.crs.HoleCount() == 0 {
		p.logger.Warn("cannot start round: no course loaded")
		return false
	}
	p.state = ProgressionActiveHole
	p.holeIndex = 0
	p.holeCompleted = false

	p.bus.Publish(events.EventGameStarted, map[string]any{
		"holes": p.crs.HoleCount(),
	}, "Progression")
	p.beginHole()
	return true
}

func (p *Progression) beginHole() {
	hole, ok := p.crs.Hole(p.holeIndex)
	if !ok {
		p.logger.Warn("hole missing at begin", zap.Int("hole", p.holeIndex))
		return
	}
	p.crs.BuildHole(p.holeIndex)
	p.ball.PlaceBall(hole.Start)
	p.camera.FrameHole(hole)
	p.bus.Publish(events.EventHoleStarted, map[string]any{
		"hole": hole.Index,
		"par":  hole.Par,
		"name": hole.Name,
	}, "Progression")
}

// CheckBallInHole is called once per frame while a hole is active. The entry
// criterion is: planar distance to the cup below the cup radius AND (the ball
// is at rest OR it has sunk below the surface level). The disjunction is
// deliberate: a slow ball lipping the cup and a fast ball dropping straight
// in are both valid entries. A ball merely resting in a depression near the
// cup can also satisfy the first arm; that tolerance is intentional and
// characterized in tests rather than tightened here.
//
// Returns true only on the frame completion is detected; at most once per
// hole instance.
func (p *Progression) CheckBallInHole() bool {
	if p.state != ProgressionActiveHole || p.holeCompleted {
		return false
	}
	hole, ok := p.crs.Hole(p.holeIndex)
	if !ok {
		return false
	}
	pos, ok := p.ball.BallPosition()
	if !ok {
		return false
	}

	if pos.PlanarDistance(hole.Cup) > hole.CupRadius {
		return false
	}
	sunk := pos.Y < hole.SurfaceLevel
	if !p.ball.BallAtRest() && !sunk {
		return false
	}

	p.holeCompleted = true
	p.state = ProgressionHoleCompleted

	strokes := p.score.CurrentHoleStrokes()
	total := p.score.TotalStrokes()
	p.logger.Info("ball in hole",
		zap.Int("hole", hole.Index),
		zap.Int("strokes", strokes),
		zap.Int("total", total),
	)

	p.bus.Publish(events.EventBallInHole, map[string]any{
		"hole":     hole.Index,
		"strokes":  strokes,
		"total":    total,
		"position": pos,
	}, "Progression")
	p.bus.Publish(events.EventHoleCompleted, map[string]any{
		"hole":    hole.Index,
		"par":     hole.Par,
		"strokes": strokes,
	}, "Progression")

	p.cancelPrompt = p.sched.After(continueDelay, func() {
		p.bus.Publish(events.EventUIContinuePrompt, map[string]any{
			"hole":     hole.Index,
			"lastHole": p.holeIndex >= p.crs.HoleCount()-1,
		}, "Progression")
	})
	return true
}

// NextHole advances to the next hole, or completes the round after the last
// one. Only legal from HoleCompleted; while RoundCompleted it re-triggers the
// completion event without advancing, and from ActiveHole it is rejected.
func (p *Progression) NextHole() bool {
	switch p.state {
	case ProgressionRoundCompleted:
		// Idempotent re-trigger, never a double advance.
		p.publishRoundCompleted()
		return false
	case ProgressionActiveHole:
		p.logger.Warn("next hole requested while hole still active",
			zap.Int("hole", p.holeIndex),
		)
		return false
	}

	if p.cancelPrompt != nil {
		p.cancelPrompt()
		p.cancelPrompt = nil
	}

	if p.holeIndex+1 >= p.crs.HoleCount() {
		p.state = ProgressionRoundCompleted
		p.publishRoundCompleted()
		return true
	}

	p.holeIndex++
	p.holeCompleted = false
	p.state = ProgressionActiveHole
	p.beginHole()
	return true
}

func (p *Progression) publishRoundCompleted() {
	p.bus.Publish(events.EventGameCompleted, map[string]any{
		"totalStrokes": p.score.TotalStrokes(),
		"scorecard":    p.score.Scorecard(),
	}, "Progression")
}
