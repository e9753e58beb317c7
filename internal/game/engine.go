package game

import (
	"errors"

	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game/camera"
	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/game/events"
	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// Config tunes per-round engine behavior.
type Config struct {
	// MaxStrikePower caps the ball speed a strike can impart, in m/s.
	MaxStrikePower float64
	// HazardResetDelay is the frame-clock delay between a water hazard entry
	// and the ball reset, in seconds.
	HazardResetDelay float64
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		MaxStrikePower:   8.0,
		HazardResetDelay: 0.8,
	}
}

// restSpeed is the threshold below which the ball counts as at rest even if
// the physics sleep state has not latched yet.
const restSpeed = 0.05

// sandDamping is applied to the ball's velocity each sub-step it overlaps a
// sand zone.
const sandDamping = 0.9

var (
	ErrNoBall        = errors.New("no ball in play")
	ErrBallMoving    = errors.New("ball is still moving")
	ErrRoundInactive = errors.New("round is not active")
	ErrBadDirection  = errors.New("aim direction must be non-zero")
	ErrBadPower      = errors.New("strike power must be positive")
)

// Engine orchestrates one round: the per-frame control flow of physics,
// progression, camera and scheduler, plus the player input operations. It is
// single-threaded by design; the round loop is the only caller.
type Engine struct {
	logger *zap.Logger
	cfg    Config

	bus     *events.Bus
	stepper *physics.Stepper
	sched   *Scheduler
	cam     *camera.Controller
	builder *course.Builder
	score   *ScoreKeeper
	prog    *Progression

	crs  *course.Course
	ball *physics.Body

	aimDir       physics.Vec3
	preStrokePos physics.Vec3
	ballMoving   bool
	paused       bool
	started      bool
	frame        uint64

	waterResetPending bool
	sandNotified      bool
}

// NewEngine builds a fully wired engine for one round on the given course.
func NewEngine(crs *course.Course, cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := crs.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxStrikePower <= 0 {
		cfg = DefaultConfig()
	}

	bus := events.NewBus(logger)
	stepper := physics.NewStepper(logger).Init()

	e := &Engine{
		logger:  logger,
		cfg:     cfg,
		bus:     bus,
		stepper: stepper,
		sched:   NewScheduler(),
		builder: course.NewBuilder(stepper, logger),
		crs:     crs,
		aimDir:  physics.NewVec3(0, 0, -1),
	}

	e.cam = camera.NewController(logger, camera.ModeOverhead, defaultCameraStates())
	e.cam.SetModeChangedCallback(func(from, to camera.Mode) {
		bus.Publish(events.EventCameraModeChanged, map[string]any{
			"from": string(from),
			"to":   string(to),
		}, "CameraController")
	})

	e.score = NewScoreKeeper(bus, crs, logger)
	e.prog = NewProgression(bus, e.sched, e, e, e, e.score, logger)
	stepper.SetCollisionCallback(e.onCollision)

	return e, nil
}

func defaultCameraStates() map[camera.Mode]camera.State {
	return map[camera.Mode]camera.State{
		camera.ModeOverhead: {
			Position: physics.NewVec3(0, 10, 0.1),
			Target:   physics.NewVec3(0, 0, 0),
			Up:       physics.NewVec3(0, 0, -1),
			FOV:      60,
		},
		camera.ModeBallFollow: {
			Position: physics.NewVec3(0, 1.5, 2.5),
			Target:   physics.NewVec3(0, 0, 0),
			Up:       physics.NewVec3(0, 1, 0),
			FOV:      55,
		},
		camera.ModeAiming: {
			Position: physics.NewVec3(0, 0.8, 1.6),
			Target:   physics.NewVec3(0, 0, -2),
			Up:       physics.NewVec3(0, 1, 0),
			FOV:      50,
		},
		camera.ModeManual: {
			Position: physics.NewVec3(4, 4, 4),
			Target:   physics.NewVec3(0, 0, 0),
			Up:       physics.NewVec3(0, 1, 0),
			FOV:      60,
		},
	}
}

// Bus exposes the round's event bus so outer layers can observe the game.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Camera exposes the camera controller for mode switches requested by the
// client.
func (e *Engine) Camera() *camera.Controller {
	return e.cam
}

// Progression exposes the hole state machine read-only surface.
func (e *Engine) Progression() *Progression {
	return e.prog
}

// Score exposes the scorekeeper.
func (e *Engine) Score() *ScoreKeeper {
	return e.score
}

// Start begins the round at hole zero. Idempotent: a started engine ignores
// repeated starts.
func (e *Engine) Start() bool {
	if e.started {
		return false
	}
	e.started = e.prog.Start()
	return e.started
}

// Step advances the round by one frame. Order matters: the scheduler fires
// delayed tasks first, physics integrates, ball state edges publish, then
// progression checks for completion, and the camera interpolates last so it
// sees this frame's final positions.
func (e *Engine) Step(frameDelta float64) {
	if e.paused || !e.started {
		return
	}
	e.frame++

	e.sched.Advance(frameDelta)
	e.stepper.Step(frameDelta)
	e.trackBallState()
	e.prog.CheckBallInHole()
	e.trackBallFollowCamera()
	e.cam.Update(frameDelta)
}

func (e *Engine) trackBallState() {
	if e.ball == nil {
		return
	}
	moving := !e.BallAtRest()
	if moving && !e.ballMoving {
		e.bus.Publish(events.EventBallMoving, map[string]any{
			"speed": e.ball.Speed(),
		}, "Engine")
	}
	if !moving && e.ballMoving {
		e.bus.Publish(events.EventBallStopped, map[string]any{
			"position": e.ball.Position,
		}, "Engine")
	}
	e.ballMoving = moving

	e.checkOutOfBounds()
}

func (e *Engine) checkOutOfBounds() {
	hole, ok := e.Hole(e.prog.HoleIndex())
	if !ok || e.waterResetPending {
		return
	}
	pos := e.ball.Position
	margin := 0.5
	out := pos.Y < hole.SurfaceLevel-1.0 ||
		pos.X < hole.Bounds.Min.X-margin || pos.X > hole.Bounds.Max.X+margin ||
		pos.Z < hole.Bounds.Min.Z-margin || pos.Z > hole.Bounds.Max.Z+margin
	if !out {
		return
	}
	e.bus.Publish(events.EventBallOutOfBounds, map[string]any{
		"position": pos,
	}, "Engine")
	e.schedulePenaltyReset()
}

func (e *Engine) trackBallFollowCamera() {
	if e.ball == nil {
		return
	}
	pos := e.ball.Position
	e.cam.UpdateModeState(camera.ModeBallFollow, func(s camera.State) camera.State {
		s.Target = pos
		s.Position = pos.Plus(physics.NewVec3(0, 1.5, 2.5))
		return s
	})
}

// onCollision reacts to contact reports by role tag; it never sees physics
// engine internals beyond the two bodies.
func (e *Engine) onCollision(c physics.Collision) {
	if c.RoleA != "ball" {
		return
	}
	switch c.RoleB {
	case "hazard":
		e.onHazard(c.BodyB)
	}
}

func (e *Engine) onHazard(zone *physics.Body) {
	kind := zone.Tags["hazard"]
	switch course.HazardKind(kind) {
	case course.HazardWater:
		if e.waterResetPending {
			return
		}
		e.waterResetPending = true
		e.bus.Publish(events.EventHazardDetected, map[string]any{
			"kind": kind,
		}, "Engine")
		e.schedulePenaltyReset()
	case course.HazardSand:
		if e.ball != nil {
			e.ball.Velocity = e.ball.Velocity.Times(sandDamping)
		}
		if !e.sandNotified {
			e.sandNotified = true
			e.bus.Publish(events.EventHazardDetected, map[string]any{
				"kind": kind,
			}, "Engine")
		}
	}
}

// schedulePenaltyReset returns the ball to its pre-stroke position with a
// one-stroke penalty after a short beat, so the client can show the splash.
func (e *Engine) schedulePenaltyReset() {
	if e.ball == nil {
		return
	}
	e.waterResetPending = true
	resetTo := e.preStrokePos
	e.sched.After(e.cfg.HazardResetDelay, func() {
		e.waterResetPending = false
		e.PlaceBall(resetTo)
		e.bus.Publish(events.EventBallReset, map[string]any{
			"position": resetTo,
			"penalty":  true,
		}, "Engine")
	})
}

// Aim points the next strike. The direction is flattened to the surface
// plane and normalized. Legal whenever the ball is in play and at rest.
func (e *Engine) Aim(dir physics.Vec3) error {
	if e.prog.State() != ProgressionActiveHole {
		return ErrRoundInactive
	}
	if e.ball == nil {
		return ErrNoBall
	}
	flat := physics.NewVec3(dir.X, 0, dir.Z)
	if flat.IsZero() || !flat.IsFinite() {
		return ErrBadDirection
	}
	e.aimDir = flat.Normalize()
	e.bus.Publish(events.EventInputAim, map[string]any{
		"direction": e.aimDir,
	}, "Engine")
	e.cam.SetMode(camera.ModeAiming, false)
	return nil
}

// Strike hits the ball along the current aim with the given power (target
// ball speed in m/s, clamped to the configured maximum). Rejected while the
// ball is moving, while the hole is completed, or before the round starts.
func (e *Engine) Strike(power float64) error {
	if e.prog.State() != ProgressionActiveHole {
		return ErrRoundInactive
	}
	if e.ball == nil {
		return ErrNoBall
	}
	if !e.BallAtRest() {
		return ErrBallMoving
	}
	if power <= 0 {
		return ErrBadPower
	}
	if power > e.cfg.MaxStrikePower {
		power = e.cfg.MaxStrikePower
	}

	e.preStrokePos = e.ball.Position
	e.sandNotified = false
	e.ball.ApplyImpulse(e.aimDir.Times(power * e.ball.Mass))

	e.bus.Publish(events.EventBallHit, map[string]any{
		"power":     power,
		"direction": e.aimDir,
		"hole":      e.prog.HoleIndex(),
	}, "Engine")
	e.cam.SetMode(camera.ModeBallFollow, false)
	return nil
}

// Continue advances to the next hole after a completion; the UI sends it in
// response to the continue prompt.
func (e *Engine) Continue() bool {
	return e.prog.NextHole()
}

// Pause suspends the round: physics stops stepping and the bus is disabled
// so no game logic reacts to stale events. Idempotent.
func (e *Engine) Pause() {
	if e.paused {
		return
	}
	e.paused = true
	e.bus.Publish(events.EventGamePaused, nil, "Engine")
	e.bus.Disable()
	e.stepper.Pause()
}

// Resume lifts a pause. Idempotent.
func (e *Engine) Resume() {
	if !e.paused {
		return
	}
	e.paused = false
	e.stepper.Resume()
	e.bus.Enable()
	e.bus.Publish(events.EventGameResumed, nil, "Engine")
}

// Paused reports whether the round is suspended.
func (e *Engine) Paused() bool {
	return e.paused
}

// Close tears down the round's physics state and bus subscriptions.
func (e *Engine) Close() {
	e.builder.Teardown()
	if e.ball != nil {
		e.stepper.RemoveBody(e.ball)
		e.ball = nil
	}
	e.score.Detach()
	e.bus.Clear()
}

// --- CourseHost ---

func (e *Engine) HoleCount() int {
	return len(e.crs.Holes)
}

func (e *Engine) Hole(index int) (course.Hole, bool) {
	if index < 0 || index >= len(e.crs.Holes) {
		return course.Hole{}, false
	}
	return e.crs.Holes[index], true
}

// BuildHole replaces the current hole geometry with the named hole's. The
// builder tears the previous hole down first, so every body is removed
// exactly once.
func (e *Engine) BuildHole(index int) bool {
	hole, ok := e.Hole(index)
	if !ok {
		e.logger.Warn("build requested for missing hole", zap.Int("hole", index))
		return false
	}
	e.builder.BuildHole(hole)
	return true
}

// --- BallHost ---

func (e *Engine) BallPosition() (physics.Vec3, bool) {
	if e.ball == nil {
		return physics.Vec3{}, false
	}
	return e.ball.Position, true
}

func (e *Engine) BallAtRest() bool {
	if e.ball == nil {
		return false
	}
	return e.ball.Sleeping || e.ball.Speed() < restSpeed
}

// PlaceBall creates the ball on first use and thereafter repositions it with
// all motion state cleared.
func (e *Engine) PlaceBall(pos physics.Vec3) {
	if e.ball == nil {
		e.ball = e.builder.NewBall(pos)
	} else {
		e.ball.Freeze()
		e.ball.Position = pos
	}
	e.preStrokePos = pos
	e.ballMoving = false
}

// --- CameraHost ---

// FrameHole recomputes the per-mode camera states for a new hole and snaps
// to the overhead view. Any in-flight transition is completed first so the
// hole change is never visibly delayed by a camera animation.
func (e *Engine) FrameHole(h course.Hole) {
	e.cam.CompleteTransition()

	center := h.Start.Plus(h.Cup).Times(0.5)
	span := h.Start.Distance(h.Cup)
	height := span*1.1 + 3

	overhead := camera.State{
		Position: physics.NewVec3(center.X, h.SurfaceLevel+height, center.Z+0.1),
		Target:   center,
		Up:       physics.NewVec3(0, 0, -1),
		FOV:      60,
	}
	toCup := h.Cup.Minus(h.Start).Normalize()
	aiming := camera.State{
		Position: h.Start.Minus(toCup.Times(1.6)).Plus(physics.NewVec3(0, 0.8, 0)),
		Target:   h.Cup,
		Up:       physics.NewVec3(0, 1, 0),
		FOV:      50,
	}
	follow := camera.State{
		Position: h.Start.Plus(physics.NewVec3(0, 1.5, 2.5)),
		Target:   h.Start,
		Up:       physics.NewVec3(0, 1, 0),
		FOV:      55,
	}

	e.cam.RegisterMode(camera.ModeAiming, aiming)
	e.cam.RegisterMode(camera.ModeBallFollow, follow)
	// UpdateModeState applies the new overhead state to the live transform
	// when the camera is already steady in overhead; SetMode covers the rest.
	e.cam.UpdateModeState(camera.ModeOverhead, func(camera.State) camera.State {
		return overhead
	})
	e.cam.SetMode(camera.ModeOverhead, true)
}
