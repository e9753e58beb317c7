package round

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game"
	"github.com/puttworks/putt-server-go/internal/game/camera"
	"github.com/puttworks/putt-server-go/internal/game/events"
	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// Message is one outbound frame to a round's watchers.
type Message struct {
	Type   string         `json:"type"`
	State  *game.Snapshot `json:"state,omitempty"`
	Event  *EventPayload  `json:"event,omitempty"`
	Notice string         `json:"notice,omitempty"`
}

// EventPayload is a bus event in wire form.
type EventPayload struct {
	Name     string         `json:"name"`
	Data     map[string]any `json:"data,omitempty"`
	Critical bool           `json:"critical"`
}

// command is a queued input applied on the round's own goroutine between
// ticks. The engine is single-threaded; the queue is the only way in.
type command struct {
	name  string
	apply func(e *game.Engine) error
}

// forwardedEvents are the bus events relayed to watching clients.
var forwardedEvents = []events.EventType{
	events.EventBallHit,
	events.EventBallStopped,
	events.EventBallInHole,
	events.EventBallReset,
	events.EventBallOutOfBounds,
	events.EventHoleStarted,
	events.EventHoleCompleted,
	events.EventGameStarted,
	events.EventGameCompleted,
	events.EventGamePaused,
	events.EventGameResumed,
	events.EventHazardDetected,
	events.EventUIContinuePrompt,
	events.EventCameraModeChanged,
	events.EventError,
}

// Round runs one player's game on its own goroutine: a fixed-rate tick loop
// that applies queued commands, steps the engine, and fans snapshots and
// events out to subscribers.
type Round struct {
	ID       string
	PlayerID string
	CourseID string

	engine *game.Engine
	logger *zap.Logger

	tickRate  int
	snapEvery int

	cmds chan command

	mu         sync.Mutex
	subs       map[chan Message]struct{}
	lastActive time.Time
	completed  bool
	closed     bool

	pending []events.Event
	unsub   func()
	done    chan struct{}
	once    sync.Once

	onCompleted func(r *Round, snap game.Snapshot)
	onSnapshot  func(r *Round, snap game.Snapshot)
}

func newRound(id, playerID string, engine *game.Engine, courseID string, tickRate, snapshotRate int, logger *zap.Logger) *Round {
	snapEvery := tickRate / snapshotRate
	if snapEvery < 1 {
		snapEvery = 1
	}
	r := &Round{
		ID:         id,
		PlayerID:   playerID,
		CourseID:   courseID,
		engine:     engine,
		logger:     logger,
		tickRate:   tickRate,
		snapEvery:  snapEvery,
		cmds:       make(chan command, 64),
		subs:       make(map[chan Message]struct{}),
		lastActive: time.Now(),
		done:       make(chan struct{}),
	}
	r.unsub = engine.Bus().SubscribeMany(forwardedEvents, func(ev events.Event) {
		// Runs on the round goroutine, inside engine.Step or a command.
		r.pending = append(r.pending, ev)
	}, events.WithContext("Round"))
	return r
}

// Subscribe attaches a watcher channel; the first state frame arrives on the
// next snapshot tick. Subscribing to a stopped round yields a closed channel.
func (r *Round) Subscribe() chan Message {
	ch := make(chan Message, 64)
	r.mu.Lock()
	if r.closed {
		close(ch)
	} else {
		r.subs[ch] = struct{}{}
	}
	r.mu.Unlock()
	return ch
}

// Unsubscribe detaches a watcher channel.
func (r *Round) Unsubscribe(ch chan Message) {
	r.mu.Lock()
	if _, ok := r.subs[ch]; ok {
		delete(r.subs, ch)
		close(ch)
	}
	r.mu.Unlock()
}

// run is the round's tick loop. It exits when ctx is canceled or the round
// is closed.
func (r *Round) run(ctx context.Context) {
	interval := time.Second / time.Duration(r.tickRate)
	frameDelta := 1.0 / float64(r.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.teardown()

	r.apply(command{name: "start", apply: func(e *game.Engine) error {
		e.Start()
		return nil
	}})

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case cmd := <-r.cmds:
			r.apply(cmd)
		case <-ticker.C:
			r.engine.Step(frameDelta)
			r.flushEvents()
			tick++
			if tick%uint64(r.snapEvery) == 0 {
				r.publishState()
			}
		}
	}
}

func (r *Round) apply(cmd command) {
	if err := cmd.apply(r.engine); err != nil {
		r.logger.Debug("command rejected",
			zap.String("round_id", r.ID),
			zap.String("command", cmd.name),
			zap.Error(err),
		)
		r.broadcast(Message{Type: "error", Notice: cmd.name + ": " + err.Error()})
	}
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
	r.flushEvents()
	r.publishState()
}

func (r *Round) flushEvents() {
	if len(r.pending) == 0 {
		return
	}
	batch := r.pending
	r.pending = nil
	for _, ev := range batch {
		if ev.Type == events.EventError {
			r.broadcast(Message{Type: "notice", Notice: "a game system hit an error; play continues"})
		}
		r.broadcast(Message{Type: "event", Event: &EventPayload{
			Name:     string(ev.Type),
			Data:     ev.Data,
			Critical: ev.Type.IsCritical(),
		}})
		if ev.Type == events.EventGameCompleted {
			r.onRoundCompleted()
		}
	}
}

func (r *Round) onRoundCompleted() {
	r.mu.Lock()
	already := r.completed
	r.completed = true
	r.mu.Unlock()
	if already || r.onCompleted == nil {
		return
	}
	r.onCompleted(r, r.engine.Snapshot())
}

func (r *Round) publishState() {
	snap := r.engine.Snapshot()
	r.broadcast(Message{Type: "state", State: &snap})
	if r.onSnapshot != nil {
		r.onSnapshot(r, snap)
	}
}

func (r *Round) broadcast(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- msg:
		default:
			// Slow watcher; drop the frame rather than stall the tick loop.
		}
	}
}

func (r *Round) teardown() {
	r.unsub()
	r.engine.Close()
	r.mu.Lock()
	r.closed = true
	for ch := range r.subs {
		close(ch)
	}
	r.subs = make(map[chan Message]struct{})
	r.mu.Unlock()
	r.logger.Info("round stopped", zap.String("round_id", r.ID))
}

// Close stops the round's loop. Idempotent.
func (r *Round) Close() {
	r.once.Do(func() { close(r.done) })
}

// Completed reports whether the round finished all holes.
func (r *Round) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// IdleFor reports how long since the round last received a command.
func (r *Round) IdleFor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastActive)
}

func (r *Round) enqueue(cmd command) bool {
	select {
	case r.cmds <- cmd:
		return true
	default:
		r.logger.Warn("command queue full, dropping",
			zap.String("round_id", r.ID),
			zap.String("command", cmd.name),
		)
		return false
	}
}

// Aim queues an aim command.
func (r *Round) Aim(x, z float64) bool {
	return r.enqueue(command{name: "aim", apply: func(e *game.Engine) error {
		return e.Aim(physics.NewVec3(x, 0, z))
	}})
}

// Strike queues a strike command.
func (r *Round) Strike(power float64) bool {
	return r.enqueue(command{name: "strike", apply: func(e *game.Engine) error {
		return e.Strike(power)
	}})
}

// Continue queues the advance to the next hole.
func (r *Round) Continue() bool {
	return r.enqueue(command{name: "continue", apply: func(e *game.Engine) error {
		e.Continue()
		return nil
	}})
}

// SetCameraMode queues a camera mode change.
func (r *Round) SetCameraMode(mode string, immediate bool) bool {
	return r.enqueue(command{name: "camera", apply: func(e *game.Engine) error {
		e.Camera().SetMode(camera.Mode(mode), immediate)
		return nil
	}})
}

// Pause queues a pause.
func (r *Round) Pause() bool {
	return r.enqueue(command{name: "pause", apply: func(e *game.Engine) error {
		e.Pause()
		return nil
	}})
}

// Resume queues a resume.
func (r *Round) Resume() bool {
	return r.enqueue(command{name: "resume", apply: func(e *game.Engine) error {
		e.Resume()
		return nil
	}})
}
