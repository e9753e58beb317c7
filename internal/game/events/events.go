package events

import "time"

// EventType identifies the category of a game event. The set is closed:
// subscribing to a type outside this enumeration is rejected.
type EventType string

const (
	// Ball lifecycle events
	EventBallHit         EventType = "ball:hit"
	EventBallMoving      EventType = "ball:moving"
	EventBallStopped     EventType = "ball:stopped"
	EventBallInHole      EventType = "ball:in_hole"
	EventBallReset       EventType = "ball:reset"
	EventBallOutOfBounds EventType = "ball:out_of_bounds"

	// Hole lifecycle events
	EventHoleStarted   EventType = "hole:started"
	EventHoleCompleted EventType = "hole:completed"

	// Round lifecycle events
	EventGameStarted   EventType = "game:started"
	EventGameCompleted EventType = "game:completed"
	EventGamePaused    EventType = "game:paused"
	EventGameResumed   EventType = "game:resumed"

	// Hazard events
	EventHazardDetected EventType = "hazard:detected"

	// UI action events
	EventUIContinuePrompt EventType = "ui:continue_prompt"
	EventUIContinue       EventType = "ui:continue"
	EventUIScorecard      EventType = "ui:scorecard"

	// Input events
	EventInputAim    EventType = "input:aim"
	EventInputStrike EventType = "input:strike"

	// Camera events
	EventCameraModeChanged EventType = "camera:mode_changed"

	// System events
	EventError EventType = "system:error"
)

// knownTypes is the closed enumeration the bus validates against.
var knownTypes = map[EventType]bool{
	EventBallHit:           true,
	EventBallMoving:        true,
	EventBallStopped:       true,
	EventBallInHole:        true,
	EventBallReset:         true,
	EventBallOutOfBounds:   true,
	EventHoleStarted:       true,
	EventHoleCompleted:     true,
	EventGameStarted:       true,
	EventGameCompleted:     true,
	EventGamePaused:        true,
	EventGameResumed:       true,
	EventHazardDetected:    true,
	EventUIContinuePrompt:  true,
	EventUIContinue:        true,
	EventUIScorecard:       true,
	EventInputAim:          true,
	EventInputStrike:       true,
	EventCameraModeChanged: true,
	EventError:             true,
}

// IsValid reports whether the type belongs to the closed enumeration.
func (et EventType) IsValid() bool {
	return knownTypes[et]
}

// criticalTypes are the event types whose handler failures must be surfaced
// to the user rather than only logged.
var criticalTypes = map[EventType]bool{
	EventBallHit:        true,
	EventHoleCompleted:  true,
	EventGameCompleted:  true,
	EventGameStarted:    true,
	EventHazardDetected: true,
}

// IsCritical reports whether handler failures for this type are escalated.
func (et EventType) IsCritical() bool {
	return criticalTypes[et]
}

// Event is a single published occurrence. Immutable once published.
type Event struct {
	Type      EventType
	Data      map[string]any
	Source    string
	Timestamp time.Time
}

// Handler is a subscriber callback. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler func(Event)
