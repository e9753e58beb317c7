package game

import (
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/game/events"
)

// HoleScore is one row of the scorecard.
type HoleScore struct {
	Hole    int  `json:"hole"`
	Par     int  `json:"par"`
	Strokes int  `json:"strokes"`
	Done    bool `json:"done"`
}

// ScoreKeeper accumulates stroke counts by listening to bus events: every
// ball:hit adds a stroke to the current hole, a penalized ball:reset adds the
// hazard penalty stroke, hole:started moves the cursor. It never mutates game
// state, only observes it.
type ScoreKeeper struct {
	logger    *zap.Logger
	crs       *course.Course
	current   int
	strokes   map[int]int
	completed map[int]bool
	unsub     func()
}

// NewScoreKeeper attaches a scorekeeper to the bus.
func NewScoreKeeper(bus *events.Bus, crs *course.Course, logger *zap.Logger) *ScoreKeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	sk := &ScoreKeeper{
		logger:    logger,
		crs:       crs,
		strokes:   make(map[int]int),
		completed: make(map[int]bool),
	}
	sk.unsub = bus.SubscribeMany([]events.EventType{
		events.EventGameStarted,
		events.EventHoleStarted,
		events.EventHoleCompleted,
		events.EventBallHit,
		events.EventBallReset,
	}, sk.handle, events.WithContext("ScoreKeeper"))
	return sk
}

// Detach removes the scorekeeper's bus subscriptions.
func (sk *ScoreKeeper) Detach() {
	if sk.unsub != nil {
		sk.unsub()
		sk.unsub = nil
	}
}

func (sk *ScoreKeeper) handle(e events.Event) {
	switch e.Type {
	case events.EventGameStarted:
		sk.strokes = make(map[int]int)
		sk.completed = make(map[int]bool)
		sk.current = 0
	case events.EventHoleStarted:
		if hole, ok := intData(e.Data, "hole"); ok {
			sk.current = hole
		}
	case events.EventHoleCompleted:
		sk.completed[sk.current] = true
	case events.EventBallHit:
		sk.strokes[sk.current]++
	case events.EventBallReset:
		if penalty, _ := e.Data["penalty"].(bool); penalty {
			sk.strokes[sk.current]++
			sk.logger.Debug("penalty stroke added",
				zap.Int("hole", sk.current),
				zap.Int("strokes", sk.strokes[sk.current]),
			)
		}
	}
}

// CurrentHoleStrokes returns the stroke count for the hole in play.
func (sk *ScoreKeeper) CurrentHoleStrokes() int {
	return sk.strokes[sk.current]
}

// TotalStrokes sums strokes over the whole round.
func (sk *ScoreKeeper) TotalStrokes() int {
	total := 0
	for _, n := range sk.strokes {
		total += n
	}
	return total
}

// Scorecard returns the per-hole breakdown in hole order.
func (sk *ScoreKeeper) Scorecard() []HoleScore {
	card := make([]HoleScore, 0, len(sk.crs.Holes))
	for _, h := range sk.crs.Holes {
		card = append(card, HoleScore{
			Hole:    h.Index,
			Par:     h.Par,
			Strokes: sk.strokes[h.Index],
			Done:    sk.completed[h.Index],
		})
	}
	return card
}

// intData reads an int-typed value from an event payload, accepting the
// numeric types that survive JSON round-trips.
func intData(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
