package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultHistorySize = 100

type subscription struct {
	handle  int
	context string
	handler Handler
}

// Bus is a synchronous in-process publish/subscribe router with per-listener
// fault isolation and a bounded event history.
//
// Subscribers for a type run in subscription order. A panicking subscriber is
// recovered, logged, and escalated through a single system:error publish; the
// remaining subscribers for the original event still run. Re-entrant
// publishes from inside a handler are legal: the subscriber list is
// snapshotted before dispatch and no lock is held while handlers run.
type Bus struct {
	mu         sync.RWMutex
	subs       map[EventType][]subscription
	nextHandle int
	history    []Event
	histSize   int
	enabled    bool
	logger     *zap.Logger
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithHistorySize overrides the default bounded history capacity.
func WithHistorySize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.histSize = n
		}
	}
}

// NewBus constructs an enabled bus with an empty subscriber table.
func NewBus(logger *zap.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		subs:     make(map[EventType][]subscription),
		histSize: defaultHistorySize,
		enabled:  true,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubscribeOption annotates a subscription.
type SubscribeOption func(*subscription)

// WithContext labels the subscriber's owning component. The label is used as
// the source identifier when a failure inside the handler is logged.
func WithContext(name string) SubscribeOption {
	return func(s *subscription) {
		s.context = name
	}
}

// Subscribe registers a handler for one event type and returns a closure that
// removes exactly this subscription. An unknown event type is rejected with a
// logged warning; the returned closure is then a no-op.
func (b *Bus) Subscribe(eventType EventType, handler Handler, opts ...SubscribeOption) func() {
	if !eventType.IsValid() {
		b.logger.Warn("subscribe rejected: unknown event type",
			zap.String("event_type", string(eventType)),
		)
		return func() {}
	}
	if handler == nil {
		b.logger.Warn("subscribe rejected: nil handler",
			zap.String("event_type", string(eventType)),
		)
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscription{handle: b.nextHandle, handler: handler}
	b.nextHandle++
	for _, opt := range opts {
		opt(&sub)
	}
	b.subs[eventType] = append(b.subs[eventType], sub)

	handle := sub.handle
	return func() {
		b.Unsubscribe(eventType, handle)
	}
}

type busHandle struct {
	eventType EventType
	handle    int
}

// SubscribeMany registers the same handler for several event types. The
// returned closure removes every registered subscription atomically (under a
// single lock acquisition, so no publish can interleave with the batch).
func (b *Bus) SubscribeMany(eventTypes []EventType, handler Handler, opts ...SubscribeOption) func() {
	if handler == nil {
		b.logger.Warn("subscribe rejected: nil handler")
		return func() {}
	}

	handles := make([]busHandle, 0, len(eventTypes))
	for _, et := range eventTypes {
		if !et.IsValid() {
			b.logger.Warn("subscribe rejected: unknown event type",
				zap.String("event_type", string(et)),
			)
			continue
		}
		b.mu.Lock()
		sub := subscription{handle: b.nextHandle, handler: handler}
		b.nextHandle++
		for _, opt := range opts {
			opt(&sub)
		}
		b.subs[et] = append(b.subs[et], sub)
		b.mu.Unlock()
		handles = append(handles, busHandle{eventType: et, handle: sub.handle})
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, h := range handles {
			b.removeLocked(h.eventType, h.handle)
		}
	}
}

// Unsubscribe removes the subscription identified by handle for eventType.
// Removing an absent subscription is a no-op, not an error.
func (b *Bus) Unsubscribe(eventType EventType, handle int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(eventType, handle)
}

func (b *Bus) removeLocked(eventType EventType, handle int) {
	subs := b.subs[eventType]
	for i := range subs {
		if subs[i].handle == handle {
			b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish constructs an Event and delivers it synchronously to every current
// subscriber for eventType, in subscription order. The event is appended to
// history afterwards. When the bus is disabled, Publish is a complete no-op:
// no handlers run and no history entry is made.
func (b *Bus) Publish(eventType EventType, data map[string]any, source string) {
	b.mu.RLock()
	if !b.enabled {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscription, len(b.subs[eventType]))
	copy(subs, b.subs[eventType])
	b.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Data:      data,
		Source:    source,
		Timestamp: time.Now(),
	}

	for _, sub := range subs {
		b.dispatch(event, sub)
	}

	b.appendHistory(event)
}

// dispatch invokes one handler with panic isolation.
func (b *Bus) dispatch(event Event, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.handleFault(event, sub, r)
		}
	}()
	sub.handler(event)
}

// handleFault logs a subscriber failure and escalates it once. A failure
// while handling system:error itself is logged and swallowed, never
// re-published, so escalation cannot recurse.
func (b *Bus) handleFault(event Event, sub subscription, recovered any) {
	source := sub.context
	if source == "" {
		source = "unknown"
	}

	fields := []zap.Field{
		zap.String("source", "EventBus.publish"),
		zap.String("subscriber", source),
		zap.String("event_type", string(event.Type)),
		zap.Any("event_data", simplifyPayload(event.Data)),
		zap.Any("panic", recovered),
	}

	if event.Type == EventError {
		b.logger.Error("subscriber failed while handling system:error; not re-publishing", fields...)
		return
	}

	critical := event.Type.IsCritical()
	if critical {
		b.logger.Error("critical event subscriber failed", fields...)
	} else {
		b.logger.Warn("event subscriber failed", fields...)
	}

	b.Publish(EventError, map[string]any{
		"eventType": string(event.Type),
		"error":     recoveredMessage(recovered),
		"critical":  critical,
		"subscriber": source,
	}, "EventBus")
}

func (b *Bus) appendHistory(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, event)
	if len(b.history) > b.histSize {
		b.history = b.history[len(b.history)-b.histSize:]
	}
}

// History returns the most recent limit events, oldest first. A limit of
// zero or less returns everything retained.
func (b *Bus) History(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// Enable resumes event delivery. Idempotent.
func (b *Bus) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
}

// Disable suspends event delivery; publishes become no-ops. Idempotent.
func (b *Bus) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = false
}

// Enabled reports whether publishes currently have any effect.
func (b *Bus) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// Clear removes all subscriptions and history. Used between game sessions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[EventType][]subscription)
	b.history = nil
}
