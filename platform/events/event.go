// Package events carries domain events between modules without direct
// coupling. The assignment engine publishes ledger transitions here and the
// scoring and notification modules react to them; none of them import each
// other.
package events

import (
	"context"
	"time"
)

// Event is anything that can travel over the bus. EventName keys handler
// registration, so it must be stable and unique per event type.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence timestamp. Domain events embed it so they
// only have to declare their payload fields.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one registered name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus dispatches events to their subscribers. Publish is fire-and-forget
// with handlers running asynchronously; PublishSync runs them inline and
// surfaces their errors, for callers that need completion before returning.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
