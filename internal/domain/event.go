package domain

import (
	"context"
	"time"
)

// EventType identifies a kind of in-process event.
type EventType string

const (
	EventMessageReceived EventType = "message.received"
	EventReplyReady      EventType = "reply.ready"
	EventToolExecuted    EventType = "tool.executed"
	EventMemorySaved     EventType = "memory.saved"
	EventMoodLogged      EventType = "mood.logged"
	EventPeriodTracked   EventType = "period.tracked"
	EventReminderDue     EventType = "reminder.due"
)

// Event is a fire-and-forget notification published on the event bus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   map[string]any
}

// EventHandler consumes events. Handlers must not block indefinitely.
type EventHandler func(ctx context.Context, event Event)

// EventBus fans events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler EventHandler) func()
	SubscribeAll(handler EventHandler) func()
	Close()
}
