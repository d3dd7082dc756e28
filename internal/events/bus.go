// Package events carries control-plane events between the engine, the
// session layer and API subscribers.
package events

import "github.com/kelindar/event"

// Bus wraps a kelindar/event dispatcher. Subscribers run asynchronously.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish sends ev to the subscribers of its concrete type. Unknown types
// are dropped.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ControlAppliedEvent:
		event.Publish(b.dispatcher, e)
	case ControlCollectedEvent:
		event.Publish(b.dispatcher, e)
	case ControlRecoveredEvent:
		event.Publish(b.dispatcher, e)
	case ControlRejectedEvent:
		event.Publish(b.dispatcher, e)
	case FrameSubmittedEvent:
		event.Publish(b.dispatcher, e)
	case FrameCompletedEvent:
		event.Publish(b.dispatcher, e)
	case FrameAbortedEvent:
		event.Publish(b.dispatcher, e)
	case PresetsReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler typed on one event struct, e.g.
// func(FrameSubmittedEvent). It returns the unsubscribe function; handlers
// of unknown types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ControlAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ControlCollectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ControlRecoveredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ControlRejectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameSubmittedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameAbortedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PresetsReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	}
	return func() {}
}

// SubscribeToChannel forwards events of type T to ch, dropping them when ch
// is full. Used by the SSE endpoint.
func SubscribeToChannel[T Event](b *Bus, ch chan<- any) func() {
	return event.Subscribe(b.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
