package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/mfcctl/internal/events"
)

// ConnectedEvent opens every event stream.
type ConnectedEvent struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Live control plane events: controls applied, collected, recovered and rejected, frame lifecycle and preset reloads",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":         ConnectedEvent{},
		"control-applied":   events.ControlAppliedEvent{},
		"control-collected": events.ControlCollectedEvent{},
		"control-recovered": events.ControlRecoveredEvent{},
		"control-rejected":  events.ControlRejectedEvent{},
		"frame-submitted":   events.FrameSubmittedEvent{},
		"frame-completed":   events.FrameCompletedEvent{},
		"frame-aborted":     events.FrameAbortedEvent{},
		"presets-reloaded":  events.PresetsReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.ControlAppliedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.ControlCollectedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.ControlRecoveredEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.ControlRejectedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.FrameSubmittedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.FrameCompletedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.FrameAbortedEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.PresetsReloadedEvent](s.bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(ConnectedEvent{
			Message:   "event stream connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
