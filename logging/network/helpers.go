package network

import (
	"context"

	"age-of-war/server/logging"
)

const (
	// EventSubscriberConnected is emitted when a participant attaches to a match stream.
	EventSubscriberConnected logging.EventType = "network.subscriber_connected"
	// EventSubscriberDisconnected is emitted when a participant stream closes.
	EventSubscriberDisconnected logging.EventType = "network.subscriber_disconnected"
	// EventMessageDropped is emitted when a fire-and-forget send was discarded.
	EventMessageDropped logging.EventType = "network.message_dropped"
	// EventActionThrottled is emitted when intake rate limiting rejects an action.
	EventActionThrottled logging.EventType = "network.action_throttled"
)

// SubscriberPayload describes a participant stream.
type SubscriberPayload struct {
	Transport string `json:"transport"`
	Reason    string `json:"reason,omitempty"`
}

// MessageDroppedPayload describes a discarded send.
type MessageDroppedPayload struct {
	Transport string `json:"transport"`
	Message   string `json:"message"`
	Dropped   uint64 `json:"dropped"`
}

// ActionThrottledPayload describes a throttled submission.
type ActionThrottledPayload struct {
	Action    string `json:"action"`
	Transport string `json:"transport"`
}

// SubscriberConnected publishes a stream attach.
func SubscriberConnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SubscriberPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscriberConnected,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SubscriberDisconnected publishes a stream detach.
func SubscriberDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SubscriberPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscriberDisconnected,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// MessageDropped publishes a discarded send.
func MessageDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MessageDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMessageDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// ActionThrottled publishes a rate-limited submission.
func ActionThrottled(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, reqID string, payload ActionThrottledPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      EventActionThrottled,
		Actor:     actor,
		Severity:  logging.SeverityWarn,
		Category:  logging.CategoryNetwork,
		Payload:   payload,
		RequestID: reqID,
	})
}
