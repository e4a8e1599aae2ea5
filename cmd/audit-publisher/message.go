package main

import (
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/registry"
)

// orderingKey groups the events of one aggregate, e.g. "purchase:<id>".
func orderingKey(event models.OutboxEvent) string {
	return string(event.AggregateType) + ":" + event.AggregateID.String()
}

// auditMessage carries the stored envelope untouched. Attributes let audit
// subscribers filter by shop, actor and event without decoding the payload.
func auditMessage(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"schema_version": strconv.Itoa(envelope.Version),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if actor := envelope.Actor; actor != nil {
		attrs["actor_id"] = actor.UserID.String()
		if actor.ShopID != nil {
			attrs["shop_id"] = actor.ShopID.String()
		}
		if actor.Role != "" {
			attrs["actor_role"] = actor.Role
		}
	}
	return &gcppubsub.Message{
		Data:        event.Payload,
		Attributes:  attrs,
		OrderingKey: orderingKey(event),
	}
}

func logFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"ordering_key":  orderingKey(event),
		"attempt_count": event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
		}
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
