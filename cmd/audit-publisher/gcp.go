package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type auditPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	// ResumePublish unpauses an ordering key after a failed publish.
	ResumePublish(orderingKey string)
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type gcpAuditPublisher struct {
	topic *gcppubsub.Publisher
}

// newGCPAuditPublisher returns nil when the topic handle is missing so the
// service refuses to start.
func newGCPAuditPublisher(topic *gcppubsub.Publisher) auditPublisher {
	if topic == nil {
		return nil
	}
	return &gcpAuditPublisher{topic: topic}
}

func (p *gcpAuditPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.topic.Publish(ctx, msg)
}

func (p *gcpAuditPublisher) ResumePublish(orderingKey string) {
	p.topic.ResumePublish(orderingKey)
}

func (p *gcpAuditPublisher) Stop() {
	p.topic.Stop()
}
