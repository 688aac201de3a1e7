package pubsub

import (
	"context"
	"fmt"

	"app/internal/config"

	"cloud.google.com/go/pubsub"
)

// Publisher emits payment lifecycle events. The destination is fixed at
// construction; callers only hand over the payload.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) (string, error)
}

// PubSubPublisher publishes to the configured payment-events topic on
// Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPublisher creates a publisher bound to cfg.PaymentEventsTopic in the
// configured GCP project.
func NewPublisher(ctx context.Context, cfg *config.Config) (*PubSubPublisher, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is not configured")
	}
	if cfg.PaymentEventsTopic == "" {
		return nil, fmt.Errorf("payment events topic is not configured")
	}
	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client, topic: client.Topic(cfg.PaymentEventsTopic)}, nil
}

// Close flushes pending publishes and releases the underlying client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Publish sends the payload to the payment-events topic and returns the
// message ID once the server acknowledged it.
func (p *PubSubPublisher) Publish(ctx context.Context, payload []byte) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish to topic %s: %w", p.topic.ID(), err)
	}
	return id, nil
}
