package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// Publisher defines an interface for publishing messages. The telemetry
// recorder uses it for fire-and-forget usage-event fan-out.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// GooglePublisher is an implementation of Publisher using Google Pub/Sub.
type GooglePublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a new GooglePublisher for the given GCP project.
func NewPublisher(ctx context.Context, projectID string) (*GooglePublisher, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub publisher requires a GCP project ID")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &GooglePublisher{client: client}, nil
}

// Publish sends the payload to the given Pub/Sub topic and returns the
// message ID.
func (p *GooglePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}
