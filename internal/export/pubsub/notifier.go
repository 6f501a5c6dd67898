// Package pubsub provides an export.Notifier backed by Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/okechukwu95dev/pitchindex/internal/export"
)

// Notifier publishes run-completion messages to a Pub/Sub topic.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New creates a Pub/Sub client and verifies the topic exists. It
// authenticates with Application Default Credentials.
func New(ctx context.Context, projectID, topicID string) (*Notifier, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("project id and topic id are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &Notifier{client: client, topic: topic}, nil
}

// Notify publishes the completion payload and waits for the server ack. One
// message per run is cheap enough that fire-and-forget buys nothing.
func (n *Notifier) Notify(ctx context.Context, msg export.RunComplete) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal run notification: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish run notification: %w", err)
	}
	return nil
}

// Close stops the topic's publisher and closes the client connection.
func (n *Notifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
