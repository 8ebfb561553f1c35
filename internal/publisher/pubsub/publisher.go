// Package pubsub announces freshly published annotation snapshots on a
// Google Cloud Pub/Sub topic so other participants can consolidate
// without polling the shared folder.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
)

// Announcement is the message body published for each snapshot.
type Announcement struct {
	Participant string    `json:"participant"`
	Object      string    `json:"object"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	client      *pubsub.Client
	topic       *pubsub.Topic
	participant string
}

// New connects to Pub/Sub and binds the topic. The caller owns Close.
func New(ctx context.Context, projectID, topicID, participant string) (*Publisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub requires a project and topic")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Publisher{
		client:      client,
		topic:       client.Topic(topicID),
		participant: participant,
	}, nil
}

// Publish announces the named snapshot object and waits for the server ack.
func (p *Publisher) Publish(ctx context.Context, objectName string) error {
	data, err := json.Marshal(Announcement{
		Participant: p.participant,
		Object:      objectName,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"participant": p.participant},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
