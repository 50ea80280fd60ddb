package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// PubSubNotifier publishes retention run summaries to a Pub/Sub topic.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub notifier.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// runMessage is the wire format of a run notification.
type runMessage struct {
	Event             string    `json:"event"`
	TotalDeleted      int64     `json:"totalDeleted,omitempty"`
	TotalArchived     int64     `json:"totalArchived,omitempty"`
	StorageFreed      int64     `json:"storageFreed,omitempty"`
	ProjectsProcessed int       `json:"projectsProcessed,omitempty"`
	ErrorCount        int       `json:"errorCount,omitempty"`
	Aborted           bool      `json:"aborted,omitempty"`
	DurationMs        int64     `json:"durationMs,omitempty"`
	Error             string    `json:"error,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewPubSubNotifier creates a new Pub/Sub notifier.
func NewPubSubNotifier(ctx context.Context, cfg PubSubConfig) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubNotifier{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Close closes the Pub/Sub client.
func (n *PubSubNotifier) Close() error {
	n.publisher.Stop()
	return n.client.Close()
}

// RunCompleted publishes a completed-run summary.
func (n *PubSubNotifier) RunCompleted(ctx context.Context, result *retention.Result) {
	n.publish(ctx, runMessage{
		Event:             "retention_run_completed",
		TotalDeleted:      result.TotalDeleted,
		TotalArchived:     result.TotalArchived,
		StorageFreed:      result.StorageFreed,
		ProjectsProcessed: result.ProjectsProcessed,
		ErrorCount:        len(result.Errors),
		Aborted:           result.Aborted,
		DurationMs:        result.DurationMs,
		Timestamp:         time.Now().UTC(),
	})
}

// RunFailed publishes a failed-run notification.
func (n *PubSubNotifier) RunFailed(ctx context.Context, err error) {
	n.publish(ctx, runMessage{
		Event:     "retention_run_failed",
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (n *PubSubNotifier) publish(ctx context.Context, msg runMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to encode run notification")
		return
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		// Notification failures never fail the run itself.
		n.logger.Error().
			Err(err).
			Str("topic", n.topic).
			Str("event", msg.Event).
			Msg("failed to publish run notification")
		return
	}

	n.logger.Debug().
		Str("topic", n.topic).
		Str("event", msg.Event).
		Msg("run notification published")
}

// Ensure PubSubNotifier implements the scheduler's notifier.
var _ retention.Notifier = (*PubSubNotifier)(nil)
