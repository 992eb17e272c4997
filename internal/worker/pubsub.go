package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Publisher publishes an encoded job result.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// PubSubHandler receives job messages and publishes their results.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	publisher        Publisher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	// ResultTopic is optional; results are only logged when empty.
	ResultTopic    string
	MaxOutstanding int
	Processor      *Processor
	Logger         zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	h := &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}
	if cfg.ResultTopic != "" {
		h.publisher = &topicPublisher{publisher: client.Publisher(cfg.ResultTopic)}
	}
	return h, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Bool("publishing", h.publisher != nil).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if handleMessage(ctx, h.processor, h.publisher, logger, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close flushes pending results and closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	if tp, ok := h.publisher.(*topicPublisher); ok {
		tp.publisher.Stop()
	}
	return h.client.Close()
}

// handleMessage processes one message and reports whether it should be
// acknowledged. Permanent failures are acknowledged so they are not
// redelivered forever.
func handleMessage(ctx context.Context, p *Processor, pub Publisher, logger zerolog.Logger, data []byte) bool {
	logger.Debug().Int("bytes", len(data)).Msg("received pubsub message")

	result, err := p.Process(ctx, data)
	if err != nil {
		if IsPermanent(err) {
			logger.Error().Err(err).Msg("rejecting job")
			return true
		}
		logger.Warn().Err(err).Msg("job failed, will be redelivered")
		return false
	}

	if pub == nil {
		return true
	}

	payload, err := json.Marshal(result)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode job result")
		return true
	}
	attrs := map[string]string{
		"job_id":   result.JobID,
		"job_type": result.JobType,
	}
	if err := pub.Publish(ctx, payload, attrs); err != nil {
		logger.Warn().Err(err).Str("job_id", result.JobID).Msg("failed to publish job result")
		return false
	}
	return true
}

type topicPublisher struct {
	publisher *pubsub.Publisher
}

func (t *topicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	res := t.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publishing result: %w", err)
	}
	return nil
}
