package consumer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledger/internal/config"
	"github.com/smallbiznis/ledger/internal/ingest/service"
	obsmetrics "github.com/smallbiznis/ledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// PayloadField is the stream entry field holding the JSON message.
	PayloadField = "payload"

	deadLetterSuffix = ":dead"
	startOfStream    = "0-0"
)

// MessageHandler handles one message body. A non-nil error leaves the
// message pending for redelivery.
type MessageHandler interface {
	Handle(ctx context.Context, deliveryID string, body []byte) (service.Result, error)
}

type Params struct {
	fx.In

	Client  redis.UniversalClient
	Config  config.Config
	Tuning  *config.ConsumerConfigHolder
	Handler MessageHandler
	Log     *zap.Logger
	Metrics *obsmetrics.ConsumerMetrics `optional:"true"`
}

// Consumer reads events from a Redis stream as a member of a consumer group.
type Consumer struct {
	client  redis.UniversalClient
	tuning  *config.ConsumerConfigHolder
	handler MessageHandler
	log     *zap.Logger
	metrics *obsmetrics.ConsumerMetrics

	stream string
	group  string
	name   string
}

func New(p Params) *Consumer {
	name := strings.TrimSpace(p.Config.QueueConsumer)
	if name == "" {
		name = "ledger-" + uuid.NewString()
	}
	return &Consumer{
		client:  p.Client,
		tuning:  p.Tuning,
		handler: p.Handler,
		log:     p.Log.Named("ingest.consumer").With(zap.String("consumer", name)),
		metrics: p.Metrics,
		stream:  p.Config.QueueStream,
		group:   p.Config.QueueGroup,
		name:    name,
	}
}

// DeadLetterStream is where messages go after too many deliveries.
func (c *Consumer) DeadLetterStream() string {
	return c.stream + deadLetterSuffix
}

// EnsureGroup creates the stream and consumer group when missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, startOfStream).Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

// Run polls until ctx is cancelled. Messages left idle by crashed consumers
// are reclaimed every ClaimInterval.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("consumer started", zap.String("stream", c.stream), zap.String("group", c.group))
	lastClaim := time.Time{}

	for {
		if ctx.Err() != nil {
			c.log.Info("consumer stopped")
			return
		}

		tuning := c.tuning.Get()
		if time.Since(lastClaim) >= tuning.ClaimInterval {
			if err := c.ClaimStale(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("claiming stale messages failed", zap.Error(err))
			}
			lastClaim = time.Now()
		}

		if err := c.PollOnce(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// PollOnce reads and handles one batch of new messages.
func (c *Consumer) PollOnce(ctx context.Context) error {
	tuning := c.tuning.Get()
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.stream, ">"},
		Count:    tuning.BatchSize,
		Block:    tuning.BlockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var messages []redis.XMessage
	for _, s := range streams {
		messages = append(messages, s.Messages...)
	}
	c.handleBatch(ctx, messages, tuning.Workers)
	return nil
}

// ClaimStale takes over messages idle longer than the visibility timeout.
// Messages delivered more than MaxDeliveries times are dead-lettered.
func (c *Consumer) ClaimStale(ctx context.Context) error {
	tuning := c.tuning.Get()
	start := startOfStream

	for {
		messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.name,
			MinIdle:  tuning.VisibilityTimeout,
			Start:    start,
			Count:    tuning.BatchSize,
		}).Result()
		if err != nil {
			return err
		}

		retry := make([]redis.XMessage, 0, len(messages))
		for _, msg := range messages {
			deliveries, err := c.deliveryCount(ctx, msg.ID)
			if err != nil {
				return err
			}
			if deliveries > tuning.MaxDeliveries {
				if err := c.deadLetter(ctx, msg, deliveries); err != nil {
					return err
				}
				continue
			}
			retry = append(retry, msg)
		}
		c.handleBatch(ctx, retry, tuning.Workers)

		if next == "" || next == startOfStream {
			break
		}
		start = next
	}

	pending, err := c.client.XPending(ctx, c.stream, c.group).Result()
	if err == nil {
		c.metrics.SetPending(pending.Count)
	}
	return nil
}

func (c *Consumer) handleBatch(ctx context.Context, messages []redis.XMessage, workers int) {
	if len(messages) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			c.handle(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	body, ok := messageBody(msg)
	if !ok {
		c.log.Warn("acknowledging entry without payload", zap.String("message_id", msg.ID))
		c.metrics.IncMessage("", obsmetrics.MessageOutcomeDropped)
		c.ack(ctx, msg.ID)
		return
	}

	result, err := c.handler.Handle(ctx, msg.ID, body)
	if err != nil {
		c.log.Warn("message left pending for redelivery",
			zap.String("message_id", msg.ID),
			zap.String("resource_type", result.ResourceType),
			zap.Error(err),
		)
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.log.Warn("ack failed", zap.String("message_id", id), zap.Error(err))
	}
}

func (c *Consumer) deliveryCount(ctx context.Context, id string) (int64, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg redis.XMessage, deliveries int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: c.DeadLetterStream(),
			Values: deadLetterValues(msg, deliveries),
		})
		pipe.XAck(ctx, c.stream, c.group, msg.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dead-letter %s: %w", msg.ID, err)
	}
	c.metrics.IncMessage("", obsmetrics.MessageOutcomeDeadLetter)
	c.log.Error("message dead-lettered",
		zap.String("message_id", msg.ID),
		zap.Int64("deliveries", deliveries),
		zap.String("dead_letter_stream", c.DeadLetterStream()),
	)
	return nil
}

func messageBody(msg redis.XMessage) ([]byte, bool) {
	switch v := msg.Values[PayloadField].(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

func deadLetterValues(msg redis.XMessage, deliveries int64) map[string]any {
	values := make(map[string]any, len(msg.Values)+2)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["original_id"] = msg.ID
	values["deliveries"] = strconv.FormatInt(deliveries, 10)
	return values
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
