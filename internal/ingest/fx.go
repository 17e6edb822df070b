package ingest

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledger/internal/config"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	eventservice "github.com/smallbiznis/ledger/internal/event/service"
	"github.com/smallbiznis/ledger/internal/ingest/consumer"
	"github.com/smallbiznis/ledger/internal/ingest/service"
	obsmetrics "github.com/smallbiznis/ledger/internal/observability/metrics"
	projectionservice "github.com/smallbiznis/ledger/internal/projection/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ingest",
	fx.Provide(
		NewRedisClient,
		NewConsumerMetrics,
		func(s *eventservice.Service) service.EventStore { return s },
		func(d *projectionservice.Dispatcher) service.Dispatcher { return d },
		service.NewHandler,
		func(h *service.Handler) consumer.MessageHandler { return h },
		consumer.New,
	),
	fx.Invoke(RunConsumer),
)

func NewRedisClient(lc fx.Lifecycle, cfg config.Config) redis.UniversalClient {
	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.RedisAddr),
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewConsumerMetrics(cfg obsmetrics.Config) *obsmetrics.ConsumerMetrics {
	return obsmetrics.NewConsumerMetrics(prometheus.DefaultRegisterer, cfg, obsmetrics.ConsumerMetricsOptions{
		BusinessErrors:   []error{eventdomain.ErrNoSalientEvent},
		UnknownTypeError: eventdomain.ErrUnknownResourceType,
	})
}

// RunConsumer joins the consumer group on start and drains the poll loop on stop.
func RunConsumer(lc fx.Lifecycle, c *consumer.Consumer, log *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.EnsureGroup(ctx); err != nil {
				return err
			}

			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})
			go func() {
				defer close(done)
				c.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel == nil {
				return nil
			}
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				log.Warn("consumer did not stop before shutdown deadline")
			}
			return nil
		},
	})
}
