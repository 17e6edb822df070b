package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ConsumerConfig tunes the event queue consumer. It can be changed at runtime
// by editing ledger.yml.
type ConsumerConfig struct {
	BatchSize         int64         `mapstructure:"batchSize"`
	Workers           int           `mapstructure:"workers"`
	BlockTimeout      time.Duration `mapstructure:"blockTimeout"`
	VisibilityTimeout time.Duration `mapstructure:"visibilityTimeout"`
	MaxDeliveries     int64         `mapstructure:"maxDeliveries"`
	ClaimInterval     time.Duration `mapstructure:"claimInterval"`
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BatchSize:         10,
		Workers:           4,
		BlockTimeout:      5 * time.Second,
		VisibilityTimeout: 5 * time.Minute,
		MaxDeliveries:     5,
		ClaimInterval:     30 * time.Second,
	}
}

type ConsumerConfigHolder struct {
	current atomic.Value // holds ConsumerConfig
}

// NewStaticConsumerConfigHolder returns a holder that never reloads.
func NewStaticConsumerConfigHolder(cfg ConsumerConfig) *ConsumerConfigHolder {
	holder := &ConsumerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewConsumerConfigHolder(log *zap.Logger) (*ConsumerConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.consumer")

	v := viper.New()

	v.SetConfigName("ledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/ledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConsumerConfig()
	v.SetDefault("consumer.batchSize", defaults.BatchSize)
	v.SetDefault("consumer.workers", defaults.Workers)
	v.SetDefault("consumer.blockTimeout", defaults.BlockTimeout)
	v.SetDefault("consumer.visibilityTimeout", defaults.VisibilityTimeout)
	v.SetDefault("consumer.maxDeliveries", defaults.MaxDeliveries)
	v.SetDefault("consumer.claimInterval", defaults.ClaimInterval)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeConsumerConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateConsumerConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticConsumerConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeConsumerConfig(v)
		if err != nil {
			log.Warn("consumer config reload failed", zap.Error(err))
			return
		}
		if err := validateConsumerConfig(updated); err != nil {
			log.Warn("invalid consumer config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("consumer config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeConsumerConfig reads through AllSettings so file values are merged
// over defaults key by key.
func decodeConsumerConfig(v *viper.Viper) (ConsumerConfig, error) {
	var wrapper struct {
		Consumer ConsumerConfig `mapstructure:"consumer"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return ConsumerConfig{}, err
	}
	return wrapper.Consumer, nil
}

func (h *ConsumerConfigHolder) Get() ConsumerConfig {
	return h.current.Load().(ConsumerConfig)
}

func validateConsumerConfig(cfg ConsumerConfig) error {
	if cfg.BatchSize <= 0 {
		return errors.New("consumer.batchSize must be positive")
	}
	if cfg.Workers <= 0 {
		return errors.New("consumer.workers must be positive")
	}
	if cfg.BlockTimeout <= 0 {
		return errors.New("consumer.blockTimeout must be positive")
	}
	if cfg.VisibilityTimeout <= 0 {
		return errors.New("consumer.visibilityTimeout must be positive")
	}
	if cfg.MaxDeliveries <= 0 {
		return errors.New("consumer.maxDeliveries must be positive")
	}
	if cfg.ClaimInterval <= 0 {
		return errors.New("consumer.claimInterval must be positive")
	}
	return nil
}
