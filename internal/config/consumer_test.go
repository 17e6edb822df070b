package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateConsumerConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ConsumerConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*ConsumerConfig) {}},
		{name: "zero batch", mutate: func(c *ConsumerConfig) { c.BatchSize = 0 }, wantErr: true},
		{name: "zero workers", mutate: func(c *ConsumerConfig) { c.Workers = 0 }, wantErr: true},
		{name: "negative visibility", mutate: func(c *ConsumerConfig) { c.VisibilityTimeout = -time.Second }, wantErr: true},
		{name: "zero deliveries", mutate: func(c *ConsumerConfig) { c.MaxDeliveries = 0 }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConsumerConfig()
			tc.mutate(&cfg)
			err := validateConsumerConfig(cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConsumerConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("consumer:\n  batchSize: 25\n  workers: 8\n  maxDeliveries: 3\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewConsumerConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, int64(25), cfg.BatchSize)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, int64(3), cfg.MaxDeliveries)
	assert.Equal(t, DefaultConsumerConfig().VisibilityTimeout, cfg.VisibilityTimeout)
}

func TestConsumerConfigHolderDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewConsumerConfigHolder(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConsumerConfig(), holder.Get())
}
