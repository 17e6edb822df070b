package consumer

import (
	"errors"
	"testing"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMessageBody(t *testing.T) {
	body, ok := messageBody(redis.XMessage{ID: "1-0", Values: map[string]any{PayloadField: `{"a":1}`}})
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(body))

	_, ok = messageBody(redis.XMessage{ID: "1-1", Values: map[string]any{"other": "x"}})
	assert.False(t, ok)

	_, ok = messageBody(redis.XMessage{ID: "1-2"})
	assert.False(t, ok)
}

func TestDeadLetterValuesKeepOriginalFields(t *testing.T) {
	msg := redis.XMessage{ID: "5-0", Values: map[string]any{PayloadField: "{}"}}
	values := deadLetterValues(msg, 6)

	assert.Equal(t, "{}", values[PayloadField])
	assert.Equal(t, "5-0", values["original_id"])
	assert.Equal(t, "6", values["deliveries"])
	assert.Len(t, msg.Values, 1, "source message must not be mutated")
}

func TestIsBusyGroup(t *testing.T) {
	assert.True(t, isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errors.New("NOGROUP")))
	assert.False(t, isBusyGroup(nil))
}

func TestNewAssignsConsumerName(t *testing.T) {
	c := New(Params{
		Config: config.Config{QueueStream: "ledger:events", QueueGroup: "ledger"},
		Tuning: config.NewStaticConsumerConfigHolder(config.DefaultConsumerConfig()),
		Log:    zap.NewNop(),
	})
	assert.Contains(t, c.name, "ledger-")
	assert.Equal(t, "ledger:events:dead", c.DeadLetterStream())

	named := New(Params{
		Config: config.Config{QueueStream: "s", QueueGroup: "g", QueueConsumer: "worker-1"},
		Log:    zap.NewNop(),
	})
	assert.Equal(t, "worker-1", named.name)
}
