package jobs

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/payout-bot/pkg/config"
)

func TestBroadcastTaskPayload(t *testing.T) {
	task, err := NewBroadcastTask(12, "Новость дня")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeBroadcastUsers, task.Type())

	payload, err := DecodeBroadcast(task)
	require.NoError(t, err)
	assert.Equal(t, BroadcastPayload{NewsID: 12, Text: "Новость дня"}, payload)
}

func TestRedisOpt(t *testing.T) {
	opt := RedisOpt(config.RedisConfig{Addr: "redis:6379", Password: "secret", DB: 2, PoolSize: 7})

	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, 7, opt.PoolSize)
}

func TestDecodeBroadcast_Malformed(t *testing.T) {
	_, err := DecodeBroadcast(asynq.NewTask(TaskTypeBroadcastUsers, []byte("{")))
	assert.Error(t, err)
}

func TestAutopostTask(t *testing.T) {
	task := NewAutopostTask()
	assert.Equal(t, TaskTypeNewsAutopost, task.Type())
	assert.Empty(t, task.Payload())
}
