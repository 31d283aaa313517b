package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeBroadcastUsers = "broadcast:users"
	TaskTypeNewsAutopost   = "news:autopost"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Queues is the priority map served by the worker.
var Queues = map[string]int{
	QueueDefault: 6,
	QueueLow:     2,
}

type BroadcastPayload struct {
	NewsID int64  `json:"news_id"`
	Text   string `json:"text"`
}

// NewBroadcastTask fans a stored post out to every user. Deliveries are never
// retried, so the task itself runs at most once.
func NewBroadcastTask(newsID int64, text string) (*asynq.Task, error) {
	payload, err := json.Marshal(BroadcastPayload{NewsID: newsID, Text: text})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeBroadcastUsers, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.TaskID(BroadcastTaskID(newsID)),
	), nil
}

// BroadcastTaskID keeps one queued fan-out per post.
func BroadcastTaskID(newsID int64) string {
	return fmt.Sprintf("broadcast:%d", newsID)
}

// NewAutopostTask publishes unsent posts to the configured channels.
func NewAutopostTask() *asynq.Task {
	return asynq.NewTask(TaskTypeNewsAutopost, nil, asynq.Queue(QueueLow), asynq.MaxRetry(0))
}

// DecodeBroadcast parses a broadcast task payload.
func DecodeBroadcast(t *asynq.Task) (BroadcastPayload, error) {
	var payload BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	return payload, nil
}
