package service

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeDistribute = "distribution:fanout"
	TaskTypeAdvance    = "distribution:advance"

	// QueueDistribution is the asynq queue both pipeline tasks go through.
	// The worker server must consume the same name it is enqueued into.
	QueueDistribution = "distribution"
)

// TaskEnqueuer is the slice of asynq.Client the services need. Declared
// here so tests can enqueue into a recorder instead of Redis.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReleaseTaskPayload identifies the release a pipeline task operates on.
type ReleaseTaskPayload struct {
	ReleaseID string `json:"releaseId"`
}

func newDistributeTask(releaseID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReleaseTaskPayload{ReleaseID: releaseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDistribute, payload), nil
}

func newAdvanceTask(releaseID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReleaseTaskPayload{ReleaseID: releaseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAdvance, payload), nil
}
