package jobs

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultAutopostSpec runs the channel autopost hourly.
const DefaultAutopostSpec = "@every 1h"

// Scheduler enqueues periodic tasks.
type Scheduler interface {
	RegisterTasks(autopostSpec string) error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	log            *slog.Logger
}

// NewScheduler builds a Scheduler evaluating cron specs in UTC.
func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   asynqLogger{log: log},
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					log.Warn("scheduler: enqueue failed", slog.Any("error", err))
					return
				}
				log.Debug("scheduler: task enqueued", slog.String("task_type", info.Type), slog.String("task_id", info.ID))
			},
		}),
		log: log,
	}
}

// RegisterTasks registers the channel autopost under spec.
func (s *scheduler) RegisterTasks(autopostSpec string) error {
	if autopostSpec == "" {
		autopostSpec = DefaultAutopostSpec
	}

	entryID, err := s.asynqScheduler.Register(autopostSpec, NewAutopostTask())
	if err != nil {
		return err
	}

	s.log.Info("scheduler: registered news autopost task", slog.String("spec", autopostSpec), slog.String("entry_id", entryID))
	return nil
}

// Run starts the scheduler in the background.
func (s *scheduler) Run() {
	s.log.Info("scheduler: starting")

	if err := s.asynqScheduler.Start(); err != nil {
		s.log.Error("scheduler: start failed", slog.Any("error", err))
	}
}

func (s *scheduler) Shutdown() {
	s.log.Info("scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
