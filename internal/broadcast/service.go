// Package broadcast stores admin posts and delivers them to users and channels.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/payout-bot/internal/domain"
	apperrors "github.com/Proton-105/payout-bot/internal/errors"
	"github.com/Proton-105/payout-bot/internal/jobs"
	"github.com/Proton-105/payout-bot/internal/repository"
)

const pendingBatch = 50

// Recipients lists every user a post should reach.
type Recipients interface {
	RecipientIDs(ctx context.Context) ([]int64, error)
}

// Deliverer sends a single message and reports success.
type Deliverer interface {
	NotifyUser(ctx context.Context, userID int64, text string) bool
	NotifyChannel(ctx context.Context, chatID int64, text string) bool
}

// Enqueuer hands work to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Report counts per-recipient outcomes of one fan-out.
type Report struct {
	Delivered int
	Failed    int
}

// Total is the number of attempted deliveries.
func (r Report) Total() int {
	return r.Delivered + r.Failed
}

// Service implements posting to users and channels.
type Service struct {
	news      repository.NewsRepository
	users     Recipients
	deliverer Deliverer
	queue     Enqueuer
	channels  []int64
	log       *slog.Logger
	now       func() time.Time
	async     func(func())
}

// NewService builds a broadcast service. With a nil queue the user fan-out
// runs in a background goroutine of this process.
func NewService(
	news repository.NewsRepository,
	users Recipients,
	deliverer Deliverer,
	queue Enqueuer,
	channels []int64,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		news:      news,
		users:     users,
		deliverer: deliverer,
		queue:     queue,
		channels:  channels,
		log:       log,
		now:       time.Now,
		async:     func(fn func()) { go fn() },
	}
}

// PostToUsers stores the post as unsent for channels and fans it out to every user.
func (s *Service) PostToUsers(ctx context.Context, actor *domain.User, text string) (*domain.News, error) {
	text, err := s.validate(actor, text)
	if err != nil {
		return nil, err
	}

	news, err := s.news.Create(ctx, text, actor.ID, false, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if s.queue != nil {
		err := s.enqueue(ctx, news)
		if err == nil {
			return news, nil
		}
		s.log.Warn("broadcast enqueue failed, delivering in process", slog.Int64("news_id", news.ID), slog.Any("error", err))
	}

	detached := context.WithoutCancel(ctx)
	s.async(func() {
		if _, err := s.DeliverToUsers(detached, news.ID, text); err != nil {
			s.log.Error("broadcast failed", slog.Int64("news_id", news.ID), slog.Any("error", err))
		}
	})

	return news, nil
}

func (s *Service) enqueue(ctx context.Context, news *domain.News) error {
	task, err := jobs.NewBroadcastTask(news.ID, news.Content)
	if err != nil {
		return err
	}

	info, err := s.queue.Enqueue(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.log.Warn("broadcast already queued", slog.Int64("news_id", news.ID))
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("broadcast enqueued", slog.Int64("news_id", news.ID), slog.String("task_id", info.ID))
	return nil
}

// DeliverToUsers sends text to every known user. Failures are skipped.
func (s *Service) DeliverToUsers(ctx context.Context, newsID int64, text string) (Report, error) {
	ids, err := s.users.RecipientIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if s.deliverer.NotifyUser(ctx, id, text) {
			report.Delivered++
		} else {
			report.Failed++
		}
	}

	s.log.Info("broadcast finished",
		slog.Int64("news_id", newsID),
		slog.Int("recipients", len(ids)),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

// PostToChannels publishes text to every configured channel and records it as sent.
func (s *Service) PostToChannels(ctx context.Context, actor *domain.User, text string) (Report, error) {
	text, err := s.validate(actor, text)
	if err != nil {
		return Report{}, err
	}

	report := s.deliverToChannels(ctx, text)

	news, err := s.news.Create(ctx, text, actor.ID, true, s.now().UTC())
	if err != nil {
		return report, err
	}

	s.log.Info("channel post published", slog.Int64("news_id", news.ID), slog.Int("delivered", report.Delivered), slog.Int("failed", report.Failed))
	return report, nil
}

// PublishPending publishes every unsent post to the channels and returns how
// many posts were published. A post is claimed before delivery so concurrent
// callers never publish it twice.
func (s *Service) PublishPending(ctx context.Context) (int, error) {
	if len(s.channels) == 0 {
		s.log.Warn("no channels configured, pending posts left unsent")
		return 0, nil
	}

	pending, err := s.news.ListUnsent(ctx, pendingBatch)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, item := range pending {
		claimed, err := s.news.MarkSent(ctx, item.ID, s.now().UTC())
		if err != nil {
			return published, err
		}
		if !claimed {
			continue
		}

		report := s.deliverToChannels(ctx, item.Content)
		s.log.Info("pending post published", slog.Int64("news_id", item.ID), slog.Int("delivered", report.Delivered), slog.Int("failed", report.Failed))
		published++
	}

	return published, nil
}

func (s *Service) deliverToChannels(ctx context.Context, text string) Report {
	var report Report
	for _, id := range s.channels {
		if s.deliverer.NotifyChannel(ctx, id, text) {
			report.Delivered++
		} else {
			report.Failed++
		}
	}
	return report
}

func (s *Service) validate(actor *domain.User, text string) (string, error) {
	if actor == nil || !actor.Role.AtLeastAdmin() {
		return "", domain.ErrForbidden
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewValidationError("Пост не может быть пустым.")
	}
	return text, nil
}
