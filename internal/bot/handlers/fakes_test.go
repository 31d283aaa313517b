package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
	"github.com/Proton-105/payout-bot/internal/broadcast"
	"github.com/Proton-105/payout-bot/internal/domain"
	"github.com/Proton-105/payout-bot/internal/i18n"
	"github.com/Proton-105/payout-bot/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUsers is an in-memory user directory.
type fakeUsers struct {
	users map[int64]*domain.User

	nameErr error
	banned  map[int64]time.Duration
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*domain.User), banned: make(map[int64]time.Duration)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetOrCreate(_ context.Context, tg *telebot.User) (*domain.User, error) {
	if u, ok := f.users[tg.ID]; ok {
		return u, nil
	}
	u := domain.NewUser(tg.ID, time.Now())
	f.users[tg.ID] = u
	return u, nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) UpdateName(_ context.Context, id int64, name string) error {
	if f.nameErr != nil {
		return f.nameErr
	}
	f.users[id].Name = name
	return nil
}

func (f *fakeUsers) UpdateContact(_ context.Context, id int64, contact string) error {
	f.users[id].Contact = contact
	return nil
}

func (f *fakeUsers) PromoteToAdmin(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	return f.setRole(ctx, actor, id, domain.RoleAdmin)
}

func (f *fakeUsers) DemoteToUser(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	return f.setRole(ctx, actor, id, domain.RoleUser)
}

func (f *fakeUsers) setRole(ctx context.Context, actor *domain.User, id int64, role domain.Role) (*domain.User, error) {
	if !actor.Role.IsSuperadmin() {
		return nil, domain.ErrForbidden
	}
	u, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

func (f *fakeUsers) SetRank(ctx context.Context, _ *domain.User, id int64, rank domain.Rank) (*domain.User, error) {
	u, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Rank = rank
	return u, nil
}

func (f *fakeUsers) Ban(ctx context.Context, _ *domain.User, id int64, d time.Duration) (time.Time, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return time.Time{}, err
	}
	f.banned[id] = d
	return time.Date(2030, 1, 2, 3, 4, 0, 0, time.UTC), nil
}

func (f *fakeUsers) Unban(ctx context.Context, _ *domain.User, id int64) error {
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	delete(f.banned, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, page, pageSize int) ([]domain.User, int, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	return len(f.users), nil
}

type mockApplications struct {
	mock.Mock
}

func (m *mockApplications) Submit(ctx context.Context, userID int64, message string) (*domain.Application, error) {
	args := m.Called(ctx, userID, message)
	app, _ := args.Get(0).(*domain.Application)
	return app, args.Error(1)
}

func (m *mockApplications) ListPending(ctx context.Context, limit int) ([]domain.Application, error) {
	args := m.Called(ctx, limit)
	apps, _ := args.Get(0).([]domain.Application)
	return apps, args.Error(1)
}

func (m *mockApplications) CountPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockApplications) Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error) {
	args := m.Called(ctx, actor, id)
	app, _ := args.Get(0).(*domain.Application)
	return app, args.Error(1)
}

func (m *mockApplications) Reject(ctx context.Context, actor *domain.User, id int64) (*domain.Application, error) {
	args := m.Called(ctx, actor, id)
	app, _ := args.Get(0).(*domain.Application)
	return app, args.Error(1)
}

type mockPayouts struct {
	mock.Mock
}

func (m *mockPayouts) Issue(ctx context.Context, actor *domain.User, targetID int64, amount decimal.Decimal) (*domain.PayoutRecord, decimal.Decimal, error) {
	args := m.Called(ctx, actor, targetID, amount)
	record, _ := args.Get(0).(*domain.PayoutRecord)
	balance, _ := args.Get(1).(decimal.Decimal)
	return record, balance, args.Error(2)
}

func (m *mockPayouts) Leaderboard(ctx context.Context, period domain.Period) ([]domain.Earner, error) {
	args := m.Called(ctx, period)
	earners, _ := args.Get(0).([]domain.Earner)
	return earners, args.Error(1)
}

func (m *mockPayouts) EarnedToday(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	total, _ := args.Get(0).(decimal.Decimal)
	return total, args.Error(1)
}

func (m *mockPayouts) History(ctx context.Context, userID int64) ([]domain.PayoutRecord, error) {
	args := m.Called(ctx, userID)
	records, _ := args.Get(0).([]domain.PayoutRecord)
	return records, args.Error(1)
}

func (m *mockPayouts) Currency() string { return "USDT" }

type mockBroadcast struct {
	mock.Mock
}

func (m *mockBroadcast) PostToUsers(ctx context.Context, actor *domain.User, text string) (*domain.News, error) {
	args := m.Called(ctx, actor, text)
	news, _ := args.Get(0).(*domain.News)
	return news, args.Error(1)
}

func (m *mockBroadcast) PostToChannels(ctx context.Context, actor *domain.User, text string) (broadcast.Report, error) {
	args := m.Called(ctx, actor, text)
	report, _ := args.Get(0).(broadcast.Report)
	return report, args.Error(1)
}

func (m *mockBroadcast) PublishPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type notice struct {
	userID int64
	text   string
}

type recordingNotifier struct {
	notices []notice
}

func (r *recordingNotifier) NotifyUser(_ context.Context, userID int64, text string) bool {
	r.notices = append(r.notices, notice{userID: userID, text: text})
	return true
}

type testEnv struct {
	deps         *Deps
	users        *fakeUsers
	applications *mockApplications
	payouts      *mockPayouts
	broadcast    *mockBroadcast
	notifier     *recordingNotifier
	fsm          state.StateMachine
	t            i18n.Translator
}

func newTestEnv(t *testing.T, users ...*domain.User) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := testLogger()
	fsm := state.NewStateMachine(state.NewRedisStorage(client, log, time.Hour), log, client)

	catalog, err := i18n.Load("ru")
	require.NoError(t, err)
	tr := catalog.Translator("ru")

	env := &testEnv{
		users:        newFakeUsers(users...),
		applications: &mockApplications{},
		payouts:      &mockPayouts{},
		broadcast:    &mockBroadcast{},
		notifier:     &recordingNotifier{},
		fsm:          fsm,
		t:            tr,
	}
	env.deps = &Deps{
		Users:        env.users,
		Applications: env.applications,
		Payouts:      env.payouts,
		Broadcast:    env.broadcast,
		Notifier:     env.notifier,
		FSM:          fsm,
		Keyboard:     keyboard.NewBuilder(tr, log),
		T:            tr,
		Log:          log,
		Now:          func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return env
}

// as attaches the authenticated sender the way the auth middleware does.
func (e *testEnv) as(c telebot.Context) telebot.Context {
	u, _ := e.users.GetOrCreate(context.Background(), c.Sender())
	SetCurrentUser(c, u)
	return c
}

func (e *testEnv) state(t *testing.T, userID int64) *state.UserState {
	t.Helper()
	st, err := e.fsm.GetState(context.Background(), userID)
	if err != nil {
		return nil
	}
	return st
}
