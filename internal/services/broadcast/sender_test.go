package broadcast_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/services/broadcast"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

type TransportMock struct {
	mu     sync.Mutex
	sentTo []int64
	fail   map[int64]bool
}

func (m *TransportMock) SendMessage(_ context.Context, chatID int64, _ string, _ *telegram.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[chatID] {
		return 0, errors.New("Forbidden: bot was blocked by the user")
	}
	m.sentTo = append(m.sentTo, chatID)
	return 1, nil
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) AllUserIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jobBody(t *testing.T, job models.BroadcastJob) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestHandleJob_DeliversToAllUsers(t *testing.T) {
	tx := &TransportMock{}
	users := &UserRepoMock{}
	users.On("AllUserIDs", mock.Anything).Return([]int64{1, 2, 3}, nil).Once()

	svc := broadcast.NewSenderService(noopLogger(), tx, users, 1000, 1000)
	err := svc.HandleJob(context.Background(), jobBody(t, models.BroadcastJob{ID: "j1", Text: "hi"}))

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, tx.sentTo)
}

func TestHandleJob_BlockedRecipientDoesNotAbort(t *testing.T) {
	tx := &TransportMock{fail: map[int64]bool{2: true}}
	users := &UserRepoMock{}
	users.On("AllUserIDs", mock.Anything).Return([]int64{1, 2, 3}, nil).Once()

	svc := broadcast.NewSenderService(noopLogger(), tx, users, 1000, 1000)
	err := svc.HandleJob(context.Background(), jobBody(t, models.BroadcastJob{ID: "j2", Text: "hi"}))

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, tx.sentTo)
}

func TestHandleJob_MalformedBodyReturnsError(t *testing.T) {
	tx := &TransportMock{}
	users := &UserRepoMock{}

	svc := broadcast.NewSenderService(noopLogger(), tx, users, 1000, 1000)
	err := svc.HandleJob(context.Background(), []byte("{not json"))

	require.Error(t, err)
	users.AssertNotCalled(t, "AllUserIDs", mock.Anything)
}

func TestHandleJob_RepositoryError(t *testing.T) {
	tx := &TransportMock{}
	users := &UserRepoMock{}
	users.On("AllUserIDs", mock.Anything).Return(nil, errors.New("db down")).Once()

	svc := broadcast.NewSenderService(noopLogger(), tx, users, 1000, 1000)
	err := svc.HandleJob(context.Background(), jobBody(t, models.BroadcastJob{ID: "j3", Text: "hi"}))

	require.Error(t, err)
	assert.Empty(t, tx.sentTo)
}

func TestHandleJob_RespectsRateLimit(t *testing.T) {
	tx := &TransportMock{}
	users := &UserRepoMock{}
	users.On("AllUserIDs", mock.Anything).Return([]int64{1, 2, 3, 4, 5}, nil).Once()

	// темп 100/с, burst 1: пять отправок занимают не меньше ~40мс
	svc := broadcast.NewSenderService(noopLogger(), tx, users, 100, 1)
	start := time.Now()
	err := svc.HandleJob(context.Background(), jobBody(t, models.BroadcastJob{ID: "j4", Text: "hi"}))

	require.NoError(t, err)
	assert.Len(t, tx.sentTo, 5)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestHandleJob_CancelledContextStops(t *testing.T) {
	tx := &TransportMock{}
	users := &UserRepoMock{}
	users.On("AllUserIDs", mock.Anything).Return([]int64{1, 2, 3}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// частично доставленное задание не переотправляется
	svc := broadcast.NewSenderService(noopLogger(), tx, users, 1, 1)
	err := svc.HandleJob(ctx, jobBody(t, models.BroadcastJob{ID: "j5", Text: "hi"}))

	require.NoError(t, err)
	assert.Empty(t, tx.sentTo)
}
