package gate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/cardgate-bot/internal/cards"
	"github.com/magabrotheeeer/cardgate-bot/internal/checker"
	"github.com/magabrotheeeer/cardgate-bot/internal/config"
	"github.com/magabrotheeeer/cardgate-bot/internal/guard"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/services/gate"
	"github.com/magabrotheeeer/cardgate-bot/internal/session"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// Запись исходящего трафика вместо мока: конвейер делает много вызовов
// транспорта, проверять удобнее по журналу.
type txRecorder struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	deleted  []int
	answered []string
	failEdit bool
}

type sentMessage struct {
	ChatID int64
	Text   string
	Kb     *telegram.InlineKeyboardMarkup
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

func (r *txRecorder) SendMessage(_ context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sent = append(r.sent, sentMessage{ChatID: chatID, Text: text, Kb: kb})
	return r.nextID, nil
}

func (r *txRecorder) EditMessageText(_ context.Context, chatID int64, messageID int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failEdit {
		return errors.New("message to edit not found")
	}
	r.edits = append(r.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (r *txRecorder) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, messageID)
	return nil
}

func (r *txRecorder) AnswerCallbackQuery(_ context.Context, callbackID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answered = append(r.answered, callbackID)
	return nil
}

func (r *txRecorder) sentTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	texts := make([]string, len(r.sent))
	for i, m := range r.sent {
		texts[i] = m.Text
	}
	return texts
}

type CheckerMock struct{ mock.Mock }

func (m *CheckerMock) Check(ctx context.Context, card string) (*checker.Result, error) {
	args := m.Called(ctx, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checker.Result), args.Error(1)
}

type BinLookupMock struct{ mock.Mock }

func (m *BinLookupMock) Lookup(ctx context.Context, bin6 string) map[string]string {
	args := m.Called(ctx, bin6)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]string)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) GetUser(ctx context.Context, tgID int64) (*models.User, error) {
	args := m.Called(ctx, tgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) EnsureUser(ctx context.Context, tgID int64, username, fullName string, freeCredits int, isAdmin bool) (*models.User, error) {
	args := m.Called(ctx, tgID, username, fullName, freeCredits, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) IsMaintenance(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) Debit(ctx context.Context, user *models.User, amount int) (bool, error) {
	args := m.Called(ctx, user, amount)
	return args.Bool(0), args.Error(1)
}

func (m *LedgerMock) Affordable(user *models.User) int {
	args := m.Called(user)
	return args.Int(0)
}

// animStub не тикает: порядок stop → settle → финальная правка
// проверяется отдельным тестом аниматора.
type animStub struct{}

func (animStub) Start(_ context.Context, _ string, _ func(string) error) func() {
	return func() {}
}

type fixture struct {
	tx       *txRecorder
	checker  *CheckerMock
	bins     *BinLookupMock
	users    *UserRepoMock
	ledger   *LedgerMock
	guard    *guard.Guard
	sessions *session.Store
	svc      *gate.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tx:       &txRecorder{},
		checker:  &CheckerMock{},
		bins:     &BinLookupMock{},
		users:    &UserRepoMock{},
		ledger:   &LedgerMock{},
		guard:    guard.New(),
		sessions: session.NewStore(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Telegram{
		OwnerUsername:    "owner",
		AdminUserIDs:     []int64{1},
		NewUserChannelID: -100,
		ResultsChannelID: -200,
		FreeRegCredits:   10,
	}
	f.svc = gate.New(log, f.tx, f.checker, f.bins, f.users, f.ledger,
		f.guard, f.sessions, animStub{}, cards.Parse, cfg)
	return f
}

func testUser(credits int) *models.User {
	return &models.User{TgID: 42, Username: "tester", Credits: credits}
}

func testMessage(text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 7,
		From:      &telegram.User{ID: 42, Username: "tester", FirstName: "Test"},
		Chat:      telegram.Chat{ID: 42},
		Text:      text,
	}
}

const (
	validCommand = "/ccn 4111111111111111|05|26|123"
	canonical    = "4111111111111111|5|2026|123"
)

func TestSubmitCard_ApprovedFlow(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(3)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil).Once()
	f.bins.On("Lookup", mock.Anything, "411111").Return(map[string]string{"Card Brand": "VISA"})
	f.checker.On("Check", mock.Anything, canonical).
		Return(&checker.Result{Status: "succeeded", Message: "Payment complete."}, nil).Once()

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	require.Len(t, f.tx.edits, 1)
	final := f.tx.edits[0].Text
	assert.Contains(t, final, "✅ <b>Approved</b>")
	assert.Contains(t, final, canonical)
	assert.Contains(t, final, "Payment complete.")

	// зеркало в канал результатов и возврат карточки гейта
	texts := f.tx.sentTexts()
	require.GreaterOrEqual(t, len(texts), 3)
	mirrored := f.tx.sent[len(f.tx.sent)-2]
	assert.Equal(t, int64(-200), mirrored.ChatID)
	assert.Equal(t, final, mirrored.Text)

	assert.Equal(t, session.InCardGate, f.sessions.Get(42))
	f.checker.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestSubmitCard_BalanceOneDebitsOnce(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(1)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(1)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil).Once()
	f.bins.On("Lookup", mock.Anything, "411111").Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, canonical).
		Return(&checker.Result{Status: "failed", Message: "Declined by issuer."}, nil)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	f.ledger.AssertNumberOfCalls(t, "Debit", 1)
}

func TestSubmitCard_CheckerFailureNoDebit(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(3)
	f.bins.On("Lookup", mock.Anything, "411111").Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, canonical).Return(nil, errors.New("timeout"))

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	require.Len(t, f.tx.edits, 1)
	assert.Contains(t, f.tx.edits[0].Text, "Unable to process")
	f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)

	// провал вызова в канал результатов не зеркалится
	for _, m := range f.tx.sent {
		assert.NotEqual(t, int64(-200), m.ChatID)
	}
}

func TestSubmitCard_FinalEditFallsBackToNewMessage(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)
	f.tx.failEdit = true

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(3)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil)
	f.bins.On("Lookup", mock.Anything, "411111").Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, canonical).
		Return(&checker.Result{Status: "3ds_required", Message: "3DS CHALLENGE"}, nil)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	var found bool
	for _, m := range f.tx.sent {
		if m.ChatID == 42 && strings.Contains(m.Text, "⚠️ <b>3D Card</b>") {
			found = true
		}
	}
	assert.True(t, found, "final text must arrive as a new message when edit fails")
}

func TestSubmitCard_InsufficientCredits(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(0)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(0)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	texts := f.tx.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Insufficient")
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitCard_InvalidCardDeleted(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)

	// число не проходит контроль Луна
	f.svc.SubmitCard(context.Background(), testMessage("/ccn 4111111111111112|05|26|123"))

	assert.Equal(t, []int{7}, f.tx.deleted)
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitCard_OutsideGateShowsMenu(t *testing.T) {
	f := newFixture(t)
	// состояние Idle: команда гейта вне гейта

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	assert.Equal(t, []int{7}, f.tx.deleted)
	require.Len(t, f.tx.sent, 1)
	assert.NotNil(t, f.tx.sent[0].Kb)
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitCard_Maintenance(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(true, nil)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	texts := f.tx.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "maintenance")
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitCard_AdminBypassesMaintenance(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	user := testUser(0)
	user.IsAdmin = true
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.ledger.On("Affordable", user).Return(9999)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil)
	f.bins.On("Lookup", mock.Anything, "411111").Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, canonical).
		Return(&checker.Result{Status: "failed", Message: "Declined."}, nil)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	// IsMaintenance для администратора не читается вовсе
	f.users.AssertNotCalled(t, "IsMaintenance", mock.Anything)
	f.checker.AssertExpectations(t)
}

func TestSubmitCard_Banned(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)

	until := time.Now().Add(time.Hour)
	user := testUser(3)
	user.BannedUntil = &until
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	texts := f.tx.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "banned")
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitCard_GuardBusy(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InCardGate)
	require.True(t, f.guard.TryAcquire(42))
	defer f.guard.Release(42)

	user := testUser(3)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(3)

	f.svc.SubmitCard(context.Background(), testMessage(validCommand))

	assert.Equal(t, []int{7}, f.tx.deleted)
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitBatch_TruncatesToAffordable(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InBatchGate)

	user := testUser(2)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(2)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil).Twice()
	f.bins.On("Lookup", mock.Anything, mock.Anything).Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, mock.Anything).
		Return(&checker.Result{Status: "succeeded", Message: "OK"}, nil).Twice()

	// три валидных карты, баланс на две
	batch := "/mccn 4111111111111111|05|26|123\n" +
		"5500005555555559|06|27|456\n" +
		"4012888888881881|07|28|789"
	f.svc.SubmitBatch(context.Background(), testMessage(batch))

	f.checker.AssertNumberOfCalls(t, "Check", 2)
	f.ledger.AssertNumberOfCalls(t, "Debit", 2)
}

func TestSubmitBatch_DeduplicatesBinLookups(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InBatchGate)

	user := testUser(5)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(5)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil)
	f.bins.On("Lookup", mock.Anything, "411111").Return(map[string]string(nil)).Once()
	f.checker.On("Check", mock.Anything, mock.Anything).
		Return(&checker.Result{Status: "succeeded", Message: "OK"}, nil)

	// обе карты с одним префиксом 411111
	batch := "/mccn 4111111111111111|05|26|123 4111111111111103|06|27|456"
	f.svc.SubmitBatch(context.Background(), testMessage(batch))

	f.bins.AssertNumberOfCalls(t, "Lookup", 1)
}

func TestSubmitBatch_PerCardFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InBatchGate)

	user := testUser(5)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(5)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil).Once()
	f.bins.On("Lookup", mock.Anything, mock.Anything).Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, "4111111111111111|5|2026|123").
		Return(nil, errors.New("timeout")).Once()
	f.checker.On("Check", mock.Anything, "5500005555555559|6|2027|456").
		Return(&checker.Result{Status: "succeeded", Message: "OK"}, nil).Once()

	batch := "/mccn 4111111111111111|05|26|123 5500005555555559|06|27|456"
	f.svc.SubmitBatch(context.Background(), testMessage(batch))

	require.Len(t, f.tx.edits, 1)
	final := f.tx.edits[0].Text
	assert.Contains(t, final, "Unable to process")
	assert.Contains(t, final, "✅ <b>Approved</b>")
	f.ledger.AssertNumberOfCalls(t, "Debit", 1)
}

func TestSubmitBatch_SingleValidCardDiscarded(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InBatchGate)

	user := testUser(5)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)

	// вторая строка не проходит контроль Луна, валидной остаётся одна
	batch := "/mccn 4111111111111111|05|26|123 4111111111111112|06|27|456"
	f.svc.SubmitBatch(context.Background(), testMessage(batch))

	assert.Equal(t, []int{7}, f.tx.deleted)
	assert.Empty(t, f.tx.sent)
	f.checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSubmitBatch_CapsAtFiveCards(t *testing.T) {
	f := newFixture(t)
	f.sessions.Set(42, session.InBatchGate)

	user := testUser(100)
	f.users.On("GetUser", mock.Anything, int64(42)).Return(user, nil)
	f.users.On("IsMaintenance", mock.Anything).Return(false, nil)
	f.ledger.On("Affordable", user).Return(100)
	f.ledger.On("Debit", mock.Anything, user, 1).Return(true, nil)
	f.bins.On("Lookup", mock.Anything, mock.Anything).Return(map[string]string(nil))
	f.checker.On("Check", mock.Anything, mock.Anything).
		Return(&checker.Result{Status: "succeeded", Message: "OK"}, nil)

	tokens := []string{
		"4111111111111111|05|26|123",
		"5500005555555559|06|27|456",
		"4012888888881881|07|28|789",
		"371449635398431|08|29|1234",
		"6011111111111117|09|30|321",
		"30569309025904|10|31|654",
	}
	f.svc.SubmitBatch(context.Background(), testMessage("/mccn "+strings.Join(tokens, " ")))

	f.checker.AssertNumberOfCalls(t, "Check", 5)
}

func TestHandleCallback_RegisterGrantsFreeCredits(t *testing.T) {
	f := newFixture(t)

	registered := testUser(10)
	f.users.On("EnsureUser", mock.Anything, int64(42), "tester", "Test", 10, false).
		Return(registered, nil).Once()

	cb := &telegram.CallbackQuery{
		ID:      "cb-1",
		From:    telegram.User{ID: 42, Username: "tester", FirstName: "Test"},
		Message: testMessage(""),
		Data:    "reg",
	}
	f.svc.HandleCallback(context.Background(), cb)

	f.users.AssertExpectations(t)
	assert.Equal(t, []string{"cb-1"}, f.tx.answered)

	// уведомление в канал новых пользователей
	var notified bool
	for _, m := range f.tx.sent {
		if m.ChatID == -100 {
			notified = true
		}
	}
	assert.True(t, notified)
	assert.Equal(t, session.Idle, f.sessions.Get(42))
}

func TestHandleCallback_GateEntrySetsState(t *testing.T) {
	f := newFixture(t)

	cb := &telegram.CallbackQuery{
		ID:      "cb-2",
		From:    telegram.User{ID: 42},
		Message: testMessage(""),
		Data:    "ccn",
	}
	f.svc.HandleCallback(context.Background(), cb)
	assert.Equal(t, session.InCardGate, f.sessions.Get(42))

	cb.Data = "mccn"
	f.svc.HandleCallback(context.Background(), cb)
	assert.Equal(t, session.InBatchGate, f.sessions.Get(42))

	cb.Data = "close"
	f.svc.HandleCallback(context.Background(), cb)
	assert.Equal(t, session.Idle, f.sessions.Get(42))
}

func TestDiscardStray(t *testing.T) {
	f := newFixture(t)

	// вне гейта постороннее сообщение не трогаем
	f.svc.DiscardStray(context.Background(), testMessage("hello"))
	assert.Empty(t, f.tx.deleted)

	f.sessions.Set(42, session.InCardGate)
	f.svc.DiscardStray(context.Background(), testMessage("hello"))
	assert.Equal(t, []int{7}, f.tx.deleted)
}
