// Package admin реализует административные чат-команды: управление
// кредитами и банами, список пользователей, режим обслуживания и
// постановка рассылок в очередь.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/cardgate-bot/internal/config"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// Грамматика длительности бана.
var (
	banHoursRe = regexp.MustCompile(`^(\d+)h$`)
	banDaysRe  = regexp.MustCompile(`^(\d*)d(?:ay)?$`)

	// Бессрочный бан хранится как дата в далёком будущем, а не NULL:
	// NULL означает отсутствие бана.
	unlimitedBan = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Список пользователей урезается до лимита выдачи и длины сообщения чата.
const (
	userListLimit   = 200
	userListMaxSize = 4000
)

// Transport описывает минимальный чат-транспорт для ответов администратору.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int, error)
}

// Ledger описывает операции кредитного баланса от имени администратора.
type Ledger interface {
	Grant(ctx context.Context, tgID int64, amount int) error
	Revoke(ctx context.Context, tgID int64, amount int) (bool, error)
}

// UserRepository описывает административные операции хранилища.
type UserRepository interface {
	SetBan(ctx context.Context, tgID int64, until *time.Time) error
	ListRecentUsers(ctx context.Context, limit int) ([]*models.User, error)
	SetMaintenance(ctx context.Context, on bool) error
}

// Publisher ставит задание рассылки в очередь.
type Publisher interface {
	PublishBroadcast(ctx context.Context, job models.BroadcastJob) error
}

// Service — обработчик административных команд.
type Service struct {
	log       *slog.Logger
	tx        Transport
	ledger    Ledger
	users     UserRepository
	publisher Publisher
	cfg       config.Telegram
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, tx Transport, ledgerSvc Ledger, users UserRepository,
	publisher Publisher, cfg config.Telegram) *Service {
	return &Service{
		log:       log,
		tx:        tx,
		ledger:    ledgerSvc,
		users:     users,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Handle разбирает административную команду и выполняет её. Возвращает
// true, если сообщение было административной командой и поглощено.
// Команды от пользователей вне списка администраторов молча игнорируются.
func (s *Service) Handle(ctx context.Context, msg *telegram.Message) bool {
	cmd, _, _ := strings.Cut(msg.Text, " ")
	handler, known := map[string]func(context.Context, *telegram.Message){
		"/addusercredits":   s.addCredits,
		"/deductusercredit": s.deductCredits,
		"/banuseraccess":    s.ban,
		"/unbanuseraccess":  s.unban,
		"/showuserlist":     s.showUsers,
		"/freezebotusage":   s.freeze,
		"/unfreezebotusage": s.unfreeze,
		"/broadcastmessage": s.broadcast,
	}[cmd]
	if !known {
		return false
	}
	if msg.From == nil || !s.cfg.IsAdminID(msg.From.ID) {
		return true
	}
	handler(ctx, msg)
	return true
}

func (s *Service) addCredits(ctx context.Context, msg *telegram.Message) {
	const op = "admin.addCredits"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	tgID, amount, ok := parseIDAmount(msg.Text)
	if !ok {
		s.reply(ctx, msg, "Usage: /addusercredits <user_id> <amount>", log)
		return
	}
	if err := s.ledger.Grant(ctx, tgID, amount); err != nil {
		log.Error("grant failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to add credits.", log)
		return
	}
	s.reply(ctx, msg, fmt.Sprintf(
		"Credits Added ✅\n━━━━━━━━━━━━━\nUser: <a href=\"tg://user?id=%d\">%d</a>\nCredits Added: %d\nDate: %s",
		tgID, tgID, amount, time.Now().UTC().Format("2006-01-02")), log)
}

func (s *Service) deductCredits(ctx context.Context, msg *telegram.Message) {
	const op = "admin.deductCredits"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	tgID, amount, ok := parseIDAmount(msg.Text)
	if !ok {
		s.reply(ctx, msg, "Usage: /deductusercredit <user_id> <amount>", log)
		return
	}
	revoked, err := s.ledger.Revoke(ctx, tgID, amount)
	if err != nil {
		log.Error("revoke failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to deduct credits.", log)
		return
	}
	if !revoked {
		s.reply(ctx, msg, "User does not have enough credits to deduct.", log)
		return
	}
	s.reply(ctx, msg, fmt.Sprintf(
		"Credits Deducted ✅\n━━━━━━━━━━━━━\nUser: <a href=\"tg://user?id=%d\">%d</a>\nCredits Deducted: %d\nDate: %s",
		tgID, tgID, amount, time.Now().UTC().Format("2006-01-02")), log)
}

func (s *Service) ban(ctx context.Context, msg *telegram.Message) {
	const op = "admin.ban"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	fields := strings.Fields(msg.Text)
	if len(fields) != 3 {
		s.reply(ctx, msg, "Usage: /banuseraccess <user_id> <1h|1d|2day|unlimited>", log)
		return
	}
	tgID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		s.reply(ctx, msg, "Usage: /banuseraccess <user_id> <1h|1d|2day|unlimited>", log)
		return
	}

	until := ParseBanDuration(fields[2])
	if err := s.users.SetBan(ctx, tgID, &until); err != nil {
		log.Error("set ban failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to ban user.", log)
		return
	}

	display := until.Format(time.RFC3339)
	if until.Equal(unlimitedBan) {
		display = "∞"
	}
	s.reply(ctx, msg, fmt.Sprintf("User %d banned until %s", tgID, display), log)
}

func (s *Service) unban(ctx context.Context, msg *telegram.Message) {
	const op = "admin.unban"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	fields := strings.Fields(msg.Text)
	if len(fields) != 2 {
		s.reply(ctx, msg, "Usage: /unbanuseraccess <user_id>", log)
		return
	}
	tgID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		s.reply(ctx, msg, "Usage: /unbanuseraccess <user_id>", log)
		return
	}
	if err := s.users.SetBan(ctx, tgID, nil); err != nil {
		log.Error("unban failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to unban user.", log)
		return
	}
	s.reply(ctx, msg, fmt.Sprintf("<a href=\"tg://user?id=%d\">User</a> unbanned.", tgID), log)
}

func (s *Service) showUsers(ctx context.Context, msg *telegram.Message) {
	const op = "admin.showUsers"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	users, err := s.users.ListRecentUsers(ctx, userListLimit)
	if err != nil {
		log.Error("list users failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to fetch user list.", log)
		return
	}

	var b strings.Builder
	b.WriteString("Users (id|username|credits|joined):\n")
	for _, u := range users {
		username := u.Username
		if username == "" {
			username = "-"
		}
		fmt.Fprintf(&b, "%d | @%s | %d | %s\n", u.TgID, username, u.Credits,
			u.JoinedAt.Format("2006-01-02"))
	}
	text := strings.TrimRight(b.String(), "\n")
	if len(text) > userListMaxSize {
		text = text[:userListMaxSize]
	}
	s.reply(ctx, msg, text, log)
}

func (s *Service) freeze(ctx context.Context, msg *telegram.Message) {
	const op = "admin.freeze"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	if err := s.users.SetMaintenance(ctx, true); err != nil {
		log.Error("freeze failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to freeze bot usage.", log)
		return
	}
	s.reply(ctx, msg, "🛠️ Bot usage frozen for maintenance.", log)
}

func (s *Service) unfreeze(ctx context.Context, msg *telegram.Message) {
	const op = "admin.unfreeze"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	if err := s.users.SetMaintenance(ctx, false); err != nil {
		log.Error("unfreeze failed", sl.Err(err))
		s.reply(ctx, msg, "Failed to unfreeze bot usage.", log)
		return
	}
	s.reply(ctx, msg, "✅ Bot is live again.", log)
}

func (s *Service) broadcast(ctx context.Context, msg *telegram.Message) {
	const op = "admin.broadcast"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	_, content, found := strings.Cut(msg.Text, " ")
	content = strings.TrimSpace(content)
	if !found || content == "" {
		s.reply(ctx, msg, "Usage: /broadcastmessage <text> (use \\n for new lines)", log)
		return
	}
	content = strings.ReplaceAll(content, `\n`, "\n")

	job := models.BroadcastJob{ID: uuid.NewString(), Text: content}
	if err := s.publisher.PublishBroadcast(ctx, job); err != nil {
		log.Error("failed to enqueue broadcast", sl.Err(err))
		s.reply(ctx, msg, "Failed to queue broadcast.", log)
		return
	}
	log.Info("broadcast queued", slog.String("job_id", job.ID))
	s.reply(ctx, msg, "📣 Broadcast queued: "+job.ID, log)
}

func (s *Service) reply(ctx context.Context, msg *telegram.Message, text string, log *slog.Logger) {
	if _, err := s.tx.SendMessage(ctx, msg.Chat.ID, text, nil); err != nil {
		log.Warn("failed to reply", sl.Err(err))
	}
}

// parseIDAmount разбирает команды вида "/cmd <user_id> <amount>";
// количество должно быть положительным.
func parseIDAmount(text string) (int64, int, bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return 0, 0, false
	}
	tgID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	amount, err := strconv.Atoi(fields[2])
	if err != nil || amount <= 0 {
		return 0, 0, false
	}
	return tgID, amount, true
}

// ParseBanDuration разбирает грамматику длительности: Nh — часы,
// [N]d|Nday — дни (по умолчанию один), всё прочее — бессрочно.
func ParseBanDuration(raw string) time.Time {
	now := time.Now().UTC()
	if m := banHoursRe.FindStringSubmatch(raw); m != nil {
		hours, _ := strconv.Atoi(m[1])
		return now.Add(time.Duration(hours) * time.Hour)
	}
	if m := banDaysRe.FindStringSubmatch(raw); m != nil {
		days := 1
		if m[1] != "" {
			days, _ = strconv.Atoi(m[1])
		}
		return now.AddDate(0, 0, days)
	}
	return unlimitedBan
}
