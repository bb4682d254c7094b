// Package gate реализует движок проверочных гейтов: машину диалоговых
// состояний, конвейер проверки одной карты и пакетный оркестратор.
// Конвейер общий для обоих режимов: разбор → допуск → (аниматор ∥
// удалённый вызов) → классификация → списание → сборка результата.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/magabrotheeeer/cardgate-bot/internal/animator"
	"github.com/magabrotheeeer/cardgate-bot/internal/checker"
	"github.com/magabrotheeeer/cardgate-bot/internal/config"
	"github.com/magabrotheeeer/cardgate-bot/internal/guard"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/metrics"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/session"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// Лимиты пакетного режима: меньше двух валидных карт — шум, больше пяти
// не обрабатывается.
const (
	batchMin = 2
	batchMax = 5
)

var (
	cardGateRe  = regexp.MustCompile(`^/ccn\s+([\d|]+)`)
	batchGateRe = regexp.MustCompile(`(?s)^/mccn\s+(.+)`)
)

// Transport описывает операции чат-транспорта, нужные движку.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// CardChecker описывает удалённый сервис проверки карт.
type CardChecker interface {
	Check(ctx context.Context, card string) (*checker.Result, error)
}

// BinLookup описывает справочник BIN-метаданных.
type BinLookup interface {
	Lookup(ctx context.Context, bin6 string) map[string]string
}

// UserRepository описывает операции хранилища над учётными записями.
type UserRepository interface {
	GetUser(ctx context.Context, tgID int64) (*models.User, error)
	EnsureUser(ctx context.Context, tgID int64, username, fullName string, freeCredits int, isAdmin bool) (*models.User, error)
	IsMaintenance(ctx context.Context) (bool, error)
}

// Ledger описывает операции кредитного баланса.
type Ledger interface {
	Debit(ctx context.Context, user *models.User, amount int) (bool, error)
	Affordable(user *models.User) int
}

// Animator описывает индикатор выполнения.
type Animator interface {
	Start(ctx context.Context, base string, edit func(text string) error) (stop func())
}

// Parser разбирает сырой токен в карточную запись; nil — отказ.
type Parser func(raw string) *models.Card

// Service — движок проверочных гейтов.
type Service struct {
	log      *slog.Logger
	tx       Transport
	checker  CardChecker
	bins     BinLookup
	users    UserRepository
	ledger   Ledger
	guard    *guard.Guard
	sessions *session.Store
	anim     Animator
	parse    Parser
	settle   func()
	cfg      config.Telegram
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, tx Transport, cardChecker CardChecker, bins BinLookup,
	users UserRepository, ledgerSvc Ledger, g *guard.Guard, sessions *session.Store,
	anim Animator, parse Parser, cfg config.Telegram) *Service {
	return &Service{
		log:      log,
		tx:       tx,
		checker:  cardChecker,
		bins:     bins,
		users:    users,
		ledger:   ledgerSvc,
		guard:    g,
		sessions: sessions,
		anim:     anim,
		parse:    parse,
		settle:   animator.Settle,
		cfg:      cfg,
	}
}

// HandleStart обрабатывает /start: показывает стартовое меню,
// различая зарегистрированных и незнакомых пользователей.
func (s *Service) HandleStart(ctx context.Context, msg *telegram.Message) {
	const op = "gate.HandleStart"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	user, err := s.users.GetUser(ctx, msg.From.ID)
	registered := err == nil
	s.sessions.Reset(msg.From.ID)

	if _, err := s.tx.SendMessage(ctx, msg.Chat.ID,
		startMessageText(msg.From, registered, user), kbStart(registered)); err != nil {
		log.Error("failed to send start menu", sl.Err(err))
	}
}

// HandleCallback обрабатывает нажатия навигационных кнопок.
func (s *Service) HandleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	const op = "gate.HandleCallback"
	log := s.log.With(slog.String("op", op), sl.TgID(cb.From.ID), slog.String("data", cb.Data))

	// подтверждаем нажатие сразу, исход навигации на это не влияет
	if err := s.tx.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		log.Warn("failed to answer callback", sl.Err(err))
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch cb.Data {
	case cbClose:
		s.sessions.Reset(cb.From.ID)
		_ = s.tx.DeleteMessage(ctx, chatID, messageID)

	case cbRegister:
		s.register(ctx, cb, chatID, messageID, log)

	case cbCommands, cbBackToCommands:
		s.sessions.Set(cb.From.ID, session.BrowsingCommands)
		s.edit(ctx, chatID, messageID, commandsMenuText(), kbCommands(), log)

	case cbGates:
		s.sessions.Set(cb.From.ID, session.BrowsingCommands)
		s.edit(ctx, chatID, messageID, gatesMenuText(), kbGates(), log)

	case cbCardGate:
		s.sessions.Set(cb.From.ID, session.InCardGate)
		s.edit(ctx, chatID, messageID, cardGateInfoText(), kbBack(), log)

	case cbBatchGate:
		s.sessions.Set(cb.From.ID, session.InBatchGate)
		s.edit(ctx, chatID, messageID, batchGateInfoText(), kbBack(), log)

	case cbCredits:
		user, err := s.users.GetUser(ctx, cb.From.ID)
		if err != nil {
			log.Warn("credits for unknown user", sl.Err(err))
			return
		}
		s.edit(ctx, chatID, messageID, creditsText(user), kbBack(), log)

	case cbBackToMenu:
		s.sessions.Reset(cb.From.ID)
		user, err := s.users.GetUser(ctx, cb.From.ID)
		registered := err == nil
		s.edit(ctx, chatID, messageID, startMessageText(&cb.From, registered, user), kbStart(registered), log)

	default:
		log.Warn("unknown callback data")
	}
}

// DiscardStray удаляет постороннее сообщение, присланное внутри гейта,
// сохраняя чистоту канала во время проверки. Вне гейта сообщение
// игнорируется.
func (s *Service) DiscardStray(ctx context.Context, msg *telegram.Message) {
	state := s.sessions.Get(msg.From.ID)
	if state == session.InCardGate || state == session.InBatchGate {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
	}
}

// SubmitCard обрабатывает команду одиночного гейта /ccn.
func (s *Service) SubmitCard(ctx context.Context, msg *telegram.Message) {
	const op = "gate.SubmitCard"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	user, ok := s.admitToGate(ctx, msg, session.InCardGate, log)
	if !ok {
		return
	}

	m := cardGateRe.FindStringSubmatch(msg.Text)
	if m == nil {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		return
	}
	card := s.parse(m[1])
	if card == nil {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		return
	}

	if s.ledger.Affordable(user) < 1 {
		s.sendInsufficient(ctx, msg.Chat.ID, log)
		return
	}

	if !s.guard.TryAcquire(msg.From.ID) {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		return
	}
	defer s.guard.Release(msg.From.ID)

	s.runSingle(ctx, msg, user, card, log)

	// возвращаем карточку гейта, состояние остаётся прежним
	if _, err := s.tx.SendMessage(ctx, msg.Chat.ID, cardGateInfoText(), kbBack()); err != nil {
		log.Warn("failed to resend gate info", sl.Err(err))
	}
}

// runSingle выполняет конвейер проверки одной карты: плейсхолдер,
// аниматор параллельно удалённому вызову, классификация, списание,
// финальная правка с откатом на новое сообщение.
func (s *Service) runSingle(ctx context.Context, msg *telegram.Message, user *models.User,
	card *models.Card, log *slog.Logger) {
	canonical := card.Canonical()
	info := s.bins.Lookup(ctx, card.BIN())
	base := fmt.Sprintf("💳 <code>%s</code>", canonical) + binBlock(card.BIN(), info)

	placeholderID, err := s.tx.SendMessage(ctx, msg.Chat.ID, base, nil)
	if err != nil {
		log.Error("failed to send placeholder", sl.Err(err))
		return
	}

	stop := s.anim.Start(ctx, base, func(text string) error {
		return s.tx.EditMessageText(ctx, msg.Chat.ID, placeholderID, text)
	})
	defer stop()

	line := s.checkOne(ctx, user, canonical, log)

	var final string
	if line.failed {
		final = unableToProcessText(base)
	} else {
		final = singleResultText(outcomeHead(line.outcome), canonical, line.message,
			binBlock(card.BIN(), info), mention(msg.From))
	}

	// stop → settle → финальная правка: иначе очередной тик аниматора
	// может перезаписать итог
	stop()
	s.settle()
	s.finalize(ctx, msg.Chat.ID, placeholderID, final, log)

	if !line.failed {
		s.mirror(ctx, final, log)
	}
}

// checkLine — результат проверки одной карты внутри конвейера.
type checkLine struct {
	outcome models.Outcome
	message string
	failed  bool // сетевая ошибка или бесструктурный ответ
}

// checkOne выполняет удалённый вызов, классификацию и списание за один
// успешный вызов. Ошибка вызова не прерывает пакет и не списывает кредит.
func (s *Service) checkOne(ctx context.Context, user *models.User, canonical string,
	log *slog.Logger) checkLine {
	res, err := s.checker.Check(ctx, canonical)
	if err != nil {
		log.Warn("remote check failed", sl.Err(err))
		return checkLine{failed: true}
	}

	outcome := checker.Classify(res.Status, res.Message)
	metrics.ChecksTotal.WithLabelValues(outcome.String()).Inc()

	if _, err := s.ledger.Debit(ctx, user, 1); err != nil {
		log.Error("debit after check failed", sl.Err(err))
	}

	message := res.Message
	if message == "" {
		message = "Result"
	}
	return checkLine{outcome: outcome, message: message}
}

// admitToGate выполняет общие предпроверки гейта: регистрация, бан,
// режим обслуживания и диалоговое состояние. Состояние авторитетно:
// команда гейта вне гейта возвращает пользователя в главное меню.
func (s *Service) admitToGate(ctx context.Context, msg *telegram.Message,
	want session.State, log *slog.Logger) (*models.User, bool) {
	user, err := s.users.GetUser(ctx, msg.From.ID)
	if err != nil {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		if _, err := s.tx.SendMessage(ctx, msg.Chat.ID,
			startMessageText(msg.From, false, nil), kbStart(false)); err != nil {
			log.Warn("failed to send start menu", sl.Err(err))
		}
		return nil, false
	}

	if user.Banned(time.Now()) {
		left := time.Until(*user.BannedUntil).Truncate(time.Second).String()
		if _, err := s.tx.SendMessage(ctx, msg.Chat.ID, bannedText(left), nil); err != nil {
			log.Warn("failed to send ban notice", sl.Err(err))
		}
		return nil, false
	}

	if !user.IsAdmin {
		maintenance, err := s.users.IsMaintenance(ctx)
		if err != nil {
			log.Error("maintenance flag read failed", sl.Err(err))
		}
		if maintenance {
			if _, err := s.tx.SendMessage(ctx, msg.Chat.ID, maintenanceText(), nil); err != nil {
				log.Warn("failed to send maintenance notice", sl.Err(err))
			}
			return nil, false
		}
	}

	if s.sessions.Get(msg.From.ID) != want {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		if _, err := s.tx.SendMessage(ctx, msg.Chat.ID,
			startMessageText(msg.From, true, user), kbStart(true)); err != nil {
			log.Warn("failed to send start menu", sl.Err(err))
		}
		return nil, false
	}
	return user, true
}

func (s *Service) register(ctx context.Context, cb *telegram.CallbackQuery,
	chatID int64, messageID int, log *slog.Logger) {
	isAdmin := false
	for _, id := range s.cfg.AdminUserIDs {
		if id == cb.From.ID {
			isAdmin = true
			break
		}
	}

	user, err := s.users.EnsureUser(ctx, cb.From.ID, cb.From.Username, cb.From.FullName(),
		s.cfg.FreeRegCredits, isAdmin)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		return
	}
	log.Info("user registered")

	if s.cfg.NewUserChannelID != 0 {
		text := fmt.Sprintf("🆕 New user: %s (<code>%d</code>)", mention(&cb.From), cb.From.ID)
		if _, err := s.tx.SendMessage(ctx, s.cfg.NewUserChannelID, text, nil); err != nil {
			log.Warn("failed to notify new user channel", sl.Err(err))
		}
	}

	s.sessions.Reset(cb.From.ID)
	s.edit(ctx, chatID, messageID, startMessageText(&cb.From, true, user), kbStart(true), log)
}

// finalize пишет итоговый текст в плейсхолдер; при неудаче правки
// отправляет новое сообщение, чтобы пользователь не остался с
// зависшим "Processing".
func (s *Service) finalize(ctx context.Context, chatID int64, messageID int, text string, log *slog.Logger) {
	if err := s.tx.EditMessageText(ctx, chatID, messageID, text); err != nil {
		log.Warn("final edit failed, sending new message", sl.Err(err))
		if _, err := s.tx.SendMessage(ctx, chatID, text, nil); err != nil {
			log.Error("fallback send failed", sl.Err(err))
		}
	}
}

// mirror дублирует итог проверки в служебный канал, по возможности.
func (s *Service) mirror(ctx context.Context, text string, log *slog.Logger) {
	if s.cfg.ResultsChannelID == 0 {
		return
	}
	if _, err := s.tx.SendMessage(ctx, s.cfg.ResultsChannelID, text, nil); err != nil {
		log.Warn("failed to mirror result", sl.Err(err))
	}
}

func (s *Service) sendInsufficient(ctx context.Context, chatID int64, log *slog.Logger) {
	if _, err := s.tx.SendMessage(ctx, chatID, insufficientText(), kbContactBack(s.cfg.OwnerUsername)); err != nil {
		log.Warn("failed to send insufficient notice", sl.Err(err))
	}
}

func (s *Service) edit(ctx context.Context, chatID int64, messageID int, text string,
	kb *telegram.InlineKeyboardMarkup, log *slog.Logger) {
	// правка текста и клавиатуры выполняется заменой сообщения:
	// editMessageText сбрасывает inline-клавиатуру, поэтому при смене
	// раскладки проще удалить и отправить заново
	_ = s.tx.DeleteMessage(ctx, chatID, messageID)
	if _, err := s.tx.SendMessage(ctx, chatID, text, kb); err != nil {
		log.Warn("failed to send menu", sl.Err(err))
	}
}

// normalizeTokens разбивает свободный текст на токены, нормализуя
// переводы строк в пробелы.
func normalizeTokens(raw string) []string {
	return strings.Fields(strings.ReplaceAll(raw, "\n", " "))
}
