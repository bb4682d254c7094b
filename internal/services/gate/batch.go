package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/session"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// SubmitBatch обрабатывает команду пакетного гейта /mccn: отбирает
// валидные карты, урезает пакет до платёжеспособности, и прогоняет
// карты через общий конвейер последовательно под одним слотом допуска
// и одним аниматором.
func (s *Service) SubmitBatch(ctx context.Context, msg *telegram.Message) {
	const op = "gate.SubmitBatch"
	log := s.log.With(slog.String("op", op), sl.TgID(msg.From.ID))

	user, ok := s.admitToGate(ctx, msg, session.InBatchGate, log)
	if !ok {
		return
	}

	m := batchGateRe.FindStringSubmatch(msg.Text)
	if m == nil {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		return
	}

	var cards []*models.Card
	for _, token := range normalizeTokens(m[1]) {
		if card := s.parse(token); card != nil {
			cards = append(cards, card)
		}
		if len(cards) == batchMax {
			break
		}
	}
	if len(cards) < batchMin {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		return
	}

	affordable := s.ledger.Affordable(user)
	if affordable == 0 {
		s.sendInsufficient(ctx, msg.Chat.ID, log)
		return
	}
	if affordable < len(cards) {
		cards = cards[:affordable]
	}

	if !s.guard.TryAcquire(msg.From.ID) {
		_ = s.tx.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
		return
	}
	defer s.guard.Release(msg.From.ID)

	s.runBatch(ctx, msg, user, cards, log)

	if _, err := s.tx.SendMessage(ctx, msg.Chat.ID, batchGateInfoText(), kbBack()); err != nil {
		log.Warn("failed to resend gate info", sl.Err(err))
	}
}

// runBatch прогоняет пакет под одним плейсхолдером: карты проверяются
// последовательно, BIN-справочник опрашивается по разу на уникальный
// префикс, ошибка отдельной карты даёт строку "Unable to process" и не
// прерывает остальных.
func (s *Service) runBatch(ctx context.Context, msg *telegram.Message, user *models.User,
	cards []*models.Card, log *slog.Logger) {
	binInfo := make(map[string]map[string]string)
	var binOrder []string
	for _, card := range cards {
		if _, seen := binInfo[card.BIN()]; !seen {
			binInfo[card.BIN()] = s.bins.Lookup(ctx, card.BIN())
			binOrder = append(binOrder, card.BIN())
		}
	}

	var b strings.Builder
	for _, card := range cards {
		fmt.Fprintf(&b, "💳 <code>%s</code>\n", card.Canonical())
	}
	for _, bin6 := range binOrder {
		b.WriteString(binBlock(bin6, binInfo[bin6]))
	}
	base := strings.TrimRight(b.String(), "\n")

	placeholderID, err := s.tx.SendMessage(ctx, msg.Chat.ID, base, nil)
	if err != nil {
		log.Error("failed to send placeholder", sl.Err(err))
		return
	}

	stop := s.anim.Start(ctx, base, func(text string) error {
		return s.tx.EditMessageText(ctx, msg.Chat.ID, placeholderID, text)
	})
	defer stop()

	lines := make([]string, 0, len(cards))
	for _, card := range cards {
		line := s.checkOne(ctx, user, card.Canonical(), log)
		if line.failed {
			lines = append(lines, unableToProcessText(
				fmt.Sprintf("💳 <code>%s</code>", card.Canonical())))
			continue
		}
		lines = append(lines, batchLine(outcomeHead(line.outcome), card.Canonical(), line.message))
	}

	final := strings.Join(lines, "\n") + "\n🆔 <b>Checked by:</b> " + mention(msg.From)

	stop()
	s.settle()
	s.finalize(ctx, msg.Chat.ID, placeholderID, final, log)
	s.mirror(ctx, final, log)
}
