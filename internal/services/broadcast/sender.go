// Package broadcast реализует воркер рассылки: задания из очереди
// доставляются всем пользователям с ограничением темпа, чтобы не
// упереться в лимиты чат-платформы.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// Transport описывает отправку сообщения пользователю.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) (int, error)
}

// UserRepository перечисляет получателей рассылки.
type UserRepository interface {
	AllUserIDs(ctx context.Context) ([]int64, error)
}

// SenderService доставляет задания рассылки получателям.
type SenderService struct {
	log     *slog.Logger
	tx      Transport
	users   UserRepository
	limiter *rate.Limiter
}

// NewSenderService создает новый экземпляр SenderService. ratePerSec
// и burst задают темп доставки; неположительные значения заменяются
// безопасным минимумом.
func NewSenderService(log *slog.Logger, tx Transport, users UserRepository, ratePerSec float64, burst int) *SenderService {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &SenderService{
		log:     log,
		tx:      tx,
		users:   users,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// HandleJob обрабатывает тело задания из очереди. Ошибка возвращается
// только до начала доставки: частично доставленное задание не
// возвращается в очередь, иначе получатели увидят дубли.
func (s *SenderService) HandleJob(ctx context.Context, body []byte) error {
	const op = "broadcast.HandleJob"

	var job models.BroadcastJob
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal broadcast job", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(slog.String("op", op), slog.String("job_id", job.ID))

	ids, err := s.users.AllUserIDs(ctx)
	if err != nil {
		log.Error("failed to list recipients", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	var sent, failed int
	for _, tgID := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			log.Warn("broadcast interrupted", sl.Err(err))
			break
		}
		if _, err := s.tx.SendMessage(ctx, tgID, job.Text, nil); err != nil {
			// заблокировавшие бота получатели не срывают рассылку
			failed++
			continue
		}
		sent++
	}

	log.Info("broadcast delivered",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Int("total", len(ids)))
	return nil
}
