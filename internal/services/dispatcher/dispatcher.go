// Package dispatcher маршрутизирует обновления Telegram по сервисам:
// навигация и гейты, административные команды, зачистка посторонних
// сообщений.
package dispatcher

import (
	"context"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

// GateService описывает обработчики пользовательского диалога.
type GateService interface {
	HandleStart(ctx context.Context, msg *telegram.Message)
	HandleCallback(ctx context.Context, cb *telegram.CallbackQuery)
	SubmitCard(ctx context.Context, msg *telegram.Message)
	SubmitBatch(ctx context.Context, msg *telegram.Message)
	DiscardStray(ctx context.Context, msg *telegram.Message)
}

// AdminService описывает обработчик административных команд.
type AdminService interface {
	Handle(ctx context.Context, msg *telegram.Message) bool
}

// Dispatcher раздает обновления сервисам.
type Dispatcher struct {
	log   *slog.Logger
	gate  GateService
	admin AdminService
}

// New создает новый экземпляр Dispatcher.
func New(log *slog.Logger, gate GateService, admin AdminService) *Dispatcher {
	return &Dispatcher{
		log:   log,
		gate:  gate,
		admin: admin,
	}
}

// Dispatch обрабатывает одно обновление. Вызывается в отдельной
// горутине на обновление, поэтому паника одного диалога не должна
// ронять процесс.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic while handling update",
				slog.Int64("update_id", upd.UpdateID),
				slog.Any("panic", r))
		}
	}()

	if upd.CallbackQuery != nil {
		d.gate.HandleCallback(ctx, upd.CallbackQuery)
		return
	}

	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}

	switch {
	case strings.HasPrefix(msg.Text, "/start"):
		d.gate.HandleStart(ctx, msg)
	case strings.HasPrefix(msg.Text, "/ccn"):
		d.gate.SubmitCard(ctx, msg)
	case strings.HasPrefix(msg.Text, "/mccn"):
		d.gate.SubmitBatch(ctx, msg)
	case d.admin.Handle(ctx, msg):
	default:
		d.gate.DiscardStray(ctx, msg)
	}
}
