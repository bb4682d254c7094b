// Package webhook реализует приём обновлений Telegram. Обработчик
// сверяет секретный токен, декодирует обновление и передаёт его
// диспетчеру в отдельной горутине: Telegram ждёт быстрый 200, иначе
// начинает слать повторы.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/cardgate-bot/internal/http/response"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/metrics"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Бюджет обработки одного обновления после ответа Telegram.
const dispatchTimeout = 90 * time.Second

// Service описывает диспетчер обновлений.
type Service interface {
	Dispatch(ctx context.Context, upd *telegram.Update)
}

// Handler принимает обновления Telegram.
type Handler struct {
	log        *slog.Logger
	dispatcher Service
	secret     string
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, dispatcher Service, secret string) *Handler {
	return &Handler{
		log:        log,
		dispatcher: dispatcher,
		secret:     secret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bot.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.secret != "" && r.Header.Get(secretTokenHeader) != h.secret {
		log.Warn("webhook secret mismatch")
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("forbidden"))
		return
	}

	// не-200 заставит Telegram доставлять обновление повторно,
	// поэтому нечитаемое тело подтверждаем и отбрасываем
	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		log.Error("failed to decode update", sl.Err(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	switch {
	case upd.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	case upd.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
	default:
		metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}

	// обновление обрабатывается после ответа: контекст запроса
	// закроется вместе с ответом, поэтому заводим свой
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		h.dispatcher.Dispatch(ctx, &upd)
	}()

	w.WriteHeader(http.StatusOK)
}
