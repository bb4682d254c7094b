// Package grant реализует начисление кредитов пользователю через
// административный API.
package grant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/cardgate-bot/internal/http/response"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
)

// Request — параметры начисления.
type Request struct {
	TgID   int64 `json:"tg_id" validate:"required"`
	Amount int   `json:"amount" validate:"required,gt=0"`
}

// Service описывает операцию начисления кредитов.
type Service interface {
	Grant(ctx context.Context, tgID int64, amount int) error
}

// Handler обрабатывает HTTP-запросы начисления кредитов.
type Handler struct {
	log      *slog.Logger
	ledger   Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, ledger Service) *Handler {
	return &Handler{
		log:      log,
		ledger:   ledger,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Начисление кредитов
// @Description Начисляет пользователю указанное количество кредитов.
// @Tags Credits
// @Accept  json
// @Produce  json
// @Param request body Request true "Получатель и количество"
// @Success 200 {object} response.Response "Кредиты начислены"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /api/credits/grant [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.grant"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.ledger.Grant(r.Context(), req.TgID, req.Amount); err != nil {
		log.Error("failed to grant credits", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to grant credits"))
		return
	}

	log.Info("credits granted", sl.TgID(req.TgID), slog.Int("amount", req.Amount))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"tg_id":  req.TgID,
		"amount": req.Amount,
	}))
}
