// Package ban реализует блокировку пользователя через административный API.
package ban

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/cardgate-bot/internal/http/response"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/services/admin"
)

// Request — параметры блокировки. Duration использует ту же грамматику,
// что и чат-команда: Nh, [N]d, Nday или unlimited.
type Request struct {
	TgID     int64  `json:"tg_id" validate:"required"`
	Duration string `json:"duration" validate:"required"`
}

// Service описывает установку блокировки.
type Service interface {
	SetBan(ctx context.Context, tgID int64, until *time.Time) error
}

// Handler обрабатывает HTTP-запросы блокировки.
type Handler struct {
	log      *slog.Logger
	users    Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, users Service) *Handler {
	return &Handler{
		log:      log,
		users:    users,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Блокировка пользователя
// @Description Блокирует доступ пользователя к гейтам на заданный срок.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body Request true "Пользователь и срок"
// @Success 200 {object} response.Response "Пользователь заблокирован"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /api/users/ban [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.ban"

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

	until := admin.ParseBanDuration(req.Duration)
	if err := h.users.SetBan(r.Context(), req.TgID, &until); err != nil {
		log.Error("failed to ban user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to ban user"))
		return
	}

	log.Info("user banned", sl.TgID(req.TgID), slog.Time("until", until))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"tg_id": req.TgID,
		"until": until,
	}))
}
