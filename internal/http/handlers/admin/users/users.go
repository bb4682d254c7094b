// Package users реализует выдачу списка пользователей через
// административный API.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/cardgate-bot/internal/http/response"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
)

const defaultLimit = 200

// Service описывает выборку пользователей.
type Service interface {
	ListRecentUsers(ctx context.Context, limit int) ([]*models.User, error)
}

// Handler обрабатывает HTTP-запросы списка пользователей.
type Handler struct {
	log   *slog.Logger
	users Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, users Service) *Handler {
	return &Handler{
		log:   log,
		users: users,
	}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Возвращает последних зарегистрированных пользователей.
// @Tags Users
// @Produce  json
// @Param limit query int false "Максимум записей (по умолчанию 200)"
// @Success 200 {object} response.Response "Список пользователей"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /api/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid limit"))
			return
		}
		limit = parsed
	}

	list, err := h.users.ListRecentUsers(r.Context(), limit)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list users"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"users": list,
		"count": len(list),
	}))
}
