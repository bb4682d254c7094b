// Package maintenance реализует переключение режима обслуживания через
// административный API.
package maintenance

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

// Request — целевое состояние режима обслуживания. Указатель отличает
// явный false от пропущенного поля.
type Request struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Service описывает установку флага обслуживания.
type Service interface {
	SetMaintenance(ctx context.Context, on bool) error
}

// Handler обрабатывает HTTP-запросы режима обслуживания.
type Handler struct {
	log      *slog.Logger
	settings Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, settings Service) *Handler {
	return &Handler{
		log:      log,
		settings: settings,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Режим обслуживания
// @Description Включает или выключает режим обслуживания гейтов.
// @Tags Settings
// @Accept  json
// @Produce  json
// @Param request body Request true "Целевое состояние"
// @Success 200 {object} response.Response "Режим переключен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /api/maintenance [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.maintenance"

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

	if err := h.settings.SetMaintenance(r.Context(), *req.Enabled); err != nil {
		log.Error("failed to set maintenance", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to set maintenance"))
		return
	}

	log.Info("maintenance switched", slog.Bool("enabled", *req.Enabled))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"enabled": *req.Enabled,
	}))
}
