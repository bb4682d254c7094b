// Package login реализует авторизацию оператора административного API.
// Учётные данные оператора задаются конфигурацией; при совпадении
// пароля с bcrypt-хэшем выпускается JWT.
package login

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/cardgate-bot/internal/http/response"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/password"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
)

// Request — учётные данные оператора.
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// TokenMaker выпускает JWT для оператора.
type TokenMaker interface {
	GenerateToken(username, role string) (string, error)
}

// Handler обрабатывает HTTP-запросы авторизации.
type Handler struct {
	log          *slog.Logger
	maker        TokenMaker
	username     string
	passwordHash string
	validate     *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, maker TokenMaker, username, passwordHash string) *Handler {
	return &Handler{
		log:          log,
		maker:        maker,
		username:     username,
		passwordHash: passwordHash,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация оператора
// @Description Аутентифицирует оператора по имени и паролю. Возвращает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные оператора"
// @Success 200 {object} map[string]any "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Router /api/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"

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

	if req.Username != h.username || password.CompareHash(h.passwordHash, req.Password) != nil {
		log.Warn("invalid credentials", slog.String("username", req.Username))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	token, err := h.maker.GenerateToken(req.Username, "admin")
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("login success", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    token,
		"role":     "admin",
		"username": req.Username,
	}))
}
