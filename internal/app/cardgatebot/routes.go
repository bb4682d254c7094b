// Package cardgatebot предоставляет маршруты основного приложения.
package cardgatebot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/cardgate-bot/internal/config"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/ban"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/grant"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/login"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/maintenance"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/revoke"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/unban"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/admin/users"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/bot/health"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/handlers/bot/webhook"
	"github.com/magabrotheeeer/cardgate-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/jwt"
	"github.com/magabrotheeeer/cardgate-bot/internal/services/dispatcher"
	ledgerservice "github.com/magabrotheeeer/cardgate-bot/internal/services/ledger"
	"github.com/magabrotheeeer/cardgate-bot/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, disp *dispatcher.Dispatcher,
	maker jwt.Maker, db *repository.Storage, ledger *ledgerservice.Service, cfg *config.Config) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/health", health.New(logger).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// Вебхук Telegram: аутентификация секретным токеном в заголовке
		r.Post("/v1/telegram/webhook", webhook.New(logger, disp, cfg.WebhookSecret).ServeHTTP)
		r.Post("/login", login.New(logger, maker, cfg.AdminUsername, cfg.AdminPasswordHash).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/users", users.New(logger, db).ServeHTTP)
			r.Post("/users/ban", ban.New(logger, db).ServeHTTP)
			r.Post("/users/unban", unban.New(logger, db).ServeHTTP)
			r.Post("/credits/grant", grant.New(logger, ledger).ServeHTTP)
			r.Post("/credits/revoke", revoke.New(logger, ledger).ServeHTTP)
			r.Post("/maintenance", maintenance.New(logger, db).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
