// Package cardgatebot собирает основной процесс: хранилище, кэш,
// брокер, чат-транспорт, сервисы гейтов и HTTP-сервер с вебхуком и
// административным API.
package cardgatebot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/cardgate-bot/internal/animator"
	"github.com/magabrotheeeer/cardgate-bot/internal/binlookup"
	"github.com/magabrotheeeer/cardgate-bot/internal/cache"
	"github.com/magabrotheeeer/cardgate-bot/internal/cards"
	"github.com/magabrotheeeer/cardgate-bot/internal/checker"
	"github.com/magabrotheeeer/cardgate-bot/internal/config"
	"github.com/magabrotheeeer/cardgate-bot/internal/guard"
	"github.com/magabrotheeeer/cardgate-bot/internal/lib/jwt"
	"github.com/magabrotheeeer/cardgate-bot/internal/migrations"
	"github.com/magabrotheeeer/cardgate-bot/internal/rabbitmq"
	adminservice "github.com/magabrotheeeer/cardgate-bot/internal/services/admin"
	"github.com/magabrotheeeer/cardgate-bot/internal/services/dispatcher"
	gateservice "github.com/magabrotheeeer/cardgate-bot/internal/services/gate"
	ledgerservice "github.com/magabrotheeeer/cardgate-bot/internal/services/ledger"
	"github.com/magabrotheeeer/cardgate-bot/internal/session"
	"github.com/magabrotheeeer/cardgate-bot/internal/storage/repository"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, 3, 5*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetBroadcastQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewBroadcastPublisher(ch)

	tgClient := telegram.NewClient(cfg.BotToken, cfg.Telegram.RequestTimeout)
	checkerClient := checker.NewClient(cfg.Checker.BaseURL, cfg.TimeoutChecker)
	bins := binlookup.New(cfg.BaseURLBin, cfg.TimeoutBin, cacheRedis, cfg.CacheTTLBin, logger)

	ledger := ledgerservice.New(db, logger)
	gate := gateservice.New(logger, tgClient, checkerClient, bins, db, ledger,
		guard.New(), session.NewStore(), animator.New(animator.DefaultInterval),
		cards.Parse, cfg.Telegram)
	admin := adminservice.New(logger, tgClient, ledger, db, publisher, cfg.Telegram)
	disp := dispatcher.New(logger, gate, admin)

	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, disp, maker, db, ledger, cfg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if chErr := a.ch.Close(); chErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", chErr))
		}
		if connErr := a.conn.Close(); connErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", connErr))
		}
		a.db.DB.Close()
		return err
	}
}
