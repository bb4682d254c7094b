// Package broadcastsender собирает воркер рассылки: потребитель очереди
// заданий, доставляющий сообщения пользователям с ограничением темпа.
package broadcastsender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/cardgate-bot/internal/config"
	"github.com/magabrotheeeer/cardgate-bot/internal/rabbitmq"
	broadcastservice "github.com/magabrotheeeer/cardgate-bot/internal/services/broadcast"
	"github.com/magabrotheeeer/cardgate-bot/internal/storage/repository"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *broadcastservice.SenderService
	logger        *slog.Logger
}

// Миграции применяет основной процесс; воркер только дожидается их.
func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = waitForDB(db); err != nil {
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

	tgClient := telegram.NewClient(cfg.BotToken, cfg.Telegram.RequestTimeout)
	senderService := broadcastservice.NewSenderService(logger, tgClient, db,
		cfg.BroadcastRatePerSec, cfg.BroadcastBurst)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, "broadcast.outgoing", func(body []byte) error {
		return a.senderService.HandleJob(ctx, body)
	})
	if err != nil {
		a.logger.Error("failed to start broadcast.outgoing consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("broadcast sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
