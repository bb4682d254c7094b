// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	RabbitMQConnection      string `yaml:"rabbitmq_connection" env:"RABBITMQ_CONNECTION"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Telegram                `yaml:"telegram"`
	Checker                 `yaml:"checker"`
	BinLookup               `yaml:"bin_lookup"`
	JWTToken                `yaml:"jwttoken"`
	AdminAPI                `yaml:"admin_api"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// Telegram структура с настройками бота: токен, секрет вебхука,
// служебные каналы и стартовый баланс новых пользователей.
type Telegram struct {
	BotToken             string        `yaml:"bot_token" env:"BOT_TOKEN"`
	WebhookSecret        string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	OwnerUsername        string        `yaml:"owner_username"`
	AdminUserIDs         []int64       `yaml:"admin_user_ids"`
	NewUserChannelID     int64         `yaml:"new_user_channel_id"`
	ResultsChannelID     int64         `yaml:"results_channel_id"`
	FreeRegCredits       int           `yaml:"free_reg_credits" env-default:"10"`
	RequestTimeout       time.Duration `yaml:"request_timeout" env-default:"30s"`
	BroadcastRatePerSec  float64       `yaml:"broadcast_rate_per_sec" env-default:"30"`
	BroadcastBurst       int           `yaml:"broadcast_burst" env-default:"1"`
}

// Checker структура с настройками удалённого сервиса проверки карт.
type Checker struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutChecker time.Duration `yaml:"timeout" env-default:"60s"`
}

// BinLookup структура с настройками сервиса BIN-метаданных.
type BinLookup struct {
	BaseURLBin  string        `yaml:"base_url" env-default:"https://bincheck.io/details/"`
	TimeoutBin  time.Duration `yaml:"timeout" env-default:"30s"`
	CacheTTLBin time.Duration `yaml:"cache_ttl" env-default:"24h"`
}

// JWTToken структура для работы с jwt-токеном административного API
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// AdminAPI учётные данные административного HTTP API.
type AdminAPI struct {
	AdminUsername     string `yaml:"admin_username"`
	AdminPasswordHash string `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// IsAdminID сообщает, входит ли идентификатор в список привилегированных.
func (t Telegram) IsAdminID(tgID int64) bool {
	for _, id := range t.AdminUserIDs {
		if id == tgID {
			return true
		}
	}
	return false
}
