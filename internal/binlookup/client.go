// Package binlookup реализует получение BIN-метаданных карты (бренд, тип,
// уровень, банк-эмитент, страна) со страницы справочного сервиса.
//
// Граница ошибок жёсткая: любая неудача — сеть, таймаут, неожиданная
// разметка — превращается в пустую карту значений, наружу не выходит
// ни ошибка, ни паника.
package binlookup

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
)

// Cache описывает методы кеша BIN-метаданных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Client — клиент справочного сервиса BIN с кешированием результатов.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	log        *slog.Logger
}

// New создаёт клиента BIN-справочника.
func New(baseURL string, timeout time.Duration, cache Cache, cacheTTL time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// Lookup возвращает карту "поле → значение" для шестизначного префикса.
// Результат кешируется; при любой неудаче возвращается пустая карта.
func (c *Client) Lookup(ctx context.Context, bin6 string) map[string]string {
	const op = "binlookup.Lookup"
	log := c.log.With(slog.String("op", op), slog.String("bin", bin6))

	cacheKey := "bin:" + bin6
	cached := map[string]string{}
	if c.cache != nil {
		found, err := c.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn("bin cache read failed", sl.Err(err))
		}
		if found {
			return cached
		}
	}

	info, err := c.fetch(ctx, bin6)
	if err != nil {
		log.Warn("bin lookup failed", sl.Err(err))
		return map[string]string{}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, info, c.cacheTTL); err != nil {
			log.Warn("bin cache write failed", sl.Err(err))
		}
	}
	return info
}

func (c *Client) fetch(ctx context.Context, bin6 string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+bin6, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseDetailsTable(resp.Body)
}
