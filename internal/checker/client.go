// Package checker реализует клиента удалённого сервиса проверки карт
// и классификацию его ответов в пользовательские исходы.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client — HTTP-клиент сервиса проверки карт.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента сервиса проверки с фиксированным таймаутом.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Check отправляет каноническую карточную строку на проверку.
//
// Любое отклонение от контракта — сетевая ошибка, таймаут, не-2xx статус,
// пустой или некорректный JSON — возвращается как ошибка; вызывающая
// сторона обязана свернуть её в исход "unable to process", не в Approved
// и не в Declined.
func (c *Client) Check(ctx context.Context, card string) (*Result, error) {
	const op = "checker.Check"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(card), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s: empty response", op)
	}
	return &results[0], nil
}
