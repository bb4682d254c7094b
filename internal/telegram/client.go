// Package telegram реализует тонкого клиента Telegram Bot API: отправка,
// правка и удаление сообщений, ответы на нажатия кнопок. Разметка
// сообщений — HTML.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.telegram.org"

// Client — HTTP-клиент Bot API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиента Bot API с фиксированным таймаутом.
func NewClient(token string, timeout time.Duration) *Client {
	return NewClientWithURL(defaultAPIURL, token, timeout)
}

// NewClientWithURL создаёт клиента с нестандартным адресом API.
func NewClientWithURL(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	const op = "telegram.call"

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%s: %s: %s", op, method, apiResp.Description)
	}
	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// SendMessage отправляет сообщение и возвращает его идентификатор.
// Клавиатура опциональна.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb *InlineKeyboardMarkup) (int, error) {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		Text        string                `json:"text"`
		ParseMode   string                `json:"parse_mode"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: kb,
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessageText меняет текст ранее отправленного сообщения.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	payload := struct {
		ChatID    int64  `json:"chat_id"`
		MessageID int    `json:"message_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: "HTML",
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// DeleteMessage удаляет сообщение из чата.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	payload := struct {
		ChatID    int64 `json:"chat_id"`
		MessageID int   `json:"message_id"`
	}{
		ChatID:    chatID,
		MessageID: messageID,
	}
	return c.call(ctx, "deleteMessage", payload, nil)
}

// AnswerCallbackQuery подтверждает нажатие кнопки, убирая «часики» у клиента.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	payload := struct {
		CallbackQueryID string `json:"callback_query_id"`
	}{CallbackQueryID: callbackID}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}
