package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, wantMethod string, response string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/"+wantMethod, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(response))
	}))
	return srv, &got
}

func TestClient_SendMessage(t *testing.T) {
	srv, got := newTestServer(t, "sendMessage",
		`{"ok":true,"result":{"message_id":77,"chat":{"id":5}}}`)
	defer srv.Close()

	client := NewClientWithURL(srv.URL, "test-token", 5*time.Second)
	id, err := client.SendMessage(context.Background(), 5, "hello", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{{Text: "ok", CallbackData: "ok"}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 77, id)
	assert.Equal(t, float64(5), (*got)["chat_id"])
	assert.Equal(t, "hello", (*got)["text"])
	assert.Equal(t, "HTML", (*got)["parse_mode"])
	assert.Contains(t, *got, "reply_markup")
}

func TestClient_SendMessage_NoKeyboard(t *testing.T) {
	srv, got := newTestServer(t, "sendMessage",
		`{"ok":true,"result":{"message_id":1,"chat":{"id":5}}}`)
	defer srv.Close()

	client := NewClientWithURL(srv.URL, "test-token", 5*time.Second)
	_, err := client.SendMessage(context.Background(), 5, "hello", nil)

	require.NoError(t, err)
	assert.NotContains(t, *got, "reply_markup")
}

func TestClient_EditMessageText(t *testing.T) {
	srv, got := newTestServer(t, "editMessageText", `{"ok":true,"result":true}`)
	defer srv.Close()

	client := NewClientWithURL(srv.URL, "test-token", 5*time.Second)
	err := client.EditMessageText(context.Background(), 5, 77, "updated")

	require.NoError(t, err)
	assert.Equal(t, float64(77), (*got)["message_id"])
	assert.Equal(t, "updated", (*got)["text"])
}

func TestClient_EditMessageText_APIError(t *testing.T) {
	srv, _ := newTestServer(t, "editMessageText",
		`{"ok":false,"description":"Bad Request: message to edit not found"}`)
	defer srv.Close()

	client := NewClientWithURL(srv.URL, "test-token", 5*time.Second)
	err := client.EditMessageText(context.Background(), 5, 77, "updated")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "message to edit not found")
}

func TestClient_DeleteMessage(t *testing.T) {
	srv, got := newTestServer(t, "deleteMessage", `{"ok":true,"result":true}`)
	defer srv.Close()

	client := NewClientWithURL(srv.URL, "test-token", 5*time.Second)
	require.NoError(t, client.DeleteMessage(context.Background(), 5, 77))
	assert.Equal(t, float64(77), (*got)["message_id"])
}

func TestClient_AnswerCallbackQuery(t *testing.T) {
	srv, got := newTestServer(t, "answerCallbackQuery", `{"ok":true,"result":true}`)
	defer srv.Close()

	client := NewClientWithURL(srv.URL, "test-token", 5*time.Second)
	require.NoError(t, client.AnswerCallbackQuery(context.Background(), "cb-1"))
	assert.Equal(t, "cb-1", (*got)["callback_query_id"])
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ada", (&User{FirstName: "Ada"}).FullName())
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace"}).FullName())
}
