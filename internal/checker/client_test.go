package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Check(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
		wantStatus string
		wantMsg    string
	}{
		{
			name:       "ok response",
			statusCode: http.StatusOK,
			body:       `[{"status":"succeeded","message":"Payment complete."}]`,
			wantStatus: "succeeded",
			wantMsg:    "Payment complete.",
		},
		{
			name:       "empty array",
			statusCode: http.StatusOK,
			body:       `[]`,
			wantErr:    true,
		},
		{
			name:       "malformed json",
			statusCode: http.StatusOK,
			body:       `{"status":"succeeded"}`,
			wantErr:    true,
		},
		{
			name:       "server error",
			statusCode: http.StatusBadGateway,
			body:       ``,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL+"/ccngate/", 5*time.Second)
			res, err := client.Check(context.Background(), "4111111111111111|5|2026|123")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

func TestClient_Check_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"status":"succeeded","message":"late"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/ccngate/", 20*time.Millisecond)
	_, err := client.Check(context.Background(), "4111111111111111|5|2026|123")
	assert.Error(t, err)
}

func TestClient_Check_EscapesCard(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[{"status":"failed","message":"declined"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/ccngate/", 5*time.Second)
	_, err := client.Check(context.Background(), "4111111111111111|5|2026|123")
	require.NoError(t, err)
	assert.Equal(t, "/ccngate/4111111111111111%7C5%7C2026%7C123", gotPath)
}
