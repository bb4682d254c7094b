package dispatcher_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/cardgate-bot/internal/services/dispatcher"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

type gateRecorder struct {
	starts, cards, batches, strays, callbacks int
}

func (g *gateRecorder) HandleStart(context.Context, *telegram.Message) { g.starts++ }
func (g *gateRecorder) HandleCallback(context.Context, *telegram.CallbackQuery) { g.callbacks++ }
func (g *gateRecorder) SubmitCard(context.Context, *telegram.Message) { g.cards++ }
func (g *gateRecorder) SubmitBatch(context.Context, *telegram.Message) { g.batches++ }
func (g *gateRecorder) DiscardStray(context.Context, *telegram.Message) { g.strays++ }

type adminStub struct {
	consumed bool
	calls    int
}

func (a *adminStub) Handle(context.Context, *telegram.Message) bool {
	a.calls++
	return a.consumed
}

func message(text string) *telegram.Update {
	return &telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 1,
			Text:      text,
			Chat:      telegram.Chat{ID: 42},
			From:      &telegram.User{ID: 42},
		},
	}
}

func newDispatcher(gate *gateRecorder, admin *adminStub) *dispatcher.Dispatcher {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dispatcher.New(log, gate, admin)
}

func TestDispatch_Routing(t *testing.T) {
	tests := []struct {
		name          string
		upd           *telegram.Update
		adminConsumes bool
		check         func(t *testing.T, g *gateRecorder, a *adminStub)
	}{
		{
			name: "callback goes to gate",
			upd: &telegram.Update{CallbackQuery: &telegram.CallbackQuery{
				ID: "cb", From: telegram.User{ID: 42}, Data: "commands",
			}},
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Equal(t, 1, g.callbacks)
			},
		},
		{
			name: "start command",
			upd:  message("/start"),
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Equal(t, 1, g.starts)
			},
		},
		{
			name: "single card command",
			upd:  message("/ccn 4111111111111111|05|26|123"),
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Equal(t, 1, g.cards)
				assert.Zero(t, a.calls)
			},
		},
		{
			name: "batch command",
			upd:  message("/mccn a b"),
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Equal(t, 1, g.batches)
			},
		},
		{
			name:          "admin command consumed",
			upd:           message("/showuserlist"),
			adminConsumes: true,
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Equal(t, 1, a.calls)
				assert.Zero(t, g.strays)
			},
		},
		{
			name: "stray text",
			upd:  message("hello there"),
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Equal(t, 1, a.calls)
				assert.Equal(t, 1, g.strays)
			},
		},
		{
			name: "empty update ignored",
			upd:  &telegram.Update{UpdateID: 9},
			check: func(t *testing.T, g *gateRecorder, a *adminStub) {
				assert.Zero(t, g.starts+g.cards+g.batches+g.strays+g.callbacks)
				assert.Zero(t, a.calls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := &gateRecorder{}
			admin := &adminStub{consumed: tt.adminConsumes}
			d := newDispatcher(gate, admin)

			d.Dispatch(context.Background(), tt.upd)
			tt.check(t, gate, admin)
		})
	}
}

type panickyGate struct{ gateRecorder }

func (panickyGate) HandleStart(context.Context, *telegram.Message) {
	panic("boom")
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pd := dispatcher.New(log, &panickyGate{}, &adminStub{})

	assert.NotPanics(t, func() {
		pd.Dispatch(context.Background(), message("/start"))
	})
}
