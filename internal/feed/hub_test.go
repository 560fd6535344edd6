package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/guessnumber/internal/game"
)

func TestHubStreamsSnapshots(t *testing.T) {
	h := NewHub()
	initial := game.Snapshot{ID: "r1", Lower: 1, Upper: 100, Guess: 50, Rounds: 1, State: game.StatePlaying}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, "r1", initial)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.CloseNow()

	var got game.Snapshot
	_, msg, err := c.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &got))
	require.Equal(t, 50, got.Guess)

	require.Eventually(t, func() bool { return h.Watchers("r1") == 1 }, time.Second, 10*time.Millisecond)

	next := initial
	next.Lower, next.Guess, next.Rounds = 51, 75, 2
	h.Publish(ctx, next)
	h.Publish(ctx, game.Snapshot{ID: "other", Guess: 1})

	_, msg, err = c.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &got))
	require.Equal(t, 75, got.Guess)
	require.Equal(t, 2, got.Rounds)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return h.Watchers("r1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubCloseFlushesAndDisconnects(t *testing.T) {
	h := NewHub()
	initial := game.Snapshot{ID: "r2", Lower: 1, Upper: 100, Guess: 50, Rounds: 1, State: game.StatePlaying}

	served := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served <- h.Serve(w, r, "r2", initial)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Watchers("r2") == 1 }, time.Second, 10*time.Millisecond)

	final := initial
	final.Guess, final.Rounds, final.State = 42, 2, game.StateSolved
	h.Publish(ctx, final)
	h.Close("r2")
	require.Zero(t, h.Watchers("r2"))

	var got game.Snapshot
	_, msg, err := c.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &got))
	require.Equal(t, game.StateSolved, got.State)

	_, _, err = c.Read(ctx)
	require.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watch did not end")
	}

	// closing an unknown or already closed round is a no-op
	h.Close("r2")
	h.Close("nobody")
}

func TestHandled(t *testing.T) {
	require.True(t, Handled(nil))
	require.True(t, Handled(context.Canceled))
	require.False(t, Handled(context.DeadlineExceeded))
}
