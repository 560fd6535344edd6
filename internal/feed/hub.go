// internal/feed/hub.go
//
// Websocket fan-out of round updates.
// Each live round is a topic; watchers subscribe over a websocket and receive
// a JSON snapshot every time the engine produces a guess.
//
// Characteristics:
//   - Publishing never blocks: a watcher whose buffer is full is kicked.
//   - Publishing is rate limited to keep a chatty round from flooding watchers.
//   - Watchers are read-only; anything they send is discarded.
//   - Close ends a round's topic: pending snapshots are flushed and every
//     watcher gets a normal closure.

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/guessnumber/internal/game"
)

// Hub enables broadcasting round snapshots to a set of watchers.
type Hub struct {
	// subscriberMessageBuffer controls the max number of messages that can
	// be queued for a watcher before it is kicked.
	//
	// Defaults to 16.
	subscriberMessageBuffer int

	// publishLimiter controls the rate limit applied to Publish.
	//
	// Defaults to one publish every 10ms with a burst of 8.
	publishLimiter *rate.Limiter

	// writeTimeout bounds each websocket write.
	writeTimeout time.Duration

	mu     sync.Mutex
	topics map[string]map[*subscriber]struct{}
}

// NewHub constructs a Hub with the defaults.
func NewHub() *Hub {
	return &Hub{
		subscriberMessageBuffer: 16,
		publishLimiter:          rate.NewLimiter(rate.Every(10*time.Millisecond), 8),
		writeTimeout:            5 * time.Second,
		topics:                  make(map[string]map[*subscriber]struct{}),
	}
}

// subscriber represents a watcher.
// Messages are sent on the msgs channel and if the client cannot keep up
// with the messages, closeSlow is called. done is closed when the round's
// topic is closed.
type subscriber struct {
	msgs      chan []byte
	done      chan struct{}
	closeSlow func()
}

// Publish sends snap to every watcher of snap.ID.
func (h *Hub) Publish(ctx context.Context, snap game.Snapshot) {
	msg, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Str("roundId", snap.ID).Msg("marshal snapshot")
		return
	}
	if err := h.publishLimiter.Wait(ctx); err != nil {
		log.Warn().Err(err).Str("roundId", snap.ID).Msg("publish skipped")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.topics[snap.ID] {
		select {
		case s.msgs <- msg:
		default:
			go s.closeSlow()
		}
	}
}

// Close ends the round's topic. Current watchers receive whatever is still
// queued for them and are then disconnected with a normal closure.
func (h *Hub) Close(roundID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.topics[roundID] {
		close(s.done)
	}
	delete(h.topics, roundID)
}

// Watchers returns the number of watchers of a round.
func (h *Hub) Watchers(roundID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[roundID])
}

// Serve accepts the websocket connection, sends initial, and then streams
// every snapshot published for roundID until the client leaves or ctx ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, roundID string, initial game.Snapshot) error {
	var mu sync.Mutex
	var c *websocket.Conn
	var closed bool
	s := &subscriber{
		msgs: make(chan []byte, h.subscriberMessageBuffer),
		done: make(chan struct{}),
		closeSlow: func() {
			mu.Lock()
			defer mu.Unlock()
			closed = true
			if c != nil {
				c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
			}
		},
	}
	h.add(roundID, s)
	defer h.remove(roundID, s)

	c2, err := websocket.Accept(w, r, nil)
	if err != nil {
		return err
	}
	mu.Lock()
	if closed {
		mu.Unlock()
		return net.ErrClosed
	}
	c = c2
	mu.Unlock()
	defer c.CloseNow()

	// Watchers never talk back; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := c.CloseRead(r.Context())

	first, err := json.Marshal(initial)
	if err != nil {
		return err
	}
	if err := h.write(ctx, c, first); err != nil {
		return err
	}

	for {
		select {
		case msg := <-s.msgs:
			if err := h.write(ctx, c, msg); err != nil {
				return err
			}
		case <-s.done:
			for {
				select {
				case msg := <-s.msgs:
					if err := h.write(ctx, c, msg); err != nil {
						return err
					}
				default:
					if err := c.Close(websocket.StatusNormalClosure, "round closed"); err != nil {
						log.Debug().Err(err).Str("roundId", roundID).Msg("close watcher")
					}
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Handled reports whether err is an ordinary end of a watch session.
func Handled(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

func (h *Hub) add(roundID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[roundID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[roundID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) remove(roundID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[roundID]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.topics, roundID)
	}
}

func (h *Hub) write(ctx context.Context, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, msg)
}
