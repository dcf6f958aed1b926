// Package gateway streams the events of a running backtest to WebSocket
// clients.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"replaytrader/internal/broker"
	"replaytrader/internal/data"

	"github.com/gorilla/websocket"
)

// Envelope is one message on the wire.
type Envelope struct {
	Type  string    `json:"type"` // order, trade, bar, summary
	RunID string    `json:"run_id"`
	Seq   int64     `json:"seq"`
	TS    time.Time `json:"ts"` // bar time of the event
	Data  any       `json:"data"`
}

// BarEvent is the per-bar account snapshot.
type BarEvent struct {
	Index    int     `json:"index"`
	Close    float64 `json:"close"`
	Cash     float64 `json:"cash"`
	Position int64   `json:"position"`
	Value    float64 `json:"value"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub is a broker observer and per-bar observer that fans events out to
// WebSocket clients. Sends never block the replay: a slow client drops
// messages and can backfill from the replay buffer by seq.
type Hub struct {
	RunID string
	// BarEvery throttles bar events to one per N bars; 0 disables them.
	BarEvery int

	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	replay  *ReplayBuffer
}

// NewHub creates a hub for one run.
func NewHub(runID string, replayCap int) *Hub {
	return &Hub{
		RunID:    runID,
		BarEvery: 1,
		clients:  make(map[*Client]bool),
		replay:   NewReplayBuffer(replayCap),
	}
}

// OnOrder broadcasts a completed order.
func (h *Hub) OnOrder(o *broker.Order, _ *broker.Broker) {
	h.Broadcast("order", o.CompletedAt, *o)
}

// OnTrade broadcasts a trade transition.
func (h *Hub) OnTrade(t *broker.Trade, _ *broker.Broker) {
	h.Broadcast("trade", t.At, *t)
}

// OnBar broadcasts the account state every BarEvery bars and on the last bar.
func (h *Hub) OnBar(i int, feed *data.Feed, b *broker.Broker) {
	if h.BarEvery <= 0 {
		return
	}
	if i%h.BarEvery != 0 && i != feed.Len()-1 {
		return
	}
	c, _ := feed.Close.At(i)
	h.Broadcast("bar", feed.Time(), BarEvent{
		Index:    i,
		Close:    c,
		Cash:     b.Cash(),
		Position: b.PositionSize(),
		Value:    b.Value(feed),
	})
}

// Broadcast wraps payload in an envelope and sends it to every client.
func (h *Hub) Broadcast(typ string, ts time.Time, payload any) {
	h.mu.Lock()
	// Sequencing, buffering and fan-out share one critical section so
	// clients see seqs in order and a registering client never gets an
	// envelope twice.
	h.seq++
	env := Envelope{Type: typ, RunID: h.RunID, Seq: h.seq, TS: ts, Data: payload}
	msg, err := json.Marshal(env)
	if err != nil {
		h.mu.Unlock()
		log.Printf("[gateway] marshal %s envelope: %v", typ, err)
		return
	}
	h.replay.Push(env.Seq, msg)
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
	h.mu.Unlock()
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
// ?after_seq=N backfills buffered envelopes with seq > N before live ones.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	after, _ := strconv.ParseInt(r.URL.Query().Get("after_seq"), 10, 64)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	client := newClient(conn, h)

	h.mu.Lock()
	backlog := h.replay.Since(after)
	oldest := h.replay.Oldest()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if after > 0 && oldest > after+1 {
		log.Printf("[gateway] ws backfill gap: seqs %d..%d already evicted", after+1, oldest-1)
	}

	log.Printf("[gateway] ws client connected (%d total, %d backfilled)", count, len(backlog))

	go client.writePump(backlog)
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the seq of the last broadcast envelope.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}
