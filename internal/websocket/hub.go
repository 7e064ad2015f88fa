package websocket

import (
	"context"

	"github.com/rs/zerolog/log"

	"groupboard/internal/metrics"
)

type delivery struct {
	userID  uint
	payload []byte
}

type onlineQuery struct {
	userID uint
	reply  chan int
}

// Hub maintains the set of active clients and pushes payloads to every
// connection of a user. Only the Run goroutine touches the clients map.
type Hub struct {
	// A user may hold several connections (one per tab or device).
	clients map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	direct     chan delivery
	online     chan onlineQuery
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan delivery, 256),
		online:     make(chan onlineQuery),
		done:       make(chan struct{}),
	}
}

// Deliver queues a payload for a user. It never blocks the caller (the
// Kafka consumer); when the queue is full the payload is dropped and false
// is returned.
func (h *Hub) Deliver(userID uint, payload []byte) bool {
	select {
	case h.direct <- delivery{userID: userID, payload: payload}:
		return true
	default:
		log.Warn().Uint("user_id", userID).Msg("hub delivery queue full, dropping notification")
		return false
	}
}

// Online reports how many connections a user currently holds.
func (h *Hub) Online(ctx context.Context, userID uint) int {
	q := onlineQuery{userID: userID, reply: make(chan int, 1)}
	select {
	case h.online <- q:
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-q.reply:
		return n
	case <-ctx.Done():
		return 0
	}
}

// Run owns the client set until ctx is cancelled, then closes every
// connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	log.Info().Msg("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for userID, conns := range h.clients {
				for c := range conns {
					h.drop(userID, c)
				}
			}
			log.Info().Msg("websocket hub stopped")
			return

		case c := <-h.register:
			conns, ok := h.clients[c.UserID]
			if !ok {
				conns = make(map[*Client]bool)
				h.clients[c.UserID] = conns
			}
			conns[c] = true
			metrics.WebSocketClients.Inc()
			log.Debug().Uint("user_id", c.UserID).Int("connections", len(conns)).Msg("client registered")

		case c := <-h.unregister:
			// The client may already be gone if a full send buffer evicted it.
			if h.clients[c.UserID][c] {
				h.drop(c.UserID, c)
				log.Debug().Uint("user_id", c.UserID).Msg("client unregistered")
			}

		case d := <-h.direct:
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.payload:
				default:
					log.Warn().Uint("user_id", d.userID).Msg("client send buffer full, disconnecting")
					h.drop(d.userID, c)
				}
			}

		case q := <-h.online:
			q.reply <- len(h.clients[q.userID])
		}
	}
}

// attach and detach are no-ops once the hub has stopped.
func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(userID uint, c *Client) {
	conns := h.clients[userID]
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	close(c.send)
	metrics.WebSocketClients.Dec()
}
