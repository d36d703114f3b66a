package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/pkg/contracts/events"
)

const writeTimeout = 5 * time.Second

// client serializa as escritas na conexão (gorilla aceita um único escritor)
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg ServerMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// Hub gerencia conexões WebSocket e assinaturas por pool
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	// poolID -> conjunto de clientes
	subs map[string]map[*client]struct{}
}

// NewHub cria o Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão.
// Cada cliente pode se inscrever em vários pools.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.PoolID == "" {
				_ = c.write(ServerMsg{Type: "error", Error: "poolId is required"})
				continue
			}
			h.subscribe(msg.PoolID, c)
			_ = c.write(ServerMsg{Type: "subscribed", PoolID: msg.PoolID})
		case "unsubscribe":
			h.unsubscribe(msg.PoolID, c)
		case "ping":
			_ = c.write(ServerMsg{Type: "pong"})
		default:
			_ = c.write(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) subscribe(poolID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[poolID]; !ok {
		h.subs[poolID] = make(map[*client]struct{})
	}
	h.subs[poolID][c] = struct{}{}
}

func (h *Hub) unsubscribe(poolID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[poolID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, poolID)
		}
	}
}

// drop remove o cliente de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
}

// Subscribers conta os clientes inscritos em um pool
func (h *Hub) Subscribers(poolID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[poolID])
}

// Broadcast envia a atualização a todos os inscritos no pool
func (h *Hub) Broadcast(update events.PoolUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.PoolID]))
	for c := range h.subs[update.PoolID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := ServerMsg{Type: "pool_update", PoolID: update.PoolID, Payload: &update}
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.log.Debug("ws write failed", zap.String("pool_id", update.PoolID), zap.Error(err))
		}
	}
}
