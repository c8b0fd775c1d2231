// Package live streams price drops to connected TCP and websocket clients.
package live

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pricewatch/internal/price"
	"pricewatch/pkg/models"
)

const writeTimeout = 2 * time.Second

// Authenticate resolves a client's token to the subscriber email it may
// receive alerts for.
type Authenticate func(ctx context.Context, token string) (email string, err error)

// Hub tracks feed clients by the email they authenticated as. Price drops
// go only to the owner's connections; monitor events go to everyone.
type Hub struct {
	codec  *price.Codec
	logger *log.Logger

	mu        sync.Mutex
	clients   map[net.Conn]string
	wsClients map[*websocket.Conn]string
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(codec *price.Codec, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		codec:     codec,
		logger:    logger,
		clients:   make(map[net.Conn]string),
		wsClients: make(map[*websocket.Conn]string),
	}
}

func (h *Hub) Add(conn net.Conn, email string) {
	h.mu.Lock()
	h.clients[conn] = normalizeEmail(email)
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn, email string) {
	h.mu.Lock()
	h.wsClients[ws] = normalizeEmail(email)
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Notify sends an alert to the connections of the subscriber it belongs
// to. Clients that cannot keep up are dropped; the feed itself never fails
// an alert.
func (h *Hub) Notify(_ context.Context, a models.Alert) error {
	owner := normalizeEmail(a.Email)
	if owner == "" {
		return nil
	}
	h.send(owner, Event{
		Type:           PriceDropEvent,
		SubscriptionID: a.SubscriptionID,
		ProductURL:     a.ProductURL,
		PreviousPrice:  h.codec.Format(a.PreviousPrice),
		CurrentPrice:   h.codec.Format(a.CurrentPrice),
		At:             a.At,
	})
	return nil
}

// BroadcastJSON sends v to every client. It must not carry subscriber data.
func (h *Hub) BroadcastJSON(v any) {
	h.send("", v)
}

// send writes v to clients registered for email, or to all clients when
// email is empty.
func (h *Hub) send(email string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("[live] marshal event: %v", err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, owner := range h.clients {
		if email != "" && owner != email {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err == nil {
			err = w.Flush()
		}
		if err != nil {
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws, owner := range h.wsClients {
		if email != "" && owner != email {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func (h *Hub) Welcome(conn net.Conn) {
	s := h.Stats()
	msg := fmt.Sprintf("{\"type\":\"welcome\",\"transport\":\"tcp\",\"clients\":%d}\n", s.TCPClients+s.WSClients)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = conn.Write([]byte(msg))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
