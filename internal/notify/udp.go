package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

const (
	RegisterMessageType  = "register"
	PriceDropMessageType = "price_drop"
)

// RegisterMessage is sent by a desktop client to receive pushes for the
// subscriber its token belongs to.
type RegisterMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Authenticate resolves a registration token to a subscriber email.
type Authenticate func(ctx context.Context, token string) (email string, err error)

type PriceDropMessage struct {
	Type           string  `json:"type"`
	SubscriptionID int64   `json:"subscription_id"`
	ProductURL     string  `json:"product_url"`
	PreviousPrice  string  `json:"previous_price"`
	CurrentPrice   string  `json:"current_price"`
	Amount         float64 `json:"amount"`
}

type Client struct {
	Email string
	Addr  *net.UDPAddr
}

// Registry maps subscriber emails to the UDP address that last registered.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(email string, addr *net.UDPAddr) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[email] = Client{Email: email, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(email string) {
	r.mu.Lock()
	delete(r.clients, strings.ToLower(email))
	r.mu.Unlock()
}

func (r *Registry) Lookup(email string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[strings.ToLower(email)]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Server accepts client registrations and pushes price drops to them.
type Server struct {
	addr     string
	registry *Registry
	codec    *price.Codec
	auth     Authenticate
	logger   *log.Logger

	mu    sync.RWMutex
	conn  *net.UDPConn
	ready chan struct{}
}

// NewServer creates a push server. Registrations are rejected unless authn
// accepts their token.
func NewServer(addr string, registry *Registry, codec *price.Codec, authn Authenticate, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{addr: addr, registry: registry, codec: codec, auth: authn, logger: logger, ready: make(chan struct{})}
}

// Run listens until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.ready)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	s.logger.Printf("[notify] UDP server listening on %s", conn.LocalAddr())

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read udp: %w", err)
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Printf("[notify] invalid UDP message from %s: %v", addr, err)
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		email, err := s.authenticate(ctx, msg.Token)
		if err != nil {
			s.logger.Printf("[notify] rejected UDP registration from %s: %v", addr, err)
			continue
		}
		s.registry.Register(email, addr)
		s.logger.Printf("[notify] registered UDP client %s (%s)", email, addr)
	}
}

// Ready is closed once the server is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// LocalAddr is the bound address, or nil before Run.
func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Notify pushes the alert to the client registered for its email. Having
// no registered client is not a failure.
func (s *Server) Notify(_ context.Context, alert models.Alert) error {
	client, ok := s.registry.Lookup(alert.Email)
	if !ok {
		return nil
	}

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return apperr.Errorf(apperr.DeliveryError, "udp push", "server not running")
	}

	payload, err := json.Marshal(PriceDropMessage{
		Type:           PriceDropMessageType,
		SubscriptionID: alert.SubscriptionID,
		ProductURL:     alert.ProductURL,
		PreviousPrice:  s.codec.Format(alert.PreviousPrice),
		CurrentPrice:   s.codec.Format(alert.CurrentPrice),
		Amount:         alert.CurrentPrice,
	})
	if err != nil {
		return apperr.E(apperr.DeliveryError, "udp push", err)
	}
	return s.sendWithRetry(conn, client, payload)
}

// sendWithRetry tries twice, then forgets the client.
func (s *Server) sendWithRetry(conn *net.UDPConn, client Client, payload []byte) error {
	if err := sendOnce(conn, client, payload); err == nil {
		return nil
	}
	if err := sendOnce(conn, client, payload); err != nil {
		s.registry.Remove(client.Email)
		return apperr.E(apperr.DeliveryError, "udp push", fmt.Errorf("notify %s at %s: %w", client.Email, client.Addr, err))
	}
	return nil
}

func sendOnce(conn *net.UDPConn, client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func (s *Server) authenticate(ctx context.Context, token string) (string, error) {
	if s.auth == nil {
		return "", errors.New("no authenticator configured")
	}
	return s.auth(ctx, token)
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.Token == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}

// Listen registers token with the server at addr and calls fn for every
// price drop pushed back, until ctx is canceled.
func Listen(ctx context.Context, addr, token string, fn func(PriceDropMessage)) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	reg, _ := json.Marshal(RegisterMessage{Type: RegisterMessageType, Token: token})
	if _, err := conn.Write(reg); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	buffer := make([]byte, 4096)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var msg PriceDropMessage
		if err := json.Unmarshal(buffer[:n], &msg); err != nil || msg.Type != PriceDropMessageType {
			continue
		}
		fn(msg)
	}
}
