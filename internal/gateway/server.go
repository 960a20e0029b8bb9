package gateway

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dledlow/unitystation/internal/model"
	"github.com/dledlow/unitystation/internal/vend"
)

// Config holds gateway tuning.
type Config struct {
	FloodProtection bool
	MessagesPerSec  float64
	Burst           int
}

type client struct {
	actor model.ActorID
	out   chan []byte
}

// Server is the websocket gateway between players and the vending
// machines. It translates socket messages into engine calls and, as a
// vend.Sink, fans engine notifications back out to every connected
// client.
type Server struct {
	registry *vend.Registry
	issuer   *vend.CartridgeIssuer
	cfg      Config

	upgrader websocket.Upgrader

	clientMu sync.Mutex
	clients  map[*client]struct{}

	ipLimiters sync.Map // map[string]*rate.Limiter
}

// NewServer creates a gateway over the given machine registry.
func NewServer(registry *vend.Registry, issuer *vend.CartridgeIssuer, cfg Config) *Server {
	return &Server{
		registry: registry,
		issuer:   issuer,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the websocket endpoint handler.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s.serve(conn)
	}
}

func (s *Server) serve(conn *websocket.Conn) {
	c := s.handshake(conn)
	if c == nil {
		return
	}
	defer s.dropClient(c)

	done := make(chan struct{})
	defer close(done)

	// Writer goroutine: everything leaves through c.out so broadcasts
	// and replies never interleave mid-frame.
	go func() {
		for {
			select {
			case <-done:
				return
			case b, ok := <-c.out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}()

	limiter := s.limiterFor(conn.RemoteAddr())

	for {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if limiter != nil && !limiter.Allow() {
			// Flooding clients get silence, not errors.
			continue
		}

		var msg ClientMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Warn("malformed gateway message", "actor", c.actor, "error", err)
			continue
		}
		s.dispatch(c, msg)
	}
}

// handshake waits for the hello message and registers the client.
func (s *Server) handshake(conn *websocket.Conn) *client {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	var msg ClientMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != MsgHello || msg.Actor == "" {
		_ = conn.WriteMessage(websocket.TextMessage, mustMarshal(ErrorMsg{Type: "error", Reason: "hello expected"}))
		return nil
	}

	c := &client{
		actor: model.ActorID(msg.Actor),
		out:   make(chan []byte, 64),
	}
	s.clientMu.Lock()
	s.clients[c] = struct{}{}
	s.clientMu.Unlock()

	c.out <- mustMarshal(WelcomeMsg{Type: "welcome", Actor: msg.Actor})
	slog.Info("gateway client connected", "actor", msg.Actor, "addr", conn.RemoteAddr())
	return c
}

func (s *Server) dropClient(c *client) {
	s.clientMu.Lock()
	delete(s.clients, c)
	s.clientMu.Unlock()
	slog.Info("gateway client disconnected", "actor", c.actor)
}

func (s *Server) dispatch(c *client, msg ClientMsg) {
	switch msg.Type {
	case MsgAvailability:
		s.handleAvailability(c, msg)
	case MsgVend:
		s.handleVend(c, msg)
	case MsgRestock:
		s.handleRestock(c, msg)
	default:
		c.send(mustMarshal(ErrorMsg{Type: "error", Reason: "unknown message type"}))
	}
}

func (s *Server) handleAvailability(c *client, msg ClientMsg) {
	m := s.registry.Get(msg.Machine)
	if m == nil {
		c.send(mustMarshal(ErrorMsg{Type: "error", Reason: "unknown machine"}))
		return
	}

	now := time.Now()
	snapshot := m.Availability()
	rows := make([]StockRowMsg, len(snapshot))
	for i, r := range snapshot {
		rows[i] = StockRowMsg{
			Item:      string(r.Item),
			Remaining: r.Remaining,
			// CanSell is read-only: listing a machine never burns the
			// actor's cooldown window.
			Vendable: m.CanSell(i, c.actor, now),
		}
	}
	c.send(mustMarshal(AvailabilityMsg{Type: "availability", Machine: msg.Machine, Rows: rows}))
}

func (s *Server) handleVend(c *client, msg ClientMsg) {
	m := s.registry.Get(msg.Machine)
	if m == nil {
		c.send(mustMarshal(ErrorMsg{Type: "error", Reason: "unknown machine"}))
		return
	}

	res := m.TryVend(msg.Slot, c.actor, time.Now())
	c.send(mustMarshal(VendResultMsg{
		Type:    "vend_result",
		Machine: msg.Machine,
		Slot:    msg.Slot,
		Result:  res.Code.String(),
		Item:    string(res.Item),
	}))
}

func (s *Server) handleRestock(c *client, msg ClientMsg) {
	m := s.registry.Get(msg.Machine)
	if m == nil {
		c.send(mustMarshal(ErrorMsg{Type: "error", Reason: "unknown machine"}))
		return
	}

	var payload model.InteractionPayload
	if cartridge := s.issuer.Lookup(msg.Serial); cartridge != nil {
		payload = cartridge
	}
	ok := m.RestockConsume(payload)
	c.send(mustMarshal(RestockResultMsg{Type: "restock_result", Machine: msg.Machine, OK: ok}))
}

// OnItemVended implements vend.Sink: broadcast the dispense to every
// connected client for presentation.
func (s *Server) OnItemVended(ev vend.VendEvent) {
	s.broadcast(mustMarshal(ItemVendedMsg{
		Type:    "item_vended",
		Machine: ev.Machine,
		Item:    string(ev.Item),
		Eject:   ev.Eject.Direction,
	}))
}

// OnRestockUsed implements vend.Sink.
func (s *Server) OnRestockUsed(ev vend.RestockEvent) {
	s.broadcast(mustMarshal(RestockUsedMsg{Type: "restock_used", Machine: ev.Machine}))
}

func (s *Server) broadcast(b []byte) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	for c := range s.clients {
		c.send(b)
	}
}

func (c *client) send(b []byte) {
	select {
	case c.out <- b:
	default:
		// Slow consumer: drop rather than stall the vend path.
	}
}

// limiterFor returns the per-IP flood limiter, creating it on first
// sight of the address. Returns nil when flood protection is off.
func (s *Server) limiterFor(addr net.Addr) *rate.Limiter {
	if !s.cfg.FloodProtection {
		return nil
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	if v, ok := s.ipLimiters.Load(host); ok {
		return v.(*rate.Limiter)
	}
	fresh := rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSec), s.cfg.Burst)
	actual, _ := s.ipLimiters.LoadOrStore(host, fresh)
	return actual.(*rate.Limiter)
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
