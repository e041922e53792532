package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Message types sent to clients.
const (
	TypeResponse = "response"
	TypeDocument = "document"
	TypePresets  = "presets"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// checkOrigin accepts same-origin browsers, clients that send no Origin,
// and the configured CORS origins.
func checkOrigin(origins []string) func(*http.Request) bool {
	allowAll := slices.Contains(origins, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll || slices.Contains(origins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Envelope is one client request.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action"`
	BlockID string          `json:"block_id,omitempty"`
	ItemID  string          `json:"item_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response answers an Envelope, or carries a broadcast when Type is not
// TypeResponse.
type Response struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

type client struct {
	conn    *websocket.Conn
	limiter *rate.Limiter

	// writeMu guards conn writes; gorilla allows one writer at a time.
	writeMu sync.Mutex
}

func (c *client) send(r Response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(r)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin(s.cfg.API.GetCORSOrigins())}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(s.cfg.API.GetRateLimitRPS()), s.cfg.API.GetRateLimitBurst()),
	}
	s.register(c)
	defer func() {
		s.unregister(c)
		conn.Close()
	}()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("client connected")

	if err := c.send(Response{Type: TypeDocument, OK: true, Result: s.editor.Document()}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("unexpected close")
			}
			break
		}
		s.handleMessage(c, message)
	}
	log.Debug().Msg("client disconnected")
}

func (s *Server) handleMessage(c *client, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		_ = c.send(Response{Type: TypeResponse, Error: "invalid message: " + err.Error()})
		return
	}
	if !c.limiter.Allow() {
		_ = c.send(Response{Type: TypeResponse, ID: env.ID, Error: ErrRateLimited.Error()})
		return
	}

	s.actionMu.Lock()
	result, changed, err := s.dispatch(env)
	s.actionMu.Unlock()

	resp := Response{Type: TypeResponse, ID: env.ID, OK: err == nil, Result: result}
	if err != nil {
		resp.Error = err.Error()
		s.log.Debug().Str("action", env.Action).Err(err).Msg("action failed")
	}
	if err := c.send(resp); err != nil {
		s.log.Debug().Err(err).Msg("send failed")
	}
	if changed {
		s.broadcastDocument()
	}
}

func (s *Server) register(c *client) {
	s.clientMu.Lock()
	s.clients[c] = struct{}{}
	s.clientMu.Unlock()
}

func (s *Server) unregister(c *client) {
	s.clientMu.Lock()
	delete(s.clients, c)
	s.clientMu.Unlock()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcastDocument() {
	s.broadcast(Response{Type: TypeDocument, OK: true, Result: s.editor.Document()})
}

func (s *Server) broadcast(r Response) {
	s.clientMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientMu.RUnlock()

	for _, c := range clients {
		if err := c.send(r); err != nil {
			s.log.Debug().Err(err).Msg("broadcast failed")
		}
	}
}
