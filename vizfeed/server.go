// Package vizfeed streams read-only world frames to external renderers
// over websockets.
package vizfeed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
)

// Agent is one fish or item in a frame.
type Agent struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Kind  string     `json:"kind"`
	State string     `json:"state,omitempty"`
	Pos   [3]float64 `json:"pos"`
	Yaw   float64    `json:"yaw"`
	Size  float64    `json:"size"`
}

// Frame is the world as of the end of one tick.
type Frame struct {
	Tick   int32   `json:"tick"`
	Time   float64 `json:"time"`
	Agents []Agent `json:"agents"`

	Score     int  `json:"score"`
	FishEaten int  `json:"fish_eaten"`
	Super     bool `json:"super"`
	Victory   bool `json:"victory"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans frames out to connected clients. Slow clients are dropped
// instead of stalling the simulation.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer creates a server with no clients.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler upgrades requests to websocket subscriptions.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("viz_upgrade_failed", "error", err)
			return
		}
		c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		n := len(s.clients)
		s.mu.Unlock()
		slog.Info("viz_client_connected", "remote", r.RemoteAddr, "clients", n)

		go s.writePump(c)
		go s.readPump(c)
	})
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast encodes f once and queues it for every client. It never blocks.
func (s *Server) Broadcast(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}

	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("viz_encode_failed", "tick", f.Tick, "error", err)
		return
	}
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.dropLocked(c)
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.dropLocked(c)
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(c)
}

func (s *Server) dropLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

// readPump discards client messages and notices disconnects.
func (s *Server) readPump(c *client) {
	defer func() {
		s.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("viz_client_error", "error", err)
			}
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
