// Package ws streams live plan updates to picking UIs over websockets, the
// realtime channel participants watch while colleagues pick their meals.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Server struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]map[*client]struct{}
}

func New(logger *zap.Logger, allowedOrigins []string) *Server {
	allowed := map[string]struct{}{}
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		subscribers: make(map[string]map[*client]struct{}),
	}
}

// HandlePlanFeed upgrades GET /ws/plans/{planId} and keeps the connection
// subscribed until the peer goes away.
func (s *Server) HandlePlanFeed(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planId")
	if planID == "" {
		http.Error(w, "planId is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	s.subscribe(planID, c)

	go s.writeLoop(c)
	s.readLoop(planID, c)
}

// BroadcastPlanUpdate pushes a payload to every subscriber of the plan.
// Slow consumers are dropped rather than blocking the merge path.
func (s *Server) BroadcastPlanUpdate(planID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("encode plan update failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subscribers[planID] {
		select {
		case c.send <- body:
		default:
			delete(s.subscribers[planID], c)
			close(c.send)
		}
	}
}

func (s *Server) subscribe(planID string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[planID] == nil {
		s.subscribers[planID] = make(map[*client]struct{})
	}
	s.subscribers[planID][c] = struct{}{}
}

func (s *Server) unsubscribe(planID string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[planID][c]; ok {
		delete(s.subscribers[planID], c)
		close(c.send)
	}
	if len(s.subscribers[planID]) == 0 {
		delete(s.subscribers, planID)
	}
}

func (s *Server) readLoop(planID string, c *client) {
	defer func() {
		s.unsubscribe(planID, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case body, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
