// Package web provides the live web dashboard for BotArena.
package web

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/botarena/botarena/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
)

// StateFunc supplies the current arena state for API snapshots.
type StateFunc func() types.ArenaState

// Server streams arena events to browsers over a websocket and serves
// the persisted state as JSON.
type Server struct {
	app       *fiber.App
	stateFn   StateFunc
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte
	logger    *slog.Logger
}

// NewServer creates a dashboard server backed by the given state
// snapshot function.
func NewServer(stateFn StateFunc) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		app:       app,
		stateFn:   stateFn,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 100),
		logger:    slog.Default(),
	}

	s.setupRoutes()
	go s.handleBroadcast()

	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())

	api := s.app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/rounds", s.handleRounds)

	// WebSocket for real-time round updates
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))

	// Embedded dashboard assets
	s.app.Get("/", s.handleDashboard)
	s.app.Get("/dashboard.js", s.handleDashboardJS)
	s.app.Get("/dashboard.css", s.handleDashboardCSS)
}

// handleState returns the full persisted arena state.
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.stateFn())
}

// handleRounds returns just the round reports, newest last.
func (s *Server) handleRounds(c *fiber.Ctx) error {
	state := s.stateFn()
	if state.Reports == nil {
		state.Reports = []types.RoundReport{}
	}
	return c.JSON(state.Reports)
}

// handleWebSocket registers a client and keeps the connection open
// until the peer goes away.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.Close()
	}()

	// Send the current state so a late join sees past rounds.
	data, _ := json.Marshal(map[string]interface{}{
		"type": "state",
		"data": s.stateFn(),
	})
	c.WriteMessage(websocket.TextMessage, data)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) handleBroadcast() {
	for msg := range s.broadcast {
		s.clientsMu.Lock()
		for client := range s.clients {
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMu.Unlock()
	}
}

// HandleEvent broadcasts one arena event to every connected client.
// Its signature matches the arena's Emit hook so it can be plugged in
// directly.
func (s *Server) HandleEvent(event string, payload any) {
	data, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": payload,
	})
	if err != nil {
		return
	}

	select {
	case s.broadcast <- data:
	default:
		// Channel full, skip this update
	}
}

// Start starts the dashboard server.
func (s *Server) Start(addr string) error {
	s.logger.Info("dashboard listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Stop shuts the dashboard down.
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
