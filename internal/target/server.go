package target

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/internal/detector"
	"github.com/botarena/botarena/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Arena wire contract headers.
const (
	HeaderSessionID      = "X-Session-Id"
	HeaderMouseMovements = "X-Mouse-Movements"
	HeaderDwellTime      = "X-Dwell-Time"
	HeaderPrevContentLen = "X-Prev-Content-Length"
	HeaderChallenge      = "X-Challenge-Required"
)

// ServerOptions configures the target service.
type ServerOptions struct {
	Port            int
	PolicyPath      string
	CatalogSize     int
	ThrottleLatency time.Duration // minimum added latency for throttled requests
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() *ServerOptions {
	return &ServerOptions{
		Port:            8080,
		CatalogSize:     500,
		ThrottleLatency: 500 * time.Millisecond,
	}
}

// Server is the simulated storefront: catalog routes behind the
// detector middleware plus the admin surface.
type Server struct {
	app      *fiber.App
	opts     *ServerOptions
	catalog  *Catalog
	store    *LogStore
	detector *detector.Detector
	logger   *slog.Logger
}

// NewServer builds the service. The policy is loaded with the
// resilient contract: a missing file falls back to the built-in
// default so the service always comes up.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts == nil {
		opts = DefaultServerOptions()
	}
	policy, err := config.LoadPolicyOrDefault(opts.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		opts:     opts,
		catalog:  NewCatalog(opts.CatalogSize),
		store:    NewLogStore(),
		detector: detector.New(policy),
		logger:   slog.Default(),
	}
	s.setupRoutes()
	return s, nil
}

// Store exposes the session log store, mainly for tests.
func (s *Server) Store() *LogStore {
	return s.store
}

func (s *Server) setupRoutes() {
	// Admin surface sits outside the detector middleware.
	admin := s.app.Group("/admin")
	admin.Post("/reset", s.handleReset)
	admin.Get("/logs", s.handleLogs)
	admin.Get("/detections", s.handleDetections)

	s.app.Use(s.detectionMiddleware)

	s.app.Get("/products", s.handleSearch)
	s.app.Get("/products/:id", s.handleProduct)
	s.app.Post("/products", s.handleCreate)
	s.app.Get("/assets/*", s.handleAsset)
}

// detectionMiddleware appends the request to the session's history,
// scores the full history and enforces the resulting action:
// block 403, throttle added latency then 429, challenge a header flag
// on a normal response.
func (s *Server) detectionMiddleware(c *fiber.Ctx) error {
	sessionID := c.Get(HeaderSessionID)
	if sessionID == "" {
		return c.Next()
	}

	entry := s.buildLogEntry(c, sessionID)
	s.store.Append(sessionID, entry)

	result := s.detector.Evaluate(sessionID, s.store.ReadAll(sessionID))
	s.store.AppendDetection(sessionID, result)

	switch result.Action {
	case types.ActionBlock:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "blocked",
			"score": result.Score,
		})
	case types.ActionThrottle:
		// Cooperative backpressure: hold the request for the minimum
		// latency, then signal throttling with 429.
		time.Sleep(s.opts.ThrottleLatency)
		c.Status(fiber.StatusTooManyRequests)
		return c.Next()
	case types.ActionChallenge:
		// Header flag stands in for a real challenge.
		c.Set(HeaderChallenge, "true")
		return c.Next()
	default:
		return c.Next()
	}
}

func (s *Server) buildLogEntry(c *fiber.Ctx, sessionID string) types.RequestLog {
	query := make(map[string]string)
	for k, v := range c.Queries() {
		query[k] = v
	}

	entry := types.RequestLog{
		SessionID: sessionID,
		Timestamp: time.Now(),
		Path:      c.Path(),
		Method:    c.Method(),
		Query:     query,
		IsAsset:   strings.HasPrefix(c.Path(), "/assets/"),
	}

	// Optional headers; malformed data means the feature input is
	// absent, never an error.
	if raw := c.Get(HeaderMouseMovements); raw != "" {
		var points []types.MousePoint
		if err := json.Unmarshal([]byte(raw), &points); err == nil {
			entry.MouseMovements = points
		}
	}
	if raw := c.Get(HeaderDwellTime); raw != "" {
		if ms, err := strconv.ParseFloat(raw, 64); err == nil {
			entry.DwellTimeMs = ms
			entry.HasDwell = true
		}
	}
	if raw := c.Get(HeaderPrevContentLen); raw != "" {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			entry.PrevContentLen = n
			entry.HasPrevContent = true
		}
	}
	return entry
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	products, total := s.catalog.Search(c.Query("q"), page)
	// Status may already be 429 from the throttle path; c.JSON keeps it.
	return c.JSON(fiber.Map{
		"products": products,
		"total":    total,
		"page":     page,
	})
}

func (s *Server) handleProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	product, ok := s.catalog.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	return c.JSON(product)
}

func (s *Server) handleCreate(c *fiber.Ctx) error {
	var p Product
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product"})
	}
	created := s.catalog.Add(p)
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) handleAsset(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/css")
	return c.SendString("/* botarena static asset */\nbody{margin:0}\n")
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.store.Reset()
	s.logger.Info("target state reset")
	return c.JSON(fiber.Map{"status": "reset"})
}

func (s *Server) handleLogs(c *fiber.Ctx) error {
	return c.JSON(s.store.Logs())
}

func (s *Server) handleDetections(c *fiber.Ctx) error {
	return c.JSON(s.store.Detections())
}

// Listen starts serving on the configured port. Blocks until Shutdown.
func (s *Server) Listen() error {
	return s.app.Listen(fmt.Sprintf(":%d", s.opts.Port))
}

// Shutdown gracefully stops the service.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}
