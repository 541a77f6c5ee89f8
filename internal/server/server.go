// Package server exposes the planner over HTTP.
package server

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"golang.org/x/time/rate"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/path"
	"rrt-planner/internal/planner"
	"rrt-planner/internal/store"
	"rrt-planner/internal/workspace"
)

// Config wires a Server.
type Config struct {
	// Defaults are merged under each request's overrides
	Defaults     planner.Options
	Store        *store.Store
	AllowOrigins string
	// RateLimit is requests per second on /route; 0 disables limiting
	RateLimit float64
	RateBurst int
	// AccessLog enables the fiber request logger
	AccessLog bool

	// Ceilings on the effective /route options; zero picks the defaults below
	MaxAttempts   int
	MaxIterations int
	MaxTimeBudget time.Duration
}

// Default per-request ceilings.
const (
	DefaultMaxAttempts   = 8
	DefaultMaxIterations = 1000000
	DefaultMaxTimeBudget = 30 * time.Second
)

// Server holds the current workspace and the optional run store.
type Server struct {
	mu sync.RWMutex
	ws *workspace.Workspace

	defaults planner.Options
	store    *store.Store
	limiter  *rate.Limiter
	app      *fiber.App

	maxAttempts   int
	maxIterations int
	maxTimeBudget time.Duration
}

// New builds the fiber app and registers the routes.
func New(cfg Config) *Server {
	s := &Server{
		defaults:      cfg.Defaults,
		store:         cfg.Store,
		maxAttempts:   cfg.MaxAttempts,
		maxIterations: cfg.MaxIterations,
		maxTimeBudget: cfg.MaxTimeBudget,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.maxIterations <= 0 {
		s.maxIterations = DefaultMaxIterations
	}
	if s.maxTimeBudget <= 0 {
		s.maxTimeBudget = DefaultMaxTimeBudget
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	app := fiber.New(fiber.Config{
		AppName:               "rrt-planner",
		DisableStartupMessage: true,
	})
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/health", s.handleHealth)
	app.Get("/workspace", s.handleGetWorkspace)
	app.Post("/workspace", s.handleSetWorkspace)
	app.Post("/route", s.rateLimit, s.handleRoute)
	app.Get("/route/:id/geojson", s.handleRouteGeoJSON)
	app.Get("/runs", s.handleRuns)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until the app is shut down.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Shutdown stops the listener.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

// SetWorkspace replaces the current workspace.
func (s *Server) SetWorkspace(ws *workspace.Workspace) {
	s.mu.Lock()
	s.ws = ws
	s.mu.Unlock()
}

// Workspace returns the current workspace, or nil.
func (s *Server) Workspace() *workspace.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	if s.limiter != nil && !s.limiter.Allow() {
		log.Println("⚠️  Rate limit exceeded on /route")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"message": "Too many requests, slow down",
		})
	}
	return c.Next()
}

// GET /health
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ws := s.Workspace()
	status := "ready"
	numObstacles := 0
	if ws == nil {
		status = "waiting for workspace"
	} else {
		numObstacles = ws.NumObstacles()
	}

	return c.JSON(fiber.Map{
		"status":       status,
		"hasWorkspace": ws != nil,
		"numObstacles": numObstacles,
		"hasStore":     s.store != nil,
	})
}

// WorkspaceRequest replaces the workspace. Bounds defaults to [0,100]² and
// Radius to 5.
type WorkspaceRequest struct {
	Bounds     *workspace.Bounds `json:"bounds,omitempty"`
	Radius     float64           `json:"radius,omitempty"`
	Obstacles  []geometry.Point  `json:"obstacles"`
	Resolution float64           `json:"resolution,omitempty"`
	Force      bool              `json:"force,omitempty"`
}

// POST /workspace
func (s *Server) handleSetWorkspace(c *fiber.Ctx) error {
	log.Println("========================================")
	log.Println("🗺️  Set workspace request received")
	defer log.Println("========================================")

	var req WorkspaceRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if s.Workspace() != nil && !req.Force {
		log.Println("⚠️  Workspace already exists")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "workspace already exists",
			"message": "Workspace is already set. Set 'force: true' to replace it.",
		})
	}

	bounds := workspace.DefaultBounds()
	if req.Bounds != nil {
		bounds = *req.Bounds
	}
	radius := req.Radius
	if radius == 0 {
		radius = workspace.DefaultObstacleRadius
	}

	ws, err := workspace.New(bounds, workspace.Circles(req.Obstacles, radius), workspace.WithResolution(req.Resolution))
	if err != nil {
		log.Printf("❌ Invalid workspace: %v\n", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	s.SetWorkspace(ws)

	log.Printf("✅ Workspace set: %d obstacles, radius %.2f\n", ws.NumObstacles(), radius)
	return c.JSON(fiber.Map{
		"success":      true,
		"numObstacles": ws.NumObstacles(),
		"bounds":       ws.Bounds(),
	})
}

// GET /workspace returns the obstacles as GeoJSON points.
func (s *Server) handleGetWorkspace(c *fiber.Ctx) error {
	ws := s.Workspace()
	if ws == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Workspace not set. Call POST /workspace first",
		})
	}
	return sendGeoJSON(c, nil, ws.Obstacles())
}

// RouteRequest plans from Start to End. Zero-valued tuning fields fall back
// to the server defaults.
type RouteRequest struct {
	Start         geometry.Point `json:"start"`
	End           geometry.Point `json:"end"`
	Seed          int64          `json:"seed,omitempty"`
	StepSize      float64        `json:"stepSize,omitempty"`
	GoalTolerance float64        `json:"goalTolerance,omitempty"`
	MaxIterations int            `json:"maxIterations,omitempty"`
	TimeBudgetMs  int64          `json:"timeBudgetMs,omitempty"`
	Attempts      int            `json:"attempts,omitempty"`
	Simplify      bool           `json:"simplify,omitempty"`
}

// RouteResponse is the /route reply.
type RouteResponse struct {
	Success    bool             `json:"success"`
	Path       []geometry.Point `json:"path"`
	Message    string           `json:"message,omitempty"`
	Length     float64          `json:"length,omitempty"`
	RunID      string           `json:"runId,omitempty"`
	Iterations int              `json:"iterations"`
	TreeSize   int              `json:"treeSize"`
	Seed       int64            `json:"seed"`
}

func (s *Server) options(req RouteRequest) planner.Options {
	opts := s.defaults
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	if req.StepSize != 0 {
		opts.StepSize = req.StepSize
	}
	if req.GoalTolerance != 0 {
		opts.GoalTolerance = req.GoalTolerance
	}
	if req.MaxIterations != 0 {
		opts.MaxIterations = req.MaxIterations
	}
	if req.TimeBudgetMs != 0 {
		opts.TimeBudget = time.Duration(req.TimeBudgetMs) * time.Millisecond
		// saturate so checkLimits sees the overflow
		if req.TimeBudgetMs > int64(math.MaxInt64/time.Millisecond) {
			opts.TimeBudget = time.Duration(math.MaxInt64)
		}
	}
	if req.Attempts != 0 {
		opts.Attempts = req.Attempts
	}
	if req.Simplify {
		opts.Simplify = true
	}
	opts.RecordTree = false
	return opts
}

// checkLimits bounds the work a single request may ask for.
func (s *Server) checkLimits(opts planner.Options) error {
	switch {
	case opts.Attempts > s.maxAttempts:
		return fmt.Errorf("attempts %d exceeds limit %d", opts.Attempts, s.maxAttempts)
	case opts.MaxIterations > s.maxIterations:
		return fmt.Errorf("maxIterations %d exceeds limit %d", opts.MaxIterations, s.maxIterations)
	case opts.TimeBudget > s.maxTimeBudget:
		return fmt.Errorf("time budget %v exceeds limit %v", opts.TimeBudget, s.maxTimeBudget)
	}
	return nil
}

// POST /route
func (s *Server) handleRoute(c *fiber.Ctx) error {
	log.Println("========================================")
	log.Println("📍 Route request received")
	defer log.Println("========================================")

	var req RouteRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{Message: "Invalid request body"})
	}

	log.Printf("   Start: (%.3f, %.3f)\n", req.Start.X, req.Start.Y)
	log.Printf("   End:   (%.3f, %.3f)\n", req.End.X, req.End.Y)

	ws := s.Workspace()
	if ws == nil {
		log.Println("❌ Workspace not available")
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{
			Message: "Workspace not set. Call POST /workspace first",
		})
	}

	session, err := planner.NewSession(ws, s.options(req))
	if err != nil {
		log.Printf("❌ Invalid options: %v\n", err)
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{Message: err.Error()})
	}

	if err := s.checkLimits(session.Options()); err != nil {
		log.Printf("❌ Request over limits: %v\n", err)
		return c.Status(fiber.StatusBadRequest).JSON(RouteResponse{Message: err.Error()})
	}

	log.Println("🔍 Running RRT...")
	res, err := session.PlanBest(req.Start, req.End)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, planner.ErrInvalidConfiguration) {
			status = fiber.StatusBadRequest
		}
		log.Printf("❌ %v\n", err)
		return c.Status(status).JSON(RouteResponse{Message: err.Error()})
	}

	resp := RouteResponse{
		Success:    res.Found(),
		Path:       res.Path,
		Length:     res.Length,
		Iterations: res.Iterations,
		TreeSize:   res.TreeSize,
		Seed:       res.Seed,
	}
	if resp.Path == nil {
		resp.Path = []geometry.Point{}
	}

	if res.Found() {
		log.Printf("✅ Path found with %d waypoints\n", len(res.Path))
		log.Printf("   Length: %.2f, iterations: %d, tree: %d nodes\n", res.Length, res.Iterations, res.TreeSize)
	} else {
		log.Printf("❌ No path found: %s after %d iterations\n", res.Reason, res.Iterations)
		resp.Message = "No path found: " + res.Reason
	}

	if s.store != nil {
		run, err := store.NewRun(req.Start, req.End, res)
		if err == nil {
			err = s.store.Save(run)
		}
		if err != nil {
			log.Printf("⚠️  Failed to record run: %v\n", err)
		} else {
			resp.RunID = run.ID
		}
	}

	return c.JSON(resp)
}

// GET /route/:id/geojson
func (s *Server) handleRouteGeoJSON(c *fiber.Ctx) error {
	if s.store == nil {
		return storeDisabled(c)
	}

	run, err := s.store.Get(c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Run not found",
		})
	}
	if err != nil {
		log.Printf("❌ Failed to load run: %v\n", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load run",
		})
	}

	pts, err := run.Path()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	var obs []workspace.Obstacle
	if ws := s.Workspace(); ws != nil {
		obs = ws.Obstacles()
	}
	return sendGeoJSON(c, pts, obs)
}

// GET /runs?limit=N
func (s *Server) handleRuns(c *fiber.Ctx) error {
	if s.store == nil {
		return storeDisabled(c)
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.store.Recent(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch runs",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(runs),
		"runs":    runs,
	})
}

func storeDisabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"message": "Run store is disabled",
	})
}

func sendGeoJSON(c *fiber.Ctx, pts []geometry.Point, obs []workspace.Obstacle) error {
	data, err := path.ToGeoJSON(pts, obs).MarshalJSON()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(data)
}
