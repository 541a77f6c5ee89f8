// Package config loads planner configuration from TOML with environment
// overrides.
//
// Resolution order (later wins):
//   - built-in defaults
//   - the TOML file passed to Load, if any
//   - a .env file in the working directory, if present
//   - RRT_* environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"rrt-planner/internal/obstacles"
	"rrt-planner/internal/planner"
	"rrt-planner/internal/workspace"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete rrt-planner configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace" json:"workspace"`
	Planner   PlannerConfig   `toml:"planner" json:"planner"`
	Render    RenderConfig    `toml:"render" json:"render"`
	Server    ServerConfig    `toml:"server" json:"server"`
	Store     StoreConfig     `toml:"store" json:"store"`
}

// WorkspaceConfig describes the planning domain.
type WorkspaceConfig struct {
	MinX float64 `toml:"min_x" json:"min_x"`
	MinY float64 `toml:"min_y" json:"min_y"`
	MaxX float64 `toml:"max_x" json:"max_x"`
	MaxY float64 `toml:"max_y" json:"max_y"`
	// ObstacleRadius is shared by every obstacle loaded from file
	ObstacleRadius float64 `toml:"obstacle_radius" json:"obstacle_radius"`
	// ObstaclesFile is a .csv or .geojson file; empty means no obstacles
	ObstaclesFile string `toml:"obstacles_file" json:"obstacles_file"`
	// Resolution is the motion-check sub-step (0 = 1% of the diagonal)
	Resolution float64 `toml:"resolution" json:"resolution"`
}

// PlannerConfig mirrors planner.Options. Zero values select planner defaults,
// including goal_tolerance and goal_bias; use a tiny positive value to get
// close to zero.
type PlannerConfig struct {
	StepSize      float64       `toml:"step_size" json:"step_size"`
	GoalTolerance float64       `toml:"goal_tolerance" json:"goal_tolerance"`
	GoalBias      float64       `toml:"goal_bias" json:"goal_bias"`
	MaxIterations int           `toml:"max_iterations" json:"max_iterations"`
	TimeBudget    time.Duration `toml:"time_budget" json:"time_budget"`
	Seed          int64         `toml:"seed" json:"seed"`
	Interval      float64       `toml:"interval" json:"interval"`
	Simplify      bool          `toml:"simplify" json:"simplify"`
	Attempts      int           `toml:"attempts" json:"attempts"`
}

// RenderConfig controls the PNG plot.
type RenderConfig struct {
	Enabled  bool    `toml:"enabled" json:"enabled"`
	Dir      string  `toml:"dir" json:"dir"`
	Prefix   string  `toml:"prefix" json:"prefix"`
	Width    int     `toml:"width" json:"width"`
	Height   int     `toml:"height" json:"height"`
	GridStep float64 `toml:"grid_step" json:"grid_step"`
	DrawTree bool    `toml:"draw_tree" json:"draw_tree"`
}

// ServerConfig controls the HTTP route service.
type ServerConfig struct {
	Addr         string  `toml:"addr" json:"addr"`
	AllowOrigins string  `toml:"allow_origins" json:"allow_origins"`
	RateLimit    float64 `toml:"rate_limit" json:"rate_limit"` // requests per second on /route
	RateBurst    int     `toml:"rate_burst" json:"rate_burst"`

	// Per-request ceilings on /route; 0 selects the server defaults
	MaxAttempts   int           `toml:"max_attempts" json:"max_attempts"`
	MaxIterations int           `toml:"max_iterations" json:"max_iterations"`
	MaxTimeBudget time.Duration `toml:"max_time_budget" json:"max_time_budget"`
}

// StoreConfig selects the run history database. An empty driver disables it.
type StoreConfig struct {
	Driver string `toml:"driver" json:"driver"` // "", "sqlite" or "mysql"
	DSN    string `toml:"dsn" json:"dsn"`
}

// Default returns the built-in configuration: the [0,100]² square, radius-5
// obstacles from obstacles.csv and a 10 second planning budget.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			MinX:           0,
			MinY:           0,
			MaxX:           100,
			MaxY:           100,
			ObstacleRadius: workspace.DefaultObstacleRadius,
			ObstaclesFile:  "obstacles.csv",
		},
		Planner: PlannerConfig{
			TimeBudget: 10 * time.Second,
			Attempts:   1,
		},
		Render: RenderConfig{
			Enabled:  true,
			Dir:      ".",
			Prefix:   "path_plot",
			Width:    1000,
			Height:   1000,
			GridStep: 1,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			AllowOrigins:  "*",
			RateLimit:     5,
			RateBurst:     10,
			MaxAttempts:   8,
			MaxIterations: 1000000,
			MaxTimeBudget: 30 * time.Second,
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads .env (if present), then the TOML file at path (if non-empty),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads a TOML file over the defaults and validates it,
// without consulting the environment.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the file at path into cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// SaveTOML writes cfg to path.
func SaveTOML(cfg *Config, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies RRT_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	var errs ValidationErrors

	floatVar := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, ValidationError{Field: key, Message: fmt.Sprintf("not a number: %q", v)})
				return
			}
			*dst = f
		}
	}

	floatVar("RRT_STEP_SIZE", &c.Planner.StepSize)
	floatVar("RRT_GOAL_TOLERANCE", &c.Planner.GoalTolerance)
	floatVar("RRT_GOAL_BIAS", &c.Planner.GoalBias)

	if v := os.Getenv("RRT_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "RRT_MAX_ITERATIONS", Message: fmt.Sprintf("not an integer: %q", v)})
		} else {
			c.Planner.MaxIterations = n
		}
	}

	if v := os.Getenv("RRT_TIME_BUDGET"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "RRT_TIME_BUDGET", Message: fmt.Sprintf("not a duration: %q", v)})
		} else {
			c.Planner.TimeBudget = d
		}
	}

	if v := os.Getenv("RRT_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, ValidationError{Field: "RRT_SEED", Message: fmt.Sprintf("not an integer: %q", v)})
		} else {
			c.Planner.Seed = seed
		}
	}

	if v := os.Getenv("RRT_OBSTACLES_FILE"); v != "" {
		c.Workspace.ObstaclesFile = v
	}
	if v := os.Getenv("RRT_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RRT_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("RRT_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks ranges that the core packages would otherwise reject later.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	w := c.Workspace
	if w.MinX >= w.MaxX {
		add("workspace.max_x", "must exceed min_x (%g >= %g)", w.MinX, w.MaxX)
	}
	if w.MinY >= w.MaxY {
		add("workspace.max_y", "must exceed min_y (%g >= %g)", w.MinY, w.MaxY)
	}
	if w.ObstacleRadius <= 0 {
		add("workspace.obstacle_radius", "must be positive, got %g", w.ObstacleRadius)
	}
	diag := c.Bounds().Diagonal()
	if w.Resolution < 0 {
		add("workspace.resolution", "must be non-negative, got %g", w.Resolution)
	} else if w.Resolution > 0 && w.Resolution < diag*workspace.MinResolutionFraction {
		add("workspace.resolution", "must be at least %g, got %g", diag*workspace.MinResolutionFraction, w.Resolution)
	}

	p := c.Planner
	if p.StepSize < 0 {
		add("planner.step_size", "must be non-negative, got %g", p.StepSize)
	}
	if p.GoalTolerance < 0 {
		add("planner.goal_tolerance", "must be non-negative, got %g", p.GoalTolerance)
	}
	if p.GoalBias < 0 || p.GoalBias > 1 {
		add("planner.goal_bias", "must be in [0,1], got %g", p.GoalBias)
	}
	if p.MaxIterations < 0 {
		add("planner.max_iterations", "must be non-negative, got %d", p.MaxIterations)
	}
	if p.TimeBudget < 0 {
		add("planner.time_budget", "must be non-negative, got %v", p.TimeBudget)
	}
	if p.Interval < 0 {
		add("planner.interval", "must be non-negative, got %g", p.Interval)
	} else if p.Interval > 0 && p.Interval < diag*planner.MinInterpolationFraction {
		add("planner.interval", "must be at least %g, got %g", diag*planner.MinInterpolationFraction, p.Interval)
	}
	if p.Attempts < 0 {
		add("planner.attempts", "must be non-negative, got %d", p.Attempts)
	}

	r := c.Render
	if r.Width <= 0 || r.Height <= 0 {
		add("render.width", "canvas must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.GridStep < 0 {
		add("render.grid_step", "must be non-negative, got %g", r.GridStep)
	}

	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must be non-negative, got %g", c.Server.RateLimit)
	}
	if c.Server.MaxAttempts < 0 {
		add("server.max_attempts", "must be non-negative, got %d", c.Server.MaxAttempts)
	}
	if c.Server.MaxIterations < 0 {
		add("server.max_iterations", "must be non-negative, got %d", c.Server.MaxIterations)
	}
	if c.Server.MaxTimeBudget < 0 {
		add("server.max_time_budget", "must be non-negative, got %v", c.Server.MaxTimeBudget)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "":
	case "sqlite", "mysql":
		if c.Store.DSN == "" {
			add("store.dsn", "required when store.driver is %q", c.Store.Driver)
		}
	default:
		add("store.driver", "invalid driver %q, must be one of: sqlite, mysql", c.Store.Driver)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// Bounds returns the configured workspace bounds.
func (c *Config) Bounds() workspace.Bounds {
	return workspace.Bounds{
		MinX: c.Workspace.MinX,
		MinY: c.Workspace.MinY,
		MaxX: c.Workspace.MaxX,
		MaxY: c.Workspace.MaxY,
	}
}

// LoadObstacles reads the configured obstacles file. An empty path yields no obstacles.
func (c *Config) LoadObstacles() ([]workspace.Obstacle, error) {
	if c.Workspace.ObstaclesFile == "" {
		return nil, nil
	}
	return obstacles.LoadFile(c.Workspace.ObstaclesFile, c.Workspace.ObstacleRadius)
}

// BuildWorkspace constructs a workspace over the configured bounds.
func (c *Config) BuildWorkspace(obs []workspace.Obstacle) (*workspace.Workspace, error) {
	return workspace.New(c.Bounds(), obs, workspace.WithResolution(c.Workspace.Resolution))
}

// PlannerOptions converts the planner section into session options.
func (c *Config) PlannerOptions() planner.Options {
	opts := planner.Options{
		Seed:       c.Planner.Seed,
		Interval:   c.Planner.Interval,
		Simplify:   c.Planner.Simplify,
		Attempts:   c.Planner.Attempts,
		RecordTree: c.Render.Enabled && c.Render.DrawTree,
	}
	opts.StepSize = c.Planner.StepSize
	opts.GoalTolerance = c.Planner.GoalTolerance
	opts.GoalBias = c.Planner.GoalBias
	opts.MaxIterations = c.Planner.MaxIterations
	opts.TimeBudget = c.Planner.TimeBudget
	return opts
}
