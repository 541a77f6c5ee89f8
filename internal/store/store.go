// Package store keeps a history of planning runs in a SQL database via gorm.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/planner"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("store: run not found")

// PlanRun is one persisted planning request and its outcome.
type PlanRun struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	GoalX  float64 `json:"goal_x"`
	GoalY  float64 `json:"goal_y"`

	Seed       int64   `json:"seed"`
	Found      bool    `json:"found"`
	Reason     string  `json:"reason"`
	Iterations int     `json:"iterations"`
	TreeSize   int     `json:"tree_size"`
	PathLength float64 `json:"path_length"`
	Waypoints  int     `json:"waypoints"`
	ElapsedMS  int64   `json:"elapsed_ms"`

	// PathJSON is the waypoint list encoded as a JSON array of {x,y}
	PathJSON string `gorm:"type:text" json:"-"`
}

// NewRun builds a record for a finished plan.
func NewRun(start, goal geometry.Point, res planner.Result) (*PlanRun, error) {
	data, err := json.Marshal(res.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to encode path: %w", err)
	}

	return &PlanRun{
		ID:         uuid.NewString(),
		StartX:     start.X,
		StartY:     start.Y,
		GoalX:      goal.X,
		GoalY:      goal.Y,
		Seed:       res.Seed,
		Found:      res.Found(),
		Reason:     res.Reason,
		Iterations: res.Iterations,
		TreeSize:   res.TreeSize,
		PathLength: res.Length,
		Waypoints:  len(res.Path),
		ElapsedMS:  res.Elapsed.Milliseconds(),
		PathJSON:   string(data),
	}, nil
}

// Path decodes the stored waypoints.
func (r *PlanRun) Path() ([]geometry.Point, error) {
	if r.PathJSON == "" {
		return nil, nil
	}
	var pts []geometry.Point
	if err := json.Unmarshal([]byte(r.PathJSON), &pts); err != nil {
		return nil, fmt.Errorf("failed to decode path of run %s: %w", r.ID, err)
	}
	return pts, nil
}

// Start returns the start point of the run.
func (r *PlanRun) Start() geometry.Point { return geometry.Point{X: r.StartX, Y: r.StartY} }

// Goal returns the goal point of the run.
func (r *PlanRun) Goal() geometry.Point { return geometry.Point{X: r.GoalX, Y: r.GoalY} }

// Store wraps a gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects with driver "sqlite" or "mysql" and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if err := db.AutoMigrate(&PlanRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Save inserts run. An empty ID is filled with a fresh UUID.
func (s *Store) Save(run *PlanRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Get loads the run with the given id.
func (s *Store) Get(id string) (*PlanRun, error) {
	var run PlanRun
	err := s.db.Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]PlanRun, error) {
	var runs []PlanRun
	err := s.db.Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
