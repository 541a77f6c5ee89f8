package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/planner"
	"rrt-planner/internal/server"
	"rrt-planner/internal/store"
)

func do(t *testing.T, app *fiber.App, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func newServer(t *testing.T, withStore bool) *server.Server {
	t.Helper()
	cfg := server.Config{Defaults: planner.Options{Seed: 3}}
	if withStore {
		st, err := store.Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		cfg.Store = st
	}
	return server.New(cfg)
}

func setWorkspace(t *testing.T, app *fiber.App, obstacles ...geometry.Point) {
	t.Helper()
	resp, _ := do(t, app, http.MethodPost, "/workspace", server.WorkspaceRequest{Obstacles: obstacles, Force: true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newServer(t, false)
	resp, body := do(t, s.App(), http.MethodGet, "/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, false, got["hasWorkspace"])
	require.Equal(t, "waiting for workspace", got["status"])

	setWorkspace(t, s.App(), geometry.Point{X: 50, Y: 50})
	_, body = do(t, s.App(), http.MethodGet, "/health", nil)
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, true, got["hasWorkspace"])
	require.Equal(t, 1.0, got["numObstacles"])
}

func TestSetWorkspace_Conflict(t *testing.T) {
	s := newServer(t, false)
	app := s.App()

	req := server.WorkspaceRequest{Obstacles: []geometry.Point{{X: 50, Y: 50}}}
	resp, _ := do(t, app, http.MethodPost, "/workspace", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/workspace", req)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	req.Force = true
	req.Obstacles = append(req.Obstacles, geometry.Point{X: 20, Y: 20})
	resp, _ = do(t, app, http.MethodPost, "/workspace", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 2, s.Workspace().NumObstacles())
}

func TestSetWorkspace_Invalid(t *testing.T) {
	s := newServer(t, false)
	resp, _ := do(t, s.App(), http.MethodPost, "/workspace", server.WorkspaceRequest{Radius: -1, Obstacles: []geometry.Point{{X: 1, Y: 1}}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, s.Workspace())
}

func TestRoute_NoWorkspace(t *testing.T) {
	s := newServer(t, false)
	resp, _ := do(t, s.App(), http.MethodPost, "/route", server.RouteRequest{End: geometry.Point{X: 100, Y: 100}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRoute_FoundAndStored(t *testing.T) {
	s := newServer(t, true)
	app := s.App()
	setWorkspace(t, app, geometry.Point{X: 50, Y: 50})

	resp, body := do(t, app, http.MethodPost, "/route", server.RouteRequest{
		Start: geometry.Point{X: 0, Y: 0},
		End:   geometry.Point{X: 100, Y: 100},
		Seed:  11,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var route server.RouteResponse
	require.NoError(t, json.Unmarshal(body, &route))
	require.True(t, route.Success)
	require.Equal(t, int64(11), route.Seed)
	require.Equal(t, geometry.Point{X: 0, Y: 0}, route.Path[0])
	require.NotEmpty(t, route.RunID)

	resp, body = do(t, app, http.MethodGet, "/route/"+route.RunID+"/geojson", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "application/geo+json", resp.Header.Get(fiber.HeaderContentType))
	fc, err := geojson.UnmarshalFeatureCollection(body)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	resp, body = do(t, app, http.MethodGet, "/runs?limit=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var runs struct {
		Count int             `json:"count"`
		Runs  []store.PlanRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Equal(t, 1, runs.Count)
	require.Equal(t, route.RunID, runs.Runs[0].ID)

	resp, _ = do(t, app, http.MethodGet, "/route/unknown/geojson", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoute_InvalidConfiguration(t *testing.T) {
	s := newServer(t, false)
	setWorkspace(t, s.App(), geometry.Point{X: 2, Y: 2})

	resp, _ := do(t, s.App(), http.MethodPost, "/route", server.RouteRequest{
		Start: geometry.Point{X: 0, Y: 0},
		End:   geometry.Point{X: 100, Y: 100},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, s.App(), http.MethodPost, "/route", server.RouteRequest{
		Start:    geometry.Point{X: 50, Y: 50},
		End:      geometry.Point{X: 100, Y: 100},
		StepSize: -1,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRoute_OverLimits(t *testing.T) {
	s := server.New(server.Config{
		Defaults:      planner.Options{Seed: 3},
		MaxAttempts:   4,
		MaxIterations: 5000,
		MaxTimeBudget: time.Second,
	})
	setWorkspace(t, s.App())

	base := server.RouteRequest{Start: geometry.Point{X: 0, Y: 0}, End: geometry.Point{X: 100, Y: 100}, MaxIterations: 5000}
	cases := map[string]func(r *server.RouteRequest){
		"Attempts":      func(r *server.RouteRequest) { r.Attempts = 100000000 },
		"MaxIterations": func(r *server.RouteRequest) { r.MaxIterations = 5001 },
		"TimeBudget":    func(r *server.RouteRequest) { r.TimeBudgetMs = 60000 },
		"TimeOverflow":  func(r *server.RouteRequest) { r.TimeBudgetMs = math.MaxInt64 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			resp, body := do(t, s.App(), http.MethodPost, "/route", req)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var route server.RouteResponse
			require.NoError(t, json.Unmarshal(body, &route))
			require.False(t, route.Success)
			require.Contains(t, route.Message, "exceeds limit")
		})
	}

	// the server default of 10s is over a 1s ceiling too
	req := base
	resp, _ := do(t, s.App(), http.MethodPost, "/route", req)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req.Attempts = 4
	req.TimeBudgetMs = 1000
	resp, _ = do(t, s.App(), http.MethodPost, "/route", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoute_DefaultLimits(t *testing.T) {
	s := newServer(t, false)
	setWorkspace(t, s.App())

	resp, _ := do(t, s.App(), http.MethodPost, "/route", server.RouteRequest{
		End:      geometry.Point{X: 100, Y: 100},
		Attempts: server.DefaultMaxAttempts + 1,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, s.App(), http.MethodPost, "/route", server.RouteRequest{
		End:          geometry.Point{X: 100, Y: 100},
		TimeBudgetMs: (server.DefaultMaxTimeBudget + time.Millisecond).Milliseconds(),
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRoute_NotFound(t *testing.T) {
	s := newServer(t, false)
	goal := geometry.Point{X: 50, Y: 50}
	ring := make([]geometry.Point, 0, 48)
	for i := 0; i < 48; i++ {
		a := 2 * math.Pi * float64(i) / 48
		ring = append(ring, geometry.Point{X: goal.X + 15*math.Cos(a), Y: goal.Y + 15*math.Sin(a)})
	}
	setWorkspace(t, s.App(), ring...)

	resp, body := do(t, s.App(), http.MethodPost, "/route", server.RouteRequest{
		Start:         geometry.Point{X: 0, Y: 0},
		End:           goal,
		MaxIterations: 50,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var route server.RouteResponse
	require.NoError(t, json.Unmarshal(body, &route))
	require.False(t, route.Success)
	require.Empty(t, route.Path)
	require.Equal(t, 50, route.Iterations)
	require.Contains(t, route.Message, planner.ReasonBudgetExhausted)
}

func TestRoute_RateLimited(t *testing.T) {
	s := server.New(server.Config{RateLimit: 0.001, RateBurst: 1})
	setWorkspace(t, s.App())

	req := server.RouteRequest{Start: geometry.Point{X: 10, Y: 10}, End: geometry.Point{X: 10, Y: 10}}
	resp, _ := do(t, s.App(), http.MethodPost, "/route", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, s.App(), http.MethodPost, "/route", req)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestStoreDisabled(t *testing.T) {
	s := newServer(t, false)
	resp, _ := do(t, s.App(), http.MethodGet, "/runs", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = do(t, s.App(), http.MethodGet, "/route/x/geojson", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetWorkspace(t *testing.T) {
	s := newServer(t, false)
	resp, _ := do(t, s.App(), http.MethodGet, "/workspace", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	setWorkspace(t, s.App(), geometry.Point{X: 10, Y: 10}, geometry.Point{X: 30, Y: 30})
	resp, body := do(t, s.App(), http.MethodGet, "/workspace", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	fc, err := geojson.UnmarshalFeatureCollection(body)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	require.Equal(t, 5.0, fc.Features[0].Properties.MustFloat64("radius"))
}
