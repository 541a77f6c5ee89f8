// Command rrtplan plans a single collision-free path through circular
// obstacles and renders it to PNG.
//
// Usage:
//
//	rrtplan [-config rrt.toml] [-obstacles obstacles.csv] [-start 0,0] [-goal 100,100]
//
// Exit status is 0 when a path is found, 2 when the budget runs out and 1 on
// any error.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"rrt-planner/internal/config"
	"rrt-planner/internal/geometry"
	"rrt-planner/internal/path"
	"rrt-planner/internal/planner"
	"rrt-planner/internal/render"
	"rrt-planner/internal/store"
)

const (
	exitFound    = 0
	exitError    = 1
	exitNotFound = 2
)

// =============================================================================
// STYLES
// =============================================================================

var (
	brandPrimary = lipgloss.Color("#7C3AED") // Purple
	brandAccent  = lipgloss.Color("#10B981") // Emerald
	brandWarning = lipgloss.Color("#F59E0B") // Amber
	brandError   = lipgloss.Color("#EF4444") // Red
	textMuted    = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(brandAccent).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(brandWarning).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(brandError).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(textMuted).
			Width(12)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brandPrimary).
			Padding(0, 1)
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	config     string
	obstacles  string
	start      string
	goal       string
	seed       int64
	attempts   int
	out        string
	noRender   bool
	tree       bool
	simplify   bool
	geojson    string
	initConfig string
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("rrtplan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "TOML config file")
	fs.StringVar(&f.obstacles, "obstacles", "", "obstacle file, .csv or .geojson (default from config: obstacles.csv)")
	fs.StringVar(&f.start, "start", "0,0", "start point as x,y")
	fs.StringVar(&f.goal, "goal", "100,100", "goal point as x,y")
	fs.Int64Var(&f.seed, "seed", 0, "random seed, 0 picks one from the clock")
	fs.IntVar(&f.attempts, "attempts", 0, "independent searches, the shortest path wins")
	fs.StringVar(&f.out, "out", "", "directory for the PNG plot")
	fs.BoolVar(&f.noRender, "no-render", false, "skip the PNG plot")
	fs.BoolVar(&f.tree, "tree", false, "draw the search tree")
	fs.BoolVar(&f.simplify, "simplify", false, "shortcut the path before densifying")
	fs.StringVar(&f.geojson, "geojson", "", "also write path and obstacles as GeoJSON to this file")
	fs.StringVar(&f.initConfig, "init-config", "", "write the default config to this file and exit")
	fs.BoolVar(&f.verbose, "v", false, "log planner details to stderr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// parsePoint reads "x,y".
func parsePoint(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("invalid point %q, want x,y", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err := errors.Join(errX, errY); err != nil {
		return geometry.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitFound
		}
		return exitError
	}

	fail := func(format string, a ...any) int {
		fmt.Fprintln(stderr, errorStyle.Render("✗ "+fmt.Sprintf(format, a...)))
		return exitError
	}

	if f.initConfig != "" {
		if err := config.SaveTOML(config.Default(), f.initConfig); err != nil {
			return fail("%v", err)
		}
		fmt.Fprintln(stdout, successStyle.Render("✓ Wrote "+f.initConfig))
		return exitFound
	}

	if f.verbose {
		planner.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer planner.SetLogger(nil)
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return fail("%v", err)
	}
	applyFlags(cfg, f)

	start, err := parsePoint(f.start)
	if err != nil {
		return fail("%v", err)
	}
	goal, err := parsePoint(f.goal)
	if err != nil {
		return fail("%v", err)
	}

	obs, err := cfg.LoadObstacles()
	if err != nil {
		return fail("failed to load obstacles: %v", err)
	}
	ws, err := cfg.BuildWorkspace(obs)
	if err != nil {
		return fail("invalid workspace: %v", err)
	}

	session, err := planner.NewSession(ws, cfg.PlannerOptions())
	if err != nil {
		return fail("%v", err)
	}
	res, err := session.PlanBest(start, goal)
	if err != nil {
		return fail("%v", err)
	}

	rows := [][2]string{
		{"Obstacles", strconv.Itoa(ws.NumObstacles())},
		{"Start", fmt.Sprintf("(%g, %g)", start.X, start.Y)},
		{"Goal", fmt.Sprintf("(%g, %g)", goal.X, goal.Y)},
		{"Seed", strconv.FormatInt(res.Seed, 10)},
		{"Iterations", strconv.Itoa(res.Iterations)},
		{"Tree nodes", strconv.Itoa(res.TreeSize)},
		{"Elapsed", res.Elapsed.Round(time.Microsecond).String()},
	}
	if res.Found() {
		rows = append(rows,
			[2]string{"Waypoints", strconv.Itoa(len(res.Path))},
			[2]string{"Length", strconv.FormatFloat(res.Length, 'f', 3, 64)},
		)
	}

	if cfg.Render.Enabled {
		opts := render.Options{
			Width:    cfg.Render.Width,
			Height:   cfg.Render.Height,
			Margin:   20,
			GridStep: cfg.Render.GridStep,
			Tree:     res.TreeEdges,
		}
		out, err := render.Save(ws, res.Path, opts, cfg.Render.Dir, cfg.Render.Prefix, time.Now())
		if err != nil {
			return fail("%v", err)
		}
		rows = append(rows, [2]string{"Plot", out})
	}

	if f.geojson != "" {
		data, err := path.ToGeoJSON(res.Path, ws.Obstacles()).MarshalJSON()
		if err == nil {
			err = os.WriteFile(f.geojson, data, 0o644)
		}
		if err != nil {
			return fail("failed to write %s: %v", f.geojson, err)
		}
		rows = append(rows, [2]string{"GeoJSON", f.geojson})
	}

	if cfg.Store.Driver != "" {
		id, err := record(cfg, start, goal, res)
		if err != nil {
			return fail("%v", err)
		}
		rows = append(rows, [2]string{"Run", id})
	}

	fmt.Fprintln(stdout, summary(res, rows))
	if !res.Found() {
		return exitNotFound
	}
	return exitFound
}

func applyFlags(cfg *config.Config, f *flags) {
	if f.obstacles != "" {
		cfg.Workspace.ObstaclesFile = f.obstacles
	}
	if f.seed != 0 {
		cfg.Planner.Seed = f.seed
	}
	if f.attempts != 0 {
		cfg.Planner.Attempts = f.attempts
	}
	if f.simplify {
		cfg.Planner.Simplify = true
	}
	if f.out != "" {
		cfg.Render.Dir = f.out
	}
	if f.noRender {
		cfg.Render.Enabled = false
	}
	if f.tree {
		cfg.Render.DrawTree = true
	}
}

func record(cfg *config.Config, start, goal geometry.Point, res planner.Result) (string, error) {
	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run, err := store.NewRun(start, goal, res)
	if err != nil {
		return "", err
	}
	if err := st.Save(run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func summary(res planner.Result, rows [][2]string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RRT Path Planner"))
	b.WriteString("\n\n")
	if res.Found() {
		b.WriteString(successStyle.Render("✓ Path found"))
	} else {
		b.WriteString(warningStyle.Render("! No path found: " + res.Reason))
	}
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(r[1])
	}
	return boxStyle.Render(b.String())
}
