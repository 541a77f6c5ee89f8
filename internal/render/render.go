// Package render draws a workspace, a search tree and a planned path to PNG.
package render

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/gogpu/gg"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/workspace"
)

// ErrNoWorkspace is returned when Plot is called without a workspace.
var ErrNoWorkspace = errors.New("render: nil workspace")

// Options controls canvas size and what gets drawn.
type Options struct {
	Width, Height int
	// Margin is the blank border in pixels around the workspace
	Margin float64
	// GridStep is the grid spacing in workspace units; 0 disables the grid
	GridStep float64
	// Tree holds search tree edges to draw under the path
	Tree [][2]geometry.Point
}

// DefaultOptions returns a 1000x1000 canvas with a unit grid.
func DefaultOptions() Options {
	return Options{Width: 1000, Height: 1000, Margin: 20, GridStep: 1}
}

var (
	gridColor     = gg.RGB(0.9, 0.9, 0.9)
	obstacleColor = gg.RGB(1, 0, 0)
	treeColor     = gg.RGB(0.75, 0.75, 0.75)
	pathColor     = gg.RGB(0, 0, 1)
	startColor    = gg.RGB(0, 0.6, 0)
	goalColor     = gg.RGB(0.6, 0, 0.6)
)

// canvas maps workspace coordinates to pixels with the y axis pointing up.
type canvas struct {
	b      workspace.Bounds
	sx, sy float64
	margin float64
	height float64
}

func newCanvas(b workspace.Bounds, opts Options) canvas {
	w := float64(opts.Width) - 2*opts.Margin
	h := float64(opts.Height) - 2*opts.Margin
	return canvas{
		b:      b,
		sx:     w / b.Width(),
		sy:     h / b.Height(),
		margin: opts.Margin,
		height: float64(opts.Height),
	}
}

func (c canvas) px(p geometry.Point) (float64, float64) {
	x := c.margin + (p.X-c.b.MinX)*c.sx
	y := c.height - c.margin - (p.Y-c.b.MinY)*c.sy
	return x, y
}

// Plot renders ws, the optional tree and path onto a new context.
// Callers own the returned context.
func Plot(ws *workspace.Workspace, path []geometry.Point, opts Options) (*gg.Context, error) {
	if ws == nil {
		return nil, ErrNoWorkspace
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: invalid canvas %dx%d", opts.Width, opts.Height)
	}
	if 2*opts.Margin >= float64(min(opts.Width, opts.Height)) {
		return nil, fmt.Errorf("render: margin %g too large for %dx%d canvas", opts.Margin, opts.Width, opts.Height)
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.ClearWithColor(gg.White)
	cv := newCanvas(ws.Bounds(), opts)

	if err := drawGrid(dc, cv, opts.GridStep); err != nil {
		return nil, err
	}

	// obstacles
	dc.SetStrokeBrush(gg.Solid(obstacleColor))
	dc.SetLineWidth(1.5)
	for _, o := range ws.Obstacles() {
		x, y := cv.px(o.Center)
		dc.DrawEllipse(x, y, o.Radius*cv.sx, o.Radius*cv.sy)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("render: obstacle: %w", err)
		}
	}

	if len(opts.Tree) > 0 {
		dc.SetStrokeBrush(gg.Solid(treeColor))
		dc.SetLineWidth(0.75)
		for _, e := range opts.Tree {
			x1, y1 := cv.px(e[0])
			x2, y2 := cv.px(e[1])
			dc.DrawLine(x1, y1, x2, y2)
		}
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("render: tree: %w", err)
		}
	}

	if len(path) > 0 {
		if err := drawPath(dc, cv, path); err != nil {
			return nil, err
		}
	}

	return dc, nil
}

func drawGrid(dc *gg.Context, cv canvas, step float64) error {
	if step <= 0 {
		return nil
	}
	b := cv.b
	// skip grids too dense to see
	if b.Width()/step*2 > float64(dc.Width()) || b.Height()/step*2 > float64(dc.Height()) {
		return nil
	}

	dc.SetStrokeBrush(gg.Solid(gridColor))
	dc.SetLineWidth(1)
	for x := math.Ceil(b.MinX/step) * step; x <= b.MaxX; x += step {
		x1, y1 := cv.px(geometry.Point{X: x, Y: b.MinY})
		x2, y2 := cv.px(geometry.Point{X: x, Y: b.MaxY})
		dc.DrawLine(x1, y1, x2, y2)
	}
	for y := math.Ceil(b.MinY/step) * step; y <= b.MaxY; y += step {
		x1, y1 := cv.px(geometry.Point{X: b.MinX, Y: y})
		x2, y2 := cv.px(geometry.Point{X: b.MaxX, Y: y})
		dc.DrawLine(x1, y1, x2, y2)
	}
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("render: grid: %w", err)
	}
	return nil
}

func drawPath(dc *gg.Context, cv canvas, path []geometry.Point) error {
	dc.SetStrokeBrush(gg.Solid(pathColor))
	dc.SetLineWidth(3)
	if len(path) > 1 {
		x, y := cv.px(path[0])
		dc.MoveTo(x, y)
		for _, p := range path[1:] {
			x, y = cv.px(p)
			dc.LineTo(x, y)
		}
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("render: path: %w", err)
		}
	}

	// waypoint markers get noisy on densified paths
	if len(path) <= 200 {
		for _, p := range path {
			x, y := cv.px(p)
			dc.DrawCircle(x, y, 2.5)
		}
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("render: markers: %w", err)
		}
	}

	for _, m := range []struct {
		p   geometry.Point
		col gg.RGBA
	}{
		{path[0], startColor},
		{path[len(path)-1], goalColor},
	} {
		x, y := cv.px(m.p)
		dc.SetFillBrush(gg.Solid(m.col))
		dc.DrawCircle(x, y, 6)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("render: endpoint: %w", err)
		}
	}
	return nil
}

// FileName returns "<prefix>_YYYYmmddHHMMSS.png".
func FileName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "path_plot"
	}
	return fmt.Sprintf("%s_%s.png", prefix, t.Format("20060102150405"))
}

// Save plots and writes the PNG into dir, returning the file path.
func Save(ws *workspace.Workspace, path []geometry.Point, opts Options, dir, prefix string, now time.Time) (string, error) {
	dc, err := Plot(ws, path, opts)
	if err != nil {
		return "", err
	}
	defer dc.Close()

	out := filepath.Join(dir, FileName(prefix, now))
	if err := dc.SavePNG(out); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", out, err)
	}
	return out, nil
}
