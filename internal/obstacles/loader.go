// Package obstacles reads obstacle centers from CSV or GeoJSON files.
package obstacles

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"rrt-planner/internal/geometry"
	"rrt-planner/internal/workspace"
)

// ErrMalformedRecord is returned for rows with the wrong arity or non-numeric fields.
var ErrMalformedRecord = errors.New("obstacles: malformed record")

// ErrUnsupportedFormat is returned by LoadFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("obstacles: unsupported file format")

// RadiusProperty is the GeoJSON feature property that overrides the default radius.
const RadiusProperty = "radius"

// Logger receives warnings about skipped features. Defaults to slog.Default().
var Logger = slog.Default()

// LoadCSV parses one "x,y" record per line. Every obstacle gets radius.
func LoadCSV(r io.Reader, radius float64) ([]workspace.Obstacle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var obstacles []workspace.Obstacle
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(record) != 2 {
			return nil, fmt.Errorf("%w: line %d: want 2 fields, got %d", ErrMalformedRecord, line, len(record))
		}

		x, errX := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: line %d: non-numeric field in %q", ErrMalformedRecord, line, record)
		}

		obstacles = append(obstacles, workspace.Obstacle{
			Center: geometry.Point{X: x, Y: y},
			Radius: radius,
		})
	}

	return obstacles, nil
}

// LoadGeoJSON reads Point and MultiPoint features from a FeatureCollection.
// A numeric "radius" property overrides the default radius per feature;
// other geometry types are skipped.
func LoadGeoJSON(data []byte, radius float64) ([]workspace.Obstacle, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson: %w", err)
	}

	var obstacles []workspace.Obstacle
	for i, feature := range fc.Features {
		r := feature.Properties.MustFloat64(RadiusProperty, radius)

		switch g := feature.Geometry.(type) {
		case orb.Point:
			obstacles = append(obstacles, obstacleAt(g, r))
		case orb.MultiPoint:
			for _, p := range g {
				obstacles = append(obstacles, obstacleAt(p, r))
			}
		default:
			Logger.LogAttrs(context.Background(), slog.LevelWarn, "skipping non-point feature",
				slog.Int("feature", i), slog.String("type", geometryType(feature.Geometry)))
		}
	}

	return obstacles, nil
}

// LoadFile picks the parser by extension: .csv, .geojson or .json.
func LoadFile(path string, radius float64) ([]workspace.Obstacle, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return LoadCSV(f, radius)

	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return LoadGeoJSON(data, radius)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func obstacleAt(p orb.Point, radius float64) workspace.Obstacle {
	return workspace.Obstacle{
		Center: geometry.Point{X: p.X(), Y: p.Y()},
		Radius: radius,
	}
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
