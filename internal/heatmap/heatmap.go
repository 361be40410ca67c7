// Package heatmap compiles the snapshot corpus into a chronologically ordered
// series of frames of weighted geographic points.
//
// For a snapshot with counts c_i and frame maximum max_c, every resolvable place
// becomes a point [lat, lon, sqrt(c_i / max_c)], rounded to Precision decimals.
// Normalization is per frame: the busiest place of each frame has intensity 1.
package heatmap

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/golang/geo/s2"
)

// DefaultPrecision is the number of decimals kept for lat, lon, and intensity.
const DefaultPrecision = 2

// Resolver resolves a place to coordinates, caching across a compilation pass.
type Resolver interface {
	Resolve(ctx context.Context, place string) domain.Resolution
}

// Point is one weighted location. It serializes as [lat, lon, intensity].
type Point struct {
	Lat       float64
	Lon       float64
	Intensity float64
}

// MarshalJSON encodes the point as a three-element array.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Intensity})
}

// UnmarshalJSON decodes a three-element array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var arr [3]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	p.Lat, p.Lon, p.Intensity = arr[0], arr[1], arr[2]
	return nil
}

// Frame holds the points of one snapshot.
type Frame struct {
	TakenAt time.Time
	Points  []Point
}

// Series is the renderer-facing output: frames and a parallel timestamp index,
// both ascending, plus a suggested map center.
type Series struct {
	Index  []string          `json:"index"`
	Data   [][]Point         `json:"data"`
	Center domain.Coordinate `json:"center"`
}

// Compiler turns a snapshot history into frames.
type Compiler struct {
	resolver  Resolver
	precision int
	logger    *slog.Logger
}

// NewCompiler creates a Compiler. A negative precision selects DefaultPrecision.
func NewCompiler(resolver Resolver, precision int, logger *slog.Logger) *Compiler {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &Compiler{resolver: resolver, precision: precision, logger: logger}
}

// Compile returns one frame per snapshot in ascending capture order. Places that
// do not resolve are dropped from the frame; a snapshot with nothing resolvable
// still yields an empty frame so frame positions stay aligned with the index.
func (c *Compiler) Compile(ctx context.Context, history domain.History) []Frame {
	sorted := history.Sorted()
	frames := make([]Frame, 0, len(sorted))

	for _, snap := range sorted {
		frames = append(frames, c.compileFrame(ctx, snap))
	}
	return frames
}

func (c *Compiler) compileFrame(ctx context.Context, snap domain.Snapshot) Frame {
	frame := Frame{TakenAt: snap.TakenAt, Points: []Point{}}

	maxCount := 0
	for _, n := range snap.Mentions {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		return frame
	}

	dropped := 0
	for _, place := range snap.Mentions.Places() {
		n := snap.Mentions[place]
		if n <= 0 {
			continue
		}
		res := c.resolver.Resolve(ctx, place)
		if !res.Resolved() {
			dropped++
			continue
		}
		frame.Points = append(frame.Points, Point{
			Lat:       round(res.Coord.Lat, c.precision),
			Lon:       round(res.Coord.Lon, c.precision),
			Intensity: round(Intensity(n, maxCount), c.precision),
		})
	}

	if dropped > 0 {
		c.logger.Debug("frame compiled with unresolved places",
			"taken_at", domain.FormatTimestamp(snap.TakenAt),
			"points", len(frame.Points),
			"dropped", dropped,
		)
	}
	return frame
}

// Intensity is the normalized weight of count within a frame whose largest count is maxCount.
func Intensity(count, maxCount int) float64 {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	return math.Sqrt(float64(count) / float64(maxCount))
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// BuildSeries formats frames for rendering. The center is the middle of the
// bounding rectangle of every point, rounded to precision decimals, or fallback
// when there are no points. A negative precision selects DefaultPrecision.
func BuildSeries(frames []Frame, fallback domain.Coordinate, precision int) Series {
	if precision < 0 {
		precision = DefaultPrecision
	}
	s := Series{
		Index:  make([]string, len(frames)),
		Data:   make([][]Point, len(frames)),
		Center: fallback,
	}

	bounds := s2.EmptyRect()
	for i, f := range frames {
		s.Index[i] = domain.FormatTimestamp(f.TakenAt)
		s.Data[i] = f.Points
		for _, p := range f.Points {
			bounds = bounds.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lon))
		}
	}

	if !bounds.IsEmpty() {
		center := bounds.Center()
		s.Center = domain.Coordinate{
			Lat: round(center.Lat.Degrees(), precision),
			Lon: round(center.Lng.Degrees(), precision),
		}
	}
	return s
}
