// Package counter turns track movement across a virtual doorway line
// into entry and exit counts.
package counter

import (
	"fmt"
	"image"
	"math"

	clipper "github.com/ctessum/go.clipper"
)

// Zone identifies which counting region a point falls in
type Zone int

const (
	// ZoneNone means the point is outside every counting region
	ZoneNone Zone = iota
	// ZoneCenter is the band straddling the doorway line
	ZoneCenter
	// ZoneLeft is the exit region on the left side of the band
	ZoneLeft
	// ZoneRight is the exit region on the right side of the band
	ZoneRight
)

// String returns a human readable zone name
func (z Zone) String() string {
	switch z {
	case ZoneCenter:
		return "center"
	case ZoneLeft:
		return "left"
	case ZoneRight:
		return "right"
	default:
		return "none"
	}
}

// Zones holds the three counting polygons built around the doorway line
type Zones struct {
	// LineStart and LineEnd are the endpoints of the doorway line
	LineStart image.Point
	LineEnd   image.Point

	center []image.Point
	left   []image.Point
	right  []image.Point
}

// NewZones builds the counting polygons for a doorway line.  offset
// controls the width of the zones either side of the line.  The center
// band is asymmetric, slightly narrower on the right where the doorway
// opens onto the entrance.  Polygons are clipped to the frame bounds so
// a line near the image edge does not classify points outside the frame.
func NewZones(lineStart, lineEnd image.Point, offset int, frame image.Rectangle) (*Zones, error) {

	if lineStart == lineEnd {
		return nil, fmt.Errorf("line endpoints must differ")
	}

	if offset <= 0 {
		return nil, fmt.Errorf("line offset must be positive, got %d", offset)
	}

	dx := float64(lineEnd.X - lineStart.X)
	dy := float64(lineEnd.Y - lineStart.Y)
	length := math.Hypot(dx, dy)

	// unit normal to the line
	nx := -dy / length
	ny := dx / length

	centerLeft := float64(offset)
	centerRight := float64(int(float64(offset) * 0.85))
	farLeft := centerLeft + float64(offset)
	farRight := centerRight + float64(offset)

	shift := func(p image.Point, dist float64) image.Point {
		return image.Point{
			X: p.X + int(nx*dist),
			Y: p.Y + int(ny*dist),
		}
	}

	z := &Zones{
		LineStart: lineStart,
		LineEnd:   lineEnd,
		center: []image.Point{
			shift(lineStart, -centerLeft),
			shift(lineEnd, -centerLeft),
			shift(lineEnd, centerRight),
			shift(lineStart, centerRight),
		},
		left: []image.Point{
			shift(lineStart, -farLeft),
			shift(lineEnd, -farLeft),
			shift(lineEnd, -centerLeft),
			shift(lineStart, -centerLeft),
		},
		right: []image.Point{
			shift(lineStart, centerRight),
			shift(lineEnd, centerRight),
			shift(lineEnd, farRight),
			shift(lineStart, farRight),
		},
	}

	if !frame.Empty() {
		z.center = clipToFrame(z.center, frame)
		z.left = clipToFrame(z.left, frame)
		z.right = clipToFrame(z.right, frame)
	}

	return z, nil
}

// Classify returns the zone containing the point.  The center band wins
// where regions share a boundary.
func (z *Zones) Classify(p image.Point) Zone {
	switch {
	case pointInPolygon(p, z.center):
		return ZoneCenter
	case pointInPolygon(p, z.left):
		return ZoneLeft
	case pointInPolygon(p, z.right):
		return ZoneRight
	default:
		return ZoneNone
	}
}

// Center returns the center band polygon
func (z *Zones) Center() []image.Point {
	return z.center
}

// Left returns the left exit polygon
func (z *Zones) Left() []image.Point {
	return z.left
}

// Right returns the right exit polygon
func (z *Zones) Right() []image.Point {
	return z.right
}

// clipToFrame intersects a polygon with the frame rectangle
func clipToFrame(poly []image.Point, frame image.Rectangle) []image.Point {

	subject := make(clipper.Path, 0, len(poly))
	for _, p := range poly {
		subject = append(subject, &clipper.IntPoint{
			X: clipper.CInt(p.X),
			Y: clipper.CInt(p.Y),
		})
	}

	clip := clipper.Path{
		&clipper.IntPoint{X: clipper.CInt(frame.Min.X), Y: clipper.CInt(frame.Min.Y)},
		&clipper.IntPoint{X: clipper.CInt(frame.Max.X), Y: clipper.CInt(frame.Min.Y)},
		&clipper.IntPoint{X: clipper.CInt(frame.Max.X), Y: clipper.CInt(frame.Max.Y)},
		&clipper.IntPoint{X: clipper.CInt(frame.Min.X), Y: clipper.CInt(frame.Max.Y)},
	}

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(subject, clipper.PtSubject, true)
	c.AddPath(clip, clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

	if !ok || len(solution) == 0 {
		// polygon lies fully outside the frame
		return nil
	}

	out := make([]image.Point, 0, len(solution[0]))
	for _, p := range solution[0] {
		out = append(out, image.Point{X: int(p.X), Y: int(p.Y)})
	}

	return out
}

// pointInPolygon performs a ray casting test, points on an edge count
// as inside
func pointInPolygon(p image.Point, poly []image.Point) bool {

	if len(poly) < 3 {
		return false
	}

	inside := false
	j := len(poly) - 1

	for i := 0; i < len(poly); i++ {

		a := poly[i]
		b := poly[j]

		if onSegment(p, a, b) {
			return true
		}

		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := float64(b.X-a.X)*float64(p.Y-a.Y)/float64(b.Y-a.Y) + float64(a.X)
			if float64(p.X) < x {
				inside = !inside
			}
		}

		j = i
	}

	return inside
}

// onSegment reports whether p lies on the segment a-b
func onSegment(p, a, b image.Point) bool {

	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross != 0 {
		return false
	}

	if p.X < minInt(a.X, b.X) || p.X > maxInt(a.X, b.X) {
		return false
	}
	if p.Y < minInt(a.Y, b.Y) || p.Y > maxInt(a.Y, b.Y) {
		return false
	}

	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
