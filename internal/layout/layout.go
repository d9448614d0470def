// Package layout maps spread positions to rendering coordinates.
//
// Flat placements are percentages of the spread's bounding box with the origin
// in the top-left corner and y growing downward. The orbit layout is the only
// spatial one and is meant for the shuffle visualisation, never for slots.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a position index does not fit the total.
var ErrOutOfRange = errors.New("layout: position index out of range")

// Type is a spread layout tag.
type Type string

const (
	Single      Type = "single"
	Linear      Type = "linear"
	Triangle    Type = "triangle"
	Square      Type = "square"
	Quadrant    Type = "quadrant"
	Diamond     Type = "diamond"
	Cross       Type = "cross"
	Hexagram    Type = "hexagram"
	TwoColumns  Type = "two_columns"
	CelticCross Type = "celtic_cross"
	Orbit       Type = "orbit"
)

// OrbitRadius is the sphere radius used by the orbit layout, in scene units.
const OrbitRadius = 300.0

const hexagramRadius = 35.0

// goldenAngle is π(3-√5) radians.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// Placement is a flat position in percent of the layout area.
type Placement struct {
	XPercent    float64 `json:"x_percent"`
	YPercent    float64 `json:"y_percent"`
	RotationDeg float64 `json:"rotation_deg"`
}

// SpherePoint is a point on the orbit sphere with the card facing outward.
type SpherePoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	RotationX float64 `json:"rotation_x"`
	RotationY float64 `json:"rotation_y"`
}

// Result carries exactly one of Flat or Sphere.
type Result struct {
	Flat   *Placement   `json:"flat,omitempty"`
	Sphere *SpherePoint `json:"sphere,omitempty"`
}

// Spatial reports whether the result is an orbit placement.
func (r Result) Spatial() bool { return r.Sphere != nil }

// Anchor tables. Order is the spread position order.
var (
	singleAnchors = [...]Placement{{50, 50, 0}}

	// apex, base left, base right. Slot 0 is the apex; boards that put the
	// first two slots side by side and the third alone must remap.
	triangleAnchors = [...]Placement{
		{50, 25, 0},
		{25, 75, 0},
		{75, 75, 0},
	}

	squareAnchors = [...]Placement{
		{30, 30, 0},
		{70, 30, 0},
		{30, 70, 0},
		{70, 70, 0},
	}

	// left, top, right, bottom
	diamondAnchors = [...]Placement{
		{20, 50, 0},
		{50, 15, 0},
		{80, 50, 0},
		{50, 85, 0},
	}

	// center, left, top, right, bottom
	crossAnchors = [...]Placement{
		{50, 50, 0},
		{15, 50, 0},
		{50, 15, 0},
		{85, 50, 0},
		{50, 85, 0},
	}

	// Six-card cross cluster followed by the four-card staff, bottom to top.
	// The second card lies across the first.
	celticCrossAnchors = [...]Placement{
		{35, 50, 0},
		{35, 50, 90},
		{35, 85, 0},
		{10, 50, 0},
		{35, 15, 0},
		{60, 50, 0},
		{85, 88, 0},
		{85, 64, 0},
		{85, 40, 0},
		{85, 16, 0},
	}
)

var types = []Type{
	Single, Linear, Triangle, Square, Quadrant, Diamond,
	Cross, Hexagram, TwoColumns, CelticCross, Orbit,
}

// Types returns the recognised layout tags.
func Types() []Type {
	out := make([]Type, len(types))
	copy(out, types)
	return out
}

// Known reports whether tag is one of the recognised layout tags.
func Known(tag string) bool {
	for _, t := range types {
		if string(t) == tag {
			return true
		}
	}
	return false
}

// Fits reports whether layoutType draws total positions in its own shape
// rather than falling back to linear.
func Fits(layoutType string, total int) bool {
	if total < 1 {
		return false
	}
	switch Type(layoutType) {
	case Single:
		return total == len(singleAnchors)
	case Triangle:
		return total == len(triangleAnchors)
	case Square, Quadrant:
		return total == len(squareAnchors)
	case Diamond:
		return total == len(diamondAnchors)
	case Cross:
		return total == len(crossAnchors)
	case CelticCross:
		return total == len(celticCrossAnchors)
	case Linear, Hexagram, TwoColumns, Orbit:
		return true
	default:
		return false
	}
}

// Resolve computes the placement of position index out of total for the given
// layout tag. Unrecognised tags and fixed shapes asked for the wrong number of
// positions resolve as linear. It is a pure function.
func Resolve(layoutType string, index, total int) (Result, error) {
	if total < 1 || index < 0 || index >= total {
		return Result{}, fmt.Errorf("%w: index %d of %d", ErrOutOfRange, index, total)
	}
	if Type(layoutType) == Orbit {
		p := orbit(index, total)
		return Result{Sphere: &p}, nil
	}
	p := flat(Type(layoutType), index, total)
	return Result{Flat: &p}, nil
}

// ResolveSpread resolves every position of a spread in order.
func ResolveSpread(layoutType string, total int) ([]Result, error) {
	if total < 1 {
		return nil, fmt.Errorf("%w: total %d", ErrOutOfRange, total)
	}
	out := make([]Result, total)
	for i := range total {
		r, err := Resolve(layoutType, i, total)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func flat(t Type, index, total int) Placement {
	switch t {
	case Single:
		return fixed(singleAnchors[:], index, total)
	case Triangle:
		return fixed(triangleAnchors[:], index, total)
	case Square, Quadrant:
		return fixed(squareAnchors[:], index, total)
	case Diamond:
		return fixed(diamondAnchors[:], index, total)
	case Cross:
		return fixed(crossAnchors[:], index, total)
	case CelticCross:
		return fixed(celticCrossAnchors[:], index, total)
	case Hexagram:
		return hexagram(index, total)
	case TwoColumns:
		return twoColumns(index, total)
	default:
		return linear(index, total)
	}
}

func fixed(anchors []Placement, index, total int) Placement {
	if total != len(anchors) {
		return linear(index, total)
	}
	return anchors[index]
}

func linear(index, total int) Placement {
	step := 100 / float64(total+1)
	y := 50.0
	// zig-zag between two bands once the row gets crowded
	if total > 4 {
		if index%2 == 0 {
			y = 40
		} else {
			y = 60
		}
	}
	return Placement{XPercent: round(step * float64(index+1)), YPercent: y}
}

func hexagram(index, total int) Placement {
	angle := (-30 + float64(index)*360/float64(total)) * math.Pi / 180
	return Placement{
		XPercent: round(50 + hexagramRadius*math.Cos(angle)),
		YPercent: round(50 + hexagramRadius*math.Sin(angle)),
	}
}

func twoColumns(index, total int) Placement {
	rows := (total + 1) / 2
	spacing := 80 / float64(rows)
	x := 30.0
	if index%2 == 1 {
		x = 70
	}
	row := index / 2
	return Placement{XPercent: x, YPercent: round(10 + spacing*(float64(row)+0.5))}
}

func orbit(index, total int) SpherePoint {
	y := 0.0
	if total > 1 {
		y = 1 - 2*float64(index)/float64(total-1)
	}
	radiusAtY := math.Sqrt(math.Max(0, 1-y*y))
	theta := goldenAngle * float64(index)
	x := math.Cos(theta) * radiusAtY
	z := math.Sin(theta) * radiusAtY
	return SpherePoint{
		X:         round(x * OrbitRadius),
		Y:         round(y * OrbitRadius),
		Z:         round(z * OrbitRadius),
		RotationX: round(-math.Asin(y) * 180 / math.Pi),
		RotationY: round(math.Atan2(x, z) * 180 / math.Pi),
	}
}

// round trims float noise so equal layouts serialise identically.
func round(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
