package models

import (
	"fmt"
	"math"
)

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2    { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Length() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) IsZero() bool            { return v.X == 0 && v.Y == 0 }
func (v Vec2) Distance(o Vec2) float64 { return o.Sub(v).Length() }
func (v Vec2) String() string          { return fmt.Sprintf("(%g, %g)", v.X, v.Y) }

// Transform is the pose of a segment. Scale is owned by the world model and
// is never produced by the simulation.
type Transform struct {
	Position Vec2    `json:"position" yaml:"position"`
	Angle    float64 `json:"angle" yaml:"angle"`
	Scale    float64 `json:"scale" yaml:"scale"`
}

// Winding is the vertex order of a mesh.
type Winding uint8

const (
	CCW Winding = iota
	CW
)

func (w Winding) String() string {
	if w == CW {
		return "cw"
	}
	return "ccw"
}

// ShapeKind enumerates the supported segment shapes.
type ShapeKind uint8

const (
	ShapeBall ShapeKind = iota
	ShapeBox
	ShapeStar
	ShapeTriangle
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBall:
		return "ball"
	case ShapeBox:
		return "box"
	case ShapeStar:
		return "star"
	case ShapeTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("shape(%d)", uint8(k))
	}
}

// Shape is the defining geometry of a mesh. Ratio is used by boxes and N by
// stars; both are zero for the other kinds.
type Shape struct {
	Kind   ShapeKind
	Radius float64
	Ratio  float64
	N      int
}

func Ball(radius float64) Shape        { return Shape{Kind: ShapeBall, Radius: radius} }
func Box(radius, ratio float64) Shape  { return Shape{Kind: ShapeBox, Radius: radius, Ratio: ratio} }
func Star(radius float64, n int) Shape { return Shape{Kind: ShapeStar, Radius: radius, N: n} }
func Triangle(radius float64) Shape    { return Shape{Kind: ShapeTriangle, Radius: radius} }

// Mesh is a unit-scale outline. Vertices are multiplied by Shape.Radius to
// get body-local coordinates.
type Mesh struct {
	Shape    Shape
	Vertices []Vec2
	Winding  Winding
}

// Vertex returns vertex i scaled by the shape radius.
func (m Mesh) Vertex(i int) (Vec2, bool) {
	if i < 0 || i >= len(m.Vertices) {
		return Vec2{}, false
	}
	return m.Vertices[i].Scale(m.Shape.Radius), true
}

// NewBallMesh returns a ball with a regular polygon of the given number of
// sides as attachment points.
func NewBallMesh(radius float64, sides int) Mesh {
	return Mesh{Shape: Ball(radius), Vertices: regular(sides, 1, 0), Winding: CCW}
}

// NewBoxMesh returns a box with half-extents (radius*ratio, radius).
func NewBoxMesh(radius, ratio float64) Mesh {
	return Mesh{
		Shape: Box(radius, ratio),
		Vertices: []Vec2{
			{X: 0, Y: 1},
			{X: -ratio, Y: 1},
			{X: -ratio, Y: -1},
			{X: ratio, Y: -1},
			{X: ratio, Y: 1},
		},
		Winding: CCW,
	}
}

// NewStarMesh returns a star with n spikes: 2n rim vertices alternating
// between the outer tip and the inner notch at innerRatio, tip first.
func NewStarMesh(radius float64, n int, innerRatio float64) Mesh {
	vertices := make([]Vec2, 0, 2*n)
	step := math.Pi / float64(n)
	for i := 0; i < 2*n; i++ {
		r := 1.0
		if i%2 == 1 {
			r = innerRatio
		}
		a := math.Pi/2 + float64(i)*step
		vertices = append(vertices, Vec2{X: r * math.Cos(a), Y: r * math.Sin(a)})
	}
	return Mesh{Shape: Star(radius, n), Vertices: vertices, Winding: CCW}
}

// NewTriangleMesh returns an equilateral triangle inscribed in the unit circle.
func NewTriangleMesh(radius float64) Mesh {
	return Mesh{Shape: Triangle(radius), Vertices: regular(3, 1, math.Pi/2), Winding: CCW}
}

func regular(n int, r, phase float64) []Vec2 {
	out := make([]Vec2, n)
	for i := range out {
		a := phase + 2*math.Pi*float64(i)/float64(n)
		out[i] = Vec2{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return out
}

// Reversed returns the mesh with the opposite winding. The first vertex
// stays first so attachment point 0 is unchanged.
func (m Mesh) Reversed() Mesh {
	out := Mesh{Shape: m.Shape, Vertices: make([]Vec2, len(m.Vertices)), Winding: CCW}
	if m.Winding == CCW {
		out.Winding = CW
	}
	if len(m.Vertices) == 0 {
		return out
	}
	out.Vertices[0] = m.Vertices[0]
	for i := 1; i < len(m.Vertices); i++ {
		out.Vertices[i] = m.Vertices[len(m.Vertices)-i]
	}
	return out
}
