package physics

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/softbody/internal/core/models"
)

const (
	maxSegments = math.MaxUint8 + 1
	maxBones    = math.MaxUint8 + 1
)

// BuildResult is the per-segment output of BodyBuilder. Results are indexed
// like the agent's segments so attachments can refer to them by index.
type BuildResult struct {
	Key        EntityKey
	Body       *box2d.B2Body
	Mesh       models.Mesh
	Angle      float64
	Joint      models.JointKind
	Attachment *models.Attachment
	Fixtures   int
}

// BodyBuilder turns agent segments into dynamic bodies.
type BodyBuilder struct {
	world          *box2d.B2World
	linearDamping  float64
	angularDamping float64
}

func NewBodyBuilder(world *box2d.B2World, cfg Config) *BodyBuilder {
	return &BodyBuilder{
		world:          world,
		linearDamping:  cfg.LinearDamping,
		angularDamping: cfg.AngularDamping,
	}
}

// Build validates every segment and then creates one body per segment in
// index order. Nothing is created when validation fails.
func (b *BodyBuilder) Build(agent *models.Agent) ([]BuildResult, error) {
	if len(agent.Segments) > maxSegments {
		return nil, fmt.Errorf("agent %d: %w: %d segments exceed %d",
			agent.ID, ErrInvalidMesh, len(agent.Segments), maxSegments)
	}
	for i, seg := range agent.Segments {
		if seg == nil {
			return nil, fmt.Errorf("agent %d segment %d: %w: missing segment", agent.ID, i, ErrInvalidMesh)
		}
		if err := validateMesh(seg.Mesh); err != nil {
			return nil, fmt.Errorf("agent %d segment %d: %w", agent.ID, i, err)
		}
	}

	results := make([]BuildResult, 0, len(agent.Segments))
	for i, seg := range agent.Segments {
		key := SegmentKey(agent.ID, uint8(i))
		body := b.createBody(key, seg)
		results = append(results, BuildResult{
			Key:        key,
			Body:       body,
			Mesh:       seg.Mesh,
			Angle:      seg.Transform.Angle,
			Joint:      seg.Joint,
			Attachment: seg.Attachment,
			Fixtures:   b.attachFixtures(body, key, seg),
		})
	}
	return results, nil
}

func (b *BodyBuilder) createBody(key EntityKey, seg *models.Segment) *box2d.B2Body {
	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	def.Position = toB2(seg.Transform.Position)
	def.Angle = seg.Transform.Angle
	def.LinearDamping = b.linearDamping
	def.AngularDamping = b.angularDamping
	// Sleeping islands get no PostSolve, which would clear the contact
	// flags of agents resting against each other.
	def.AllowSleep = false
	def.UserData = key
	return b.world.CreateBody(&def)
}

func (b *BodyBuilder) attachFixtures(body *box2d.B2Body, key EntityKey, seg *models.Segment) int {
	mesh := seg.Mesh
	r := mesh.Shape.Radius

	def := box2d.MakeB2FixtureDef()
	def.Density = seg.Material.Density
	def.Friction = seg.Material.Friction
	def.Restitution = seg.Material.Restitution
	def.UserData = key

	switch mesh.Shape.Kind {
	case models.ShapeBall:
		circle := box2d.MakeB2CircleShape()
		circle.M_radius = r
		def.Shape = &circle
		body.CreateFixtureFromDef(&def)
		return 1

	case models.ShapeBox:
		rect := box2d.MakeB2PolygonShape()
		rect.SetAsBox(r*mesh.Shape.Ratio, r)
		def.Shape = &rect
		body.CreateFixtureFromDef(&def)
		return 1

	case models.ShapeStar:
		for i := 0; i < mesh.Shape.N; i++ {
			p1, p2, p3 := starSlice(mesh, i)
			slice := box2d.MakeB2PolygonShape()
			slice.Set([]box2d.B2Vec2{
				box2d.MakeB2Vec2(0, 0),
				toB2(p1.Scale(r)),
				toB2(p2.Scale(r)),
				toB2(p3.Scale(r)),
			}, 4)
			def.Shape = &slice
			def.UserData = BoneKey(key.Agent, key.Segment, uint8(i))
			body.CreateFixtureFromDef(&def)
		}
		return mesh.Shape.N

	case models.ShapeTriangle:
		p := mesh.Vertices
		p1, p2, p3 := p[0], p[1], p[2]
		if mesh.Winding == models.CW {
			p2, p3 = p3, p2
		}
		tri := box2d.MakeB2PolygonShape()
		tri.Set([]box2d.B2Vec2{toB2(p1.Scale(r)), toB2(p2.Scale(r)), toB2(p3.Scale(r))}, 3)
		def.Shape = &tri
		body.CreateFixtureFromDef(&def)
		return 1
	}
	return 0
}

// starSlice returns the rim vertices of spike i: the tip at 2i framed by
// its two notches, in winding order. The engine rebuilds the convex hull of
// each slice, so any order yields the same fixture.
func starSlice(mesh models.Mesh, i int) (models.Vec2, models.Vec2, models.Vec2) {
	p := mesh.Vertices
	n := mesh.Shape.N
	next := p[2*i+1]
	tip := p[2*i]
	prev := p[(2*i+2*n-1)%(2*n)]
	if mesh.Winding == models.CW {
		return next, tip, prev
	}
	return next, prev, tip
}

func validateMesh(mesh models.Mesh) error {
	s := mesh.Shape
	if !(s.Radius > 0) || !isFinite(s.Radius) {
		return fmt.Errorf("%w: %s radius %g", ErrInvalidMesh, s.Kind, s.Radius)
	}
	for i, v := range mesh.Vertices {
		if !isFinite(v.X) || !isFinite(v.Y) {
			return fmt.Errorf("%w: %s vertex %d is not finite", ErrInvalidMesh, s.Kind, i)
		}
	}
	switch s.Kind {
	case models.ShapeBall:
		return nil
	case models.ShapeBox:
		if !(s.Ratio > 0) || !isFinite(s.Ratio) {
			return fmt.Errorf("%w: box ratio %g", ErrInvalidMesh, s.Ratio)
		}
		return nil
	case models.ShapeStar:
		if s.N < 2 || s.N > maxBones {
			return fmt.Errorf("%w: star with %d spikes", ErrInvalidMesh, s.N)
		}
		if len(mesh.Vertices) != 2*s.N {
			return fmt.Errorf("%w: star(%d) needs %d vertices, has %d", ErrInvalidMesh, s.N, 2*s.N, len(mesh.Vertices))
		}
		return nil
	case models.ShapeTriangle:
		if len(mesh.Vertices) != 3 {
			return fmt.Errorf("%w: triangle needs 3 vertices, has %d", ErrInvalidMesh, len(mesh.Vertices))
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown shape %s", ErrInvalidMesh, s.Kind)
	}
}

func toB2(v models.Vec2) box2d.B2Vec2 { return box2d.MakeB2Vec2(v.X, v.Y) }

func fromB2(v box2d.B2Vec2) models.Vec2 { return models.Vec2{X: v.X, Y: v.Y} }
