package models

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// BlueprintFile is a set of creature templates described in YAML.
type BlueprintFile struct {
	Blueprints []Blueprint `yaml:"blueprints"`
}

// Blueprint describes a creature independently of its identity and
// placement.
type Blueprint struct {
	Name     string             `yaml:"name"`
	Segments []SegmentBlueprint `yaml:"segments"`
}

// SegmentBlueprint is the YAML form of a segment. Offset is relative to the
// spawn origin.
type SegmentBlueprint struct {
	Shape      string      `yaml:"shape"`
	Radius     float64     `yaml:"radius"`
	Ratio      float64     `yaml:"ratio,omitempty"`
	Spikes     int         `yaml:"spikes,omitempty"`
	Inner      float64     `yaml:"inner,omitempty"`
	Sides      int         `yaml:"sides,omitempty"`
	Winding    string      `yaml:"winding,omitempty"`
	Material   Material    `yaml:"material"`
	Offset     Vec2        `yaml:"offset"`
	Angle      float64     `yaml:"angle,omitempty"`
	Scale      float64     `yaml:"scale,omitempty"`
	Attachment *Attachment `yaml:"attach,omitempty"`
	Joint      string      `yaml:"joint,omitempty"`
}

// LoadBlueprints decodes a blueprint file and validates every entry.
func LoadBlueprints(r io.Reader) ([]Blueprint, error) {
	var f BlueprintFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode blueprints: %w", err)
	}
	for i := range f.Blueprints {
		if err := f.Blueprints[i].Validate(); err != nil {
			return nil, fmt.Errorf("blueprint %d: %w", i, err)
		}
	}
	return f.Blueprints, nil
}

// Validate checks the blueprint for problems that YAML cannot express.
// Geometry is validated again by the physics builder.
func (b *Blueprint) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("blueprint name is required")
	}
	if len(b.Segments) == 0 {
		return fmt.Errorf("blueprint %q has no segments", b.Name)
	}
	for i, s := range b.Segments {
		if _, err := s.mesh(); err != nil {
			return fmt.Errorf("blueprint %q segment %d: %w", b.Name, i, err)
		}
		if _, err := parseJoint(s.Joint); err != nil {
			return fmt.Errorf("blueprint %q segment %d: %w", b.Name, i, err)
		}
		if s.Attachment != nil && (s.Attachment.Parent < 0 || s.Attachment.Parent >= i) {
			return fmt.Errorf("blueprint %q segment %d: parent %d must precede it", b.Name, i, s.Attachment.Parent)
		}
	}
	return nil
}

// Spawn instantiates the blueprint as an agent placed at origin.
func (b *Blueprint) Spawn(id AgentID, origin Vec2) (*Agent, error) {
	agent := &Agent{ID: id, Segments: make([]*Segment, 0, len(b.Segments))}
	for i, s := range b.Segments {
		mesh, err := s.mesh()
		if err != nil {
			return nil, fmt.Errorf("spawn %q segment %d: %w", b.Name, i, err)
		}
		joint, err := parseJoint(s.Joint)
		if err != nil {
			return nil, fmt.Errorf("spawn %q segment %d: %w", b.Name, i, err)
		}
		scale := s.Scale
		if scale == 0 {
			scale = 1
		}
		seg := &Segment{
			Material: s.Material,
			Mesh:     mesh,
			Transform: Transform{
				Position: origin.Add(s.Offset),
				Angle:    s.Angle,
				Scale:    scale,
			},
			Joint: joint,
		}
		if s.Attachment != nil {
			att := *s.Attachment
			seg.Attachment = &att
		}
		agent.Segments = append(agent.Segments, seg)
	}
	return agent, nil
}

func (s SegmentBlueprint) mesh() (Mesh, error) {
	if s.Radius <= 0 {
		return Mesh{}, fmt.Errorf("radius must be positive, got %g", s.Radius)
	}
	var m Mesh
	switch s.Shape {
	case "ball":
		sides := s.Sides
		if sides == 0 {
			sides = 8
		}
		m = NewBallMesh(s.Radius, sides)
	case "box":
		ratio := s.Ratio
		if ratio == 0 {
			ratio = 1
		}
		m = NewBoxMesh(s.Radius, ratio)
	case "star":
		if s.Spikes < 2 {
			return Mesh{}, fmt.Errorf("star needs at least two spikes, got %d", s.Spikes)
		}
		inner := s.Inner
		if inner == 0 {
			inner = 0.5
		}
		m = NewStarMesh(s.Radius, s.Spikes, inner)
	case "triangle":
		m = NewTriangleMesh(s.Radius)
	default:
		return Mesh{}, fmt.Errorf("unknown shape %q", s.Shape)
	}
	switch s.Winding {
	case "", "ccw":
	case "cw":
		m = m.Reversed()
	default:
		return Mesh{}, fmt.Errorf("unknown winding %q", s.Winding)
	}
	return m, nil
}

func parseJoint(s string) (JointKind, error) {
	switch s {
	case "", "rigid":
		return JointRigid, nil
	case "articulated":
		return JointArticulated, nil
	default:
		return 0, fmt.Errorf("unknown joint %q", s)
	}
}
