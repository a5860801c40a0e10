package models

import "fmt"

// AgentID identifies a creature in the world model.
type AgentID uint64

// JointKind selects the constraint used to attach a segment to its parent.
type JointKind uint8

const (
	// JointRigid welds the segment to its parent with a soft spring.
	JointRigid JointKind = iota
	// JointArticulated pins the segment to its parent with a limited hinge.
	JointArticulated
)

func (k JointKind) String() string {
	switch k {
	case JointRigid:
		return "rigid"
	case JointArticulated:
		return "articulated"
	default:
		return fmt.Sprintf("joint(%d)", uint8(k))
	}
}

// Material carries the surface and mass properties of a segment.
type Material struct {
	Density     float64 `json:"density" yaml:"density"`
	Friction    float64 `json:"friction" yaml:"friction"`
	Restitution float64 `json:"restitution" yaml:"restitution"`
}

// Attachment references the parent segment by index and the vertex of the
// parent mesh the child hangs from.
type Attachment struct {
	Parent int `json:"parent" yaml:"parent"`
	Point  int `json:"point" yaml:"point"`
}

// Segment is one rigid part of an agent.
type Segment struct {
	Material   Material
	Mesh       Mesh
	Transform  Transform
	Attachment *Attachment
	Joint      JointKind
	Intent     Intent

	// Collided is set by the physics export when the segment touched
	// another agent during the last tick.
	Collided bool
}

// Root reports whether the segment has no parent.
func (s *Segment) Root() bool { return s.Attachment == nil }

// TransformTo replaces the pose of the segment, keeping its scale.
func (s *Segment) TransformTo(position Vec2, angle float64) {
	s.Transform.Position = position
	s.Transform.Angle = angle
}

// Agent is a creature made of segments. Segments form a tree: every
// attachment points at an earlier segment.
type Agent struct {
	ID       AgentID
	Segments []*Segment
}

// NewAgent creates an agent with the given segments.
func NewAgent(id AgentID, segments ...*Segment) *Agent {
	return &Agent{ID: id, Segments: segments}
}

// Segment returns the segment at index i, or false when out of range.
func (a *Agent) Segment(i int) (*Segment, bool) {
	if a == nil || i < 0 || i >= len(a.Segments) {
		return nil, false
	}
	return a.Segments[i], true
}

// SetIntent sets the intent of segment i. Out of range indices are ignored.
func (a *Agent) SetIntent(i int, intent Intent) {
	if s, ok := a.Segment(i); ok {
		s.Intent = intent
	}
}
