package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/softbody/internal/core/models"
)

// JointAssembler links the bodies of one agent along its attachment tree.
type JointAssembler struct {
	world        *box2d.B2World
	limit        float64
	frequencyHz  float64
	dampingRatio float64
}

func NewJointAssembler(world *box2d.B2World, cfg Config) *JointAssembler {
	return &JointAssembler{
		world:        world,
		limit:        cfg.jointLimit(),
		frequencyHz:  cfg.WeldFrequencyHz,
		dampingRatio: cfg.WeldDampingRatio,
	}
}

// Assemble creates one joint per attached segment. Every attachment is
// checked before the first joint is created, so a failure leaves the world
// unchanged.
func (a *JointAssembler) Assemble(results []BuildResult) ([]box2d.B2JointInterface, error) {
	for i := range results {
		if err := checkAttachment(results, i); err != nil {
			return nil, err
		}
	}

	joints := make([]box2d.B2JointInterface, 0, len(results))
	for i := range results {
		child := &results[i]
		if child.Attachment == nil {
			continue
		}
		parent := &results[child.Attachment.Parent]
		anchorA, _ := parent.Mesh.Vertex(child.Attachment.Point)
		anchorB, _ := child.Mesh.Vertex(0)
		reference := child.Angle - parent.Angle

		switch child.Joint {
		case models.JointArticulated:
			def := box2d.MakeB2RevoluteJointDef()
			def.BodyA = parent.Body
			def.BodyB = child.Body
			def.CollideConnected = false
			def.LocalAnchorA = toB2(anchorA)
			def.LocalAnchorB = toB2(anchorB)
			def.ReferenceAngle = reference
			def.EnableLimit = true
			def.LowerAngle = -a.limit
			def.UpperAngle = a.limit
			joints = append(joints, a.world.CreateJoint(&def))
		default:
			def := box2d.MakeB2WeldJointDef()
			def.BodyA = parent.Body
			def.BodyB = child.Body
			def.CollideConnected = false
			def.LocalAnchorA = toB2(anchorA)
			def.LocalAnchorB = toB2(anchorB)
			def.ReferenceAngle = reference
			def.FrequencyHz = a.frequencyHz
			def.DampingRatio = a.dampingRatio
			joints = append(joints, a.world.CreateJoint(&def))
		}
	}
	return joints, nil
}

func checkAttachment(results []BuildResult, i int) error {
	child := results[i]
	att := child.Attachment
	if att == nil {
		return nil
	}
	if att.Parent < 0 || att.Parent >= i {
		return fmt.Errorf("segment %s: %w: parent %d is not built before it", child.Key, ErrDanglingAttachment, att.Parent)
	}
	parent := results[att.Parent]
	if parent.Body == nil || child.Body == nil {
		return fmt.Errorf("segment %s: %w: missing body", child.Key, ErrDanglingAttachment)
	}
	if _, ok := parent.Mesh.Vertex(att.Point); !ok {
		return fmt.Errorf("segment %s: %w: parent %d has no attachment point %d",
			child.Key, ErrDanglingAttachment, att.Parent, att.Point)
	}
	if _, ok := child.Mesh.Vertex(0); !ok {
		return fmt.Errorf("segment %s: %w: attached mesh has no vertices", child.Key, ErrInvalidMesh)
	}
	return nil
}
