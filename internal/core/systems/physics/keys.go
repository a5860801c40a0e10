package physics

import (
	"fmt"

	"github.com/zeusync/softbody/internal/core/models"
)

// EntityKey is the tag attached to every body and fixture. It is the only
// link between engine primitives and the world model.
type EntityKey struct {
	Agent   models.AgentID
	Segment uint8
	Bone    uint8
	HasBone bool
}

// SegmentKey identifies a segment body.
func SegmentKey(agent models.AgentID, segment uint8) EntityKey {
	return EntityKey{Agent: agent, Segment: segment}
}

// BoneKey identifies one fixture of a multi-fixture segment.
func BoneKey(agent models.AgentID, segment, bone uint8) EntityKey {
	return EntityKey{Agent: agent, Segment: segment, Bone: bone, HasBone: true}
}

// Stripped drops the bone so fixtures of one segment collapse onto the
// segment key.
func (k EntityKey) Stripped() EntityKey {
	k.Bone, k.HasBone = 0, false
	return k
}

// Less orders keys by agent, segment, then bone.
func (k EntityKey) Less(o EntityKey) bool {
	if k.Agent != o.Agent {
		return k.Agent < o.Agent
	}
	if k.Segment != o.Segment {
		return k.Segment < o.Segment
	}
	if k.HasBone != o.HasBone {
		return !k.HasBone
	}
	return k.Bone < o.Bone
}

func (k EntityKey) String() string {
	if k.HasBone {
		return fmt.Sprintf("%d/%d#%d", k.Agent, k.Segment, k.Bone)
	}
	return fmt.Sprintf("%d/%d", k.Agent, k.Segment)
}

func keyOf(userData any) (EntityKey, bool) {
	k, ok := userData.(EntityKey)
	return k, ok
}
