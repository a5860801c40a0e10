package physics

import (
	"github.com/ByteArena/box2d"

	"github.com/zeusync/softbody/internal/core/models"
)

// SyncBridge copies simulated poses and contact flags into the world model.
type SyncBridge struct {
	dropEdge *float64
}

func NewSyncBridge(cfg Config) *SyncBridge {
	s := &SyncBridge{}
	if cfg.DropEdge != nil {
		edge := *cfg.DropEdge
		s.dropEdge = &edge
	}
	return s
}

// DropBelow kills agents that fall under edge. nil disables it.
func (s *SyncBridge) DropBelow(edge *float64) {
	s.dropEdge = edge
}

// ExportResult counts what one Export pass did.
type ExportResult struct {
	Synced  int
	Stale   int
	Dropped []models.AgentID
}

// Export writes position and angle of every body into its segment, keeps
// the segment scale, and sets Collided from touched. Agents with a body
// under the drop edge are killed in the world after the pass.
func (s *SyncBridge) Export(world models.WorldModel, handles *handleTable, touched TouchedSet) ExportResult {
	var res ExportResult
	dropped := make(map[models.AgentID]bool)
	handles.each(func(key EntityKey, body *box2d.B2Body) {
		agent, ok := world.Agent(key.Agent)
		if !ok {
			res.Stale++
			return
		}
		seg, ok := agent.Segment(int(key.Segment))
		if !ok {
			res.Stale++
			return
		}
		pos := fromB2(body.GetPosition())
		seg.TransformTo(pos, body.GetAngle())
		seg.Collided = touched.Contains(key)
		res.Synced++

		if s.dropEdge != nil && pos.Y < *s.dropEdge && !dropped[key.Agent] {
			dropped[key.Agent] = true
			res.Dropped = append(res.Dropped, key.Agent)
		}
	})
	for _, id := range res.Dropped {
		world.Kill(id)
	}
	return res
}
