package physics

import (
	"github.com/ByteArena/box2d"

	"github.com/zeusync/softbody/internal/core/models"
)

// ForceApplier turns segment intents into forces before the solver runs.
type ForceApplier struct {
	attractor *AttractorConfig
}

func NewForceApplier(cfg Config) *ForceApplier {
	f := &ForceApplier{}
	if cfg.Attractor != nil {
		a := *cfg.Attractor
		f.attractor = &a
	}
	return f
}

// Follow pulls every live body toward target with a constant force of the
// given magnitude. A zero magnitude disables the pull.
func (f *ForceApplier) Follow(target models.Vec2, magnitude float64) {
	if magnitude <= 0 {
		f.attractor = nil
		return
	}
	f.attractor = &AttractorConfig{Target: target, Magnitude: magnitude}
}

// ApplyResult counts what one Apply pass did.
type ApplyResult struct {
	Forces   int
	Impulses int
	Stale    int
}

// Apply reads the intent of every body in the table and applies it once at
// the body's world center. Entries whose agent or segment is gone from the
// world are skipped.
func (f *ForceApplier) Apply(state models.WorldState, handles *handleTable) ApplyResult {
	var res ApplyResult
	handles.each(func(key EntityKey, body *box2d.B2Body) {
		intent, ok := state.Intent(key.Agent, int(key.Segment))
		if !ok {
			res.Stale++
			return
		}
		center := body.GetWorldCenter()
		switch intent.Kind {
		case models.IntentMove:
			body.ApplyForce(toB2(intent.Vector), center, true)
			res.Forces++
		case models.IntentRunAway:
			body.ApplyLinearImpulse(toB2(intent.Vector), center, true)
			res.Impulses++
		}
		if f.attractor != nil {
			f.pull(body, center)
		}
	})
	return res
}

func (f *ForceApplier) pull(body *box2d.B2Body, center box2d.B2Vec2) {
	d := f.attractor.Target.Sub(fromB2(center))
	l := d.Length()
	if l == 0 {
		return
	}
	body.ApplyForce(toB2(d.Scale(f.attractor.Magnitude/l)), center, true)
}
