package physics

import (
	"sort"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/softbody/internal/core/models"
)

// handleTable maps segment keys to live bodies. It is the single source of
// truth for which segments are simulated. Keys are kept sorted so every
// pass over the table is deterministic.
type handleTable struct {
	bodies map[EntityKey]*box2d.B2Body
	keys   []EntityKey
}

func newHandleTable() *handleTable {
	return &handleTable{bodies: make(map[EntityKey]*box2d.B2Body)}
}

func (h *handleTable) insert(key EntityKey, body *box2d.B2Body) {
	key = key.Stripped()
	if _, exists := h.bodies[key]; !exists {
		i := sort.Search(len(h.keys), func(i int) bool { return !h.keys[i].Less(key) })
		h.keys = append(h.keys, EntityKey{})
		copy(h.keys[i+1:], h.keys[i:])
		h.keys[i] = key
	}
	h.bodies[key] = body
}

func (h *handleTable) get(key EntityKey) (*box2d.B2Body, bool) {
	b, ok := h.bodies[key.Stripped()]
	return b, ok
}

// purge removes every entry of the agent and returns the removed bodies in
// key order.
func (h *handleTable) purge(agent models.AgentID) []*box2d.B2Body {
	var removed []*box2d.B2Body
	kept := h.keys[:0]
	for _, k := range h.keys {
		if k.Agent == agent {
			removed = append(removed, h.bodies[k])
			delete(h.bodies, k)
			continue
		}
		kept = append(kept, k)
	}
	h.keys = kept
	return removed
}

func (h *handleTable) each(fn func(EntityKey, *box2d.B2Body)) {
	for _, k := range h.keys {
		fn(k, h.bodies[k])
	}
}

func (h *handleTable) len() int { return len(h.keys) }
