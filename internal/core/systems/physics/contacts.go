package physics

import (
	"sort"

	"github.com/ByteArena/box2d"
)

// ContactPair is an unordered inter-agent contact between two segments,
// stored with the lower key first.
type ContactPair struct {
	A, B EntityKey
}

func newContactPair(a, b EntityKey) ContactPair {
	if b.Less(a) {
		a, b = b, a
	}
	return ContactPair{A: a, B: b}
}

// TouchedSet is a read-only view of the segments that touched another agent
// during the current tick.
type TouchedSet interface {
	Contains(key EntityKey) bool
	Len() int
	Keys() []EntityKey
}

var (
	_ box2d.B2ContactListenerInterface = (*ContactTracker)(nil)
	_ TouchedSet                       = (*ContactTracker)(nil)
)

// ContactTracker collects inter-agent contacts reported by the engine after
// each solve. It is only touched from inside Step and Export, which run on
// the same goroutine, so it carries no locking.
type ContactTracker struct {
	touched map[EntityKey]struct{}
	pairs   map[ContactPair]struct{}
}

func NewContactTracker() *ContactTracker {
	return &ContactTracker{
		touched: make(map[EntityKey]struct{}),
		pairs:   make(map[ContactPair]struct{}),
	}
}

func (t *ContactTracker) BeginContact(box2d.B2ContactInterface) {}

func (t *ContactTracker) EndContact(box2d.B2ContactInterface) {}

func (t *ContactTracker) PreSolve(box2d.B2ContactInterface, box2d.B2Manifold) {}

func (t *ContactTracker) PostSolve(contact box2d.B2ContactInterface, _ *box2d.B2ContactImpulse) {
	a, okA := keyOf(contact.GetFixtureA().GetUserData())
	b, okB := keyOf(contact.GetFixtureB().GetUserData())
	if !okA || !okB {
		return
	}
	t.Record(a, b)
}

// Record adds both sides of a contact, reduced to segment granularity.
// Contacts within one agent are ignored. It reports whether the contact
// was recorded.
func (t *ContactTracker) Record(a, b EntityKey) bool {
	if a.Agent == b.Agent {
		return false
	}
	a, b = a.Stripped(), b.Stripped()
	t.touched[a] = struct{}{}
	t.touched[b] = struct{}{}
	t.pairs[newContactPair(a, b)] = struct{}{}
	return true
}

func (t *ContactTracker) Contains(key EntityKey) bool {
	_, ok := t.touched[key.Stripped()]
	return ok
}

func (t *ContactTracker) Len() int { return len(t.touched) }

// Keys returns the touched keys in order.
func (t *ContactTracker) Keys() []EntityKey {
	out := make([]EntityKey, 0, len(t.touched))
	for k := range t.touched {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Drain returns the distinct pairs seen since the last drain, in order, and
// empties the tracker.
func (t *ContactTracker) Drain() []ContactPair {
	out := make([]ContactPair, 0, len(t.pairs))
	for p := range t.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A.Less(out[j].A)
		}
		return out[i].B.Less(out[j].B)
	})
	clear(t.touched)
	clear(t.pairs)
	return out
}
