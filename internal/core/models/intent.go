package models

// IntentKind is the motion an AI decided for a segment.
type IntentKind uint8

const (
	IntentIdle IntentKind = iota
	// IntentMove pushes the segment with a continuous force.
	IntentMove
	// IntentRunAway kicks the segment with a single impulse.
	IntentRunAway
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move"
	case IntentRunAway:
		return "run_away"
	default:
		return "idle"
	}
}

// Intent is consumed by the physics step once per tick.
type Intent struct {
	Kind   IntentKind
	Vector Vec2
}

func Idle() Intent                { return Intent{Kind: IntentIdle} }
func Move(force Vec2) Intent      { return Intent{Kind: IntentMove, Vector: force} }
func RunAway(impulse Vec2) Intent { return Intent{Kind: IntentRunAway, Vector: impulse} }
