package physics

import (
	"math"
	"testing"

	"github.com/ByteArena/box2d"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/softbody/internal/core/events/bus"
	"github.com/zeusync/softbody/internal/core/models"
	"github.com/zeusync/softbody/internal/core/observability/log"
)

func TestRegisterCreatesBodiesAndJoints(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	spawn(t, s, w, chainAgent(1, models.Vec2{}), ballAgent(2, models.Vec2{X: 10}))

	assert.Equal(t, 4, s.BodyCount())
	assert.Equal(t, 2, s.JointCount())
	assert.Len(t, s.Joints(1), 2)
	assert.Empty(t, s.Joints(2))
	assert.True(t, s.Registered(1))
	assert.True(t, s.Registered(2))

	st := s.Stats()
	assert.Equal(t, 2, st.Agents)
	assert.Equal(t, 4, st.Bodies)
}

func TestRegisterTwiceFails(t *testing.T) {
	s := newTestSystem(t)
	a := ballAgent(1, models.Vec2{})
	require.NoError(t, s.Register(a))
	require.ErrorIs(t, s.Register(a), ErrAlreadyRegistered)
	assert.Equal(t, 1, s.BodyCount())
}

func TestRegisterRollsBackOnBadAttachment(t *testing.T) {
	s := newTestSystem(t)
	agent := chainAgent(1, models.Vec2{})
	agent.Segments[2].Attachment = &models.Attachment{Parent: 1, Point: 42}

	err := s.Register(agent)
	require.ErrorIs(t, err, ErrDanglingAttachment)
	assert.Zero(t, s.BodyCount())
	assert.Zero(t, s.JointCount())
	assert.False(t, s.Registered(1))
	_, ok := s.Body(SegmentKey(1, 0))
	assert.False(t, ok)

	// The id stays free for a corrected agent.
	require.NoError(t, s.Register(chainAgent(1, models.Vec2{})))
}

func TestUnregisterPurgesHandles(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	gone := chainAgent(1, models.Vec2{})
	spawn(t, s, w, gone, ballAgent(2, models.Vec2{X: 10}))

	require.NoError(t, s.Unregister(1))
	require.ErrorIs(t, s.Unregister(1), ErrNotRegistered)
	assert.Equal(t, 1, s.BodyCount())
	assert.Zero(t, s.JointCount())
	for i := uint8(0); i < 3; i++ {
		_, ok := s.Body(SegmentKey(1, i))
		assert.False(t, ok)
	}

	// The agent is still in the world model with an intent, but nothing may
	// move it or write into it any more.
	gone.SetIntent(0, models.Move(models.Vec2{X: 100}))
	before := *gone.Segments[0]
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Tick(w, dt))
	}
	if diff := cmp.Diff(before, *gone.Segments[0]); diff != "" {
		t.Fatalf("removed agent was touched (-before +after):\n%s", diff)
	}
}

func TestStaleHandlesAreSkipped(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	spawn(t, s, w, chainAgent(1, models.Vec2{}))

	w.Remove(1)
	require.NoError(t, s.Tick(w, dt))
	assert.Equal(t, 3, s.Stats().LastStale)
	assert.True(t, s.Registered(1), "the handle table may lag removal until Unregister")
	require.NoError(t, s.Unregister(1))
}

func TestStepRejectsBadDelta(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	for _, d := range []float64{0, -dt, math.NaN(), math.Inf(1)} {
		require.ErrorIs(t, s.Step(w, d), ErrInvalidStep)
	}
}

func TestChainFollowsPushedRoot(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	agent := chainAgent(1, models.Vec2{})
	spawn(t, s, w, agent)

	start := make([]models.Vec2, len(agent.Segments))
	for i, seg := range agent.Segments {
		start[i] = seg.Transform.Position
	}

	agent.SetIntent(0, models.Move(models.Vec2{X: 1}))
	require.NoError(t, s.Step(w, dt))
	s.Export(w)
	assert.Greater(t, agent.Segments[0].Transform.Position.X, start[0].X, "root moves along +x")

	// Keep pushing so the constraint has to drag the whole chain.
	agent.SetIntent(0, models.Move(models.Vec2{X: 10}))
	limit := math.Pi/6 + 3*math.Pi/180
	for i := 0; i < 120; i++ {
		require.NoError(t, s.Tick(w, dt))
		root, child := agent.Segments[0], agent.Segments[1]
		require.LessOrEqual(t, math.Abs(child.Transform.Angle-root.Transform.Angle), limit,
			"articulated joint stays within its limit at tick %d", i)
	}
	for i, seg := range agent.Segments {
		assert.Greater(t, seg.Transform.Position.X, start[i].X, "segment %d follows the root", i)
	}

	// Let the chain settle; the weld spring pulls back to the rest angle.
	agent.SetIntent(0, models.Idle())
	for i := 0; i < 240; i++ {
		require.NoError(t, s.Tick(w, dt))
	}
	child, grandchild := agent.Segments[1], agent.Segments[2]
	assert.InDelta(t, 0, grandchild.Transform.Angle-child.Transform.Angle, 0.05, "weld keeps the relative angle nearly fixed")

	for _, seg := range agent.Segments {
		assert.Equal(t, 1.0, seg.Transform.Scale, "export keeps the segment scale")
	}
}

func TestRunAwayIsOneImpulsePerTick(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	agent := ballAgent(1, models.Vec2{})
	spawn(t, s, w, agent)

	agent.SetIntent(0, models.RunAway(models.Vec2{Y: 1}))
	require.NoError(t, s.Step(w, dt))
	body, _ := s.Body(SegmentKey(1, 0))
	v := body.GetLinearVelocity()
	mass := body.GetMass()
	// Impulse / mass, reduced by one tick of linear damping.
	assert.InDelta(t, 1/mass/(1+dt*0.5), v.Y, 1e-9)
	assert.InDelta(t, 0, v.X, 1e-12)
}

func TestOverlappingAgentsFlagEachOther(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	a := ballAgent(1, models.Vec2{})
	b := ballAgent(2, models.Vec2{X: 1.5})
	far := ballAgent(3, models.Vec2{X: 50})
	spawn(t, s, w, a, b, far)

	require.NoError(t, s.Step(w, dt))
	assert.True(t, s.Touched().Contains(SegmentKey(1, 0)))
	assert.True(t, s.Touched().Contains(SegmentKey(2, 0)))
	s.Export(w)
	assert.Zero(t, s.Touched().Len(), "touched set is cleared by export")
	assert.Equal(t, 1, s.Stats().LastContacts)

	assert.True(t, a.Segments[0].Collided)
	assert.True(t, b.Segments[0].Collided)
	assert.False(t, far.Segments[0].Collided)

	body, _ := s.Body(SegmentKey(2, 0))
	p := body.GetPosition()
	body.SetTransform(box2d.MakeB2Vec2(p.X, p.Y+30), 0)
	require.NoError(t, s.Tick(w, dt))
	assert.False(t, a.Segments[0].Collided)
	assert.False(t, b.Segments[0].Collided)
	assert.Zero(t, s.Touched().Len())
}

func TestRestingAgentsStayFlagged(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	a := ballAgent(1, models.Vec2{})
	b := ballAgent(2, models.Vec2{X: 1.999})
	spawn(t, s, w, a, b)

	// Well past the point where a sleeping island would stop reporting.
	for tick := 0; tick < 120; tick++ {
		require.NoError(t, s.Tick(w, dt))
		require.True(t, a.Segments[0].Collided, "agent 1 at tick %d", tick)
		require.True(t, b.Segments[0].Collided, "agent 2 at tick %d", tick)
	}
	body, _ := s.Body(SegmentKey(1, 0))
	assert.True(t, body.IsAwake())
}

func TestSameAgentContactsAreNotRecorded(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	// Two unattached roots of one agent, overlapping.
	agent := models.NewAgent(1,
		ballAgent(1, models.Vec2{}).Segments[0],
		ballAgent(1, models.Vec2{X: 1}).Segments[0],
	)
	spawn(t, s, w, agent)

	require.NoError(t, s.Step(w, dt))
	assert.Zero(t, s.Touched().Len())
	s.Export(w)
	assert.False(t, agent.Segments[0].Collided)
	assert.False(t, agent.Segments[1].Collided)
	assert.Zero(t, s.Stats().LastContacts)
}

func TestStarAgentContactIsReducedToSegment(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	star := models.NewAgent(1, &models.Segment{
		Material:  flesh,
		Mesh:      models.NewStarMesh(1.5, 5, 0.5),
		Transform: models.Transform{Scale: 1},
	})
	spawn(t, s, w, star, ballAgent(2, models.Vec2{Y: 2}))

	require.NoError(t, s.Step(w, dt))
	keys := s.Touched().Keys()
	assert.Equal(t, []EntityKey{SegmentKey(1, 0), SegmentKey(2, 0)}, keys)
	s.Export(w)
	assert.True(t, star.Segments[0].Collided)
}

func TestIdenticalRunsProduceIdenticalDigests(t *testing.T) {
	run := func() uint64 {
		s := newTestSystem(t)
		w := models.NewWorld()
		a := chainAgent(1, models.Vec2{})
		spawn(t, s, w, a, ballAgent(2, models.Vec2{X: 2, Y: -2}))
		a.SetIntent(0, models.Move(models.Vec2{X: 10, Y: 3}))
		for i := 0; i < 30; i++ {
			require.NoError(t, s.Tick(w, dt))
		}
		return s.Digest()
	}
	assert.Equal(t, run(), run())
	assert.NotEqual(t, newTestSystem(t).Digest(), run())
}

func TestDropBelowKillsAgent(t *testing.T) {
	events := bus.New()
	var dropped []models.AgentID
	_, err := events.Subscribe(EventAgentDropped, func(e bus.Event) error {
		dropped = append(dropped, e.Data().(models.AgentID))
		return nil
	})
	require.NoError(t, err)

	s, err := New(DefaultConfig(), log.Nop(), events)
	require.NoError(t, err)
	s.DropBelow(-5)

	w := models.NewWorld()
	faller := ballAgent(1, models.Vec2{})
	spawn(t, s, w, faller, ballAgent(2, models.Vec2{X: 10}))
	faller.SetIntent(0, models.RunAway(models.Vec2{Y: -50}))

	for i := 0; i < 20 && s.Registered(1); i++ {
		require.NoError(t, s.Tick(w, dt))
	}
	assert.False(t, s.Registered(1))
	assert.True(t, s.Registered(2))
	_, ok := w.Agent(1)
	assert.False(t, ok)
	assert.Equal(t, []models.AgentID{1}, w.Killed())
	assert.Equal(t, []models.AgentID{1}, dropped)
	assert.Equal(t, 1, s.BodyCount())
}

func TestFollowMePullsBodies(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	agent := ballAgent(1, models.Vec2{})
	spawn(t, s, w, agent)

	s.FollowMe(models.Vec2{X: -10}, 5)
	for i := 0; i < 30; i++ {
		require.NoError(t, s.Tick(w, dt))
	}
	assert.Less(t, agent.Segments[0].Transform.Position.X, 0.0)

	s.FollowMe(models.Vec2{}, 0)
	assert.Nil(t, s.forces.attractor)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	events := bus.New()
	var seen []string
	for _, typ := range []string{EventAgentRegistered, EventAgentRemoved, EventContacts} {
		_, err := events.Subscribe(typ, func(e bus.Event) error {
			seen = append(seen, e.Type())
			return nil
		})
		require.NoError(t, err)
	}

	s, err := New(DefaultConfig(), log.Nop(), events)
	require.NoError(t, err)
	w := models.NewWorld()
	spawn(t, s, w, ballAgent(1, models.Vec2{}), ballAgent(2, models.Vec2{X: 1}))
	require.NoError(t, s.Tick(w, dt))
	require.NoError(t, s.Unregister(2))

	assert.Equal(t, []string{EventAgentRegistered, EventAgentRegistered, EventContacts, EventAgentRemoved}, seen)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VelocityIterations = 0
	_, err := New(cfg, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRetuneSwapsRuntimeSettings(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	spawn(t, s, w, ballAgent(1, models.Vec2{}))

	edge := 5.0
	cfg := DefaultConfig()
	cfg.DropEdge = &edge
	cfg.Attractor = &AttractorConfig{Target: models.Vec2{X: 3}, Magnitude: 2}
	require.NoError(t, s.Retune(cfg))
	edge = -100
	require.NotNil(t, s.bridge.dropEdge)
	assert.Equal(t, 5.0, *s.bridge.dropEdge)
	assert.Equal(t, 2.0, s.forces.attractor.Magnitude)

	require.NoError(t, s.Tick(w, dt))
	assert.False(t, s.Registered(1), "ball at y=0 is under an edge of 5")

	require.NoError(t, s.Retune(DefaultConfig()))
	assert.Nil(t, s.bridge.dropEdge)
	assert.Nil(t, s.forces.attractor)

	bad := DefaultConfig()
	bad.JointLimitDegrees = 0
	require.ErrorIs(t, s.Retune(bad), ErrInvalidConfig)
}

func TestDropEdgeChecksEverySegment(t *testing.T) {
	s := newTestSystem(t)
	s.DropBelow(-2.2)
	w := models.NewWorld()
	// Root at y=0 stays above the edge; the grandchild hangs at y=-2.5.
	spawn(t, s, w, chainAgent(1, models.Vec2{}))

	require.NoError(t, s.Tick(w, dt))
	assert.False(t, s.Registered(1))
	assert.Equal(t, []models.AgentID{1}, w.Killed())
	assert.Zero(t, s.BodyCount())
}
