package physics

import (
	"math"
	"testing"

	"github.com/ByteArena/box2d"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/softbody/internal/core/models"
)

func TestAssembleOneJointPerAttachedSegment(t *testing.T) {
	world := newTestWorld()
	cfg := DefaultConfig()
	results, err := NewBodyBuilder(world, cfg).Build(chainAgent(1, models.Vec2{}))
	require.NoError(t, err)

	joints, err := NewJointAssembler(world, cfg).Assemble(results)
	require.NoError(t, err)
	require.Len(t, joints, 2)
	assert.Equal(t, 2, world.GetJointCount())

	rev, ok := joints[0].(*box2d.B2RevoluteJoint)
	require.True(t, ok, "articulated segment must use a revolute joint")
	assert.Same(t, results[0].Body, rev.GetBodyA())
	assert.Same(t, results[1].Body, rev.GetBodyB())
	assert.False(t, rev.IsCollideConnected())
	assert.True(t, rev.IsLimitEnabled())
	assert.InDelta(t, -math.Pi/6, rev.GetLowerLimit(), 1e-12)
	assert.InDelta(t, math.Pi/6, rev.GetUpperLimit(), 1e-12)

	weld, ok := joints[1].(*box2d.B2WeldJoint)
	require.True(t, ok, "rigid segment must use a weld joint")
	assert.Same(t, results[1].Body, weld.GetBodyA())
	assert.Same(t, results[2].Body, weld.GetBodyB())
	assert.False(t, weld.IsCollideConnected())
	assert.InDelta(t, 5, weld.GetFrequency(), 1e-12)
	assert.InDelta(t, 0.9, weld.GetDampingRatio(), 1e-12)
}

func TestAssembleAnchorsAndReferenceAngle(t *testing.T) {
	world := newTestWorld()
	cfg := DefaultConfig()
	agent := models.NewAgent(1,
		&models.Segment{Material: flesh, Mesh: models.NewBallMesh(2, 4), Transform: models.Transform{Angle: 0.25}},
		&models.Segment{
			Material:   flesh,
			Mesh:       models.NewTriangleMesh(0.5),
			Transform:  models.Transform{Position: models.Vec2{Y: 3}, Angle: 1},
			Attachment: &models.Attachment{Parent: 0, Point: 1},
			Joint:      models.JointArticulated,
		},
	)
	results, err := NewBodyBuilder(world, cfg).Build(agent)
	require.NoError(t, err)
	joints, err := NewJointAssembler(world, cfg).Assemble(results)
	require.NoError(t, err)

	rev := joints[0].(*box2d.B2RevoluteJoint)
	assert.InDelta(t, 0.75, rev.GetReferenceAngle(), 1e-12)

	// Ball vertex 1 of a square outline is (0, 1); times radius 2.
	a := rev.GetLocalAnchorA()
	assert.InDelta(t, 0, a.X, 1e-9)
	assert.InDelta(t, 2, a.Y, 1e-9)
	// Triangle vertex 0 is the top (0, 1); times radius 0.5.
	b := rev.GetLocalAnchorB()
	assert.InDelta(t, 0, b.X, 1e-9)
	assert.InDelta(t, 0.5, b.Y, 1e-9)
}

func TestAssembleRootsGetNoJoint(t *testing.T) {
	world := newTestWorld()
	cfg := DefaultConfig()
	agent := models.NewAgent(1,
		&models.Segment{Material: flesh, Mesh: models.NewBallMesh(1, 8)},
		&models.Segment{Material: flesh, Mesh: models.NewBallMesh(1, 8), Transform: models.Transform{Position: models.Vec2{X: 5}}},
	)
	results, err := NewBodyBuilder(world, cfg).Build(agent)
	require.NoError(t, err)
	joints, err := NewJointAssembler(world, cfg).Assemble(results)
	require.NoError(t, err)
	assert.Empty(t, joints)
	assert.Zero(t, world.GetJointCount())
}

func TestAssembleRejectsDanglingAttachments(t *testing.T) {
	cases := map[string]models.Attachment{
		"self":          {Parent: 1, Point: 0},
		"forward":       {Parent: 2, Point: 0},
		"negative":      {Parent: -1, Point: 0},
		"missing point": {Parent: 0, Point: 8},
	}
	for name, att := range cases {
		t.Run(name, func(t *testing.T) {
			world := newTestWorld()
			cfg := DefaultConfig()
			agent := chainAgent(1, models.Vec2{})
			a := att
			agent.Segments[1].Attachment = &a

			results, err := NewBodyBuilder(world, cfg).Build(agent)
			require.NoError(t, err)
			_, err = NewJointAssembler(world, cfg).Assemble(results)
			require.ErrorIs(t, err, ErrDanglingAttachment)
			assert.Zero(t, world.GetJointCount(), "no joint may be created before validation passes")
		})
	}
}

func TestRevoluteLimitHoldsUnderTorque(t *testing.T) {
	s := newTestSystem(t)
	w := models.NewWorld()
	agent := chainAgent(1, models.Vec2{})
	spawn(t, s, w, agent)

	rev := s.Joints(1)[0].(*box2d.B2RevoluteJoint)
	child, ok := s.Body(SegmentKey(1, 1))
	require.True(t, ok)

	limit := math.Pi/6 + 3*math.Pi/180
	for _, torque := range []float64{20, -20} {
		for i := 0; i < 180; i++ {
			child.ApplyTorque(torque, true)
			require.NoError(t, s.Tick(w, dt))
		}
		assert.LessOrEqual(t, math.Abs(rev.GetJointAngle()), limit, "torque %g", torque)
	}
}
