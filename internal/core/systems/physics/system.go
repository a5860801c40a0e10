package physics

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/softbody/internal/core/events/bus"
	"github.com/zeusync/softbody/internal/core/models"
	"github.com/zeusync/softbody/internal/core/observability/log"
)

// Event types published on the bus.
const (
	EventAgentRegistered = "physics.agent.registered"
	EventAgentRemoved    = "physics.agent.removed"
	EventAgentDropped    = "physics.agent.dropped"
	EventContacts        = "physics.contacts"

	eventSource = "physics"
)

// Stats is a snapshot of the system counters.
type Stats struct {
	Ticks        uint64
	Agents       int
	Bodies       int
	Joints       int
	LastContacts int
	LastStale    int
}

type registration struct {
	segments int
	joints   []box2d.B2JointInterface
}

// System owns the engine world and runs one tick as: apply intents, advance
// the solver, export poses and contact flags, clear the touched set.
//
// System is not safe for concurrent use. Register, Unregister, Step and
// Export must come from a single writer and never overlap.
type System struct {
	cfg    Config
	log    log.Log
	events bus.EventBus

	world    *box2d.B2World
	builder  *BodyBuilder
	joints   *JointAssembler
	contacts *ContactTracker
	forces   *ForceApplier
	bridge   *SyncBridge

	handles *handleTable
	agents  map[models.AgentID]*registration
	stats   Stats
}

// New creates a system with its own zero-gravity world. events may be nil.
func New(cfg Config, logger log.Log, events bus.EventBus) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}

	w := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	world := &w

	s := &System{
		cfg:      cfg,
		log:      logger.With(log.String("system", "physics")),
		events:   events,
		world:    world,
		builder:  NewBodyBuilder(world, cfg),
		joints:   NewJointAssembler(world, cfg),
		contacts: NewContactTracker(),
		forces:   NewForceApplier(cfg),
		bridge:   NewSyncBridge(cfg),
		handles:  newHandleTable(),
		agents:   make(map[models.AgentID]*registration),
	}
	world.SetContactListener(s.contacts)
	return s, nil
}

// Name identifies the system in a manager.
func (s *System) Name() string { return "physics" }

// Register builds bodies for every segment of the agent, then the joints
// between them, and only then adds the bodies to the handle table. On error
// nothing of the agent remains in the engine.
func (s *System) Register(agent *models.Agent) error {
	if agent == nil {
		return fmt.Errorf("register: %w: nil agent", ErrInvalidMesh)
	}
	if _, exists := s.agents[agent.ID]; exists {
		return fmt.Errorf("register agent %d: %w", agent.ID, ErrAlreadyRegistered)
	}

	results, err := s.builder.Build(agent)
	if err != nil {
		s.log.Error("agent rejected", log.Uint64("agent", uint64(agent.ID)), log.Error(err))
		return fmt.Errorf("register agent %d: %w", agent.ID, err)
	}
	joints, err := s.joints.Assemble(results)
	if err != nil {
		for _, r := range results {
			s.world.DestroyBody(r.Body)
		}
		s.log.Error("agent rejected", log.Uint64("agent", uint64(agent.ID)), log.Error(err))
		return fmt.Errorf("register agent %d: %w", agent.ID, err)
	}

	fixtures := 0
	for _, r := range results {
		s.handles.insert(r.Key, r.Body)
		fixtures += r.Fixtures
	}
	s.agents[agent.ID] = &registration{segments: len(results), joints: joints}

	s.log.Info("agent registered",
		log.Uint64("agent", uint64(agent.ID)),
		log.Int("segments", len(results)),
		log.Int("fixtures", fixtures),
		log.Int("joints", len(joints)),
	)
	s.publish(EventAgentRegistered, agent.ID)
	return nil
}

// Unregister destroys the agent's bodies and joints and purges its handles.
func (s *System) Unregister(id models.AgentID) error {
	if _, ok := s.agents[id]; !ok {
		return fmt.Errorf("unregister agent %d: %w", id, ErrNotRegistered)
	}
	s.remove(id)
	s.log.Info("agent removed", log.Uint64("agent", uint64(id)))
	s.publish(EventAgentRemoved, id)
	return nil
}

func (s *System) remove(id models.AgentID) {
	// Destroying a body also destroys the joints attached to it.
	for _, body := range s.handles.purge(id) {
		s.world.DestroyBody(body)
	}
	delete(s.agents, id)
}

// Step applies intents read from state and advances the world by dt.
func (s *System) Step(state models.WorldState, dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("step: %w: dt=%g", ErrInvalidStep, dt)
	}
	applied := s.forces.Apply(state, s.handles)
	if applied.Stale > 0 {
		s.log.Debug("skipped stale handles", log.Int("count", applied.Stale))
	}
	s.world.Step(dt, s.cfg.VelocityIterations, s.cfg.PositionIterations)
	s.stats.Ticks++
	s.stats.LastStale = applied.Stale
	return nil
}

// Export writes the result of the last Step into world and clears the
// touched set. Agents killed by the drop edge are unregistered.
func (s *System) Export(world models.WorldModel) {
	res := s.bridge.Export(world, s.handles, s.contacts)
	if res.Stale > 0 {
		s.log.Debug("skipped stale segments", log.Int("count", res.Stale))
	}
	pairs := s.contacts.Drain()
	s.stats.LastContacts = len(pairs)
	if len(pairs) > 0 {
		s.publishData(EventContacts, pairs)
	}
	for _, id := range res.Dropped {
		s.remove(id)
		s.log.Info("agent dropped", log.Uint64("agent", uint64(id)))
		s.publish(EventAgentDropped, id)
	}
}

// Tick runs Step followed by Export on the same world.
func (s *System) Tick(world models.WorldModel, dt float64) error {
	if err := s.Step(world, dt); err != nil {
		return err
	}
	s.Export(world)
	return nil
}

// FollowMe sets the attractor target. A zero magnitude disables it.
func (s *System) FollowMe(target models.Vec2, magnitude float64) {
	s.forces.Follow(target, magnitude)
}

// DropBelow kills agents that fall under edge on export.
func (s *System) DropBelow(edge float64) {
	s.bridge.DropBelow(&edge)
}

// Retune applies the runtime parts of cfg, the attractor and the drop edge.
// Solver, damping and joint settings stay as given to New.
func (s *System) Retune(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a := cfg.Attractor; a != nil {
		s.forces.Follow(a.Target, a.Magnitude)
	} else {
		s.forces.Follow(models.Vec2{}, 0)
	}
	var edge *float64
	if cfg.DropEdge != nil {
		e := *cfg.DropEdge
		edge = &e
	}
	s.bridge.DropBelow(edge)
	s.cfg.Attractor, s.cfg.DropEdge = cfg.Attractor, edge
	s.log.Info("physics retuned",
		log.Bool("attractor", cfg.Attractor != nil),
		log.Bool("drop_edge", edge != nil),
	)
	return nil
}

// Registered reports whether the agent has live bodies.
func (s *System) Registered(id models.AgentID) bool {
	_, ok := s.agents[id]
	return ok
}

// Touched exposes the contacts accumulated since the last export.
func (s *System) Touched() TouchedSet { return s.contacts }

func (s *System) BodyCount() int  { return s.world.GetBodyCount() }
func (s *System) JointCount() int { return s.world.GetJointCount() }

// Joints returns the joints created for the agent at registration.
func (s *System) Joints(id models.AgentID) []box2d.B2JointInterface {
	if r, ok := s.agents[id]; ok {
		return r.joints
	}
	return nil
}

// Body returns the body of a segment.
func (s *System) Body(key EntityKey) (*box2d.B2Body, bool) {
	return s.handles.get(key)
}

// Pose returns the simulated position and angle of a segment.
func (s *System) Pose(key EntityKey) (models.Vec2, float64, bool) {
	b, ok := s.handles.get(key)
	if !ok {
		return models.Vec2{}, 0, false
	}
	return fromB2(b.GetPosition()), b.GetAngle(), true
}

func (s *System) Stats() Stats {
	st := s.stats
	st.Agents = len(s.agents)
	st.Bodies = s.BodyCount()
	st.Joints = s.JointCount()
	return st
}

// Digest hashes the pose and velocity of every body in key order. Two
// systems fed the same agents and intents produce the same digest.
func (s *System) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}
	s.handles.each(func(key EntityKey, body *box2d.B2Body) {
		binary.LittleEndian.PutUint64(buf[:], uint64(key.Agent))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte{key.Segment})
		p := body.GetPosition()
		v := body.GetLinearVelocity()
		put(p.X)
		put(p.Y)
		put(body.GetAngle())
		put(v.X)
		put(v.Y)
		put(body.GetAngularVelocity())
	})
	return h.Sum64()
}

func (s *System) publish(eventType string, id models.AgentID) {
	s.publishData(eventType, id)
}

func (s *System) publishData(eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(bus.NewEvent(eventType, eventSource, data)); err != nil {
		s.log.Warn("event handler failed", log.String("event", eventType), log.Error(err))
	}
}
