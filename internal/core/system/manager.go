package system

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/softbody/internal/core/models"
	"github.com/zeusync/softbody/internal/core/observability/log"
)

var (
	ErrDuplicateSystem = errors.New("system already registered")
	ErrUnknownAgent    = errors.New("unknown agent")
)

// System is a simulation stage driven by the Manager. Register and
// Unregister bracket an agent's lifetime; Step and Export run once per tick
// in that order.
type System interface {
	Name() string
	Register(agent *models.Agent) error
	Unregister(id models.AgentID) error
	Registered(id models.AgentID) bool
	Step(state models.WorldState, dt float64) error
	Export(world models.WorldModel)
}

// ManagerMetrics provides system manager statistics
type ManagerMetrics struct {
	RegisteredSystems uint32
	Ticks             uint64
	DroppedTime       time.Duration
	TotalUpdateTime   time.Duration
	AverageUpdateTime time.Duration
	LastUpdateTime    time.Time
}

// Manager owns the world model and runs its systems on a fixed tick. It is
// the single writer of every system: spawns, despawns and ticks are
// serialized by one mutex so no registration lands in the middle of a tick.
type Manager struct {
	mu          sync.Mutex
	log         log.Log
	world       *models.World
	systems     []System
	fixedDelta  float64
	maxSteps    int
	accumulator time.Duration
	metrics     ManagerMetrics
}

// NewManager creates a manager stepping world by fixedDelta seconds. Update
// runs at most maxSteps ticks per call; excess time is dropped.
func NewManager(world *models.World, fixedDelta float64, maxSteps int, logger log.Log) *Manager {
	if maxSteps < 1 {
		maxSteps = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		log:        logger.With(log.String("component", "system_manager")),
		world:      world,
		fixedDelta: fixedDelta,
		maxSteps:   maxSteps,
	}
}

func (m *Manager) RegisterSystem(s System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.systems {
		if cur.Name() == s.Name() {
			return fmt.Errorf("register system %q: %w", s.Name(), ErrDuplicateSystem)
		}
	}
	m.systems = append(m.systems, s)
	m.metrics.RegisteredSystems = uint32(len(m.systems))
	return nil
}

// Spawn adds the agent to the world and registers it with every system. If
// any system refuses it, the systems that accepted it are rolled back and
// the agent is removed from the world.
func (m *Manager) Spawn(agent *models.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.world.Add(agent); err != nil {
		return err
	}
	for i, s := range m.systems {
		if err := s.Register(agent); err != nil {
			for _, done := range m.systems[:i] {
				_ = done.Unregister(agent.ID)
			}
			m.world.Remove(agent.ID)
			return fmt.Errorf("spawn agent %d in %s: %w", agent.ID, s.Name(), err)
		}
	}
	return nil
}

// Despawn removes the agent from the world and from every system.
func (m *Manager) Despawn(id models.AgentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.world.Remove(id) {
		return fmt.Errorf("despawn agent %d: %w", id, ErrUnknownAgent)
	}
	var all error
	for _, s := range m.systems {
		if s.Registered(id) {
			all = errors.Join(all, s.Unregister(id))
		}
	}
	return all
}

// View runs fn with exclusive access to the world, for reading poses or
// writing intents between ticks.
func (m *Manager) View(fn func(world *models.World)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.world)
}

// FixedUpdate runs exactly one tick.
func (m *Manager) FixedUpdate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickLocked()
}

// Update advances by elapsed wall time in fixed ticks and returns how many
// ticks ran.
func (m *Manager) Update(elapsed time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	step := time.Duration(m.fixedDelta * float64(time.Second))
	m.accumulator += elapsed
	ticks := 0
	for m.accumulator >= step && ticks < m.maxSteps {
		if err := m.tickLocked(); err != nil {
			return ticks, err
		}
		m.accumulator -= step
		ticks++
	}
	if m.accumulator >= step {
		m.metrics.DroppedTime += m.accumulator
		m.log.Warn("tick budget exceeded", log.Duration("dropped", m.accumulator))
		m.accumulator = 0
	}
	return ticks, nil
}

func (m *Manager) tickLocked() error {
	start := time.Now()
	for _, s := range m.systems {
		if err := s.Step(m.world, m.fixedDelta); err != nil {
			return fmt.Errorf("step %s: %w", s.Name(), err)
		}
	}
	for _, s := range m.systems {
		s.Export(m.world)
	}
	// Agents killed during export leave every system that still holds them.
	for _, id := range m.world.Killed() {
		for _, s := range m.systems {
			if s.Registered(id) {
				if err := s.Unregister(id); err != nil {
					m.log.Warn("unregister killed agent", log.Uint64("agent", uint64(id)), log.Error(err))
				}
			}
		}
	}

	d := time.Since(start)
	m.metrics.Ticks++
	m.metrics.TotalUpdateTime += d
	m.metrics.AverageUpdateTime = m.metrics.TotalUpdateTime / time.Duration(m.metrics.Ticks)
	m.metrics.LastUpdateTime = start
	return nil
}

func (m *Manager) GetMetrics() ManagerMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

func (m *Manager) ListSystems() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.systems))
	for i, s := range m.systems {
		names[i] = s.Name()
	}
	return names
}
