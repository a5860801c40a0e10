package injector

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/softbody/internal/core/events/bus"
	"github.com/zeusync/softbody/internal/core/models"
	"github.com/zeusync/softbody/internal/core/observability/log"
	"github.com/zeusync/softbody/internal/core/system"
	"github.com/zeusync/softbody/internal/core/systems/physics"
)

// Loop configures the fixed tick of the manager.
type Loop struct {
	Delta    float64
	MaxSteps int
}

// Simulation is a fully wired physics host.
type Simulation struct {
	Log     log.Log
	Events  bus.EventBus
	World   *models.World
	Physics *physics.System
	Manager *system.Manager
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	bus.New,
	models.NewWorld,
	physics.New,
	ProvideManager,
	wire.Struct(new(Simulation), "*"),
)

func ProvideLogger(level log.Level) *log.Logger {
	return log.New(level)
}

// ProvideManager creates the tick manager with the physics system attached.
func ProvideManager(world *models.World, sys *physics.System, logger log.Log, loop Loop) (*system.Manager, error) {
	if !(loop.Delta > 0) {
		return nil, fmt.Errorf("tick delta must be positive, got %g", loop.Delta)
	}
	m := system.NewManager(world, loop.Delta, loop.MaxSteps, logger)
	if err := m.RegisterSystem(sys); err != nil {
		return nil, err
	}
	return m, nil
}
