//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/softbody/internal/core/observability/log"
	"github.com/zeusync/softbody/internal/core/systems/physics"
)

func InitializeSimulation(level log.Level, cfg physics.Config, loop Loop) (*Simulation, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
