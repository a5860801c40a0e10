package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/softbody/internal/core/events/bus"
	"github.com/zeusync/softbody/internal/core/models"
	"github.com/zeusync/softbody/internal/core/observability/log"
	"github.com/zeusync/softbody/internal/core/systems/physics"
	"github.com/zeusync/softbody/internal/injector"
)

var errTickLimit = errors.New("tick limit reached")

func runSimulation(cmd *cobra.Command, _ []string) error {
	level, ok := log.ParseLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	blueprints, err := loadBlueprints(blueprintsPath)
	if err != nil {
		return err
	}

	sim, err := injector.InitializeSimulation(level, cfg, injector.Loop{Delta: delta, MaxSteps: maxSteps})
	if err != nil {
		return err
	}
	logger := sim.Log.With(log.String("component", "server"))

	if _, err = sim.Events.Subscribe(physics.EventAgentDropped, func(e bus.Event) error {
		logger.Info("agent fell off the edge", log.Any("agent", e.Data()))
		return nil
	}); err != nil {
		return err
	}

	spawned, err := spawnAll(sim, blueprints)
	if err != nil {
		logger.Error("spawn failed", log.Error(err))
		return err
	}
	logger.Info("simulation starting",
		log.Int("agents", spawned),
		log.Float64("dt", delta),
		log.Uint64("ticks", ticks),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tickLoop(ctx, sim) })
	g.Go(func() error { return statsLoop(ctx, sim, logger) })
	if watch && configPath != "" {
		g.Go(func() error { return watchConfig(ctx, configPath, sim, logger) })
	}

	err = g.Wait()
	st := sim.Physics.Stats()
	logger.Info("simulation stopped",
		log.Uint64("ticks", st.Ticks),
		log.Int("agents", st.Agents),
		log.Uint64("digest", sim.Physics.Digest()),
	)
	if errors.Is(err, errTickLimit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadConfig(path string) (physics.Config, error) {
	if path == "" {
		return physics.DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return physics.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return physics.LoadConfig(f)
}

func loadBlueprints(path string) ([]models.Blueprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blueprints: %w", err)
	}
	defer f.Close()
	return models.LoadBlueprints(f)
}

// spawnAll places copies of every blueprint along the x axis, centred on
// the origin, and points their root segments at it.
func spawnAll(sim *injector.Simulation, blueprints []models.Blueprint) (int, error) {
	total := len(blueprints) * copies
	id := models.AgentID(1)
	for _, bp := range blueprints {
		for n := 0; n < copies; n++ {
			x := (float64(id-1) - float64(total-1)/2) * spacing
			agent, err := bp.Spawn(id, models.Vec2{X: x})
			if err != nil {
				return 0, err
			}
			if x != 0 {
				dir := -math.Copysign(1, x)
				agent.SetIntent(0, models.Move(models.Vec2{X: dir * push}))
			}
			if err = sim.Manager.Spawn(agent); err != nil {
				return 0, err
			}
			id++
		}
	}
	return total, nil
}

func tickLoop(ctx context.Context, sim *injector.Simulation) error {
	ticker := time.NewTicker(time.Duration(delta * float64(time.Second)))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := sim.Manager.Update(now.Sub(last)); err != nil {
				return err
			}
			last = now
			if ticks > 0 && sim.Manager.GetMetrics().Ticks >= ticks {
				return errTickLimit
			}
		}
	}
}

func statsLoop(ctx context.Context, sim *injector.Simulation, logger log.Log) error {
	if statsEvery <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(statsEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Physics is only safe under the manager lock.
			var st physics.Stats
			sim.Manager.View(func(*models.World) { st = sim.Physics.Stats() })
			m := sim.Manager.GetMetrics()
			logger.Info("tick stats",
				log.Uint64("ticks", st.Ticks),
				log.Int("agents", st.Agents),
				log.Int("bodies", st.Bodies),
				log.Int("joints", st.Joints),
				log.Int("contacts", st.LastContacts),
				log.Duration("avg_tick", m.AverageUpdateTime),
				log.Duration("dropped", m.DroppedTime),
			)
		}
	}
}
