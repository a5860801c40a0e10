package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zeusync/softbody/internal/core/models"
	"github.com/zeusync/softbody/internal/core/observability/log"
	"github.com/zeusync/softbody/internal/injector"
)

// Editors often write a file in several steps.
const reloadDebounce = 250 * time.Millisecond

// watchConfig reloads the physics config when the file changes and retunes
// the running system. The directory is watched so renames by editors are
// seen too.
func watchConfig(ctx context.Context, path string, sim *injector.Simulation, logger log.Log) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err = watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching config", log.String("path", target))

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", log.Error(err))
		case <-timer.C:
			reload(target, sim, logger)
		}
	}
}

func reload(path string, sim *injector.Simulation, logger log.Log) {
	cfg, err := loadConfig(path)
	if err != nil {
		logger.Warn("config reload rejected", log.String("path", path), log.Error(err))
		return
	}
	sim.Manager.View(func(*models.World) {
		err = sim.Physics.Retune(cfg)
	})
	if err != nil {
		logger.Warn("config reload rejected", log.String("path", path), log.Error(err))
	}
}
