// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command terrain runs the terrain pass chain headlessly and writes the
// result as a PNG.
//
// Usage:
//
//	terrain [flags]
//
// With -watch, the settings file and every shader file it references are
// watched and the image is regenerated whenever one of them changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gogpu/terrain"
	"github.com/gogpu/terrain/config"
	"github.com/gogpu/terrain/display"
	"github.com/gogpu/terrain/internal/watch"
)

type options struct {
	config      string
	output      string
	frames      int
	size        uint
	seed        int64
	outW, outH  int
	zoom        float64
	panX, panY  float64
	watch       bool
	writeConfig bool
	dryRun      bool
	verbose     bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.config, "config", "settings.json", "settings file (defaults are used when missing)")
	flag.StringVar(&o.output, "output", "terrain.png", "output PNG file")
	flag.IntVar(&o.frames, "frames", 1, "frames to run before export")
	flag.UintVar(&o.size, "size", 0, "grid dimensions, overrides the settings (multiple of 64)")
	flag.Int64Var(&o.seed, "seed", -1, "noise seed, overrides the settings")
	flag.IntVar(&o.outW, "width", 0, "output width (0 keeps the grid size)")
	flag.IntVar(&o.outH, "height", 0, "output height (0 keeps the grid size)")
	flag.Float64Var(&o.zoom, "zoom", 1, "cells per output pixel")
	flag.Float64Var(&o.panX, "pan-x", 0, "horizontal camera offset in cells")
	flag.Float64Var(&o.panY, "pan-y", 0, "vertical camera offset in cells, up is positive")
	flag.BoolVar(&o.watch, "watch", false, "regenerate when the settings or shaders change")
	flag.BoolVar(&o.writeConfig, "write-config", false, "write the effective settings to -config and exit")
	flag.BoolVar(&o.dryRun, "dry-run", false, "use the noop GPU backend")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	terrain.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("terrain: %v", err)
	}
}

// loadSettings reads the settings file and applies flag overrides.
func loadSettings(o options) (config.Settings, error) {
	s, err := config.Load(o.config)
	if err != nil {
		return s, err
	}
	if o.size > 0 {
		s.Params.Dimensions = uint32(o.size) //nolint:gosec // validated below
	}
	if o.seed >= 0 {
		s.Params.NoiseSeed = uint32(o.seed) //nolint:gosec // user-chosen seed
	}
	return s, s.Validate()
}

func run(ctx context.Context, o options) error {
	s, err := loadSettings(o)
	if err != nil {
		return err
	}
	if o.writeConfig {
		if err := config.Save(o.config, s); err != nil {
			return err
		}
		log.Printf("settings written to %s", o.config)
		return nil
	}

	dir := filepath.Dir(o.config)
	cfg, err := s.EngineConfig(dir)
	if err != nil {
		return err
	}

	gpu, err := openDevice(o.dryRun)
	if err != nil {
		return err
	}
	defer gpu.Close()

	eng, err := terrain.NewEngine(gpu.device, gpu.queue, cfg, s.EngineOptions()...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := render(ctx, eng, o); err != nil {
		return err
	}
	if !o.watch {
		return nil
	}
	return watchLoop(ctx, eng, o, s)
}

// render runs the requested frames and exports the result.
func render(ctx context.Context, eng *terrain.Engine, o options) error {
	start := time.Now()
	frames := max(o.frames, 1)
	for i := range frames {
		stats, err := eng.Frame(ctx, i == 0)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if len(stats.Skipped) == 0 && !stats.ExtractSkipped {
			continue
		}
		// Pipelines compile in the background. Wait for them and rerun so
		// the export never shows a partial chain.
		eng.Builder().Wait()
		stats, err = eng.Frame(ctx, true)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if len(stats.Skipped) > 0 || stats.ExtractSkipped {
			terrain.Logger().Warn("passes skipped", "frame", i, "passes", stats.Skipped, "extract", stats.ExtractSkipped)
		}
	}

	pixels, err := eng.ReadResult(ctx)
	if err != nil {
		return err
	}
	w, h := eng.Dimensions()
	img, err := display.Image(pixels, int(w), int(h))
	if err != nil {
		return err
	}

	v := display.NewViewport()
	v.Scale, v.X, v.Y = o.zoom, o.panX, o.panY
	if err := display.SavePNG(o.output, img, v, o.outW, o.outH); err != nil {
		return err
	}
	log.Printf("terrain %dx%d written to %s in %v", w, h, o.output, time.Since(start).Round(time.Millisecond))
	return nil
}

// watchLoop regenerates the image whenever the settings or a referenced
// shader changes. A rejected reload keeps the previous configuration.
func watchLoop(ctx context.Context, eng *terrain.Engine, o options, s config.Settings) error {
	w, err := watch.New(0)
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(o.config)
	files := append([]string{o.config}, s.ShaderFiles(dir)...)
	if err := w.Set(files); err != nil {
		return err
	}
	log.Printf("watching %d files, press Ctrl+C to stop", len(files))

	return w.Run(ctx, func(changed []string) {
		terrain.Logger().Info("reloading", "files", changed)
		next, err := loadSettings(o)
		if err != nil {
			terrain.Logger().Warn("reload rejected", "err", err)
			return
		}
		cfg, err := next.EngineConfig(dir)
		if err != nil {
			terrain.Logger().Warn("reload rejected", "err", err)
			return
		}
		if err := eng.Configure(cfg); err != nil {
			terrain.Logger().Warn("reload rejected", "err", err)
			return
		}
		if err := w.Set(append([]string{o.config}, next.ShaderFiles(dir)...)); err != nil {
			terrain.Logger().Warn("watch update failed", "err", err)
		}
		if err := render(ctx, eng, o); err != nil {
			terrain.Logger().Warn("render failed", "err", err)
		}
	})
}
