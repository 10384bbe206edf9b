// Command cscheck cross-validates the compute kernels between a device and
// the CPU task-launch runtime.
//
// It runs the selected tests repeatedly and stops at the first mismatch,
// optionally writing a PNG report of the failing (or last) run:
//
//	cscheck -backend vulkan -size 4096 -runs 10 -report out.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/language"

	shadercompat "github.com/gogpu/shadercompat"
	"github.com/gogpu/shadercompat/gpu"
	"github.com/gogpu/shadercompat/internal/report"
)

type config struct {
	backend string
	size    int
	runs    int
	workers int
	mode    string
	test    string
	eps     float64
	maxDist float64
	report  string
	verbose bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.backend, "backend", gpu.Auto, "device backend: "+strings.Join(gpu.Backends(), ", "))
	flag.IntVar(&cfg.size, "size", 4096, "image width and height")
	flag.IntVar(&cfg.runs, "runs", 1, "number of cycles; each cycle runs every selected test")
	flag.IntVar(&cfg.workers, "workers", 0, "CPU workers per launch (0 = host cores)")
	flag.StringVar(&cfg.mode, "mode", "striped", "CPU lane coverage: striped or single-lane")
	flag.StringVar(&cfg.test, "test", "all", "test to run: basic, field or all")
	flag.Float64Var(&cfg.eps, "eps", shadercompat.DefaultTolerance, "distance-field tolerance")
	flag.Float64Var(&cfg.maxDist, "maxdist", shadercompat.DefaultMaxDistance, "distance-field clamp")
	flag.StringVar(&cfg.report, "report", "", "write a PNG report of the last run to this file")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	shadercompat.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("cscheck failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	mode, err := shadercompat.ParseLaunchMode(cfg.mode)
	if err != nil {
		return err
	}
	tests, err := selectTests(cfg.test)
	if err != nil {
		return err
	}

	dev, err := gpu.OpenConfig(gpu.Config{Backend: cfg.backend, Workers: cfg.workers})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		_ = dev.Close()
	}()

	app, err := shadercompat.NewApp(dev,
		shadercompat.WithSize(cfg.size, cfg.size),
		shadercompat.WithWorkers(cfg.workers),
		shadercompat.WithLaunchMode(mode),
		shadercompat.WithTolerance(float32(cfg.eps)),
		shadercompat.WithMaxDistance(float32(cfg.maxDist)),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	var last shadercompat.Result
	var failure error
cycles:
	for cycle := range cfg.runs {
		for _, test := range tests {
			res, err := test(app)
			if res.Test != "" {
				last = res
				fmt.Println(report.Summary(language.English, res))
			}
			if errors.Is(err, shadercompat.ErrMismatch) {
				logger.Error("halting automated runs", "cycle", cycle, "mismatch", app.Mismatch())
				failure = err
				break cycles
			}
			if err != nil {
				return err
			}
		}
	}

	if cfg.report != "" && last.Test != "" {
		if err := report.WritePNG(cfg.report, last); err != nil {
			return err
		}
		logger.Info("report written", "path", cfg.report)
	}
	return failure
}

type testFunc func(*shadercompat.App) (shadercompat.Result, error)

func selectTests(name string) ([]testFunc, error) {
	basic := (*shadercompat.App).RunBasicTest
	field := (*shadercompat.App).RunDistanceFieldTest
	switch name {
	case "basic":
		return []testFunc{basic}, nil
	case "field", shadercompat.TestDistanceField:
		return []testFunc{field}, nil
	case "all", "":
		return []testFunc{basic, field}, nil
	}
	return nil, fmt.Errorf("unknown test %q (want basic, field or all)", name)
}
