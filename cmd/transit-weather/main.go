package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/transit-weather-analysis/internal/api/http"
	"github.com/i474232898/transit-weather-analysis/internal/app"
	"github.com/i474232898/transit-weather-analysis/internal/config"
	"github.com/i474232898/transit-weather-analysis/internal/log"
	"github.com/i474232898/transit-weather-analysis/internal/scheduler"
)

const usage = `usage: transit-weather <command>

commands:
  merge      pair source files and write merged artifacts
  summarize  aggregate merged artifacts into the summary table
  collect    fetch one weather and departure snapshot
  serve      run the scheduler and HTTP API
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := log.Init(cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(cfg, log.Logger())
	if err != nil {
		log.Errorf("failed to build app: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var code int
	switch cmd := flag.Arg(0); cmd {
	case "merge":
		code = runMerge(ctx, a)
	case "summarize":
		code = runSummarize(ctx, a)
	case "collect":
		code = runCollect(ctx, a)
	case "serve":
		code = runServe(ctx, a)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		code = 2
	}

	stop()
	log.Sync()
	os.Exit(code)
}

func runMerge(ctx context.Context, a *app.App) int {
	report, err := a.Merge(ctx)
	if err != nil {
		log.Errorw("batch merge aborted", "error", err)
		return 1
	}

	fmt.Printf("run %s: %d attempted, %d merged, %d skipped\n",
		report.RunID, report.Attempted, report.Succeeded, len(report.Skipped))
	for _, out := range report.Outputs {
		fmt.Printf("  wrote %s\n", out)
	}
	for _, s := range report.Skipped {
		fmt.Printf("  skipped %s (%s): %v\n", s.Day, s.Reason, s.Err)
	}

	if !report.OK() {
		return 1
	}
	return 0
}

func runSummarize(ctx context.Context, a *app.App) int {
	sums, err := a.Summarize(ctx)
	if err != nil {
		log.Errorw("summary failed", "error", err)
		return 1
	}
	fmt.Printf("wrote %d summaries to %s\n", len(sums), a.Aggregator.Output())
	return 0
}

func runCollect(ctx context.Context, a *app.App) int {
	if err := a.Collect(ctx); err != nil {
		log.Errorw("collection failed", "error", err)
		return 1
	}
	return 0
}

func runServe(ctx context.Context, a *app.App) int {
	cfg := a.Config
	a.Load()

	loc, _ := cfg.Location()
	sched := scheduler.New(loc, cfg.CollectAt, cfg.MergeAt, a.Collect, a.Daily, log.Logger())
	if err := sched.Start(); err != nil {
		log.Errorw("failed to start scheduler", "error", err)
		return 1
	}
	defer sched.Stop()

	server := fiber.New(fiber.Config{
		AppName:               "transit-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "transit-weather",
		})
	})

	httpapi.RegisterRoutes(server, httpapi.Deps{
		Summaries: a.Summaries,
		Merged:    a.Merged,
		Predictor: a.Predictor,
		Metrics:   a.Metrics,
	})

	go func() {
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()
	log.Infow("serving", "port", cfg.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
		return 1
	}
	return 0
}
