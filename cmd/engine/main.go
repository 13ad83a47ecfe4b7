package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .toml config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, cleanup, err := injector.InitializeEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := log.Provide()
	runErr := e.Run(ctx)
	if err := e.Close(); err != nil {
		logger.Error("Shutdown failed", log.Error(err))
		return err
	}
	return runErr
}
