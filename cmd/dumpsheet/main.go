package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/petercsiba/dumpsheet/config"
	"github.com/petercsiba/dumpsheet/internal/app"
	"github.com/petercsiba/dumpsheet/internal/cli"
	"github.com/petercsiba/dumpsheet/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; production settings come from the
	// environment or the config file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	deps := &cli.Dependencies{
		App:    application,
		Config: cfg,
	}

	return cli.NewRootCmd(deps).Execute()
}
