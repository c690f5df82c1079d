package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/config"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/logging"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newCLIApp(cfg, logger).Run(os.Args); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newCLIApp(cfg config.Config, logger *zap.Logger) *cli.App {
	return &cli.App{
		Name:  "educacion-api",
		Usage: "Document and workflow API for the Secretaría de Educación",
		Commands: []*cli.Command{
			serveCmd(cfg, logger),
			migrateCmd(cfg, logger),
			areasCmd(),
		},
		Action: func(c *cli.Context) error {
			return serve(c.Context, cfg, logger)
		},
	}
}
