package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/area"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/config"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

func serveCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API (default)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: cfg.Addr, Usage: "Listen address"},
		},
		Action: func(c *cli.Context) error {
			cfg.Addr = c.String("addr")
			return serve(c.Context, cfg, logger)
		},
	}
}

func migrateCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and seed the area catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: cfg.MigrationsDir, Usage: "Migrations directory"},
			&cli.BoolFlag{Name: "dry-run", Usage: "List pending migrations without applying them"},
		},
		Action: func(c *cli.Context) error {
			db, err := store.OpenWithRetry(c.Context, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			if c.Bool("dry-run") {
				pending, err := store.PendingMigrations(c.Context, db, c.String("dir"))
				if err != nil {
					return err
				}
				for _, version := range pending {
					fmt.Println(version)
				}
				return nil
			}

			applied, err := store.ApplyMigrations(c.Context, db, c.String("dir"))
			if err != nil {
				return err
			}
			for _, version := range applied {
				logger.Info("migration applied", zap.String("version", version))
			}
			if err := store.NewPostgresStore(db).SeedAreas(c.Context, storeAreas(area.Default())); err != nil {
				return err
			}
			logger.Info("database up to date", zap.Int("applied", len(applied)))
			return nil
		},
	}
}

func areasCmd() *cli.Command {
	return &cli.Command{
		Name:  "areas",
		Usage: "Print the area catalog",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
		},
		Action: func(c *cli.Context) error {
			areas := area.Default().All()
			if c.Bool("json") {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(areas)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tCODE\tID\tNAME")
			for _, a := range areas {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Slug, a.Code, a.ID, a.Name)
			}
			return w.Flush()
		},
	}
}

func storeAreas(catalog *area.Catalog) []store.Area {
	all := catalog.All()
	areas := make([]store.Area, 0, len(all))
	for _, a := range all {
		areas = append(areas, store.Area{ID: a.ID, Slug: a.Slug, Code: a.Code, Name: a.Name})
	}
	return areas
}
