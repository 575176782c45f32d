package main

import (
	"context"
	"drive-mirror/internal/app"
	"drive-mirror/internal/auth"
	"drive-mirror/internal/config"
	"drive-mirror/internal/database"
	"drive-mirror/internal/logging"
	"drive-mirror/internal/syncer"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "mirrorctl",
		Usage: "Operate the Drive mirror from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to settings file (default: ./configs/settings.yml)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Run a reconciliation and print its report",
				Subcommands: []*cli.Command{
					{
						Name:   "structure",
						Usage:  "Mirror the top-level folders under the root",
						Action: syncStructure,
					},
					{
						Name:      "folder",
						Usage:     "Mirror the images of one folder",
						ArgsUsage: "<folder-id>",
						Action:    syncFolder,
					},
					{
						Name:   "all",
						Usage:  "Mirror the structure, then every folder",
						Action: syncAll,
					},
				},
			},
			{
				Name:  "runs",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 20,
					},
				},
				Action: listRuns,
			},
			{
				Name:  "init-db",
				Usage: "Apply the database schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "schema",
						Usage: "Path to the schema file",
						Value: "db/init.sql",
					},
				},
				Action: initDB,
			},
			{
				Name:  "token",
				Usage: "Issue an operator token for the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "operator",
						Usage:    "Operator name stored in the token",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				},
				Action: issueToken,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := logging.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return cfg, nil
}

func withSyncer(c *cli.Context, fn func(ctx context.Context, orch *syncer.Orchestrator) (interface{}, bool, error)) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	report, ok, err := fn(ctx, a.Syncer)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}
	if !ok {
		return cli.Exit("sync finished with failures", 1)
	}
	return nil
}

func syncStructure(c *cli.Context) error {
	return withSyncer(c, func(ctx context.Context, orch *syncer.Orchestrator) (interface{}, bool, error) {
		rep, err := orch.SyncStructure(ctx)
		if err != nil {
			return nil, false, err
		}
		return rep, rep.Success, nil
	})
}

func syncFolder(c *cli.Context) error {
	folderID := c.Args().First()
	if folderID == "" {
		return cli.Exit("folder id is required", 2)
	}
	return withSyncer(c, func(ctx context.Context, orch *syncer.Orchestrator) (interface{}, bool, error) {
		rep, err := orch.SyncFolder(ctx, folderID)
		if err != nil {
			return nil, false, err
		}
		return rep, rep.Success, nil
	})
}

func syncAll(c *cli.Context) error {
	return withSyncer(c, func(ctx context.Context, orch *syncer.Orchestrator) (interface{}, bool, error) {
		runID, done, err := orch.StartAll(ctx)
		if err != nil {
			return nil, false, err
		}
		// Ctrl+C stops the run at the next folder boundary.
		go func() {
			<-ctx.Done()
			if orch.Cancel(runID) {
				log.Warnf("cancelling run %s", runID)
			}
		}()
		report := <-done
		return report, report.State == string(syncer.StateDone) && report.Totals.Failed == 0, nil
	})
}

func listRuns(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(c.Context, cfg.DB.Source)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	runs, err := database.NewStore(pool).ListRuns(c.Context, c.Int("limit"), 0)
	if err != nil {
		return err
	}
	for _, run := range runs {
		finished := "-"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-9s  %-8s  %s  %s  %s\n", run.ID, run.Kind, run.State, run.StartedAt.Format(time.RFC3339), finished, run.Scope)
	}
	return nil
}

func initDB(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	schema, err := os.ReadFile(c.String("schema"))
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	pool, err := pgxpool.New(c.Context, cfg.DB.Source)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(c.Context, string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Infof("schema %s applied", c.String("schema"))
	return nil
}

func issueToken(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return cli.Exit("jwt.secret is not configured", 1)
	}
	token, err := auth.GenerateJWT(c.String("operator"), cfg.JWT.Secret, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
