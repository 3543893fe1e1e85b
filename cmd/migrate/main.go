// Command migrate manages the Postgres schema and seed data of the scoring store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/adapters/repository/pgstore"
	"github.com/okian/podium/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newApp(pgstore.Open).Run(os.Args); err != nil {
		logger.Get().Error(context.Background(), "migrate failed", logger.Error(err))
		os.Exit(1)
	}
}

// opener connects to the store named by a DSN.
type opener func(ctx context.Context, dsn string) (*pgstore.Store, error)

func newApp(open opener) *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "manage the podium Postgres schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dsn",
				Usage:    "Postgres connection string",
				EnvVars:  []string{"PODIUM_POSTGRES_DSN"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withStore(open, func(c *cli.Context, st *pgstore.Store) error {
					return st.Migrator().Init(c.Context)
				}),
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Action: withStore(open, func(c *cli.Context, st *pgstore.Store) error {
					m := st.Migrator()
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer func() { _ = m.Unlock(c.Context) }()

					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no new migrations to run")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: withStore(open, func(c *cli.Context, st *pgstore.Store) error {
					m := st.Migrator()
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer func() { _ = m.Unlock(c.Context) }()

					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Fprintln(c.App.Writer, "no groups to roll back")
						return nil
					}
					fmt.Fprintf(c.App.Writer, "rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: withStore(open, func(c *cli.Context, st *pgstore.Store) error {
					ms, err := st.Migrator().MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "migrations: %s\n", ms)
					fmt.Fprintf(c.App.Writer, "applied: %s\n", ms.Applied())
					fmt.Fprintf(c.App.Writer, "unapplied: %s\n", ms.Unapplied())
					return nil
				}),
			},
			{
				Name:      "seed",
				Usage:     "load participants, entities and predictions from a YAML file",
				ArgsUsage: "<seed.yaml>",
				Action: withStore(open, func(c *cli.Context, st *pgstore.Store) error {
					path := c.Args().First()
					if path == "" {
						return cli.Exit("seed file is required", 2)
					}
					seed, err := repository.LoadSeed(path)
					if err != nil {
						return err
					}
					if err := seed.Apply(c.Context, st); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "seeded %d participants, %d entities, %d predictions\n",
						len(seed.Participants), len(seed.Entities), len(seed.Predictions))
					return nil
				}),
			},
		},
	}
}

// withStore opens the store for one command and closes it afterwards.
func withStore(open opener, fn func(*cli.Context, *pgstore.Store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		st, err := open(c.Context, c.String("dsn"))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()
		return fn(c, st)
	}
}
