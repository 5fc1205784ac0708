package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

// app is shared by every subcommand; connections are opened on demand.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

func (a *app) db(ctx context.Context) (*pgxpool.Pool, error) {
	db, err := postgres.ConnectWith(ctx, a.cfg.PostgresDSN, postgres.PoolOptions{MaxConns: 2, MinConns: 0})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "Operator tool for the storefront backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			a.cfg = config.Load()
			a.log = logx.New("storectl", a.cfg.LogLevel, true)
		},
	}

	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(b2bCmd(a))
	rootCmd.AddCommand(catalogCmd(a))
	rootCmd.AddCommand(sessionCmd(a))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}
