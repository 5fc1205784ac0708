package main

import (
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/access"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/spf13/cobra"
)

func sessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage browser sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create [user-id]",
		Short: "Create a session and print its sid cookie value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb := redisx.New(a.cfg.RedisAddr)
			defer rdb.Close()

			s := &access.Sessions{RDB: rdb, TTL: a.cfg.SessionTTL, Log: a.log}
			sid, err := s.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s (expires in %s)\n", access.SessionCookie, sid, a.cfg.SessionTTL)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [sid]",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb := redisx.New(a.cfg.RedisAddr)
			defer rdb.Close()

			s := &access.Sessions{RDB: rdb, TTL: a.cfg.SessionTTL, Log: a.log}
			return s.Delete(cmd.Context(), args[0])
		},
	})
	return cmd
}
