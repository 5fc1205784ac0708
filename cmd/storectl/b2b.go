package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ariefcatur/go-storefront/internal/b2b"
	"github.com/spf13/cobra"
)

func b2bCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "b2b",
		Short: "Manage B2B API keys",
	}
	cmd.AddCommand(b2bIssueCmd(a), b2bRevokeCmd(a), b2bListCmd(a))
	return cmd
}

func b2bIssueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "issue [client-id]",
		Short: "Issue a new API key; the secret is printed once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := &b2b.Service{Store: &b2b.Repo{DB: db}, Log: a.log}
			k, err := svc.Issue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key id:  %s\nclient:  %s\nsecret:  %s\n", k.ID, k.ClientID, k.Secret)
			fmt.Fprintln(out, "store the secret now, it cannot be shown again")
			return nil
		},
	}
}

func b2bRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke [key-id]",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := &b2b.Service{Store: &b2b.Repo{DB: db}, Log: a.log}
			if err := svc.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		},
	}
}

func b2bListCmd(a *app) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := &b2b.Service{Store: &b2b.Repo{DB: db}, Log: a.log}
			keys, err := svc.List(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			printKeys(cmd, keys)
			return nil
		},
	}
	cmd.Flags().StringVarP(&clientID, "client", "c", "", "only keys of this client")
	return cmd
}

func printKeys(cmd *cobra.Command, keys []b2b.Key) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT\tPREFIX\tCREATED\tLAST USED\tSTATE")
	for _, k := range keys {
		state := "active"
		if k.Revoked() {
			state = "revoked"
		}
		fmt.Fprintf(tw, "%s\t%s\tsk_%s_…\t%s\t%s\t%s\n",
			k.ID, k.ClientID, k.Prefix, k.CreatedAt.Format(time.DateTime), formatTime(k.LastUsedAt), state)
	}
	_ = tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}
