package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"projview-api/core"
)

var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Grant, revoke and list account authorities",
}

var authorityAddCmd = &cobra.Command{
	Use:   "add <username> <role>",
	Short: "Grant a role (idempotent)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeAuthority(cmd, args[0], args[1], (*core.AuthorityManager).AddAuthority)
	},
}

var authorityRemoveCmd = &cobra.Command{
	Use:   "remove <username> <role>",
	Short: "Revoke a role (no-op when absent)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeAuthority(cmd, args[0], args[1], (*core.AuthorityManager).RemoveAuthority)
	},
}

var authorityListCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List the roles held by an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, closeFn, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		roles, err := app.Authorities.ListAuthorities(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(roles.Strings(), ", "))
		return nil
	},
}

type authorityChange func(m *core.AuthorityManager, ctx context.Context, username string, role core.Role) (core.RoleSet, error)

func changeAuthority(cmd *cobra.Command, username, roleName string, change authorityChange) error {
	role, err := core.ParseRole(roleName)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app, closeFn, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	roles, err := change(app.Authorities, ctx, username, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", username, strings.Join(roles.Strings(), ", "))
	return nil
}

func init() {
	authorityCmd.AddCommand(authorityAddCmd, authorityRemoveCmd, authorityListCmd)
}
