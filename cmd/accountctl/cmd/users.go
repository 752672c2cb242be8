package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	listPage    int
	listPerPage int
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts without password hashes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, closeFn, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		items, total, err := app.Registration.ListAccounts(ctx, listPage, listPerPage)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tKIND\tAUTHORITIES\tCREATED")
		for _, a := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Username, a.Kind, strings.Join(a.Authorities.Strings(), ","), a.CreatedAt.Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d accounts\n", len(items), total)
		return nil
	},
}

func init() {
	usersListCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	usersListCmd.Flags().IntVar(&listPerPage, "per-page", 50, "Accounts per page")
	usersCmd.AddCommand(usersListCmd)
}
