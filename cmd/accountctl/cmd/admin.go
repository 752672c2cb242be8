package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"projview-api/core"
)

var (
	adminUsername string
	passwordStdin bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account with authorities USER and ADMIN. Like the
registration endpoint, no uniqueness check is made against other admins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminUsername == "" {
			return fmt.Errorf("--username flag is required")
		}
		if !passwordStdin {
			return fmt.Errorf("--password-stdin is required; passwords are never taken from flags")
		}
		scanner := bufio.NewScanner(os.Stdin)
		var password string
		if scanner.Scan() {
			password = strings.TrimRight(scanner.Text(), "\r")
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		ctx := cmd.Context()
		app, closeFn, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := app.Registration.RegisterAdmin(ctx, core.RegisterRequest{Username: adminUsername, Password: password}); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", adminUsername)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "Admin username (required)")
	adminCreateCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	adminCmd.AddCommand(adminCreateCmd)
}
