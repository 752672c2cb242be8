package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"projview-api/core"
)

var cfg core.Config

var rootCmd = &cobra.Command{
	Use:   "accountctl",
	Short: "Out-of-band account administration for projview-api",
	Long: `accountctl provisions admins, manages authorities and applies database
migrations against the same store the API server uses. It reads the same
CONFIG_FILE and environment variables as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = core.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, adminCmd, authorityCmd, usersCmd)
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp connects the configured backends; callers must call the returned close func.
func openApp(ctx context.Context, c core.Config) (*core.App, func(), error) {
	logger := core.NewLogger(os.Stderr, c.LogLevel)
	backends, err := core.OpenBackends(ctx, c, logger)
	if err != nil {
		return nil, nil, err
	}
	app, err := core.NewApp(c, backends, logger)
	if err != nil {
		backends.Close()
		return nil, nil, err
	}
	return app, backends.Close, nil
}
