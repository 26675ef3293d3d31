// Package cmd defines and implements the CLI commands for the
// insider-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/app"
	"github.com/marknadsdata/insider-crawler/internal/config"
	"github.com/marknadsdata/insider-crawler/internal/crawl"
	"github.com/marknadsdata/insider-crawler/internal/warehouse"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface that commands use. It is an
// interface so tests can inject a mock app through the factory below.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetStage() crawl.Stage
	GetWriter() *warehouse.Writer
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx, cfgFile)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insider-crawler",
		Short: "Collects insider trading disclosures into a star-schema warehouse",
		Long: `insider-crawler walks the Swedish FSA's public insider trading
registry page by page, normalizes each disclosure row, and loads the
canonical records into a normalized Postgres star schema. The crawl is
bounded by a publication-date window and deliberately throttled.`,

		// Runs before the subcommand's RunE: build the application
		// services and inject them into the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Shuts services down after the subcommand finishes, success or not.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars with the INSIDER_ prefix also apply)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newInitDBCmd())

	return cmd
}

// resolveApp fetches the injected App from the command context.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
