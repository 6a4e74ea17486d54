// Package cli provides the command-line interface for the financial auditor.
package cli

import (
	"context"

	"financial_auditor/pkg/app"
	"financial_auditor/pkg/core/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information
const Version = "0.1.0"

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "config/app.yaml"

// Loader builds the services from a config file.
type Loader func(ctx context.Context, configPath string) (*app.Services, error)

// App holds the CLI dependencies. Services are loaded on first use so that
// commands like version work without a config file.
type App struct {
	load     Loader
	services *app.Services
}

// LoadServices reads the config at configPath and wires the services.
func LoadServices(ctx context.Context, configPath string) (*app.Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// NewRootCmd creates the root command. A nil loader falls back to LoadServices.
func NewRootCmd(load Loader) *cobra.Command {
	if load == nil {
		load = LoadServices
	}
	return newRootCmd(&App{load: load})
}

// NewRootCmdWithServices creates a root command bound to already wired services.
func NewRootCmdWithServices(s *app.Services) *cobra.Command {
	return newRootCmd(&App{services: s})
}

func newRootCmd(a *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "auditor",
		Short: "Financial statement auditor",
		Long: `Financial auditor pulls five years of statements for a ticker,
derives the audit ratios and asks an LLM for a forensic anomaly report.

Workbooks move between commands as CSV files written by 'auditor fetch --out'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug && a.services != nil {
				a.services.Logger = a.services.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", DefaultConfigPath, "path to the application config")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newMetricsCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newAnalyzeCmd(a))

	return rootCmd
}

// Services returns the wired services, loading them on first call.
func (a *App) Services(cmd *cobra.Command) (*app.Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	path, _ := cmd.Flags().GetString("config")
	s, err := a.load(commandContext(cmd), path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		s.Logger = s.Logger.Level(zerolog.DebugLevel)
	}
	a.services = s
	return s, nil
}

// Close releases loaded services.
func (a *App) Close() {
	if a.services != nil {
		a.services.Close()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				_ = output.JSON(map[string]string{"version": Version})
				return
			}
			output.Printf("auditor %s\n", Version)
		},
	}
}
