package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "librarian",
		Short: "📚 Rule-based file organizer",
		Long: `librarian: sorts the files that pile up in your inbox folders.

Every file is matched against a table of classification rules. High confidence
matches are moved into their category folder, medium confidence matches are
proposed for confirmation, and everything else goes to a staging area for
manual review. Every move is logged and can be rolled back.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/librarian/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database path (default: $HOME/.local/share/librarian/librarian.db)")
	rootCmd.PersistentFlags().String("rules", "", "YAML rules file (default: built-in rules)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("rules.file", rootCmd.PersistentFlags().Lookup("rules"))

	config.SetDefaults(viper.GetViper())

	// Add commands
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(organizeCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(stagingCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx := interrupts.HandleInterrupts(context.Background(), "Completed moves are logged. Undo them with: librarian rollback")

	err := rootCmd.ExecuteContext(ctx)
	code := interrupts.ExitCode(err)
	switch {
	case code == 1:
		fmt.Fprintln(os.Stderr, err)
	case err != nil:
		slog.Debug("Command cancelled", "error", err, "interrupted", interrupts.WasInterrupted())
	}
	if code != 0 {
		os.Exit(code)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/librarian", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("LIBRARIAN")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	return setupLogging()
}

func setupLogging() error {
	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if err := common.SetupLogger(os.Stderr, level, viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "librarian %s\n", version)
		},
	}
}
