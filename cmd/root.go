package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is replaced by sharedSetup once the log flags are known.
var logger = zap.NewNop()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "grimoire",
	Short: "Report development activity metrics from a MetricsGrimoire database.",
	Long: `Grimoire composes SQL for activity metrics over source control, issue trackers,
mailing lists, code review, IRC and wiki databases, and normalizes the answers into
aggregates, gap-free time series and ranked lists.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".grimoire")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("GRIMOIRE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("source", schema.SCM)
	viper.SetDefault("metrics", contract.CoreMetrics)
	viper.SetDefault("period", schema.PeriodMonth)
	viper.SetDefault("dimension", schema.NoDimension)
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "warn")
	viper.SetDefault("log-format", "console")
}

// readConfigFile merges the config file into viper. A missing file is fine.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and builds the logger.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	cfg.RunID = uuid.NewString()

	return setupLogger()
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// storeSetup validates only the store settings. Migrations need nothing else.
func storeSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := contract.ProcessStoreConfig(cfg, input); err != nil {
		return err
	}
	cfg.RunID = uuid.NewString()
	return setupLogger()
}

// catalogSetup validates output and source settings without a store.
func catalogSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := contract.ProcessCatalogConfig(cfg, input); err != nil {
		return err
	}
	cfg.RunID = uuid.NewString()
	return setupLogger()
}

func setupLogger() error {
	l, err := contract.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = l.With(zap.String("run_id", cfg.RunID))
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}
