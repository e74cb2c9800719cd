// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the phaseplan CLI.
// Each stage of table construction is a subcommand: vocab, allocate,
// enforce, validate, run, export, history and profile.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/phaseplan/internal/logging"
	"github.com/pdiddy/phaseplan/internal/profile"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg and logger are populated before any subcommand runs.
var (
	cfg    types.PipelineConfig
	logger = zap.NewNop()
)

// rootCmd is the base command for the phaseplan CLI.
var rootCmd = &cobra.Command{
	Use:   "phaseplan",
	Short: "Build and check role-specific seven-phase business process tables",
	Long: `phaseplan turns a domain vocabulary into a seven-phase business process
table for one role in one industry. It distributes terms over the phases by
affinity, repairs generated tables that lack concrete terms, and scores the
result for specificity and coverage.

Stages are subcommands (vocab, allocate, enforce, validate) and run chains
them end to end, recording sessions in runs/phaseplan.db.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c
		l, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./phaseplan.yaml or ~/.config/phaseplan/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().String("runs-dir", "", "directory holding phaseplan.db")
	rootCmd.PersistentFlags().String("profiles-dir", "", "directory of extra profile YAML files")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("store.runs_dir", rootCmd.PersistentFlags().Lookup("runs-dir"))
	_ = viper.BindPFlag("profiles.dir", rootCmd.PersistentFlags().Lookup("profiles-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("phaseplan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "phaseplan"))
		}
	}

	viper.SetEnvPrefix("PHASEPLAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{"log.level", "log.format", "log.file", "store.runs_dir", "profiles.dir"} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes viper settings over the defaults. Keys follow the
// yaml tags of types.PipelineConfig.
func loadConfig() (types.PipelineConfig, error) {
	c := types.DefaultPipelineConfig()
	err := viper.Unmarshal(&c, viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.TextUnmarshallerHookFunc(),
		)
	}))
	if err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	// Unset persistent flags decode as empty strings.
	if c.Store.RunsDir == "" {
		c.Store.RunsDir = "runs"
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// resolveProfile loads the profile registry and resolves a request.
func resolveProfile(industry, role string) (types.Profile, error) {
	if strings.TrimSpace(industry+role) == "" {
		return types.Profile{}, fmt.Errorf("--industry or --role required")
	}
	reg, err := profile.NewRegistry(cfg.Profiles)
	if err != nil {
		return types.Profile{}, err
	}
	return reg.Resolve(industry, role)
}

// addRoleFlags registers the --industry and --role flags shared by the
// stage commands.
func addRoleFlags(cmd *cobra.Command) {
	cmd.Flags().String("industry", "", "industry of the role (e.g. EV)")
	cmd.Flags().String("role", "", "role within the industry (e.g. 材料開発)")
}

func roleFlags(cmd *cobra.Command) (string, string) {
	industry, _ := cmd.Flags().GetString("industry")
	role, _ := cmd.Flags().GetString("role")
	return industry, role
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
