// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the tutor CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/curriculum-tutor/internal/config"
	"github.com/pdiddy/curriculum-tutor/internal/secrets"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// v holds flag, file, and environment settings. Commands turn it into a
// types.Config with loadConfig and pass that down.
var v = viper.New()

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the tutor CLI.
var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Generate, check, and teach a programming curriculum with language-model agents",
	Long: `tutor turns a learning goal into lessons in three steps. A curriculum agent
writes an outline, a checker agent judges whether the outline is high quality
and matches the goal, and only when both hold does a lesson writer agent
produce the lessons.

Use "tutor run" to start a session, "tutor roles" to see the agent
instructions in effect, and "tutor history" to review past runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		found, err := config.LoadDotEnv(".env")
		if err != nil {
			return err
		}
		if found {
			fmt.Fprintln(cmd.ErrOrStderr(), "Loaded environment from .env")
		}

		s, err := secrets.Load(secrets.DefaultDir, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded secrets: %v\n", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./tutor.yaml or ~/.config/tutor/tutor.yaml)")
}

func initConfig() {
	config.SetDefaults(v)

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tutor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "tutor"))
		}
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
}

// loadConfig builds the validated configuration for commands that call a provider.
func loadConfig() (types.Config, error) {
	return config.Load(v, os.Getenv, loadedSecrets)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to a process exit status and reports it.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}
