// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/curriculum-tutor/internal/agent"
	"github.com/pdiddy/curriculum-tutor/internal/config"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Print the agent roles in effect, after config overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := config.RoleOverrides(v)
		if err != nil {
			return err
		}
		roles, err := agent.DefaultRoles().WithOverrides(overrides)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(roles); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
