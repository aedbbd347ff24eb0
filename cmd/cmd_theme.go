// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/jcodagnone/geoverify/theme"
	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the widget theme",
}

func withThemes(run func(cmd *cobra.Command, args []string, s *theme.Service) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, _, store, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return run(cmd, args, theme.NewService(store))
	}
}

var themeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current theme and its stylesheet",
	Args:  cobra.NoArgs,
	RunE: withThemes(func(cmd *cobra.Command, _ []string, s *theme.Service) error {
		current := s.Current()
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", current, theme.Stylesheet(current))

		return nil
	}),
}

var themeSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Persist the theme",
	Args:  cobra.ExactArgs(1),
	RunE: withThemes(func(cmd *cobra.Command, args []string, s *theme.Service) error {
		if err := s.Set(args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "🎨 Theme set to %s\n", args[0])

		return nil
	}),
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known themes",
	Args:  cobra.NoArgs,
	RunE: withThemes(func(cmd *cobra.Command, _ []string, s *theme.Service) error {
		current := s.Current()

		for _, name := range s.Themes() {
			marker := " "
			if name == current {
				marker = "*"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}

		return nil
	}),
}

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeGetCmd)
	themeCmd.AddCommand(themeSetCmd)
	themeCmd.AddCommand(themeListCmd)
}
