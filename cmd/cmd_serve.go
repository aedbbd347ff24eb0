// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/jcodagnone/geoverify/events"
	"github.com/jcodagnone/geoverify/server"
	"github.com/jcodagnone/geoverify/theme"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/spf13/cobra"
)

var serveOptions struct {
	Listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the address confirmation API (local only by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if serveOptions.Listen != "" {
			cfg.Listen = serveOptions.Listen
		}

		db, repo, store, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		console := events.NewConsole(events.WithTrace(cfg.Trace))

		v, err := cfg.Verifier(cmd.Context(), os.Stderr, verification.WithEvents(console))
		if err != nil {
			return err
		}

		s := server.NewServer(verification.NewSessions(v), repo, console, theme.NewService(store))

		fmt.Println("🗺️  Address verification server starting...")
		fmt.Printf("💾 History in %s\n", cfg.DBPath)

		return s.Run(cfg.Listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOptions.Listen, "listen", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
