// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/geoverify/config"
	"github.com/jcodagnone/geoverify/theme"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

type rootOptions struct {
	ConfigPath string
	DBPath     string
	Provider   string
	Trace      bool
}

var rootOpts rootOptions

var rootCmd = &cobra.Command{
	Use:   "geoverify",
	Short: "structured address confirmation against hosted geocoders",
	Long: `
geoverify confirms postal addresses entered field by field, sends a single
structured query to a geocoding provider (Geoapify or Google Maps) and grades
how closely the best match agrees with what was typed.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpts.ConfigPath, "config", "", "YAML configuration file")
	flags.StringVar(&rootOpts.DBPath, "db", "", "DuckDB file for history and preferences (overrides config)")
	flags.StringVar(&rootOpts.Provider, "provider", "", "geocoding provider: geoapify or google_maps (overrides config)")
	flags.BoolVar(&rootOpts.Trace, "trace", false, "dump provider HTTP exchanges to stderr, credentials masked")
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if rootOpts.DBPath != "" {
		cfg.DBPath = rootOpts.DBPath
	}

	if rootOpts.Provider != "" {
		cfg.Provider = rootOpts.Provider
	}

	if rootOpts.Trace {
		cfg.Trace = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openDB opens the DuckDB file and ensures both schemas exist.
func openDB(cfg *config.Config) (*sql.DB, verification.Repository, *theme.DBStore, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := verification.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating verifications schema: %w", err)
	}

	store := theme.NewDBStore(repo.DB())
	if err := store.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, nil, fmt.Errorf("creating preferences schema: %w", err)
	}

	return db, repo, store, nil
}
