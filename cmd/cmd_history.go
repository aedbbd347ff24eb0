// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jcodagnone/geoverify/utils/textutils"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/spf13/cobra"
)

const historyFile = "verifications.json"

var historyOptions struct {
	Limit  int
	Offset int
	Status string
	Output string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded verifications",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded verifications, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, repo, _, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		var status *verification.Status

		if historyOptions.Status != "" {
			s := verification.Status(historyOptions.Status)
			status = &s
		}

		records, err := repo.List(status, historyOptions.Limit, historyOptions.Offset)
		if err != nil {
			return fmt.Errorf("listing verifications: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tSTATUS\tLEVEL\tPROVIDER\tADDRESS")

		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.Status,
				r.Level,
				r.Provider,
				textutils.Truncate(r.Formatted, 60, textutils.Ellipsis),
			)
		}

		return tw.Flush()
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every recorded verification to a JSON file",
	Long:  `Exports the verification history to a local JSON file, oldest first, so successive exports diff cleanly.`,
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, repo, _, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := repo.GetAllSorted()
		if err != nil {
			return fmt.Errorf("getting verifications: %w", err)
		}

		if records == nil {
			records = []*verification.Record{}
		}

		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling verifications: %w", err)
		}

		if err := os.WriteFile(historyOptions.Output, data, 0o600); err != nil {
			return fmt.Errorf("writing verifications file: %w", err)
		}

		fmt.Printf("✅ Exported %s verifications to %s\n",
			textutils.FormatInt(int64(len(records))),
			historyOptions.Output)

		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyOptions.Limit, "limit", 50, "maximum number of rows")
	historyListCmd.Flags().IntVar(&historyOptions.Offset, "offset", 0, "rows to skip")
	historyListCmd.Flags().StringVar(&historyOptions.Status, "status", "", "only show this status (matched, no_match, failed)")
	historyExportCmd.Flags().StringVarP(&historyOptions.Output, "output", "o", historyFile, "destination file")

	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
}
