// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jcodagnone/geoverify/events"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/spf13/cobra"
)

var confirmOptions struct {
	Form    verification.AddressFormData
	JSON    bool
	Verbose bool
	NoSave  bool
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm one address and verify it with a single geocoding request",
	Long: `Validates the five required fields and, when all are present, issues exactly
one structured geocoding request. Prints the confirmation message, the match
badge and the diagnostics panel.

$ geoverify confirm --street "Hauptstraße" --housenumber 5 --postcode 10827 \
    --city Berlin --country Germany
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		console := events.NewConsole(events.WithTrace(cfg.Trace))

		v, err := cfg.Verifier(cmd.Context(), os.Stderr, verification.WithEvents(console))
		if err != nil {
			return err
		}

		out := v.Verify(cmd.Context(), confirmOptions.Form)

		if !confirmOptions.NoSave && out.Status != verification.StatusInvalid {
			db, repo, _, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := verification.NewRecord(out)
			if err != nil {
				return err
			}

			if err := repo.Save(rec); err != nil {
				return err
			}
		}

		if confirmOptions.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(out)
		}

		printOutcome(os.Stdout, out, confirmOptions.Verbose)

		if out.Status == verification.StatusInvalid {
			log.Printf("✍️  Fill in %s first", verification.FirstMissingField(confirmOptions.Form))
		}

		return nil
	},
}

func printOutcome(w io.Writer, out *verification.Outcome, verbose bool) {
	fmt.Fprintln(w, out.Confirmation.Message)

	if out.Status == verification.StatusInvalid {
		fmt.Fprintf(w, "Missing: %s\n", strings.Join(out.Confirmation.MissingFields, ", "))

		return
	}

	if out.Badge != nil {
		fmt.Fprintf(w, "Badge: %s\n", out.Badge.Label)
	}

	if len(out.Differences) > 0 {
		fmt.Fprintf(w, "Differs from input: %s\n", strings.Join(out.Differences, ", "))
	}

	if out.DriftMeters != nil {
		fmt.Fprintf(w, "Drift from selection: %.0f m\n", *out.DriftMeters)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, out.Diagnostics.Status)

	for _, line := range out.Diagnostics.Meta {
		fmt.Fprintf(w, "  %s\n", line)
	}

	if verbose && out.Diagnostics.Code != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, out.Diagnostics.Code)
	}
}

func init() {
	flags := confirmCmd.Flags()
	flags.StringVar(&confirmOptions.Form.Street, "street", "", "street name")
	flags.StringVar(&confirmOptions.Form.HouseNumber, "housenumber", "", "house number")
	flags.StringVar(&confirmOptions.Form.Postcode, "postcode", "", "postal code")
	flags.StringVar(&confirmOptions.Form.City, "city", "", "city")
	flags.StringVar(&confirmOptions.Form.Country, "country", "", "country")
	flags.BoolVar(&confirmOptions.JSON, "json", false, "print the full outcome as JSON")
	flags.BoolVarP(&confirmOptions.Verbose, "verbose", "v", false, "include the properties dump of the top result")
	flags.BoolVar(&confirmOptions.NoSave, "no-save", false, "do not record the verification in the history")

	rootCmd.AddCommand(confirmCmd)
}
