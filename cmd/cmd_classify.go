// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jcodagnone/geoverify/geocoding"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Grade geocoding features without calling any provider",
	Long: `Reads one GeoJSON feature per line and prints the badge and verification
matches of the configured policies.

$ echo '{"properties":{"housenumber":"12","rank":{"confidence":1}}}' | geoverify classify
building	Building-level match	Verified to building level.
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		badge, verif, err := cfg.ResolvePolicies()
		if err != nil {
			return err
		}

		if isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter features to grade, one JSON document per line…")
		}

		return classifyLines(os.Stdin, cmd.OutOrStdout(), badge, verif)
	},
}

func classifyLines(r io.Reader, w io.Writer, badge, verif verification.Policy) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var f geocoding.Feature
		if err := json.Unmarshal(text, &f); err != nil {
			fmt.Fprintf(w, "error\t%q\n", err.Error())

			continue
		}

		b := verification.Classify(badge, &f)
		v := verification.Classify(verif, &f)
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Level, b.Label, v.Label)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
