// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jcodagnone/geoverify/utils/textutils"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var batchOptions struct {
	Output string
	NoSave bool
}

type batchResult struct {
	Index   int                   `json:"index"`
	Outcome *verification.Outcome `json:"outcome"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <forms.jsonl>",
	Short: "Confirm many addresses read from a JSON lines file",
	Long: `Reads one address form per line ({"street": …, "housenumber": …, "postcode": …,
"city": …, "country": …}), verifies them with a bounded number of workers
under the configured request rate, and records every result in the history.
Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		forms, err := readForms(args[0])
		if err != nil {
			return err
		}

		if len(forms) == 0 {
			log.Printf("Nothing to verify in %s", args[0])

			return nil
		}

		v, err := cfg.Verifier(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(forms),
				progressbar.OptionSetDescription("Verifying"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var mu sync.Mutex

		counts := map[verification.Status]int{}
		failures := map[string]int{}

		outcomes, err := v.VerifyBatch(cmd.Context(), forms, verification.BatchOptions{
			Workers: cfg.Workers,
			Rate:    cfg.Rate,
			OnDone: func(i int, out *verification.Outcome) {
				mu.Lock()
				defer mu.Unlock()

				counts[out.Status]++

				if out.ErrorType != "" {
					failures[out.ErrorType]++
				}

				if bar == nil {
					log.Printf("Verified form %d: %s", i, out.Status)
				} else if err := bar.Add(1); err != nil {
					log.Printf("updating progress bar: %v", err)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("verifying batch: %w", err)
		}

		if !batchOptions.NoSave {
			db, repo, _, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, out := range outcomes {
				if out == nil || out.Status == verification.StatusInvalid || out.ErrorType == verification.ErrorTypeCanceled {
					continue
				}

				rec, err := verification.NewRecord(out)
				if err != nil {
					return err
				}

				if err := repo.Save(rec); err != nil {
					return err
				}
			}
		}

		if err := writeResults(batchOptions.Output, outcomes); err != nil {
			return err
		}

		log.Printf("✅ Verified %s forms: %d matched, %d without match, %d failed, %d incomplete",
			textutils.FormatInt(int64(len(forms))),
			counts[verification.StatusMatched],
			counts[verification.StatusNoMatch],
			counts[verification.StatusFailed],
			counts[verification.StatusInvalid],
		)

		if len(failures) > 0 {
			log.Printf("⚠️  Failures by type: %s", failureSummary(failures))
		}

		return nil
	},
}

// failureSummary renders failure counts as "2 rate_limit, 1 timeout",
// most frequent first.
func failureSummary(failures map[string]int) string {
	kinds := make([]string, 0, len(failures))
	for k := range failures {
		kinds = append(kinds, k)
	}

	sort.Slice(kinds, func(i, j int) bool {
		if failures[kinds[i]] != failures[kinds[j]] {
			return failures[kinds[i]] > failures[kinds[j]]
		}

		return kinds[i] < kinds[j]
	})

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %s", failures[k], k)
	}

	return strings.Join(parts, ", ")
}

func readForms(path string) ([]verification.AddressFormData, error) {
	var input io.Reader = os.Stdin

	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening forms: %w", err)
		}
		defer f.Close()

		input = f
	}

	return decodeForms(input)
}

func decodeForms(r io.Reader) ([]verification.AddressFormData, error) {
	var forms []verification.AddressFormData

	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var form verification.AddressFormData
		if err := json.Unmarshal(text, &form); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		forms = append(forms, form)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading forms: %w", err)
	}

	return forms, nil
}

func writeResults(path string, outcomes []*verification.Outcome) error {
	var w io.Writer = os.Stdout

	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()

		w = f
	}

	enc := json.NewEncoder(w)
	for i, out := range outcomes {
		if err := enc.Encode(batchResult{Index: i, Outcome: out}); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}

	return nil
}

func init() {
	batchCmd.Flags().StringVarP(&batchOptions.Output, "output", "o", "", "write JSON lines results to this file instead of stdout")
	batchCmd.Flags().BoolVar(&batchOptions.NoSave, "no-save", false, "do not record the verifications in the history")

	rootCmd.AddCommand(batchCmd)
}
