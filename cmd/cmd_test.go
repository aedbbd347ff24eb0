// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jcodagnone/geoverify/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeForms(t *testing.T) {
	input := `{"street":"Main","housenumber":"1","city":"X","postcode":"1","country":"US"}

{"street":"Elm"}
`

	forms, err := decodeForms(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "Elm", forms[1].Street)

	_, err = decodeForms(strings.NewReader("{\"street\":\"Main\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestClassifyLines(t *testing.T) {
	input := strings.Join([]string{
		`{"properties":{"housenumber":"12","street":"Main","rank":{"confidence":1}}}`,
		`{"properties":{"rank":{"confidence":0.3}}}`,
		`{"properties":{}}`,
		`oops`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, classifyLines(strings.NewReader(input), &out, verification.BadgePolicy(), verification.VerificationPolicy()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "building\tBuilding-level match\tVerified to building level.", lines[0])
	assert.Equal(t, "ambiguous\tAmbiguous match\tPartial verification only.", lines[1])
	assert.Equal(t, "city\tCity-level match\tPartial verification only.", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "error\t"))
}

func TestPrintOutcomeInvalid(t *testing.T) {
	out := &verification.Outcome{
		Status:       verification.StatusInvalid,
		Confirmation: verification.Confirm(verification.AddressFormData{Street: "Main"}),
	}

	var buf bytes.Buffer
	printOutcome(&buf, out, false)

	assert.Equal(t, verification.MessageMissingFields+"\nMissing: Country, City, House number, Postcode\n", buf.String())
}

func TestFailureSummary(t *testing.T) {
	got := failureSummary(map[string]int{"timeout": 1, "rate_limit": 2, "quota_exceeded": 1})

	assert.Equal(t, "2 rate_limit, 1 quota_exceeded, 1 timeout", got)
}
