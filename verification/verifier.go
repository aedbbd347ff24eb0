// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jcodagnone/geoverify/geocoding"
	"github.com/jcodagnone/geoverify/utils/textutils"
)

// DefaultTimeout bounds a single verification request.
const DefaultTimeout = 10 * time.Second

// snippetLimit caps the properties dump of the diagnostics panel.
const snippetLimit = 5000

// Diagnostics panel status lines.
const (
	StatusLineIdle       = `Press "Confirm address" to run a one-time geocoding check.`
	StatusLineRequesting = "Requesting %s Geocoding API…"
	StatusLineNoMatch    = "No matches returned for the structured address."
	StatusLineFailed     = "Request failed. You can proceed with manual confirmation."
	StatusLineSuperseded = "Superseded by a newer confirmation."
)

// ErrorTypeCanceled marks a failure caused by the caller going away.
const ErrorTypeCanceled = "canceled"

// Status is the terminal state of a verification.
type Status string

const (
	// StatusInvalid means required fields were missing and nothing was sent.
	StatusInvalid Status = "invalid"
	// StatusMatched means the provider returned at least one feature.
	StatusMatched Status = "matched"
	// StatusNoMatch means the provider answered with an empty feature list.
	StatusNoMatch Status = "no_match"
	// StatusFailed means the request failed or timed out.
	StatusFailed Status = "failed"
	// StatusSuperseded means a newer confirmation of the same form replaced this one.
	StatusSuperseded Status = "superseded"
)

// EventSink receives request lifecycle events.
type EventSink interface {
	Log(event string, payload any)
}

// Diagnostics is the developer panel content. URL never holds the credential.
type Diagnostics struct {
	Visible bool     `json:"visible"`
	Status  string   `json:"status"`
	URL     string   `json:"url,omitempty"`
	Meta    []string `json:"meta,omitempty"`
	Code    string   `json:"code,omitempty"`
}

// Outcome is the full result of a confirmation.
type Outcome struct {
	Status       Status             `json:"status"`
	Provider     string             `json:"provider,omitempty"`
	Confirmation ConfirmResult      `json:"confirmation"`
	Badge        *MatchResult       `json:"badge,omitempty"`
	Verification *MatchResult       `json:"verification,omitempty"`
	Top          *geocoding.Feature `json:"top,omitempty"`
	Differences  []string           `json:"differences,omitempty"`
	DriftMeters  *float64           `json:"drift_meters,omitempty"`
	Diagnostics  Diagnostics        `json:"diagnostics"`
	Error        string             `json:"error,omitempty"`
	ErrorType    string             `json:"error_type,omitempty"`

	Err error `json:"-"`
}

// Verifier runs the confirmation flow against a geocoder. It keeps no
// per-form state and is safe for concurrent use.
type Verifier struct {
	geocoder     geocoding.Geocoder
	badge        Policy
	verification Policy
	timeout      time.Duration
	events       EventSink
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithPolicies overrides the badge and verification policies.
func WithPolicies(badge, verification Policy) Option {
	return func(v *Verifier) {
		v.badge = badge
		v.verification = verification
	}
}

// WithTimeout bounds each request; zero or negative keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithEvents attaches an event sink.
func WithEvents(sink EventSink) Option {
	return func(v *Verifier) {
		v.events = sink
	}
}

// NewVerifier creates a verifier using the badge and verification presets.
func NewVerifier(g geocoding.Geocoder, opts ...Option) *Verifier {
	v := &Verifier{
		geocoder:     g,
		badge:        BadgePolicy(),
		verification: VerificationPolicy(),
		timeout:      DefaultTimeout,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Geocoder returns the provider used by v.
func (v *Verifier) Geocoder() geocoding.Geocoder {
	return v.geocoder
}

// Badge grades a feature with the badge policy.
func (v *Verifier) Badge(f *geocoding.Feature) MatchResult {
	return Classify(v.badge, f)
}

// Verification grades a feature with the verification policy.
func (v *Verifier) Verification(f *geocoding.Feature) MatchResult {
	return Classify(v.verification, f)
}

func (v *Verifier) emit(event string, payload any) {
	if v.events != nil {
		v.events.Log(event, payload)
	}
}

// Verify confirms form and, when it is complete, issues exactly one
// structured geocoding request.
func (v *Verifier) Verify(ctx context.Context, form AddressFormData) *Outcome {
	confirmation := Confirm(form)

	out := &Outcome{
		Confirmation: confirmation,
		Diagnostics:  Diagnostics{Status: StatusLineIdle},
	}

	if !confirmation.OK {
		out.Status = StatusInvalid

		return out
	}

	out.Provider = v.geocoder.Name()

	query := confirmation.Address.Query()
	displayURL := v.geocoder.DisplayURL(query)

	out.Diagnostics = Diagnostics{
		Visible: true,
		Status:  fmt.Sprintf(StatusLineRequesting, displayName(v.geocoder.Name())),
		URL:     displayURL,
		Meta:    []string{"URL: " + displayURL},
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	v.emit("request_start", map[string]any{"query": query})

	fc, err := v.geocoder.Search(ctx, query)
	if err != nil {
		return v.failed(out, displayURL, err)
	}

	v.emit("request_end", map[string]any{"success": true, "suggestions": len(fc.Features)})

	top := fc.Top()
	if top == nil {
		out.Status = StatusNoMatch
		out.Diagnostics.Status = StatusLineNoMatch
		out.Diagnostics.Code = dump(fc)

		return out
	}

	badge := v.Badge(top)
	verification := v.Verification(top)

	out.Status = StatusMatched
	out.Top = top
	out.Badge = &badge
	out.Verification = &verification
	out.Differences = Differences(confirmation.Address, top.Properties)

	rank := top.Properties.Rank
	out.Diagnostics.Status = strings.Join([]string{
		"Verification: " + verification.Label,
		" | Confidence: " + optional(rank.Confidence),
		" | Street-level: " + optional(rank.ConfidenceStreetLevel),
	}, "")

	formatted := top.Properties.Formatted
	if formatted == "" {
		formatted = "—"
	}

	coords := "—"
	if top.Geometry != nil && len(top.Geometry.Coordinates) > 0 {
		parts := make([]string, len(top.Geometry.Coordinates))
		for i, c := range top.Geometry.Coordinates {
			parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
		}

		coords = strings.Join(parts, ", ")
	}

	out.Diagnostics.Meta = []string{
		"URL: " + displayURL,
		"Top result: " + formatted,
		"Match badge: " + badge.Label,
		"Coords: " + coords,
	}
	out.Diagnostics.Code = textutils.Truncate(dump(top.Properties), snippetLimit, "\n"+textutils.Ellipsis)

	return out
}

func (v *Verifier) failed(out *Outcome, displayURL string, err error) *Outcome {
	// transport errors quote the request URL, credential included
	msg := geocoding.MaskCredential(err.Error())

	v.emit("request_end", map[string]any{"success": false, "suggestions": 0, "error": msg})

	out.Err = err
	out.Error = msg
	out.ErrorType = errorType(err)
	out.Status = StatusFailed
	out.Diagnostics.Status = StatusLineFailed
	out.Diagnostics.Meta = []string{
		"URL: " + displayURL,
		"Error: " + msg,
	}

	if out.ErrorType != "" {
		out.Diagnostics.Meta = append(out.Diagnostics.Meta, "Error type: "+out.ErrorType)
	}

	if !errors.Is(err, context.Canceled) {
		log.Printf("⚠️  %s verification failed: %s", v.geocoder.Name(), msg)
	}

	return out
}

// errorType names the failures a caller may want to react to.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case geocoding.IsRateLimitError(err):
		return "rate_limit"
	case geocoding.IsQuotaExceededError(err):
		return "quota_exceeded"
	case geocoding.IsTimeoutError(err):
		return "timeout"
	default:
		return ""
	}
}

// Differences lists the display names of the fields whose top result value
// differs from what was requested, ignoring case and accents.
func Differences(form AddressFormData, p geocoding.Properties) []string {
	var diffs []string

	check := func(label, requested string, returned ...string) {
		var seen bool

		for _, r := range returned {
			if r == "" {
				continue
			}

			seen = true

			if textutils.EqualFold(requested, r) {
				return
			}
		}

		if seen {
			diffs = append(diffs, label)
		}
	}

	check("Country", form.Country, p.Country, p.CountryCode)
	check("City", form.City, p.City, p.Town, p.Village, p.Suburb)
	check("Street", form.Street, p.Street)
	check("House number", form.HouseNumber, p.HouseNumber)
	check("Postcode", form.Postcode, p.Postcode)

	return diffs
}

func displayName(provider string) string {
	switch provider {
	case "geoapify":
		return "Geoapify"
	case "google_maps":
		return "Google Maps"
	default:
		return provider
	}
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func dump(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}
