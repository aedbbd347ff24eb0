// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jcodagnone/geoverify/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
provider: geoapify
geoapify_api_key: from-file
lang: de
timeout: 3s
badge_policy: strict
policies:
  strict:
    rules:
      - level: building
        label: Exact
        confidence_equals: 1
        require_housenumber: true
    fallback:
      level: ambiguous
      label: Needs review
workers: 2
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "geoverify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("GEOAPIFY_API_KEY", "")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GeoapifyAPIKey)
	assert.Equal(t, "de", cfg.Lang)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.NoError(t, cfg.Validate())

	badge, verif, err := cfg.ResolvePolicies()
	require.NoError(t, err)
	assert.Equal(t, "strict", badge.Name)
	assert.Equal(t, "verification", verif.Name)
	assert.Equal(t, verification.LevelAmbiguous, badge.Fallback.Level)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "providr: geoapify\n"))
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("GEOAPIFY_API_KEY", "from-env")
	t.Setenv("GEOVERIFY_TIMEOUT", "7s")
	t.Setenv("GEOVERIFY_WORKERS", "8")
	t.Setenv("GEOVERIFY_TRACE", "true")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GeoapifyAPIKey)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Trace)
}

func TestEnvParseErrors(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(name string) (string, bool) {
		if name == "GEOVERIFY_RATE" {
			return "fast", true
		}

		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEOVERIFY_RATE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"provider", func(c *Config) { c.Provider = "bing" }, "Provider"},
		{"workers", func(c *Config) { c.Workers = 0 }, "Workers"},
		{"rate", func(c *Config) { c.Rate = 0 }, "Rate"},
		{"lang", func(c *Config) { c.Lang = "English" }, "Lang"},
		{"listen", func(c *Config) { c.Listen = "nowhere" }, "Listen"},
		{"policy", func(c *Config) { c.BadgePolicy = "missing" }, "badge policy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGeocoderRequiresKey(t *testing.T) {
	cfg := Default()

	_, err := cfg.Geocoder(context.Background(), nil)
	require.Error(t, err)

	cfg.Provider = ProviderGoogle
	_, err = cfg.Geocoder(context.Background(), nil)
	require.Error(t, err)
}

func TestVerifierTracesMaskedRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	cfg := Default()
	cfg.GeoapifyAPIKey = "super-secret"
	cfg.BaseURL = srv.URL
	cfg.Trace = true

	var trace bytes.Buffer

	v, err := cfg.Verifier(context.Background(), &trace)
	require.NoError(t, err)

	out := v.Verify(context.Background(), verification.AddressFormData{
		Street: "Main St", HouseNumber: "1", City: "Springfield", Postcode: "12345", Country: "US",
	})

	assert.Equal(t, verification.StatusNoMatch, out.Status)
	assert.NotEmpty(t, trace.String())
	assert.False(t, strings.Contains(trace.String(), "super-secret"), trace.String())
	assert.Contains(t, trace.String(), "apiKey=YOUR_API_KEY")
}
