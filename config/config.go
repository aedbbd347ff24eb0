// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads geoverify settings from a YAML file, a .env file and
// the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jcodagnone/geoverify/geocoding"
	"github.com/jcodagnone/geoverify/utils/httputils"
	"github.com/jcodagnone/geoverify/verification"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderGeoapify = "geoapify"
	ProviderGoogle   = "google_maps"
)

// UserAgent identifies outbound requests.
const UserAgent = "geoverify/1.0 (+https://github.com/jcodagnone/geoverify)"

// Config holds every setting of the tool.
type Config struct {
	Provider string `yaml:"provider" validate:"oneof=geoapify google_maps"`

	GeoapifyAPIKey string `yaml:"geoapify_api_key"`
	GoogleAPIKey   string `yaml:"google_maps_api_key"`

	// GoogleKeyName is the display name of a key to look up through
	// Application Default Credentials when GoogleAPIKey is empty.
	GoogleKeyName   string `yaml:"google_key_name"`
	GoogleProjectID string `yaml:"google_project_id"`

	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Lang    string        `yaml:"lang" validate:"omitempty,len=2,lowercase"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	BadgePolicy        string                         `yaml:"badge_policy" validate:"required"`
	VerificationPolicy string                         `yaml:"verification_policy" validate:"required"`
	Policies           map[string]verification.Policy `yaml:"policies"`

	DBPath string `yaml:"db"`
	Listen string `yaml:"listen" validate:"required,hostname_port"`

	// Rate is the batch request budget, in requests per second.
	Rate    float64 `yaml:"rate" validate:"gt=0"`
	Workers int     `yaml:"workers" validate:"min=1,max=64"`

	Trace bool `yaml:"trace"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Provider:           ProviderGeoapify,
		Lang:               "en",
		Timeout:            verification.DefaultTimeout,
		BadgePolicy:        "badge",
		VerificationPolicy: "verification",
		DBPath:             "geoverify.db",
		Listen:             "127.0.0.1:8080",
		Rate:               5,
		Workers:            4,
	}
}

// Load builds the configuration. Precedence, lowest first: defaults, the
// YAML file at path (optional), .env, then process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()

		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str("GEOAPIFY_API_KEY", &c.GeoapifyAPIKey)
	str("GOOGLE_MAPS_API_KEY", &c.GoogleAPIKey)
	str("GEOVERIFY_PROVIDER", &c.Provider)
	str("GEOVERIFY_GOOGLE_KEY_NAME", &c.GoogleKeyName)
	str("GEOVERIFY_GOOGLE_PROJECT_ID", &c.GoogleProjectID)
	str("GEOVERIFY_BASE_URL", &c.BaseURL)
	str("GEOVERIFY_LANG", &c.Lang)
	str("GEOVERIFY_BADGE_POLICY", &c.BadgePolicy)
	str("GEOVERIFY_VERIFICATION_POLICY", &c.VerificationPolicy)
	str("GEOVERIFY_DB", &c.DBPath)
	str("GEOVERIFY_LISTEN", &c.Listen)

	if v, ok := lookup("GEOVERIFY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GEOVERIFY_TIMEOUT: %w", err)
		}

		c.Timeout = d
	}

	if v, ok := lookup("GEOVERIFY_RATE"); ok && v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GEOVERIFY_RATE: %w", err)
		}

		c.Rate = r
	}

	if v, ok := lookup("GEOVERIFY_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GEOVERIFY_WORKERS: %w", err)
		}

		c.Workers = n
	}

	if v, ok := lookup("GEOVERIFY_TRACE"); ok && v != "" {
		c.Trace = strings.EqualFold(v, "true") || v == "1"
	}

	return nil
}

// Validate checks field constraints and that both policies resolve.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
			}

			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
		}

		return err
	}

	if _, _, err := c.ResolvePolicies(); err != nil {
		return err
	}

	return nil
}

// ResolvePolicies returns the configured badge and verification policies.
func (c *Config) ResolvePolicies() (verification.Policy, verification.Policy, error) {
	badge, err := verification.ResolvePolicy(c.BadgePolicy, c.Policies)
	if err != nil {
		return verification.Policy{}, verification.Policy{}, fmt.Errorf("badge policy: %w", err)
	}

	verif, err := verification.ResolvePolicy(c.VerificationPolicy, c.Policies)
	if err != nil {
		return verification.Policy{}, verification.Policy{}, fmt.Errorf("verification policy: %w", err)
	}

	return badge, verif, nil
}

// ClientOptions describes the client used for provider calls. Traces go to
// trace with credentials masked.
func (c *Config) ClientOptions(trace io.Writer) httputils.ClientOptions {
	opts := httputils.ClientOptions{
		Timeout:   c.Timeout,
		UserAgent: UserAgent,
		Redact:    geocoding.MaskCredential,
	}

	if c.Trace {
		opts.Trace = trace
	}

	return opts
}

// Geocoder builds the configured provider. For Google, a missing key is
// looked up through Application Default Credentials when a key name is set.
func (c *Config) Geocoder(ctx context.Context, trace io.Writer) (geocoding.Geocoder, error) {
	client := httputils.NewClient(c.ClientOptions(trace))

	switch c.Provider {
	case ProviderGeoapify:
		if c.GeoapifyAPIKey == "" {
			return nil, errors.New("missing Geoapify key: set GEOAPIFY_API_KEY or geoapify_api_key")
		}

		opts := []geocoding.GeoapifyOption{
			geocoding.WithGeoapifyLang(c.Lang),
			geocoding.WithGeoapifyHTTPClient(client),
		}
		if c.BaseURL != "" {
			opts = append(opts, geocoding.WithGeoapifyBaseURL(c.BaseURL))
		}

		return geocoding.NewGeoapifyGeocoder(c.GeoapifyAPIKey, opts...), nil
	case ProviderGoogle:
		key := c.GoogleAPIKey
		if key == "" {
			if c.GoogleKeyName == "" {
				return nil, errors.New("missing Google Maps key: set GOOGLE_MAPS_API_KEY or google_key_name")
			}

			log.Printf("🔑 Looking up Google Maps key %q through ADC", c.GoogleKeyName)

			var err error

			lookup := geocoding.GoogleKeyLookup{ProjectID: c.GoogleProjectID, DisplayName: c.GoogleKeyName}
			if key, err = lookup.APIKeyFromADC(ctx); err != nil {
				return nil, fmt.Errorf("google key lookup: %w", err)
			}
		}

		return geocoding.NewGoogleMapsGeocoder(key, c.BaseURL, c.Lang, geocoding.WithGoogleHTTPClient(client)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider)
	}
}

// Verifier builds a verifier over the configured provider and policies.
func (c *Config) Verifier(ctx context.Context, trace io.Writer, opts ...verification.Option) (*verification.Verifier, error) {
	g, err := c.Geocoder(ctx, trace)
	if err != nil {
		return nil, err
	}

	badge, verif, err := c.ResolvePolicies()
	if err != nil {
		return nil, err
	}

	opts = append([]verification.Option{
		verification.WithPolicies(badge, verif),
		verification.WithTimeout(c.Timeout),
	}, opts...)

	return verification.NewVerifier(g, opts...), nil
}
