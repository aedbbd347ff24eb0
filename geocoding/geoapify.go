// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGeoapifyURL is the public Geoapify API root.
const DefaultGeoapifyURL = "https://api.geoapify.com"

// GeoapifyGeocoder uses the Geoapify Geocoding API structured search.
type GeoapifyGeocoder struct {
	apiKey     string
	baseURL    string
	lang       string
	httpClient *http.Client
}

// GeoapifyOption customizes a GeoapifyGeocoder.
type GeoapifyOption func(*GeoapifyGeocoder)

// WithGeoapifyBaseURL points the geocoder at another API root (tests, proxies).
func WithGeoapifyBaseURL(u string) GeoapifyOption {
	return func(g *GeoapifyGeocoder) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithGeoapifyLang sets the result language.
func WithGeoapifyLang(lang string) GeoapifyOption {
	return func(g *GeoapifyGeocoder) {
		g.lang = lang
	}
}

// WithGeoapifyHTTPClient replaces the HTTP client.
func WithGeoapifyHTTPClient(c *http.Client) GeoapifyOption {
	return func(g *GeoapifyGeocoder) {
		g.httpClient = c
	}
}

// NewGeoapifyGeocoder creates a new Geoapify geocoder.
func NewGeoapifyGeocoder(apiKey string, opts ...GeoapifyOption) *GeoapifyGeocoder {
	g := &GeoapifyGeocoder{
		apiKey:  apiKey,
		baseURL: DefaultGeoapifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *GeoapifyGeocoder) Name() string {
	return "geoapify"
}

func (g *GeoapifyGeocoder) requestURL(q StructuredQuery) string {
	params := q.Values()
	if g.lang != "" {
		params.Set("lang", g.lang)
	}

	params.Set("apiKey", g.apiKey)

	return g.baseURL + "/v1/geocode/search?" + params.Encode()
}

func (g *GeoapifyGeocoder) DisplayURL(q StructuredQuery) string {
	return MaskCredential(g.requestURL(q))
}

func (g *GeoapifyGeocoder) Search(ctx context.Context, q StructuredQuery) (*FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.requestURL(q), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var fc FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeDecode, Message: "decoding response", Err: err}
	}

	if fc.Features == nil {
		fc.Features = []Feature{}
	}

	return &fc, nil
}

var _ Geocoder = (*GeoapifyGeocoder)(nil)

// String implements fmt.Stringer without leaking the key.
func (g *GeoapifyGeocoder) String() string {
	return fmt.Sprintf("geoapify(%s)", g.baseURL)
}
