// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const googleBody = `{
  "status": "OK",
  "results": [{
    "formatted_address": "Av. 18 de Julio 1234, 11100 Montevideo, Uruguay",
    "address_components": [
      {"long_name": "1234", "short_name": "1234", "types": ["street_number"]},
      {"long_name": "Avenida 18 de Julio", "short_name": "Av. 18 de Julio", "types": ["route"]},
      {"long_name": "Centro", "short_name": "Centro", "types": ["sublocality", "political"]},
      {"long_name": "Montevideo", "short_name": "Montevideo", "types": ["locality", "political"]},
      {"long_name": "Uruguay", "short_name": "UY", "types": ["country", "political"]},
      {"long_name": "11100", "short_name": "11100", "types": ["postal_code"]}
    ],
    "geometry": {"location": {"lat": -34.9058, "lng": -56.1913}, "location_type": "RANGE_INTERPOLATED"},
    "types": ["street_address"]
  }]
}`

func TestGoogleMapsSearch(t *testing.T) {
	var got *http.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(googleBody))
	}))
	defer srv.Close()

	g := NewGoogleMapsGeocoder("gkey", srv.URL, "es")

	fc, err := g.Search(context.Background(), StructuredQuery{
		HouseNumber: "1234",
		Street:      "Av. 18 de Julio",
		Postcode:    "11100",
		City:        "Montevideo",
		Country:     "UY",
	})
	require.NoError(t, err)

	assert.Equal(t, "/maps/api/geocode/json", got.URL.Path)
	assert.Equal(t, "Av. 18 de Julio 1234", got.URL.Query().Get("address"))
	assert.Equal(t, "country:UY|postal_code:11100|locality:Montevideo", got.URL.Query().Get("components"))
	assert.Equal(t, "es", got.URL.Query().Get("language"))
	assert.Equal(t, "gkey", got.URL.Query().Get("key"))

	top := fc.Top()
	require.NotNil(t, top)

	p := top.Properties
	assert.Equal(t, "Avenida 18 de Julio", p.Street)
	assert.Equal(t, "1234", p.HouseNumber)
	assert.Equal(t, "Montevideo", p.City)
	assert.Equal(t, "Centro", p.Suburb)
	assert.Equal(t, "11100", p.Postcode)
	assert.Equal(t, "Uruguay", p.Country)
	assert.Equal(t, "uy", p.CountryCode)

	require.NotNil(t, p.Rank.Confidence)
	assert.InDelta(t, 0.9, *p.Rank.Confidence, 1e-9)
	require.NotNil(t, p.Rank.ConfidenceStreetLevel)
	assert.InDelta(t, 1.0, *p.Rank.ConfidenceStreetLevel, 1e-9)

	require.NotNil(t, top.Geometry)
	assert.Equal(t, []float64{-56.1913, -34.9058}, top.Geometry.Coordinates)
}

func TestGoogleMapsZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	fc, err := NewGoogleMapsGeocoder("k", srv.URL, "").Search(context.Background(), StructuredQuery{})
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}

func TestGoogleMapsStatusErrors(t *testing.T) {
	tests := []struct {
		status string
		want   ErrorType
	}{
		{"OVER_QUERY_LIMIT", ErrorTypeQuotaExceeded},
		{"REQUEST_DENIED", ErrorTypeQuotaExceeded},
		{"INVALID_REQUEST", ErrorTypeInvalidRequest},
		{"UNKNOWN_ERROR", ErrorTypeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"` + tc.status + `"}`))
			}))
			defer srv.Close()

			_, err := NewGoogleMapsGeocoder("k", srv.URL, "").Search(context.Background(), StructuredQuery{})

			var geoErr *GeocodingError
			require.ErrorAs(t, err, &geoErr)
			assert.Equal(t, tc.want, geoErr.Type)
		})
	}
}

func TestGoogleRank(t *testing.T) {
	tests := []struct {
		locationType string
		partial      bool
		confidence   float64
		streetLevel  float64
	}{
		{"ROOFTOP", false, 1, 1},
		{"ROOFTOP", true, 0.9, 1},
		{"RANGE_INTERPOLATED", false, 0.9, 1},
		{"GEOMETRIC_CENTER", false, 0.7, 1},
		{"APPROXIMATE", false, 0.4, 0},
	}

	for _, tc := range tests {
		t.Run(tc.locationType, func(t *testing.T) {
			r := googleRank(tc.locationType, tc.partial)
			assert.InDelta(t, tc.confidence, *r.Confidence, 1e-9)
			assert.InDelta(t, tc.streetLevel, *r.ConfidenceStreetLevel, 1e-9)
		})
	}
}

func TestGoogleMapsDisplayURLMasksKey(t *testing.T) {
	u := NewGoogleMapsGeocoder("AIzaSecret", "", "").DisplayURL(StructuredQuery{Street: "Main", Country: "US"})
	assert.NotContains(t, u, "AIzaSecret")
	assert.Contains(t, u, "key="+MaskedCredential)
}
