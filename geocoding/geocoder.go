// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding talks to hosted geocoding APIs using structured address
// queries and normalizes their answers into GeoJSON-like features.
package geocoding

import (
	"context"
	"net/url"

	"github.com/jcodagnone/geoverify/spatial"
)

// StructuredQuery is a structured (not free-text) address search.
type StructuredQuery struct {
	HouseNumber string `json:"housenumber"`
	Street      string `json:"street"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// Values returns the query as URL parameters, in a stable order.
func (q StructuredQuery) Values() url.Values {
	params := url.Values{}
	params.Set("housenumber", q.HouseNumber)
	params.Set("street", q.Street)
	params.Set("postcode", q.Postcode)
	params.Set("city", q.City)
	params.Set("country", q.Country)

	return params
}

// Rank carries the provider confidence scores. Every field is optional.
type Rank struct {
	Confidence            *float64 `json:"confidence,omitempty"`
	ConfidenceStreetLevel *float64 `json:"confidence_street_level,omitempty"`
	ConfidenceCityLevel   *float64 `json:"confidence_city_level,omitempty"`
	MatchType             string   `json:"match_type,omitempty"`
	Popularity            float64  `json:"popularity,omitempty"`
}

// Properties are the address components of a candidate feature.
type Properties struct {
	Formatted   string  `json:"formatted,omitempty"`
	Name        string  `json:"name,omitempty"`
	Street      string  `json:"street,omitempty"`
	HouseNumber string  `json:"housenumber,omitempty"`
	Suburb      string  `json:"suburb,omitempty"`
	City        string  `json:"city,omitempty"`
	Town        string  `json:"town,omitempty"`
	Village     string  `json:"village,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	ResultType  string  `json:"result_type,omitempty"`
	Rank        Rank    `json:"rank"`
}

// Geometry is a GeoJSON geometry; only points are expected.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// Feature is a single candidate result.
type Feature struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Geometry   *Geometry  `json:"geometry,omitempty"`
}

// Point returns the feature location, preferring the geometry. Out of
// range coordinates are ignored.
func (f *Feature) Point() *spatial.Point {
	if f.Geometry != nil {
		if p, ok := spatial.FromLngLat(f.Geometry.Coordinates); ok && p.Validate() == nil {
			return p
		}
	}

	if f.Properties.Lat != 0 || f.Properties.Lon != 0 {
		p := &spatial.Point{Lat: f.Properties.Lat, Lng: f.Properties.Lon}
		if p.Validate() == nil {
			return p
		}
	}

	return nil
}

// FeatureCollection is the search response.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Top returns the first feature or nil when the collection is empty.
func (c *FeatureCollection) Top() *Feature {
	if c == nil || len(c.Features) == 0 {
		return nil
	}

	return &c.Features[0]
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	// Name identifies the provider, e.g. "geoapify".
	Name() string

	// Search runs a structured address search.
	Search(ctx context.Context, q StructuredQuery) (*FeatureCollection, error)

	// DisplayURL is the request URL with the credential masked.
	DisplayURL(q StructuredQuery) string
}
