// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleMapsURL is the Google Maps Platform API root.
const DefaultGoogleMapsURL = "https://maps.googleapis.com"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	lang       string
	httpClient *http.Client
}

// GoogleOption customizes a GoogleMapsGeocoder.
type GoogleOption func(*GoogleMapsGeocoder)

// WithGoogleHTTPClient replaces the HTTP client.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleMapsGeocoder) {
		g.httpClient = c
	}
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder. An empty baseURL
// selects DefaultGoogleMapsURL.
func NewGoogleMapsGeocoder(apiKey, baseURL, lang string, opts ...GoogleOption) *GoogleMapsGeocoder {
	if baseURL == "" {
		baseURL = DefaultGoogleMapsURL
	}

	g := &GoogleMapsGeocoder{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		lang:    lang,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type googleMapsResponse struct {
	Results []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string   `json:"formatted_address"`
		PartialMatch     bool     `json:"partial_match"`
		Types            []string `json:"types"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

func (g *GoogleMapsGeocoder) Name() string {
	return "google_maps"
}

func (g *GoogleMapsGeocoder) requestURL(q StructuredQuery) string {
	// Free text keeps street and number; components restrict the match
	var components []string
	if q.Country != "" {
		components = append(components, "country:"+q.Country)
	}

	if q.Postcode != "" {
		components = append(components, "postal_code:"+q.Postcode)
	}

	if q.City != "" {
		components = append(components, "locality:"+q.City)
	}

	params := url.Values{}
	params.Set("address", strings.TrimSpace(q.Street+" "+q.HouseNumber))
	params.Set("components", strings.Join(components, "|"))

	if g.lang != "" {
		params.Set("language", g.lang)
	}

	params.Set("key", g.apiKey)

	return g.baseURL + "/maps/api/geocode/json?" + params.Encode()
}

func (g *GoogleMapsGeocoder) DisplayURL(q StructuredQuery) string {
	return MaskCredential(g.requestURL(q))
}

func (g *GoogleMapsGeocoder) Search(ctx context.Context, q StructuredQuery) (*FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.requestURL(q), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeDecode, Message: "decoding response", Err: err}
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}, nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return nil, &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: fmt.Sprintf("google maps status: %s %s", gmResp.Status, gmResp.ErrorMessage),
		}
	case "INVALID_REQUEST":
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps status: INVALID_REQUEST"}
	default:
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "google maps status: " + gmResp.Status}
	}

	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(gmResp.Results))}

	for _, result := range gmResp.Results {
		props := Properties{
			Formatted:  result.FormattedAddress,
			Lat:        result.Geometry.Location.Lat,
			Lon:        result.Geometry.Location.Lng,
			ResultType: strings.Join(result.Types, ","),
		}

		for _, c := range result.AddressComponents {
			for _, t := range c.Types {
				switch t {
				case "route":
					props.Street = c.LongName
				case "street_number":
					props.HouseNumber = c.LongName
				case "locality", "postal_town":
					if props.City == "" {
						props.City = c.LongName
					}
				case "sublocality", "sublocality_level_1":
					props.Suburb = c.LongName
				case "postal_code":
					props.Postcode = c.LongName
				case "country":
					props.Country = c.LongName
					props.CountryCode = strings.ToLower(c.ShortName)
				}
			}
		}

		props.Rank = googleRank(result.Geometry.LocationType, result.PartialMatch)

		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Properties: props,
			Geometry: &Geometry{
				Type:        "Point",
				Coordinates: []float64{result.Geometry.Location.Lng, result.Geometry.Location.Lat},
			},
		})
	}

	return fc, nil
}

// googleRank translates location_type into Geoapify-style confidence scores.
func googleRank(locationType string, partial bool) Rank {
	var confidence, streetLevel float64

	switch locationType {
	case "ROOFTOP":
		confidence, streetLevel = 1, 1
	case "RANGE_INTERPOLATED":
		confidence, streetLevel = 0.9, 1
	case "GEOMETRIC_CENTER":
		confidence, streetLevel = 0.7, 1
	default: // APPROXIMATE
		confidence, streetLevel = 0.4, 0
	}

	matchType := "full_match"
	if partial {
		matchType = "match_by_street"
		if confidence == 1 {
			confidence = 0.9
		}
	}

	return Rank{
		Confidence:            &confidence,
		ConfidenceStreetLevel: &streetLevel,
		MatchType:             matchType,
	}
}

var _ Geocoder = (*GoogleMapsGeocoder)(nil)
