// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointScan(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Point
	}{
		{"duckdb text", []byte("POINT (-56.15 -34.88)"), Point{Lat: -34.88, Lng: -56.15}},
		{"wkt string", "POINT(13.4 52.5)", Point{Lat: 52.5, Lng: 13.4}},
		{"nil", nil, Point{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p Point
			require.NoError(t, p.Scan(tc.input))
			assert.InDelta(t, tc.want.Lat, p.Lat, 1e-9)
			assert.InDelta(t, tc.want.Lng, p.Lng, 1e-9)
		})
	}
}

func TestPointScanRejectsUnknownTypes(t *testing.T) {
	var p Point
	assert.Error(t, p.Scan(42))
	assert.Error(t, p.Scan(map[string]any{"x": 2.35, "y": 48.85}))
	assert.Error(t, p.Scan("LINESTRING(0 0, 1 1)"))
}

func TestPointValueRoundTrip(t *testing.T) {
	in := Point{Lat: -34.9011, Lng: -56.1645}

	v, err := in.Value()
	require.NoError(t, err)

	var out Point
	require.NoError(t, out.Scan(v))
	assert.InDelta(t, in.Lat, out.Lat, 1e-6)
	assert.InDelta(t, in.Lng, out.Lng, 1e-6)
}

func TestFromLngLat(t *testing.T) {
	p, ok := FromLngLat([]float64{13.37, 52.51})
	require.True(t, ok)
	assert.Equal(t, &Point{Lat: 52.51, Lng: 13.37}, p)

	_, ok = FromLngLat([]float64{1})
	assert.False(t, ok)
}

func TestHaversineDistance(t *testing.T) {
	berlin := &Point{Lat: 52.5200, Lng: 13.4050}
	paris := &Point{Lat: 48.8566, Lng: 2.3522}

	assert.InDelta(t, 877_000, berlin.HaversineDistance(paris), 5_000)
	assert.InDelta(t, 0, berlin.HaversineDistance(berlin), 1e-6)
}

func TestCell(t *testing.T) {
	p := Point{Lat: 52.5200, Lng: 13.4050}

	a, err := p.Cell(9)
	require.NoError(t, err)
	assert.NotZero(t, a)

	near := Point{Lat: 52.52001, Lng: 13.40501}
	b, err := near.Cell(9)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = p.Cell(42)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"berlin", Point{Lat: 52.52, Lng: 13.405}, false},
		{"edges", Point{Lat: -90, Lng: 180}, false},
		{"lat", Point{Lat: 90.1, Lng: 0}, true},
		{"lng", Point{Lat: 0, Lng: -180.5}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
