// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import "testing"

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "geoapify",
			in:   "https://api.geoapify.com/v1/geocode/search?city=Berlin&apiKey=abc123&country=DE",
			want: "https://api.geoapify.com/v1/geocode/search?city=Berlin&apiKey=YOUR_API_KEY&country=DE",
		},
		{
			name: "case insensitive, last param",
			in:   "https://x/y?street=a&APIKEY=abc",
			want: "https://x/y?street=a&APIKEY=YOUR_API_KEY",
		},
		{
			name: "google key first",
			in:   "https://maps.googleapis.com/maps/api/geocode/json?key=AIza&address=x",
			want: "https://maps.googleapis.com/maps/api/geocode/json?key=YOUR_API_KEY&address=x",
		},
		{
			name: "lookalike params untouched",
			in:   "https://x/y?monkey=banana&keyboard=1",
			want: "https://x/y?monkey=banana&keyboard=1",
		},
		{
			name: "quoted in a transport error",
			in:   `Get "http://127.0.0.1:1/v1/geocode/search?city=Berlin&apiKey=abc": connection refused`,
			want: `Get "http://127.0.0.1:1/v1/geocode/search?city=Berlin&apiKey=YOUR_API_KEY": connection refused`,
		},
		{
			name: "no credential",
			in:   "https://x/y?city=Berlin",
			want: "https://x/y?city=Berlin",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskCredential(tc.in); got != tc.want {
				t.Errorf("MaskCredential() = %q, want %q", got, tc.want)
			}
		})
	}
}
