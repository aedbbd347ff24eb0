// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"rate limit error type", &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit exceeded"}, true},
		{"wrapped rate limit", fmt.Errorf("verifying: %w", &GeocodingError{Type: ErrorTypeRateLimit}), true},
		{"message contains rate limit", errors.New("rate limit exceeded"), true},
		{"message contains too many requests", errors.New("too many requests"), true},
		{"message contains 429", errors.New("geoapify returned status 429"), true},
		{"other error type", &GeocodingError{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"unrelated error", errors.New("some other error"), false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"quota error type", &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "quota"}, true},
		{"google status", errors.New("status OVER_QUERY_LIMIT"), true},
		{"message", errors.New("Quota exceeded for today"), true},
		{"other type", &GeocodingError{Type: ErrorTypeTimeout}, false},
		{"unrelated", errors.New("boom"), false},
	}, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"timeout type", &GeocodingError{Type: ErrorTypeTimeout}, true},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), true},
		{"message", errors.New("i/o timeout"), true},
		{"other type", &GeocodingError{Type: ErrorTypeNetworkError, Message: "timeout-ish but typed"}, false},
		{"unrelated", errors.New("boom"), false},
	}, IsTimeoutError)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusUnauthorized, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusGatewayTimeout, ErrorTypeNetworkError},
		{http.StatusInternalServerError, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := ClassifyHTTPError(tt.status, ""); got.Type != tt.want {
				t.Errorf("ClassifyHTTPError(%d) = %v, want %v", tt.status, got.Type, tt.want)
			}
		})
	}
}

func TestGeocodingErrorMessage(t *testing.T) {
	base := errors.New("connection refused")
	err := &GeocodingError{Type: ErrorTypeNetworkError, Message: "geocoding request failed", Err: base}

	if got, want := err.Error(), "geocoding request failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, base) {
		t.Error("errors.Is should reach the wrapped error")
	}

	if got := ErrorTypeNetworkError.String(); got != "network" {
		t.Errorf("String() = %q", got)
	}
}
