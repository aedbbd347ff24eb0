// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"context"
	"sync"

	"github.com/jcodagnone/geoverify/geocoding"
	"github.com/jcodagnone/geoverify/spatial"
)

// Session tracks the confirmations of a single form. A new confirmation
// cancels the one in flight, and only the latest may publish a result.
type Session struct {
	verifier *Verifier

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	selected *spatial.Point
	last     *Outcome
}

// NewSession creates a session bound to v.
func NewSession(v *Verifier) *Session {
	return &Session{verifier: v}
}

// Select autofills the form from a feature picked in an autocomplete widget
// and remembers its location to measure drift on the next confirmation.
func (s *Session) Select(f *geocoding.Feature) (AddressFormData, bool) {
	form, ok := FormFromFeature(f)
	if !ok {
		return form, false
	}

	s.mu.Lock()
	s.selected = f.Point()
	s.mu.Unlock()

	return form, true
}

// Confirm verifies form, superseding any confirmation still running.
func (s *Session) Confirm(ctx context.Context, form AddressFormData) *Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}

	s.seq++
	seq := s.seq
	s.cancel = cancel
	selected := s.selected
	s.mu.Unlock()

	out := s.verifier.Verify(ctx, form)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		if out.Status != StatusInvalid {
			out.Status = StatusSuperseded
			out.Diagnostics.Status = StatusLineSuperseded
		}

		return out
	}

	s.cancel = nil

	if out.Top != nil && selected != nil {
		if p := out.Top.Point(); p != nil {
			drift := selected.HaversineDistance(p)
			out.DriftMeters = &drift
		}
	}

	s.last = out

	return out
}

// Last returns the most recent published outcome, if any.
func (s *Session) Last() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Sessions is a registry of sessions keyed by form id.
type Sessions struct {
	verifier *Verifier

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions(v *Verifier) *Sessions {
	return &Sessions{verifier: v, sessions: make(map[string]*Session)}
}

// Get returns the session for formID, creating it on first use.
func (r *Sessions) Get(formID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[formID]
	if !ok {
		s = NewSession(r.verifier)
		r.sessions[formID] = s
	}

	return s
}

// Verifier returns the verifier shared by every session.
func (r *Sessions) Verifier() *Verifier {
	return r.verifier
}
