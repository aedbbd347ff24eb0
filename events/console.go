// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package events keeps a bounded log of widget and request events for the
// developer console.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jcodagnone/geoverify/utils/textutils"
)

const (
	// MaxEntries is the number of entries kept by the console.
	MaxEntries = 100
	// MaxPayload is the number of characters kept of a formatted payload.
	MaxPayload = 800

	timestampLayout = "15:04:05.000"
)

// Known lists every event the console accepts.
var Known = []string{
	"select",
	"suggestions",
	"input",
	"close",
	"open",
	"request_start",
	"request_end",
	"places",
	"places_request_start",
	"places_request_end",
	"place_details_request_start",
	"place_details_request_end",
	"place_select",
	"clear",
}

// Entry is a single console line.
type Entry struct {
	Time    string `json:"time"`
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// Console is a fixed size ring of events. It is safe for concurrent use.
type Console struct {
	mu      sync.Mutex
	enabled map[string]bool
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
	trace   bool
}

// Option customizes a Console.
type Option func(*Console)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Console) {
		c.now = now
	}
}

// WithTrace also writes accepted events to the standard logger.
func WithTrace(trace bool) Option {
	return func(c *Console) {
		c.trace = trace
	}
}

// NewConsole creates a console with every known event enabled.
func NewConsole(opts ...Option) *Console {
	c := &Console{
		enabled: make(map[string]bool, len(Known)),
		entries: make([]Entry, MaxEntries),
		now:     time.Now,
	}

	for _, name := range Known {
		c.enabled[name] = true
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsKnown reports whether name is a known event.
func IsKnown(name string) bool {
	for _, k := range Known {
		if k == name {
			return true
		}
	}

	return false
}

// SetEnabled toggles a single event.
func (c *Console) SetEnabled(name string, enabled bool) error {
	if !IsKnown(name) {
		return fmt.Errorf("unknown event %q", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled[name] = enabled

	return nil
}

// SetAll toggles every event.
func (c *Console) SetAll(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range Known {
		c.enabled[name] = enabled
	}
}

// Enabled returns the toggle state of every known event.
func (c *Console) Enabled() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]bool, len(c.enabled))
	for k, v := range c.enabled {
		out[k] = v
	}

	return out
}

// Log records an event. Disabled and unknown events are dropped.
func (c *Console) Log(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled[event] {
		return
	}

	entry := Entry{
		Time:    c.now().Format(timestampLayout),
		Event:   event,
		Payload: FormatPayload(payload),
	}

	c.entries[c.next] = entry
	c.next = (c.next + 1) % MaxEntries

	if c.next == 0 {
		c.full = true
	}

	if c.trace {
		log.Printf("🔎 [%s] %s %s", entry.Time, entry.Event, entry.Payload)
	}
}

// Entries returns the kept entries, oldest first.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.full {
		out := make([]Entry, c.next)
		copy(out, c.entries[:c.next])

		return out
	}

	out := make([]Entry, 0, MaxEntries)
	out = append(out, c.entries[c.next:]...)
	out = append(out, c.entries[:c.next]...)

	return out
}

// Clear drops every entry.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make([]Entry, MaxEntries)
	c.next = 0
	c.full = false
}

// FormatPayload renders payload as indented JSON, truncated to MaxPayload.
// Strings are kept verbatim.
func FormatPayload(payload any) string {
	text, ok := payload.(string)
	if !ok {
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", payload)
		}

		text = string(b)
	}

	return textutils.Truncate(text, MaxPayload, textutils.Ellipsis)
}
