// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 5, 4, 9, 7, 3, 45_000_000, time.Local)

	return func() time.Time { return t }
}

func TestLogFormatsEntry(t *testing.T) {
	c := NewConsole(WithClock(fixedClock()))

	c.Log("request_end", map[string]any{"success": true, "suggestions": 2})

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "09:07:03.045", entries[0].Time)
	assert.Equal(t, "request_end", entries[0].Event)
	assert.Equal(t, "{\n  \"success\": true,\n  \"suggestions\": 2\n}", entries[0].Payload)
}

func TestDisabledAndUnknownEventsAreDropped(t *testing.T) {
	c := NewConsole()

	require.NoError(t, c.SetEnabled("input", false))
	c.Log("input", "abc")
	c.Log("keypress", "abc")
	c.Log("open", "true")

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "open", entries[0].Event)
	assert.Equal(t, "true", entries[0].Payload)

	require.Error(t, c.SetEnabled("keypress", true))
	assert.False(t, c.Enabled()["input"])

	c.SetAll(false)
	c.Log("open", "again")
	assert.Len(t, c.Entries(), 1)

	c.SetAll(true)
	c.Log("input", "x")
	assert.Len(t, c.Entries(), 2)
}

func TestRingKeepsLastEntries(t *testing.T) {
	c := NewConsole()

	for i := range MaxEntries + 25 {
		c.Log("input", fmt.Sprintf("%d", i))
	}

	entries := c.Entries()
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, "25", entries[0].Payload)
	assert.Equal(t, fmt.Sprintf("%d", MaxEntries+24), entries[MaxEntries-1].Payload)

	c.Clear()
	assert.Empty(t, c.Entries())
}

func TestFormatPayloadTruncates(t *testing.T) {
	long := strings.Repeat("ü", 2000)

	got := FormatPayload(long)
	assert.Equal(t, MaxPayload+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))

	assert.Equal(t, "null", FormatPayload(nil))
	assert.Equal(t, "short", FormatPayload("short"))
}

func TestConcurrentLog(t *testing.T) {
	c := NewConsole()

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range 50 {
				c.Log("suggestions", map[string]int{"worker": i, "n": j})
			}
		}()
	}

	wg.Wait()

	assert.Len(t, c.Entries(), MaxEntries)
}
