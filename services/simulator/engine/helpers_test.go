// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a virtual clock: Sleep advances time instantly, so simulations
// run at full speed while still observing realistic elapsed-time arithmetic.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
}

// Advance moves the clock forward without recording a sleep, for open-window
// expiry tests.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

// recordingSink counts counter increments by name and remembers span events.
type recordingSink struct {
	mu       sync.Mutex
	counters map[string]int
	events   []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{counters: make(map[string]int)}
}

func (s *recordingSink) RecordCounter(_ context.Context, name string, _ Attrs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
}

func (s *recordingSink) RecordHistogram(context.Context, string, float64, Attrs) {}

func (s *recordingSink) StartSpan(ctx context.Context, _ string, _ Attrs) (context.Context, Span) {
	return ctx, &recordingSpan{sink: s}
}

func (s *recordingSink) counterValue(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

type recordingSpan struct {
	sink *recordingSink
}

func (sp *recordingSpan) AddEvent(name string, _ Attrs) {
	sp.sink.mu.Lock()
	defer sp.sink.mu.Unlock()
	sp.sink.events = append(sp.sink.events, name)
}

func (sp *recordingSpan) SetAttributes(Attrs) {}
func (sp *recordingSpan) RecordError(error)   {}
func (sp *recordingSpan) End()                {}

// newTestEngine builds an engine on a fake clock with a fixed seed.
func newTestEngine(t *testing.T, seed int64) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	eng, err := New(Options{Clock: clock, Seed: seed})
	require.NoError(t, err)
	return eng, clock
}
