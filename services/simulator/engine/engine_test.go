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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	eng, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, eng.Breakers())
	assert.NotNil(t, eng.Catalogs())
}

func TestNew_RejectsInvalidCatalogs(t *testing.T) {
	cats := &CatalogSet{byCategory: map[Category][]ScenarioDefinition{
		CategoryDatabaseError: {{ID: "bad", Weight: -1}},
	}}
	_, err := New(Options{Catalogs: cats})
	require.Error(t, err)
}

func TestNew_SameSeedSameDraws(t *testing.T) {
	run := func() []int {
		eng, _ := newTestEngine(t, 1234)
		codes := make([]int, 0, 20)
		for i := 0; i < 20; i++ {
			res, err := eng.SimulateHTTPError(context.Background(), HTTPErrorParams{})
			require.NoError(t, err)
			codes = append(codes, res.StatusCode)
		}
		return codes
	}
	assert.Equal(t, run(), run())
}

func TestEngine_SinkReceivesOutcomes(t *testing.T) {
	clock := newFakeClock()
	sink := newRecordingSink()
	eng, err := New(Options{Clock: clock, Seed: 1, Sink: sink})
	require.NoError(t, err)

	_, err = eng.SimulateDatabaseError(context.Background(), DatabaseErrorParams{
		ErrorType:  "connection_refused",
		ForceError: true,
		MaxRetries: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sink.counterValue("simulation.outcomes"))
	assert.Equal(t, 3, sink.counterValue("database.retry_attempts"))
}

// Simulations from many goroutines share only the breaker registry and the
// random source; this is a race-detector smoke test.
func TestEngine_ConcurrentSimulations(t *testing.T) {
	eng, _ := newTestEngine(t, 55)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				switch n % 3 {
				case 0:
					_, err := eng.SimulateTimeout(ctx, TimeoutParams{
						TimeoutType:    "connect_timeout",
						BreakerEnabled: true,
					})
					assert.NoError(t, err)
				case 1:
					_, err := eng.SimulateDatabaseError(ctx, DatabaseErrorParams{
						ErrorType:  "deadlock_detected",
						MaxRetries: 1,
					})
					assert.NoError(t, err)
				default:
					_, err := eng.SimulateHTTPError(ctx, HTTPErrorParams{})
					assert.NoError(t, err)
				}
			}
		}(g)
	}
	wg.Wait()
}
