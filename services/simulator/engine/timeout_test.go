// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateTimeout_ForcedTimeoutDelayWindow(t *testing.T) {
	ctx := context.Background()

	// Forced timeouts must sleep 100%-200% of the threshold.
	for seed := int64(1); seed <= 20; seed++ {
		eng, _ := newTestEngine(t, seed)
		res, err := eng.SimulateTimeout(ctx, TimeoutParams{
			TimeoutType:    "connect_timeout",
			ServiceContext: "cache",
			ForceTimeout:   true,
		})
		require.NoError(t, err)

		assert.True(t, res.TimedOut)
		assert.Equal(t, OutcomeTimeout, res.Kind)
		assert.False(t, res.Success)
		assert.GreaterOrEqual(t, res.ExecutionTimeMs, int64(1000), "seed %d", seed)
		assert.LessOrEqual(t, res.ExecutionTimeMs, int64(2000), "seed %d", seed)
	}
}

func TestSimulateTimeout_SuccessDelayWindow(t *testing.T) {
	ctx := context.Background()

	// Successful runs sleep 0%-80% of the threshold.
	for seed := int64(1); seed <= 40; seed++ {
		eng, _ := newTestEngine(t, seed)
		res, err := eng.SimulateTimeout(ctx, TimeoutParams{
			TimeoutType: "dns_timeout", // 70% success rate
		})
		require.NoError(t, err)
		if !res.Success {
			continue
		}
		assert.Less(t, res.ExecutionTimeMs, int64(400), "seed %d: 80%% of 500ms", seed)
	}
}

func TestSimulateTimeout_CustomTimeoutOverridesScenario(t *testing.T) {
	eng, _ := newTestEngine(t, 4)
	res, err := eng.SimulateTimeout(context.Background(), TimeoutParams{
		TimeoutType:     "connect_timeout",
		ForceTimeout:    true,
		CustomTimeoutMs: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, 200, res.TimeoutMs)
	assert.GreaterOrEqual(t, res.ExecutionTimeMs, int64(200))
	assert.LessOrEqual(t, res.ExecutionTimeMs, int64(400))
}

func TestSimulateTimeout_BreakerLifecycle(t *testing.T) {
	ctx := context.Background()
	eng, clock := newTestEngine(t, 9)

	params := TimeoutParams{
		TimeoutType:    "gateway_timeout", // threshold 2
		ServiceContext: "upstream",
		ForceTimeout:   true,
		BreakerEnabled: true,
	}
	key := BreakerKey{ScenarioType: "gateway_timeout", ServiceContext: "upstream"}

	t.Run("failures trip the breaker at threshold", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			res, err := eng.SimulateTimeout(ctx, params)
			require.NoError(t, err)
			assert.Equal(t, OutcomeTimeout, res.Kind)
		}
		assert.Equal(t, BreakerOpen, eng.Breakers().State(key))
	})

	t.Run("open breaker short-circuits with no delay", func(t *testing.T) {
		before := len(clock.sleeps())
		res, err := eng.SimulateTimeout(ctx, params)
		require.NoError(t, err)

		assert.Equal(t, OutcomeCircuitOpen, res.Kind)
		assert.False(t, res.Success)
		assert.Zero(t, res.ExecutionTimeMs)
		assert.Equal(t, before, len(clock.sleeps()), "rejection must not sleep")
	})

	t.Run("success after the window closes the breaker", func(t *testing.T) {
		clock.Advance(31 * time.Second)

		probe := params
		probe.ForceTimeout = false
		// gateway_timeout succeeds 40% of the time; retry the probe
		// until a success lands (each failure reopens, so re-advance).
		for i := 0; i < 50; i++ {
			res, err := eng.SimulateTimeout(ctx, probe)
			require.NoError(t, err)
			if res.Success {
				break
			}
			clock.Advance(31 * time.Second)
		}
		assert.Equal(t, BreakerClosed, eng.Breakers().State(key))
		snap := eng.Breakers().ListStates()[key.String()]
		assert.Zero(t, snap.FailureCount)
	})
}

func TestSimulateTimeout_BreakerDisabledNeverTouchesRegistry(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, 6)

	for i := 0; i < 10; i++ {
		_, err := eng.SimulateTimeout(ctx, TimeoutParams{
			TimeoutType:  "connect_timeout",
			ForceTimeout: true,
		})
		require.NoError(t, err)
	}
	assert.Empty(t, eng.Breakers().ListStates())
}

func TestSimulateTimeout_DefaultsServiceContext(t *testing.T) {
	eng, _ := newTestEngine(t, 12)
	res, err := eng.SimulateTimeout(context.Background(), TimeoutParams{
		TimeoutType:    "read_timeout",
		ForceTimeout:   true,
		BreakerEnabled: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "default", res.ServiceContext)
	_, tracked := eng.Breakers().ListStates()["read_timeout:default"]
	assert.True(t, tracked)
}

func TestSimulateTimeout_WeightedSelectionWhenTypeOmitted(t *testing.T) {
	eng, _ := newTestEngine(t, 21)
	res, err := eng.SimulateTimeout(context.Background(), TimeoutParams{ForceTimeout: true})
	require.NoError(t, err)
	assert.Equal(t, CategoryTimeout, res.Scenario.Category)
	assert.NotEmpty(t, res.Scenario.ID)
}

func TestSimulateTimeout_UnknownScenario(t *testing.T) {
	eng, _ := newTestEngine(t, 2)
	_, err := eng.SimulateTimeout(context.Background(), TimeoutParams{TimeoutType: "nope"})
	require.ErrorIs(t, err, ErrUnknownScenario)
}
