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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCascade_DepthBound(t *testing.T) {
	ctx := context.Background()

	// service_mesh has a 5-step chain.
	for _, maxDepth := range []int{1, 2, 3, 5, 10} {
		eng, _ := newTestEngine(t, 31)
		res, err := eng.SimulateCascade(ctx, CascadeParams{
			FailureType:  "service_mesh",
			ForceCascade: true,
			MaxDepth:     maxDepth,
		})
		require.NoError(t, err)

		want := maxDepth
		if want > 5 {
			want = 5
		}
		assert.Equal(t, want, res.TotalSteps, "maxDepth=%d", maxDepth)
		assert.Equal(t, want, res.MaxDepthReached)
		assert.LessOrEqual(t, len(res.Steps), want)
	}
}

func TestSimulateCascade_ForceCascadeFailsEveryStep(t *testing.T) {
	eng, _ := newTestEngine(t, 17)
	res, err := eng.SimulateCascade(context.Background(), CascadeParams{
		FailureType:     "database_cascade",
		ForceCascade:    true,
		MaxDepth:        10,
		RecoveryEnabled: true, // forced cascades never recover
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalSteps) // full chain
	assert.Equal(t, 4, res.FailedServices)
	assert.Zero(t, res.RecoveredServices)
	for _, step := range res.Steps {
		assert.Equal(t, StepFailed, step.Status)
	}
	assert.Equal(t, OutcomeCascadeFailure, res.Kind)
	assert.False(t, res.Success)
}

func TestSimulateCascade_StepsAreOrderedAndLabeled(t *testing.T) {
	eng, _ := newTestEngine(t, 5)
	res, err := eng.SimulateCascade(context.Background(), CascadeParams{
		FailureType:  "service_mesh",
		ForceCascade: true,
		MaxDepth:     5,
	})
	require.NoError(t, err)

	services := []string{"auth-service", "user-service", "order-service", "payment-service", "notification-service"}
	for i, step := range res.Steps {
		assert.Equal(t, i, step.StepIndex)
		assert.Equal(t, services[i], step.Service)
		assert.Positive(t, step.ExecutionTimeMs)
	}
}

func TestSimulateCascade_DelayMultiplierScalesSleeps(t *testing.T) {
	ctx := context.Background()

	run := func(multiplier float64) int64 {
		eng, _ := newTestEngine(t, 77)
		res, err := eng.SimulateCascade(ctx, CascadeParams{
			FailureType:     "third_party",
			ForceCascade:    true,
			MaxDepth:        3,
			DelayMultiplier: multiplier,
		})
		require.NoError(t, err)
		return res.ExecutionTimeMs
	}

	base := run(1.0)
	doubled := run(2.0)
	assert.Equal(t, base*2, doubled)
}

func TestSimulateCascade_MultiplierClamped(t *testing.T) {
	eng, _ := newTestEngine(t, 13)
	res, err := eng.SimulateCascade(context.Background(), CascadeParams{
		FailureType:     "third_party",
		ForceCascade:    true,
		MaxDepth:        1,
		DelayMultiplier: 100, // clamped to 5.0
	})
	require.NoError(t, err)

	// First step delay 500ms × 5.0.
	assert.Equal(t, int64(2500), res.Steps[0].ExecutionTimeMs)
}

func TestSimulateCascade_StopOnFirstRecovery(t *testing.T) {
	ctx := context.Background()

	// Sweep seeds until a recovery occurs, then check the walk stopped.
	sawRecovery := false
	for seed := int64(1); seed <= 200 && !sawRecovery; seed++ {
		eng, _ := newTestEngine(t, seed)
		res, err := eng.SimulateCascade(ctx, CascadeParams{
			FailureType:         "infrastructure",
			MaxDepth:            6,
			RecoveryEnabled:     true,
			StopOnFirstRecovery: true,
		})
		require.NoError(t, err)

		for i, step := range res.Steps {
			if step.Status == StepRecovered {
				sawRecovery = true
				assert.Equal(t, len(res.Steps)-1, i, "recovered step must be the last executed")
				assert.Equal(t, 1, res.RecoveredServices)
				assert.True(t, res.Success)
			}
		}
	}
	require.True(t, sawRecovery, "no recovery in 200 seeded runs")
}

func TestSimulateCascade_NaturalStopEndsWalk(t *testing.T) {
	ctx := context.Background()

	sawNaturalStop := false
	for seed := int64(1); seed <= 200 && !sawNaturalStop; seed++ {
		eng, _ := newTestEngine(t, seed)
		res, err := eng.SimulateCascade(ctx, CascadeParams{
			FailureType: "service_mesh",
			MaxDepth:    5,
		})
		require.NoError(t, err)

		for i, step := range res.Steps {
			if step.Status == StepSuccess {
				sawNaturalStop = true
				assert.Equal(t, len(res.Steps)-1, i, "natural stop must end the walk")
				assert.True(t, res.Success)
			}
		}
	}
	require.True(t, sawNaturalStop, "no natural stop in 200 seeded runs")
}

func TestSimulateCascade_RecoveryTimeIsWorstStepCost(t *testing.T) {
	eng, _ := newTestEngine(t, 41)
	res, err := eng.SimulateCascade(context.Background(), CascadeParams{
		FailureType:  "service_mesh",
		ForceCascade: true,
		MaxDepth:     5,
	})
	require.NoError(t, err)

	var worst int64
	for _, step := range res.Steps {
		if cost := step.ExecutionTimeMs + step.PropagationDelayMs; cost > worst {
			worst = cost
		}
	}
	assert.Equal(t, worst, res.RecoveryTimeMs)
	// payment-service: 400ms delay + 150ms propagation.
	assert.Equal(t, int64(550), res.RecoveryTimeMs)
}

func TestSimulateCascade_DepthClampedToValidRange(t *testing.T) {
	eng, _ := newTestEngine(t, 3)
	res, err := eng.SimulateCascade(context.Background(), CascadeParams{
		FailureType:  "service_mesh",
		ForceCascade: true,
		MaxDepth:     -5, // clamped to 1
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalSteps)
}

func TestSimulateCascade_UnknownScenario(t *testing.T) {
	eng, _ := newTestEngine(t, 1)
	_, err := eng.SimulateCascade(context.Background(), CascadeParams{FailureType: "nope"})
	require.ErrorIs(t, err, ErrUnknownScenario)
}
