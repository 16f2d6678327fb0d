// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "time"

// Clock abstracts wall-clock reads and simulated-delay sleeps so tests can
// substitute virtual time for real delays.
//
// # Limitations
//
//   - Sleep is not interruptible; request deadlines are enforced by the
//     HTTP layer, not the engine.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for the given duration. Non-positive durations return
	// immediately.
	Sleep(d time.Duration)
}

// realClock implements Clock over the runtime clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// RealClock returns the production Clock backed by the runtime clock.
func RealClock() Clock { return realClock{} }
