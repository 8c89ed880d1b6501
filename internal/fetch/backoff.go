// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import "time"

// BackoffPolicy maps an attempt count to a retry delay: Base doubles each
// attempt and is capped at Max. Delay is a pure function so retry schedules
// can be asserted in tests without sleeping.
type BackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry number attempt (0-based: the delay
// after the first failed try is Delay(0) = Base).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}
