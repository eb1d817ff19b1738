package service

import "time"

// BackoffPolicy computes the delay before a failed job's next attempt:
// linear growth capped at a ceiling. Deterministic and monotone
// non-decreasing up to the cap.
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

// DefaultBackoff matches the production queue: 2s per attempt, 30s ceiling.
var DefaultBackoff = BackoffPolicy{Base: 2 * time.Second, Cap: 30 * time.Second}

func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * p.Base
	if d > p.Cap || d < 0 {
		return p.Cap
	}
	return d
}
