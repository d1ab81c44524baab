package service

import "time"

// SetClock replaces the limiter's time source.
func (l *AttemptLimiter) SetClock(now func() time.Time) { l.now = now }
