package rateLimit

import "time"

func NewLocalLimiterWithClock(now func() time.Time) *LocalLimiter {
	return newLocalLimiter(now)
}
