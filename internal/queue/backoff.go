package queue

import "time"

const (
	backoffBase = time.Minute
	backoffCap  = 2 * time.Hour
)

// Backoff returns the retry delay for a job that has failed retryCount
// times already: 1m, 5m, 25m, then capped at two hours.
func Backoff(retryCount int) time.Duration {
	delay := backoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 5
		if delay >= backoffCap {
			return backoffCap
		}
	}
	return delay
}
