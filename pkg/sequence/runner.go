package sequence

import "time"

// Runner executes tasks one at a time on a single logical sequence.
// Everything in the mDNS engine that touches shared state runs on one Runner,
// so the engine types carry no locks of their own.
type Runner interface {
	// Now returns the runner's current time
	Now() time.Time

	// Post queues fn to run after every task posted before it
	Post(fn func())

	// PostDelayed queues fn to run once d has elapsed
	PostDelayed(d time.Duration, fn func())
}
