/*
Package sequence provides the single-threaded task sequence that the mDNS
engine runs on.

All mDNS state (connection handlers, cache, listeners, transactions) is
mutated only from tasks executed by one Runner. Asynchronous socket
completions never touch that state directly; they post a task. This keeps
the engine free of locks while still allowing blocking I/O on background
goroutines.

# Runners

	┌──────────────── Runner ────────────────┐
	│  Now()                                  │
	│  Post(fn)                               │
	│  PostDelayed(d, fn)                     │
	└───────────┬────────────────┬───────────┘
	            │                │
	   ┌────────▼──────┐  ┌──────▼─────────┐
	   │     Loop      │  │     Manual     │
	   │ goroutine +   │  │ fake clock,    │
	   │ time.AfterFunc│  │ RunUntilIdle,  │
	   │ Run(ctx)      │  │ Advance(d)     │
	   └───────────────┘  └────────────────┘

Loop is used by the burrow CLI. Manual is used by tests, which step the
clock to exercise TTL expiry, refresh queries and transaction timeouts
without sleeping.

# Revocable callbacks

Timer and Cancelable use generation counters. A posted task captures the
generation at post time and does nothing if the generation has moved on:

	var c sequence.Cancelable
	runner.PostDelayed(3*time.Second, c.Wrap(onTimeout))
	c.Cancel() // onTimeout will never run

Neither type is safe for concurrent use; both belong to the sequence.
*/
package sequence
