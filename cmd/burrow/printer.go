package main

import (
	"fmt"
	"io"
	"time"

	"github.com/cuemby/burrow/pkg/events"
)

// printEvents writes one line per event until the subscription closes
func printEvents(w io.Writer, sub events.Subscriber) {
	for ev := range sub {
		fmt.Fprintln(w, formatEvent(ev))
	}
}

func formatEvent(ev *events.Event) string {
	ts := ev.Timestamp.Format(time.TimeOnly)

	switch ev.Type {
	case events.EventRecordAdded:
		return fmt.Sprintf("%s  + %s", ts, ev.Message)
	case events.EventRecordChanged:
		return fmt.Sprintf("%s  ~ %s", ts, ev.Message)
	case events.EventRecordRemoved:
		return fmt.Sprintf("%s  - %s", ts, ev.Message)
	case events.EventRecordNonexistent:
		return fmt.Sprintf("%s  ! %s", ts, ev.Message)
	default:
		return fmt.Sprintf("%s  [%s] %s", ts, ev.Type, ev.Message)
	}
}
