/*
Package types defines the data structures shared between burrow's event,
storage and command packages.

# Observed Records

An ObservedRecord is the journal's view of a resource record: its owner
name, type mnemonic, presentation-format data and the times it was seen.

	┌─────────────────────────────────────────────┐
	│ ObservedRecord                              │
	│   Name       printer._ipp._tcp.local.       │
	│   Type       SRV                            │
	│   Data       0 0 631 printer.local.         │
	│   TTL        120                            │
	│   State      active | removed               │
	│   FirstSeen  first observation              │
	│   LastSeen   latest add or change           │
	│   RemovedAt  set while removed              │
	└─────────────────────────────────────────────┘

Key combines name (lowercased), type and data, so a record that changes its
data becomes a new entry while a TTL refresh updates the existing one.

Merge applies a newer observation: LastSeen and State follow the newer one,
FirstSeen keeps the earliest, and a removed record that reappears becomes
active again.

# Filtering

	filter := types.RecordFilter{Name: "printer.local", Type: "A", ActiveOnly: true}
	if filter.Match(rec) {
		...
	}

Name comparison ignores case and a trailing dot.
*/
package types
