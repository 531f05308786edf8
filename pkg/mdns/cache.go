package mdns

import (
	"sort"
	"time"

	"github.com/miekg/dns"
)

// cacheKey identifies a cache slot. identity separates records that may
// coexist under one name and type; only PTR records use it, keyed by their
// target.
type cacheKey struct {
	name     string
	rrtype   uint16
	identity string
}

func keyFor(r *Record) cacheKey {
	key := cacheKey{
		name:   dns.CanonicalName(r.Name()),
		rrtype: r.Type(),
	}
	if ptr, ok := r.RR.(*dns.PTR); ok {
		key.identity = dns.CanonicalName(ptr.Ptr)
	}
	return key
}

func lessKey(a, b cacheKey) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	if a.rrtype != b.rrtype {
		return a.rrtype < b.rrtype
	}
	return a.identity < b.identity
}

// Cache stores at most one record per key. It never removes records on its
// own; expiry happens in CleanupRecords.
type Cache struct {
	entries    map[cacheKey]*Record
	byName     map[string]map[cacheKey]struct{}
	entryLimit int

	next      time.Time
	nextDirty bool
}

// NewCache creates an empty cache that is considered overfilled above
// entryLimit records
func NewCache(entryLimit int) *Cache {
	if entryLimit <= 0 {
		entryLimit = DefaultEntryLimit
	}
	return &Cache{
		entries:    make(map[cacheKey]*Record),
		byName:     make(map[string]map[cacheKey]struct{}),
		entryLimit: entryLimit,
	}
}

// SetEntryLimit changes the overfill threshold
func (c *Cache) SetEntryLimit(limit int) {
	c.entryLimit = limit
}

// Len returns the number of cached records
func (c *Cache) Len() int {
	return len(c.entries)
}

// Overfilled reports whether the cache holds more records than allowed
func (c *Cache) Overfilled() bool {
	return len(c.entries) > c.entryLimit
}

// Update inserts or replaces rec. A TTL of zero is a goodbye: the cached
// record with the same key is removed and returned. Goodbyes for unknown
// keys are ignored.
func (c *Cache) Update(rec *Record) (UpdateType, *Record) {
	key := keyFor(rec)
	existing, found := c.entries[key]

	if rec.TTL() == 0 {
		if !found {
			return RecordNoChange, nil
		}
		c.remove(key, existing)
		return RecordRemoved, existing
	}

	c.entries[key] = rec
	names, ok := c.byName[key.name]
	if !ok {
		names = make(map[cacheKey]struct{})
		c.byName[key.name] = names
	}
	names[key] = struct{}{}

	if found && existing.Expiration().Equal(c.next) {
		c.nextDirty = true
	}
	if !c.nextDirty && (c.next.IsZero() || rec.Expiration().Before(c.next)) {
		c.next = rec.Expiration()
	}

	if !found {
		return RecordAdded, nil
	}
	if !dns.IsDuplicate(existing.RR, rec.RR) {
		return RecordChanged, nil
	}
	return RecordNoChange, nil
}

// LookupKey returns the record stored under key, expired or not
func (c *Cache) LookupKey(key cacheKey) *Record {
	return c.entries[key]
}

// FindDnsRecords returns the unexpired records for name, restricted to
// rrtype unless it is zero. Results are ordered by type then identity.
func (c *Cache) FindDnsRecords(rrtype uint16, name string, now time.Time) []*Record {
	names := c.byName[dns.CanonicalName(name)]
	if len(names) == 0 {
		return nil
	}

	keys := make([]cacheKey, 0, len(names))
	for key := range names {
		if rrtype != 0 && key.rrtype != rrtype {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	var results []*Record
	for _, key := range keys {
		rec := c.entries[key]
		if !now.Before(rec.Expiration()) {
			continue
		}
		results = append(results, rec)
	}
	return results
}

// RemoveRecord removes rec if it is the record currently cached under its
// key, and returns it. Otherwise nil is returned.
func (c *Cache) RemoveRecord(rec *Record) *Record {
	key := keyFor(rec)
	existing, found := c.entries[key]
	if !found || existing != rec {
		return nil
	}
	c.remove(key, existing)
	return existing
}

// CleanupRecords removes every record expired at now and reports each
// through onRemoved. An overfilled cache is cleared entirely.
func (c *Cache) CleanupRecords(now time.Time, onRemoved func(*Record)) {
	clear := c.Overfilled()

	if !clear && !c.nextDirty && (c.next.IsZero() || now.Before(c.next)) {
		return
	}

	var removed []cacheKey
	var next time.Time
	for key, rec := range c.entries {
		exp := rec.Expiration()
		if clear || !now.Before(exp) {
			removed = append(removed, key)
			continue
		}
		if next.IsZero() || exp.Before(next) {
			next = exp
		}
	}
	sort.Slice(removed, func(i, j int) bool { return lessKey(removed[i], removed[j]) })

	records := make([]*Record, 0, len(removed))
	for _, key := range removed {
		records = append(records, c.entries[key])
		c.remove(key, c.entries[key])
	}
	c.next = next
	c.nextDirty = false

	if onRemoved == nil {
		return
	}
	for _, rec := range records {
		onRemoved(rec)
	}
}

// NextExpiration returns the earliest expiration in the cache, or the zero
// time when the cache is empty
func (c *Cache) NextExpiration() time.Time {
	if c.nextDirty {
		c.recomputeNext()
	}
	return c.next
}

func (c *Cache) remove(key cacheKey, rec *Record) {
	delete(c.entries, key)
	if names, ok := c.byName[key.name]; ok {
		delete(names, key)
		if len(names) == 0 {
			delete(c.byName, key.name)
		}
	}
	if rec.Expiration().Equal(c.next) {
		c.nextDirty = true
	}
}

func (c *Cache) recomputeNext() {
	var next time.Time
	for _, rec := range c.entries {
		exp := rec.Expiration()
		if next.IsZero() || exp.Before(next) {
			next = exp
		}
	}
	c.next = next
	c.nextDirty = false
}
