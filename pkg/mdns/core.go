package mdns

import (
	"fmt"
	"sort"
	"time"

	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

const componentName = "mdns"

// core exists while a Client is listening. It owns the connection, the
// cache and the listener registry.
type core struct {
	client     *Client
	runner     sequence.Runner
	connection *Connection
	cache      *Cache
	listeners  map[listenerKey]*observerList
	logger     zerolog.Logger

	cleanupTimer     *sequence.Timer
	scheduledCleanup time.Time
	cancel           sequence.Cancelable
	closed           bool
}

func newCore(client *Client) *core {
	c := &core{
		client:       client,
		runner:       client.runner,
		cache:        NewCache(client.entryLimit),
		listeners:    make(map[listenerKey]*observerList),
		logger:       client.source.Logger("mdns.client"),
		cleanupTimer: sequence.NewTimer(client.runner),
	}
	c.connection = NewConnection(client.runner, c, client.source)
	return c
}

func (c *core) init(factory SocketFactory) error {
	return c.connection.Init(factory)
}

func (c *core) close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel.Cancel()
	c.cleanupTimer.Stop()
	c.scheduledCleanup = time.Time{}
	c.connection.Close()
	metrics.MDNSCacheEntries.Set(0)
}

// sendQuery multicasts a single-question query for name and rrtype
func (c *core) sendQuery(rrtype uint16, name string) error {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), rrtype)
	msg.Id = 0
	msg.RecursionDesired = false

	packet, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("failed to pack query for %s: %w", name, err)
	}

	c.connection.Send(packet)
	metrics.MDNSQueriesSent.Inc()
	c.logger.Debug().Str("name", name).Str("type", dns.TypeToString[rrtype]).Msg("Sent mDNS query")
	return nil
}

// queryCache returns the unexpired cached records for name and rrtype
func (c *core) queryCache(rrtype uint16, name string) []*Record {
	return c.cache.FindDnsRecords(rrtype, name, c.runner.Now())
}

func (c *core) addListener(l *Listener) {
	list, ok := c.listeners[l.key]
	if !ok {
		list = &observerList{}
		c.listeners[l.key] = list
	}
	list.add(l)
}

// removeListener detaches l. An emptied list is dropped on a later task, so
// removal is safe while the list is being notified.
func (c *core) removeListener(l *Listener) {
	list, ok := c.listeners[l.key]
	if !ok {
		return
	}
	list.remove(l)
	if !list.empty() {
		return
	}

	key := l.key
	c.runner.Post(c.cancel.Wrap(func() {
		if list, ok := c.listeners[key]; ok && list.empty() && list.iterating == 0 {
			delete(c.listeners, key)
		}
	}))
}

// touchedKey tracks the combined effect of one packet on one cache key
type touchedKey struct {
	update  UpdateType
	removed *Record
}

// HandlePacket applies every record of a response to the cache, then
// notifies listeners once per touched key. All records are applied before
// any listener runs.
func (c *core) HandlePacket(packet []byte) {
	metrics.MDNSPacketsReceived.Inc()

	now := c.runner.Now()
	resp, ok := parseResponse(packet, now)
	if resp.malformed > 0 {
		metrics.MDNSRecordsMalformed.Add(float64(resp.malformed))
		c.logger.Debug().Int("malformed", resp.malformed).Msg("Skipped malformed mDNS records")
	}
	if !ok {
		metrics.MDNSPacketsIgnored.Inc()
		return
	}

	var order []cacheKey
	touched := make(map[cacheKey]*touchedKey)
	var purged []*Record

	for _, rec := range resp.records {
		key := keyFor(rec)
		update, removed := c.cache.Update(rec)

		t, seen := touched[key]
		if !seen {
			t = &touchedKey{update: update}
			touched[key] = t
			order = append(order, key)
		} else {
			t.update = mergeUpdates(t.update, update)
		}
		if update == RecordRemoved {
			t.removed = removed
		}

		if c.cache.Overfilled() {
			c.cache.CleanupRecords(now, func(r *Record) { purged = append(purged, r) })
			metrics.MDNSCachePurges.Inc()
			c.logger.Warn().Int("limit", c.cache.entryLimit).Msg("mDNS cache overfilled, cleared")
		}
	}

	metrics.MDNSCacheEntries.Set(float64(c.cache.Len()))
	c.scheduleCleanup(c.cache.NextExpiration())

	if len(purged) > 0 {
		for _, r := range purged {
			c.alertListeners(RecordRemoved, r)
			if c.closed {
				return
			}
		}
		c.alertCachePurged()
	}

	for _, key := range order {
		if c.closed {
			return
		}
		t := touched[key]
		if rec := c.cache.LookupKey(key); rec != nil {
			if nsec, ok := rec.RR.(*dns.NSEC); ok {
				c.notifyNsecRecord(rec, nsec)
			} else {
				c.alertListeners(t.update, rec)
			}
			continue
		}
		if t.update == RecordRemoved && t.removed != nil {
			c.alertListeners(RecordRemoved, t.removed)
		}
	}
}

// mergeUpdates folds a later update for a key into an earlier one
func mergeUpdates(prev, next UpdateType) UpdateType {
	switch {
	case next == RecordRemoved:
		return RecordRemoved
	case prev == RecordAdded && next != RecordAdded:
		return RecordAdded
	case prev == RecordChanged && next == RecordNoChange:
		return RecordChanged
	case prev == RecordRemoved && next == RecordAdded:
		// the key existed before the packet and exists again
		return RecordChanged
	default:
		return next
	}
}

// OnConnectionError records the fatal error and forwards it to the client
func (c *core) OnConnectionError(err error) {
	c.logger.Error().Err(err).Msg("mDNS connection failed")
	metrics.MDNSConnectionErrors.Inc()
	metrics.UpdateComponent(componentName, false, "connection failed")
	metrics.SetComponentDetail(componentName, "last_error", err.Error())
	metrics.SetComponentDetail(componentName, "last_error_at", c.runner.Now().UTC().Format(time.RFC3339))
	if c.client.onConnectionError != nil {
		c.client.onConnectionError(err)
	}
}

func (c *core) alertListeners(update UpdateType, rec *Record) {
	key := listenerKey{name: dns.CanonicalName(rec.Name()), rrtype: rec.Type()}
	list, ok := c.listeners[key]
	if !ok {
		return
	}
	list.each(func(l *Listener) {
		l.handleRecordUpdate(update, rec)
	})
}

func (c *core) alertCachePurged() {
	for _, key := range c.sortedListenerKeys(func(listenerKey) bool { return true }) {
		if c.closed {
			return
		}
		if list, ok := c.listeners[key]; ok {
			list.each(func(l *Listener) { l.alertCachePurged() })
		}
	}
}

// notifyNsecRecord drops cached records of types the NSEC denies, then
// alerts listeners waiting on those types
func (c *core) notifyNsecRecord(rec *Record, nsec *dns.NSEC) {
	for _, cached := range c.cache.FindDnsRecords(0, rec.Name(), c.runner.Now()) {
		if cached.Type() == dns.TypeNSEC || nsecHasType(nsec, cached.Type()) {
			continue
		}
		if removed := c.cache.RemoveRecord(cached); removed != nil {
			metrics.MDNSCacheEntries.Set(float64(c.cache.Len()))
			c.alertListeners(RecordRemoved, removed)
			if c.closed {
				return
			}
		}
	}

	name := dns.CanonicalName(rec.Name())
	keys := c.sortedListenerKeys(func(key listenerKey) bool {
		return key.name == name && !nsecHasType(nsec, key.rrtype)
	})
	for _, key := range keys {
		if c.closed {
			return
		}
		if list, ok := c.listeners[key]; ok {
			list.each(func(l *Listener) { l.alertNsecRecord() })
		}
	}
}

func (c *core) sortedListenerKeys(match func(listenerKey) bool) []listenerKey {
	keys := make([]listenerKey, 0, len(c.listeners))
	for key := range c.listeners {
		if match(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].rrtype < keys[j].rrtype
	})
	return keys
}

// scheduleCleanup arms the cleanup timer for t. The zero time disarms it.
func (c *core) scheduleCleanup(t time.Time) {
	if c.closed || t.Equal(c.scheduledCleanup) {
		return
	}
	c.scheduledCleanup = t
	c.cleanupTimer.Stop()
	if t.IsZero() {
		return
	}

	delay := t.Sub(c.runner.Now())
	if delay < 0 {
		delay = 0
	}
	c.cleanupTimer.Start(delay, c.doCleanup)
}

func (c *core) doCleanup() {
	c.scheduledCleanup = time.Time{}

	var removed []*Record
	c.cache.CleanupRecords(c.runner.Now(), func(r *Record) { removed = append(removed, r) })
	metrics.MDNSCacheEntries.Set(float64(c.cache.Len()))

	for _, r := range removed {
		if c.closed {
			return
		}
		c.alertListeners(RecordRemoved, r)
	}
	c.scheduleCleanup(c.cache.NextExpiration())
}
