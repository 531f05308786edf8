package mdns

import (
	"time"

	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/miekg/dns"
)

// ListenerDelegate receives the updates of one Listener
type ListenerDelegate interface {
	// OnRecordUpdate reports a record being added, changed or removed
	OnRecordUpdate(update UpdateType, rec *Record)

	// OnNsecRecord reports that name has no record of type rrtype
	OnNsecRecord(name string, rrtype uint16)

	// OnCachePurged reports that the cache was cleared
	OnCachePurged()
}

// Listener follows the cached records of one name and type. With active
// refresh it also queries the network before the last seen record expires.
type Listener struct {
	client   *Client
	core     *core
	rrtype   uint16
	name     string
	key      listenerKey
	delegate ListenerDelegate

	started       bool
	activeRefresh bool
	ttl           uint32
	lastUpdate    time.Time
	refresh       sequence.Cancelable
}

func newListener(client *Client, rrtype uint16, name string, delegate ListenerDelegate) *Listener {
	return &Listener{
		client:   client,
		rrtype:   rrtype,
		name:     name,
		key:      listenerKey{name: dns.CanonicalName(name), rrtype: rrtype},
		delegate: delegate,
	}
}

// Start registers the listener with the listening client
func (l *Listener) Start() error {
	if l.started {
		return ErrAlreadyStarted
	}
	if l.client.core == nil {
		return ErrNotListening
	}

	l.started = true
	l.core = l.client.core
	l.core.addListener(l)
	return nil
}

// SetActiveRefresh turns refresh queries on or off
func (l *Listener) SetActiveRefresh(enable bool) {
	l.activeRefresh = enable
	if !l.started {
		return
	}
	if !enable {
		l.refresh.Cancel()
		return
	}
	if !l.lastUpdate.IsZero() {
		l.scheduleNextRefresh()
	}
}

// Close unregisters the listener. It is safe to call from a delegate
// callback.
func (l *Listener) Close() {
	l.refresh.Cancel()
	if l.core != nil {
		if !l.core.closed {
			l.core.removeListener(l)
		}
		l.core = nil
	}
}

// Name returns the name the listener was created with
func (l *Listener) Name() string {
	return l.name
}

// Type returns the record type the listener follows
func (l *Listener) Type() uint16 {
	return l.rrtype
}

func (l *Listener) handleRecordUpdate(update UpdateType, rec *Record) {
	if update == RecordRemoved {
		l.refresh.Cancel()
		l.ttl = 0
		l.lastUpdate = time.Time{}
	} else {
		l.ttl = rec.TTL()
		l.lastUpdate = rec.Created
		l.scheduleNextRefresh()
	}
	if update != RecordNoChange {
		l.delegate.OnRecordUpdate(update, rec)
	}
}

func (l *Listener) alertNsecRecord() {
	l.delegate.OnNsecRecord(l.name, l.rrtype)
}

func (l *Listener) alertCachePurged() {
	l.delegate.OnCachePurged()
}

// scheduleNextRefresh queues two queries at fixed fractions of the TTL of
// the last update, replacing any queued before
func (l *Listener) scheduleNextRefresh() {
	if !l.activeRefresh || l.core == nil {
		return
	}

	l.refresh.Cancel()
	if l.ttl == 0 {
		return
	}

	runner := l.client.runner
	ttl := time.Duration(l.ttl) * time.Second
	now := runner.Now()
	for _, ratio := range []float64{refreshRatio1, refreshRatio2} {
		at := l.lastUpdate.Add(time.Duration(float64(ttl) * ratio))
		runner.PostDelayed(at.Sub(now), l.refresh.Wrap(l.doRefresh))
	}
}

func (l *Listener) doRefresh() {
	if l.core == nil || l.core.closed {
		return
	}
	if err := l.core.sendQuery(l.rrtype, l.name); err != nil {
		l.core.logger.Warn().Err(err).Str("name", l.name).Msg("Failed to send refresh query")
	}
}
