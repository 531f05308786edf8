package mdns

import (
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

const (
	// Port is the mDNS port
	Port = 5353

	// ReceiveBufferSize is the size of each socket's receive buffer
	ReceiveBufferSize = 9000

	// DefaultTransactionTimeout bounds how long a network transaction waits
	DefaultTransactionTimeout = 3 * time.Second

	// DefaultEntryLimit is the cache size above which the cache is cleared
	DefaultEntryLimit = 100000

	// Active refresh queries go out at these fractions of a record's TTL
	refreshRatio1 = 0.85
	refreshRatio2 = 0.95

	// Top bit of the class field is the cache-flush bit in responses
	classMask = 0x7FFF
)

var (
	// MulticastAddrIPv4 is the IPv4 mDNS group
	MulticastAddrIPv4 = netip.MustParseAddrPort("224.0.0.251:5353")

	// MulticastAddrIPv6 is the IPv6 link-local mDNS group
	MulticastAddrIPv6 = netip.MustParseAddrPort("[ff02::fb]:5353")
)

// Record is a resource record held by the cache, stamped with the time it
// was received
type Record struct {
	RR      dns.RR
	Created time.Time
}

// Name returns the owner name as received
func (r *Record) Name() string {
	return r.RR.Header().Name
}

// Type returns the record type
func (r *Record) Type() uint16 {
	return r.RR.Header().Rrtype
}

// TTL returns the time to live in seconds
func (r *Record) TTL() uint32 {
	return r.RR.Header().Ttl
}

// Expiration returns the instant the record stops being valid
func (r *Record) Expiration() time.Time {
	return r.Created.Add(time.Duration(r.TTL()) * time.Second)
}

func (r *Record) String() string {
	return r.RR.String()
}

// UpdateType classifies the effect of a record on the cache
type UpdateType int

const (
	RecordNoChange UpdateType = iota
	RecordAdded
	RecordChanged
	RecordRemoved
)

func (u UpdateType) String() string {
	switch u {
	case RecordAdded:
		return "added"
	case RecordChanged:
		return "changed"
	case RecordRemoved:
		return "removed"
	default:
		return "nochange"
	}
}

func nsecHasType(nsec *dns.NSEC, rrtype uint16) bool {
	for _, t := range nsec.TypeBitMap {
		if t == rrtype {
			return true
		}
	}
	return false
}
