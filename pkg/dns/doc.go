/*
Package dns provides the unicast DNS socket layer for burrow: a randomized
UDP socket pool, a non-pooled socket allocator and a small client that
exchanges messages over them.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                          Client                             │
	│  • Exchange(ctx, msg, serverIndex)                          │
	│  • Resolve(ctx, name, qtype) tries servers in order         │
	│  • UDP first, TCP when the reply is truncated               │
	└────────┬────────────────────────────────────────────────────┘
	         │ Sockets
	    ┌────┴──────────────┐
	    ▼                   ▼
	┌────────────────┐ ┌──────────────────┐
	│  SocketPool    │ │ SocketAllocator  │
	│  reserve per   │ │ fresh socket per │
	│  server, random│ │ request          │
	│  pick          │ │                  │
	└───────┬────────┘ └────────┬─────────┘
	        │                   │
	        ▼                   ▼
	   socket.ClientSocketFactory

# Socket Pool

Each server has a reserve of UDP sockets that are already connected to it.
AllocateSocket tops the reserve up to its minimum, then removes one socket
picked uniformly at random (swap with last and pop). Because each socket is
bound to its own local port, the port a query leaves from cannot be
predicted from earlier queries.

	Pool for 8.8.8.8:53
	┌──────┬──────┬──────┬──────┐
	│ :4711│:60213│:1388 │:33012│   AllocateSocket(0), RandInt -> 1
	└──────┴──────┴──────┴──────┘
	┌──────┬──────┬──────┐
	│ :4711│:33012│:1388 │          :60213 handed out, :33012 swapped in
	└──────┴──────┴──────┘

Freed sockets are always closed, never put back. Creation failures are
logged and skipped, so a reserve may be smaller than requested and
AllocateSocket may return nil.

Platform defaults are chosen with build tags:

	windows      DefaultBind, 256 sockets created up front, minimum 256
	elsewhere    RandomBind,  nothing created up front, minimum 1

PoolingNull disables the reserve entirely: every allocation creates and
connects a new socket.

# Usage

	pool := dns.NewSocketPool(dns.PoolingDefault, socket.NewFactory(nil), nil)
	if err := pool.Initialize(nameservers, log.NewSource("dns.pool")); err != nil {
		return err
	}
	defer pool.Close()

	client := dns.NewClient(pool, src, dns.WithTimeout(5*time.Second))
	resp, err := client.Resolve(ctx, "example.com", miekgdns.TypeA)

# Errors

	ErrAlreadyInitialized  Initialize called twice
	ErrNotInitialized      pool used before Initialize, or no servers
	ErrInvalidServerIndex  index outside the nameserver list
	ErrNoSocket            no socket could be created
	ErrIDMismatch          only replies with a foreign ID arrived
*/
package dns
