/*
Package socket defines the socket abstractions shared by the unicast DNS
pool and the mDNS engine, along with their real implementations.

# Abstractions

	DatagramServerSocket   unconnected UDP, asynchronous RecvFrom/SendTo
	                       (completes now, or ErrIOPending + callback)
	DatagramClientSocket   UDP connected to one DNS server
	StreamSocket           TCP, connected explicitly by the caller
	ClientSocketFactory    creates client sockets for a bind strategy

# Implementations

	┌──────────────────────────────────────────────────────┐
	│ UDPClientSocket                                       │
	│   RandomBind: port drawn from RandIntFunc in          │
	│   [1024, 65535], up to 10 attempts on EADDRINUSE      │
	│   DefaultBind: port chosen by the OS                  │
	├──────────────────────────────────────────────────────┤
	│ TCPClientSocket                                       │
	│   dials each address in order, keeps the first        │
	├──────────────────────────────────────────────────────┤
	│ MulticastSocket                                       │
	│   SO_REUSEADDR (+ SO_REUSEPORT on unix) via           │
	│   net.ListenConfig, group join through x/net          │
	│   ipv4/ipv6, loopback on, TTL/hop limit 255           │
	│   reader goroutine -> queue or posted completion      │
	└──────────────────────────────────────────────────────┘

MulticastSocket never invokes a completion inline. Completions are posted to
the sequence.Runner given at construction, so callers running on that runner
observe them as ordinary tasks.

# Errors

Failures are reported as *Error values carrying the operation and details;
they unwrap to the underlying cause, so errors.Is works against both the
sentinels in this package and net/syscall errors.
*/
package socket
