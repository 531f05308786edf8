//go:build windows

package dns

import "github.com/cuemby/burrow/pkg/socket"

// Binding arbitrary ports triggers firewall prompts on Windows, so the OS
// picks ports and a large reserve supplies the randomness instead.
const (
	defaultBindType        = socket.DefaultBind
	defaultInitialPoolSize = 256
	defaultMinPoolSize     = 256
)
