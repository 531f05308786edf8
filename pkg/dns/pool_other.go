//go:build !windows

package dns

import "github.com/cuemby/burrow/pkg/socket"

const (
	defaultBindType        = socket.RandomBind
	defaultInitialPoolSize = 0
	defaultMinPoolSize     = 1
)
