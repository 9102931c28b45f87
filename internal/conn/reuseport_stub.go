//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package conn

import (
	"errors"
	"syscall"
)

// ReusePortSupported is true where SO_REUSEPORT is available.
const ReusePortSupported = false

// ErrReusePortUnsupported is returned by ListenTCP when ReusePort is
// requested on a platform without SO_REUSEPORT.
var ErrReusePortUnsupported = errors.New("SO_REUSEPORT is not supported on this platform")

func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return ErrReusePortUnsupported
}
