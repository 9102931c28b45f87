package conn

import (
	"context"
	"fmt"
	"net"
)

// ListenOptions configures ListenTCP.
type ListenOptions struct {
	// KeepAlive is applied to every accepted *net.TCPConn.
	KeepAlive net.KeepAliveConfig

	// ReusePort sets SO_REUSEPORT on the listening socket. It returns
	// ErrReusePortUnsupported where the platform lacks it.
	ReusePort bool
}

// ListenTCP listens on the given network/address and returns a net.Listener
// that applies opts.KeepAlive to accepted TCP connections. The listener is
// closed when ctx is done.
func ListenTCP(ctx context.Context, network, addr string, opts ListenOptions) (net.Listener, error) {
	lc := net.ListenConfig{}
	if opts.ReusePort {
		if !ReusePortSupported {
			return nil, fmt.Errorf("listen %s %s: %w", network, addr, ErrReusePortUnsupported)
		}
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	return &KeepAliveListener{Listener: ln, KeepAliveConfig: opts.KeepAlive}, nil
}

// KeepAliveListener wraps a net.Listener and applies KeepAliveConfig to any
// accepted *net.TCPConn.
type KeepAliveListener struct {
	net.Listener
	net.KeepAliveConfig
}

// Accept accepts the next connection and applies KeepAliveConfig if the
// connection is a *net.TCPConn.
func (l *KeepAliveListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	ApplyKeepAlive(c, l.KeepAliveConfig)

	return c, nil
}

// ApplyKeepAlive sets ka on c if it is a *net.TCPConn.
func ApplyKeepAlive(c net.Conn, ka net.KeepAliveConfig) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(ka)
	}
}
