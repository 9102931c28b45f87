package dialer

import (
	"net"
	"time"

	"github.com/die-net/ptunnel/internal/resolve"
)

type Config struct {
	// DialTimeout bounds each TCP connect. Zero means no timeout.
	DialTimeout time.Duration

	// NegotiationTimeout bounds the proxy handshake, from writing the
	// request to consuming the end of the response headers. Zero means no
	// timeout.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// Resolver, if set, resolves host names before direct dials.
	Resolver *resolve.Resolver
}
