package tunnel

import (
	"context"
	"net"
	"net/netip"

	log "github.com/sirupsen/logrus"

	"github.com/die-net/ptunnel/internal/config"
	"github.com/die-net/ptunnel/internal/conn"
	"github.com/die-net/ptunnel/internal/dialer"
)

// Connector opens the upstream leg for a tunnel. *dialer.Connector
// implements it.
type Connector interface {
	Connect(ctx context.Context, t config.Tunnel) (net.Conn, dialer.Route, error)
}

// Config is shared, read-only, by every tunnel.
type Config struct {
	// BindAddr is the local IP tunnels listen on.
	BindAddr netip.Addr

	Listen conn.ListenOptions

	Connector Connector

	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

func (c Config) logger() log.FieldLogger {
	if c.Logger == nil {
		return log.StandardLogger()
	}
	return c.Logger
}
