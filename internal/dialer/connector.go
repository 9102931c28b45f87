package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/die-net/ptunnel/internal/config"
	"github.com/die-net/ptunnel/internal/socks5"
)

// Route records how an upstream connection was established.
type Route string

const (
	// RouteDirect is a direct dial with no proxy configured.
	RouteDirect Route = "direct"
	// RouteProxy is a connection negotiated through the proxy.
	RouteProxy Route = "proxy"
	// RouteFallback is a direct dial made because the proxy was unreachable.
	RouteFallback Route = "fallback"
)

// Upstream describes where tunnels connect through. The zero value dials
// every remote target directly.
type Upstream struct {
	// Proxy, if set, is tried first for every connection.
	Proxy *config.Proxy

	// Credential is the base64 Basic payload sent to an HTTP proxy. Empty
	// omits the Proxy-Authorization header.
	Credential string

	// SOCKS5Auth is used when Proxy is a SOCKS5 proxy.
	SOCKS5Auth socks5.Auth
}

// Connector opens the upstream leg of a tunnel connection.
type Connector struct {
	cfg    Config
	up     Upstream
	direct Dialer
	log    log.FieldLogger
}

// NewConnector returns a Connector that makes every TCP connect, to the proxy
// or to the remote target, through direct.
func NewConnector(cfg Config, direct Dialer, up Upstream, logger log.FieldLogger) *Connector {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Connector{cfg: cfg, up: up, direct: direct, log: logger}
}

// Connect returns a connection to t's remote target, ready for raw relay.
//
// With no proxy configured it dials the target directly. Otherwise it dials
// the proxy; if that fails it logs the failure and dials the target directly
// instead. Once the proxy is connected, any negotiation failure is returned
// as is, without a direct retry.
func (c *Connector) Connect(ctx context.Context, t config.Tunnel) (net.Conn, Route, error) {
	logger := c.log.WithField("tunnel", t.String())

	if c.up.Proxy == nil {
		logger.Debugf("connecting directly to %s", t.RemoteAddr())
		conn, err := c.dialRemote(ctx, t)
		return conn, RouteDirect, err
	}

	proxy := *c.up.Proxy
	logger.Debugf("connecting via proxy %s", proxy)
	conn, err := c.direct.DialContext(ctx, "tcp", proxy.Addr())
	if err != nil {
		proxyErr := fmt.Errorf("%w: %w", ErrProxyDial, err)
		logger.WithError(proxyErr).Warn("proxy connection failed, trying direct")
		conn, err := c.dialRemote(ctx, t)
		if err != nil {
			return nil, RouteFallback, errors.Join(err, proxyErr)
		}
		return conn, RouteFallback, nil
	}

	if err := c.negotiate(ctx, conn, proxy, t); err != nil {
		_ = conn.Close()
		return nil, RouteProxy, err
	}
	return conn, RouteProxy, nil
}

func (c *Connector) dialRemote(ctx context.Context, t config.Tunnel) (net.Conn, error) {
	conn, err := c.direct.DialContext(ctx, "tcp", t.RemoteAddr())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDial, err)
	}
	return conn, nil
}

// negotiate runs the proxy handshake on conn. If NegotiationTimeout is set,
// a deadline is applied for the handshake and cleared before returning.
func (c *Connector) negotiate(ctx context.Context, conn net.Conn, proxy config.Proxy, t config.Tunnel) error {
	// Unblock the handshake if ctx is canceled.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if c.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.NegotiationTimeout))
	}

	var err error
	if proxy.IsSOCKS5() {
		err = SOCKS5Connect(conn, c.up.SOCKS5Auth, t.RemoteAddr())
	} else {
		err = HTTPConnect(conn, t.Target(), c.up.Credential)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", err, ctxErr)
		}
		return err
	}
	if !stop() {
		// conn was closed by the cancellation.
		return ctx.Err()
	}

	if c.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}
	return nil
}
