package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/die-net/ptunnel/internal/config"
	"github.com/die-net/ptunnel/internal/conn"
	"github.com/die-net/ptunnel/internal/dialer"
	"github.com/die-net/ptunnel/internal/metrics"
)

// ErrBind is returned when a tunnel cannot listen on its local port.
var ErrBind = errors.New("bind failed")

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server accepts client connections for one tunnel.
type Server struct {
	cfg    Config
	tunnel config.Tunnel
	name   string
	log    log.FieldLogger

	sessions sync.WaitGroup
}

func NewServer(cfg Config, t config.Tunnel) *Server {
	name := t.String()
	return &Server{
		cfg:    cfg,
		tunnel: t,
		name:   name,
		log:    cfg.logger().WithField("tunnel", name),
	}
}

// ListenAndServe binds the tunnel's local port and serves it until ctx is
// done. A bind failure is wrapped in ErrBind.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := config.ListenAddr(s.cfg.BindAddr, s.tunnel)
	ln, err := conn.ListenTCP(ctx, "tcp", addr, s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("%w: tunnel %s: %w", ErrBind, s.name, err)
	}

	s.log.Infof("listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, handling each in its own goroutine, until
// ctx is done or ln is closed. Accept errors are logged and retried with
// backoff. Once accepting stops, Serve waits for every connection it started
// to finish; sessions already relaying run until their peers close.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer s.drain()

	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			metrics.AcceptErrors.WithLabelValues(s.name).Inc()
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log.WithError(err).Errorf("accept failed; retrying in %s", delay)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.handle(ctx, c)
		}()
	}
}

func (s *Server) drain() {
	s.log.Debug("stopped accepting; waiting for active connections")
	s.sessions.Wait()
}

func (s *Server) handle(ctx context.Context, client net.Conn) {
	defer client.Close()

	logger := s.log.WithField("client", client.RemoteAddr().String())
	metrics.ConnectionsAccepted.WithLabelValues(s.name).Inc()
	logger.Debug("accepted connection")

	up, route, err := s.cfg.Connector.Connect(ctx, s.tunnel)
	metrics.ObserveDial(string(route), err, dialer.HandshakeFailureKind(err))
	if err != nil {
		logger.WithError(err).Error("upstream connection failed")
		return
	}
	logger.WithField("route", route).Debug("upstream ready")

	metrics.ActiveSessions.Inc()
	start := time.Now()

	// Shutdown stops accepting; Serve waits for this relay to end on its own.
	st, err := conn.Relay(context.WithoutCancel(ctx), client, up)

	metrics.ActiveSessions.Dec()
	metrics.SessionDuration.Observe(time.Since(start).Seconds())
	metrics.ObserveBytes(s.name, st.Sent, st.Received)

	logger = logger.WithFields(log.Fields{"sent": st.Sent, "received": st.Received})
	if err != nil {
		logger.WithError(err).Error("relay failed")
		return
	}
	logger.Debug("connection closed")
}
