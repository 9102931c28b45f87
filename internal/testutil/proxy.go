package testutil

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/die-net/ptunnel/internal/socks5"
)

// DefaultConnectResponse is what a ConnectProxy answers unless told otherwise.
const DefaultConnectResponse = "HTTP/1.1 200 Connection established\r\n\r\n"

// ConnectProxyOptions scripts a ConnectProxy.
type ConnectProxyOptions struct {
	// Response is written verbatim after the request headers are read. Bytes
	// after the blank line reach the client as tunneled data. Empty means
	// DefaultConnectResponse.
	Response string

	// Resolve maps the CONNECT target to the address actually dialed, so
	// tests can use names like mail.example.com. Nil dials the target as is.
	Resolve func(target string) string
}

// ConnectProxy is a minimal HTTP CONNECT proxy that records every request.
type ConnectProxy struct {
	ln   net.Listener
	opts ConnectProxyOptions

	mu       sync.Mutex
	requests []string
}

// StartConnectProxy starts a ConnectProxy on a loopback port. It stops when
// ctx is done.
func StartConnectProxy(ctx context.Context, t *testing.T, opts ConnectProxyOptions) *ConnectProxy {
	t.Helper()

	if opts.Response == "" {
		opts.Response = DefaultConnectResponse
	}
	if opts.Resolve == nil {
		opts.Resolve = func(target string) string { return target }
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	p := &ConnectProxy{ln: ln, opts: opts}
	go p.serve(ctx)
	return p
}

// Addr returns the proxy's listening address.
func (p *ConnectProxy) Addr() string {
	return p.ln.Addr().String()
}

// Requests returns the raw request headers received so far, each including
// its terminating blank line.
func (p *ConnectProxy) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func (p *ConnectProxy) serve(ctx context.Context) {
	for {
		c, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.handle(ctx, c)
	}
}

func (p *ConnectProxy) handle(ctx context.Context, c net.Conn) {
	defer c.Close()

	br := bufio.NewReader(c)
	var req strings.Builder
	for {
		line, err := br.ReadString('\n')
		req.WriteString(line)
		if err != nil {
			return
		}
		if line == "\r\n" {
			break
		}
	}

	p.mu.Lock()
	p.requests = append(p.requests, req.String())
	p.mu.Unlock()

	if _, err := io.WriteString(c, p.opts.Response); err != nil {
		return
	}
	if !strings.HasPrefix(p.opts.Response, "HTTP/1.1 2") {
		return
	}

	fields := strings.Fields(req.String())
	if len(fields) < 2 || fields[0] != "CONNECT" {
		return
	}

	var d net.Dialer
	dst, err := d.DialContext(ctx, "tcp", p.opts.Resolve(fields[1]))
	if err != nil {
		return
	}
	defer dst.Close()

	Pipe(c, br, dst)
}

// Pipe relays between a client (read through r) and dst until both
// directions finish, half-closing each side as its source ends.
func Pipe(c net.Conn, r io.Reader, dst net.Conn) {
	g := errgroup.Group{}
	g.Go(func() error {
		_, err := io.Copy(dst, r)
		CloseWrite(dst)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(c, dst)
		CloseWrite(c)
		return err
	})
	_ = g.Wait()
}

// StartSOCKS5Proxy starts a minimal SOCKS5 proxy on a loopback port that
// requires auth (when auth.Username is set) and serves CONNECT commands,
// mapping each requested address through resolve when it is non-nil.
func StartSOCKS5Proxy(ctx context.Context, t *testing.T, auth socks5.Auth, resolve func(string) string) net.Listener {
	t.Helper()

	if resolve == nil {
		resolve = func(addr string) string { return addr }
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				if err := socks5.ServerNegotiate(c, auth); err != nil {
					return
				}
				req, err := socks5.ServerReadRequest(c)
				if err != nil || req.Cmd != socks5.CmdConnect {
					return
				}

				var d net.Dialer
				dst, err := d.DialContext(ctx, "tcp", resolve(req.Address()))
				if err != nil {
					_ = socks5.WriteFailureReply(c, socks5.RepHostUnreachable)
					return
				}
				defer dst.Close()

				if err := socks5.WriteSuccessReply(c, dst.LocalAddr()); err != nil {
					return
				}
				Pipe(c, c, dst)
			}()
		}
	}()

	return ln
}
