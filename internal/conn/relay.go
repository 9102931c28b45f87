package conn

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Stats counts the bytes a Relay moved in each direction.
type Stats struct {
	// Sent is client to upstream.
	Sent int64
	// Received is upstream to client.
	Received int64
}

// Relay copies client to upstream and upstream to client until both
// directions reach EOF. When one direction ends cleanly its destination is
// half-closed and the other direction keeps draining.
//
// A transport error in either direction, or ctx being done, closes both
// connections and ends the relay. Relay always closes both connections
// before returning, and returns the first error seen. Clean EOF on both
// sides returns nil. The byte counts are valid in either case.
func Relay(ctx context.Context, client, upstream net.Conn) (Stats, error) {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = upstream.Close()
		})
	}
	defer closeBoth()

	// gctx is done on the first error, on ctx cancellation, or once Wait
	// returns.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	var sent, received atomic.Int64

	g.Go(func() error {
		return copyHalf(upstream, client, &sent)
	})
	g.Go(func() error {
		return copyHalf(client, upstream, &received)
	})

	err := g.Wait()
	return Stats{Sent: sent.Load(), Received: received.Load()}, err
}

// copyHalf copies src to dst, counting into n, and half-closes dst when src
// reaches EOF.
func copyHalf(dst, src net.Conn, n *atomic.Int64) error {
	buf := relayBuffers.Get()
	defer relayBuffers.Put(buf)

	written, err := io.CopyBuffer(dst, src, *buf)
	n.Add(written)
	if err != nil {
		return err
	}

	CloseWrite(dst)
	return nil
}

// CloseWrite shuts down the write side of c when it supports it.
func CloseWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}
