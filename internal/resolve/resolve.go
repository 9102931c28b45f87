// Package resolve provides the host lookup used before dialing a remote
// target directly.
//
// Lookups are cached for a fixed TTL and concurrent lookups of the same host
// share one in-flight query, so a burst of connections on one tunnel costs a
// single DNS round trip.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// LookupFunc matches net.Resolver.LookupHost.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolver resolves host names to addresses.
type Resolver struct {
	lookup  LookupFunc
	timeout time.Duration
	cache   *cache.Cache
	sf     singleflight.Group
}

// New returns a Resolver that caches answers for ttl. A zero ttl disables
// caching; lookups are still coalesced. Each shared lookup is bounded by
// timeout, zero meaning no bound. A nil lookup uses net.DefaultResolver.
func New(ttl, timeout time.Duration, lookup LookupFunc) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	r := &Resolver{lookup: lookup, timeout: timeout}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

// LookupHost returns the addresses of host. IP literals are returned as-is
// without a lookup.
//
// Canceling ctx abandons the wait but not the shared lookup, whose answer
// other waiters may still use.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []string{ip.String()}, nil
	}

	if r.cache != nil {
		if v, ok := r.cache.Get(host); ok {
			return v.([]string), nil
		}
	}

	ch := r.sf.DoChan(host, func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		if r.timeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, r.timeout)
			defer cancel()
		}

		addrs, err := r.lookup(lctx, host)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("lookup %s: no addresses", host)
		}
		if r.cache != nil {
			r.cache.SetDefault(host, addrs)
		}
		return addrs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

// Flush drops every cached answer.
func (r *Resolver) Flush() {
	if r.cache != nil {
		r.cache.Flush()
	}
}
