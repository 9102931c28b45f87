package tunnel

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/die-net/ptunnel/internal/config"
)

// Run serves every tunnel concurrently and waits for all of them. A tunnel
// that fails to bind is logged and does not affect the others. Run returns
// once ctx is done, or when every tunnel failed to bind, with the joined
// bind errors.
func Run(ctx context.Context, cfg Config, tunnels []config.Tunnel) error {
	errs := make([]error, len(tunnels))

	// Not errgroup.WithContext: one tunnel's failure must not stop the rest.
	var g errgroup.Group
	for i, t := range tunnels {
		g.Go(func() error {
			if err := NewServer(cfg, t).ListenAndServe(ctx); err != nil {
				cfg.logger().WithField("tunnel", t.String()).WithError(err).Error("error when creating tunnel")
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
