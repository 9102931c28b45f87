package dialer

import (
	"fmt"
	"io"

	"github.com/die-net/ptunnel/internal/socks5"
)

// SOCKS5Connect negotiates with the SOCKS5 proxy on rw and asks it to connect
// to address (host:port).
func SOCKS5Connect(rw io.ReadWriter, auth socks5.Auth, address string) error {
	if err := socks5.Dial(rw, auth, address); err != nil {
		return fmt.Errorf("%w: %w", ErrSOCKS5Handshake, err)
	}
	return nil
}
