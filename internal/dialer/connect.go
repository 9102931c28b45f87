package dialer

import (
	"fmt"
	"io"
	"strings"
)

// WriteConnectRequest writes a CONNECT request for target (host:port) in a
// single write. The Proxy-Authorization header is sent only when credential,
// an already base64-encoded Basic payload, is non-empty.
func WriteConnectRequest(w io.Writer, target, credential string) error {
	var b strings.Builder
	b.WriteString("CONNECT ")
	b.WriteString(target)
	b.WriteString(" HTTP/1.1\r\n")
	if credential != "" {
		b.WriteString("Proxy-Authorization: Basic ")
		b.WriteString(credential)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestWrite, err)
	}
	return nil
}

// HTTPConnect asks the proxy on rw to open a tunnel to target and consumes
// its response headers. On success rw carries the tunneled stream.
func HTTPConnect(rw io.ReadWriter, target, credential string) error {
	if err := WriteConnectRequest(rw, target, credential); err != nil {
		return err
	}
	if _, err := ReadConnectResponse(rw); err != nil {
		return err
	}
	return nil
}
