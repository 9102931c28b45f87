package dialer

import (
	"errors"
	"fmt"
)

var (
	// ErrProxyDial marks a failed TCP connect to the proxy. The connector
	// recovers from it by dialing the remote target directly.
	ErrProxyDial = errors.New("proxy dial failed")

	// ErrDial marks a failed direct TCP connect to the remote target.
	ErrDial = errors.New("remote dial failed")

	// ErrRequestWrite marks a failure writing the CONNECT request.
	ErrRequestWrite = errors.New("connect request write failed")

	// ErrResponseRead marks a transport failure while reading the CONNECT
	// response, including the proxy closing before the headers ended.
	ErrResponseRead = errors.New("connect response read failed")

	// ErrInvalidHeaderEncoding is returned when the first 12 bytes of the
	// response are not valid UTF-8.
	ErrInvalidHeaderEncoding = errors.New("invalid connect response: status line is not valid UTF-8")

	// ErrInvalidStatusFormat is returned when bytes 9-11 of the response are
	// not a number.
	ErrInvalidStatusFormat = errors.New("invalid connect response: status code is not a number")

	// ErrUpstreamRejected matches any *RejectedError.
	ErrUpstreamRejected = errors.New("proxy rejected connect")

	// ErrMalformedLineTerminator is returned when CR and LF bytes in the
	// response headers are out of CRLF order.
	ErrMalformedLineTerminator = errors.New("invalid connect response: malformed line terminator")

	// ErrSOCKS5Handshake marks a failed SOCKS5 negotiation or CONNECT.
	ErrSOCKS5Handshake = errors.New("socks5 handshake failed")
)

// RejectedError is a CONNECT response with a status outside 2xx.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("proxy rejected connect with status %d", e.StatusCode)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}

// HandshakeFailureKind classifies err for metrics and logs. It returns ""
// when err is not a proxy handshake failure.
func HandshakeFailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidHeaderEncoding):
		return "invalid_header_encoding"
	case errors.Is(err, ErrInvalidStatusFormat):
		return "invalid_status_format"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, ErrMalformedLineTerminator):
		return "malformed_line_terminator"
	case errors.Is(err, ErrRequestWrite):
		return "request_write"
	case errors.Is(err, ErrResponseRead):
		return "response_read"
	case errors.Is(err, ErrSOCKS5Handshake):
		return "socks5"
	default:
		return ""
	}
}
