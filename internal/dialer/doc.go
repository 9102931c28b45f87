// Package dialer produces the upstream connection for a tunnel.
//
// A Connector dials the configured proxy, falling back to a direct dial of
// the tunnel's remote target only when the proxy itself cannot be reached.
// Once the proxy answers, it negotiates the tunnel with a hand-written HTTP
// CONNECT exchange (or SOCKS5 when the proxy is a SOCKS5 server) and returns
// the raw socket positioned at the first relayed byte. A failed negotiation is
// terminal for that connection; it never triggers a direct retry.
package dialer
