// Package socks5 is the SOCKS5 handshake used when the configured upstream
// proxy is a SOCKS5 server instead of an HTTP CONNECT proxy.
//
// It wraps the protocol types in github.com/txthinking/socks5. The client
// half is used by the upstream connector; the server half exists so tests can
// stand up a minimal SOCKS5 proxy against the same wire code.
package socks5
