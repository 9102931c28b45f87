// Package conn holds the socket plumbing shared by every tunnel: the
// listener that applies TCP keepalive to accepted connections and the relay
// that copies bytes between a client and its upstream with half-close.
package conn
