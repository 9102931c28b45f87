// Package tunnel runs the local side of each tunnel: one listener per
// configured local port, and for every accepted client an upstream
// connection followed by a byte relay.
package tunnel
