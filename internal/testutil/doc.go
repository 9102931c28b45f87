// Package testutil holds loopback servers shared by the package tests: an echo
// server, a single-connection server, and scriptable CONNECT and SOCKS5
// proxies.
package testutil
