package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
)

// Proxy schemes understood by the upstream connector.
const (
	SchemeHTTP   = "http"
	SchemeSOCKS5 = "socks5"
)

// Tunnel maps one local listening port to a remote host:port.
type Tunnel struct {
	LocalPort  uint16
	RemoteHost string
	RemotePort uint16
}

// RemoteAddr returns the remote endpoint in a form suitable for dialing.
func (t Tunnel) RemoteAddr() string {
	return net.JoinHostPort(t.RemoteHost, strconv.Itoa(int(t.RemotePort)))
}

// Target returns the remote endpoint as written into a CONNECT request line.
func (t Tunnel) Target() string {
	return fmt.Sprintf("%s:%d", t.RemoteHost, t.RemotePort)
}

func (t Tunnel) String() string {
	return fmt.Sprintf("%d:%s:%d", t.LocalPort, t.RemoteHost, t.RemotePort)
}

// Proxy is the upstream proxy every tunnel is routed through, when set.
type Proxy struct {
	// Scheme is SchemeHTTP (CONNECT) or SchemeSOCKS5. Empty means SchemeHTTP.
	Scheme string
	Host   string
	Port   uint16
}

// Addr returns the proxy endpoint in a form suitable for dialing.
func (p Proxy) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}

// IsSOCKS5 reports whether the proxy speaks SOCKS5 rather than HTTP CONNECT.
func (p Proxy) IsSOCKS5() bool {
	return p.Scheme == SchemeSOCKS5
}

func (p Proxy) String() string {
	scheme := p.Scheme
	if scheme == "" {
		scheme = SchemeHTTP
	}
	return scheme + "://" + p.Addr()
}

// User is the identity presented to the proxy.
type User struct {
	Name        string
	Password    string
	HasPassword bool
}

// Encoded returns the Basic authentication payload for u: the base64 encoding
// of "name" or "name:password".
func (u User) Encoded() string {
	s := u.Name
	if u.HasPassword {
		s += ":" + u.Password
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}
