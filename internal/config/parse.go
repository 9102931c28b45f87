package config

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// DefaultListenAddr is the local address tunnels bind to unless overridden.
const DefaultListenAddr = "127.0.0.1"

// ProxyEnvVars are consulted, in order, when no proxy is given explicitly.
var ProxyEnvVars = []string{"https_proxy", "HTTPS_PROXY"}

// ParseTunnel parses "local_port:remote_host:remote_port".
func ParseTunnel(s string) (Tunnel, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Tunnel{}, fmt.Errorf("%w: %q", ErrInvalidTunnel, s)
	}

	localPort, err := parsePort(parts[0])
	if err != nil {
		return Tunnel{}, err
	}
	remotePort, err := parsePort(parts[2])
	if err != nil {
		return Tunnel{}, err
	}

	return Tunnel{
		LocalPort:  localPort,
		RemoteHost: parts[1],
		RemotePort: remotePort,
	}, nil
}

// ParseProxy parses "host:port". Strings containing "://" are handed to
// ParseProxyURL so that http:// and socks5:// forms work on the command line
// as well.
func ParseProxy(s string) (Proxy, error) {
	if strings.Contains(s, "://") {
		return ParseProxyURL(s)
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Proxy{}, fmt.Errorf("%w: %q", ErrInvalidProxy, s)
	}
	port, err := parsePort(parts[1])
	if err != nil {
		return Proxy{}, err
	}

	return Proxy{Scheme: SchemeHTTP, Host: parts[0], Port: port}, nil
}

// ParseProxyURL parses a proxy URL as found in the https_proxy environment
// variable. The port defaults to 80 for HTTP proxies and 1080 for SOCKS5.
func ParseProxyURL(s string) (Proxy, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Proxy{}, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}

	var scheme, defaultPort string
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		scheme, defaultPort = SchemeHTTP, "80"
	case "socks5", "socks5h":
		scheme, defaultPort = SchemeSOCKS5, "1080"
	default:
		return Proxy{}, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidProxy, s)
	}

	host := u.Hostname()
	if host == "" {
		return Proxy{}, fmt.Errorf("%w: host is missing in proxy url %q", ErrInvalidProxy, s)
	}

	portStr := u.Port()
	if portStr == "" {
		portStr = defaultPort
	}
	port, err := parsePort(portStr)
	if err != nil {
		return Proxy{}, err
	}

	return Proxy{Scheme: scheme, Host: host, Port: port}, nil
}

// ProxyFromEnv returns the proxy named by the first set variable in
// ProxyEnvVars. found is false when none is set; err is non-nil when the
// value is set but unusable.
func ProxyFromEnv(lookup func(string) (string, bool)) (p Proxy, found bool, err error) {
	for _, name := range ProxyEnvVars {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		p, err := ParseProxyURL(v)
		if err != nil {
			return Proxy{}, true, fmt.Errorf("%s: %w", name, err)
		}
		return p, true, nil
	}
	return Proxy{}, false, nil
}

// ParseListenAddr parses the local bind address, which must be an IP.
func ParseListenAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr, nil
}

// ListenAddr returns the host:port a tunnel binds to on bindIP.
func ListenAddr(bindIP netip.Addr, t Tunnel) string {
	return net.JoinHostPort(bindIP.String(), strconv.Itoa(int(t.LocalPort)))
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidPort, s, err)
	}
	return uint16(n), nil
}
