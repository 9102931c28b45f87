package config

import "errors"

var (
	// ErrInvalidProxy is returned for a proxy that is neither host:port nor a
	// usable proxy URL.
	ErrInvalidProxy = errors.New("invalid proxy specification")

	// ErrInvalidTunnel is returned for a tunnel that is not
	// local_port:remote_host:remote_port.
	ErrInvalidTunnel = errors.New("invalid tunnel specification")

	// ErrInvalidPort is returned when a port is not a number in 0-65535.
	ErrInvalidPort = errors.New("invalid port number")

	// ErrInvalidAddress is returned when the listen address is not an IP.
	ErrInvalidAddress = errors.New("invalid IP address")
)
