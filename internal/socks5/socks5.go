package socks5

import (
	"errors"
	"fmt"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	// CmdConnect is the SOCKS5 CONNECT command value.
	CmdConnect = txsocks5.CmdConnect

	// RepConnectionRefused and RepHostUnreachable are failure reply codes.
	RepConnectionRefused = txsocks5.RepConnectionRefused
	RepHostUnreachable   = txsocks5.RepHostUnreachable
)

var (
	// ErrAuthFailed is returned when username/password negotiation fails.
	ErrAuthFailed = errors.New("socks5: authentication failed")

	// ErrNoAcceptableMethod is returned when client and server share no
	// authentication method.
	ErrNoAcceptableMethod = errors.New("socks5: no acceptable authentication method")
)

// Auth is optional username/password authentication (RFC 1929).
type Auth struct {
	Username string
	Password string
}

// ReplyError is a non-success reply to a CONNECT command.
type ReplyError struct {
	Rep byte
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("socks5: connect rejected with reply code %d", e.Rep)
}
