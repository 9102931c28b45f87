package dialer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// State is the position of a ResponseParser within a CONNECT response.
type State uint8

const (
	// StateStarted expects the 12-byte status prefix.
	StateStarted State = iota
	// StateHeaderOK is inside a header line.
	StateHeaderOK
	// StateFirstCR has seen the CR ending a line.
	StateFirstCR
	// StateFirstLF is at the start of a line.
	StateFirstLF
	// StateSecondCR has seen the CR of the blank line.
	StateSecondCR
	// StateDone has consumed the blank line ending the headers.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateHeaderOK:
		return "header_ok"
	case StateFirstCR:
		return "first_cr"
	case StateFirstLF:
		return "first_lf"
	case StateSecondCR:
		return "second_cr"
	case StateDone:
		return "done"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// StatusPrefixLen is the length of "HTTP/1.1 200", the part of the status
// line read before scanning for the end of the headers.
const StatusPrefixLen = 12

// ResponseParser validates an HTTP CONNECT response one step at a time. It
// never looks past the byte it is given, so the caller can stop reading
// exactly at the end of the headers.
//
// The status code is taken from fixed offsets 9-11, which assumes a 9-byte
// "HTTP/1.x " version token. Those three bytes are read as an unsigned
// decimal with an optional leading '+'.
type ResponseParser struct {
	state State
	code  int
}

// State returns the current parser state.
func (p *ResponseParser) State() State {
	return p.state
}

// StatusCode returns the parsed status code, or 0 before ParseStatus
// succeeds.
func (p *ResponseParser) StatusCode() int {
	return p.code
}

// Done reports whether the end of the headers has been consumed.
func (p *ResponseParser) Done() bool {
	return p.state == StateDone
}

// ParseStatus checks the first StatusPrefixLen bytes of the response.
func (p *ResponseParser) ParseStatus(prefix []byte) error {
	if p.state != StateStarted {
		return fmt.Errorf("connect response: status parsed twice (state %s)", p.state)
	}
	if len(prefix) != StatusPrefixLen {
		return fmt.Errorf("connect response: status prefix is %d bytes, want %d", len(prefix), StatusPrefixLen)
	}
	if !utf8.Valid(prefix) {
		return ErrInvalidHeaderEncoding
	}

	// A single leading '+' is accepted, so "+20" is status 20.
	code, err := strconv.ParseUint(strings.TrimPrefix(string(prefix[9:12]), "+"), 10, 16)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStatusFormat, prefix[9:12])
	}
	p.code = int(code)
	if p.code < 200 || p.code >= 300 {
		return &RejectedError{StatusCode: p.code}
	}

	p.state = StateHeaderOK
	return nil
}

// Feed advances the parser over one byte following the status prefix.
func (p *ResponseParser) Feed(c byte) error {
	switch p.state {
	case StateHeaderOK:
		switch c {
		case '\r':
			p.state = StateFirstCR
		case '\n':
			return fmt.Errorf("%w: LF without CR", ErrMalformedLineTerminator)
		}
	case StateFirstCR:
		if c != '\n' {
			return fmt.Errorf("%w: CR followed by %q", ErrMalformedLineTerminator, c)
		}
		p.state = StateFirstLF
	case StateFirstLF:
		switch c {
		case '\r':
			p.state = StateSecondCR
		case '\n':
			return fmt.Errorf("%w: LF without CR", ErrMalformedLineTerminator)
		default:
			p.state = StateHeaderOK
		}
	case StateSecondCR:
		if c != '\n' {
			return fmt.Errorf("%w: CR followed by %q", ErrMalformedLineTerminator, c)
		}
		p.state = StateDone
	default:
		return fmt.Errorf("connect response: byte %q in state %s", c, p.state)
	}
	return nil
}

// ReadConnectResponse consumes a CONNECT response from r up to and including
// the blank line that ends its headers, and returns the status code.
//
// Bytes are read one at a time so nothing after the headers is taken from r.
func ReadConnectResponse(r io.Reader) (int, error) {
	var p ResponseParser

	var prefix [StatusPrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrResponseRead, err)
	}
	if err := p.ParseStatus(prefix[:]); err != nil {
		return p.StatusCode(), err
	}

	var b [1]byte
	for !p.Done() {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return p.StatusCode(), fmt.Errorf("%w: %w", ErrResponseRead, err)
		}
		if err := p.Feed(b[0]); err != nil {
			return p.StatusCode(), err
		}
	}
	return p.StatusCode(), nil
}
