package dcc

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	// Marker is the first token of every DCC control message.
	Marker = "DCC"
	// ServiceSend is the only DCC service this client accepts.
	ServiceSend = "SEND"

	offerTokens = 6
)

var (
	// ErrNotAControlMessage is returned when the input is not a six-token DCC message.
	ErrNotAControlMessage = errors.New("not a DCC control message")

	// ErrUnsupportedService is returned for DCC services other than SEND.
	ErrUnsupportedService = errors.New("unsupported DCC service")

	// ErrInvalidNumber is returned when the address, port or length cannot be decoded.
	ErrInvalidNumber = errors.New("invalid number in DCC message")
)

// ParseError describes why a control message was rejected. It unwraps to
// one of the package sentinels so callers can use errors.Is.
type ParseError struct {
	Kind  error
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FileOffer is a decoded "DCC SEND" announcement.
type FileOffer struct {
	Service  string
	FileName string
	IP       string
	Port     uint16
	// Length is the size advertised by the sender. It is informational;
	// transfers end when the sender closes the connection.
	Length uint64
}

// Addr returns the host:port to dial for this offer.
func (o FileOffer) Addr() string {
	return net.JoinHostPort(o.IP, strconv.Itoa(int(o.Port)))
}

func (o FileOffer) String() string {
	return fmt.Sprintf("%s %q from %s (%d bytes)", o.Service, o.FileName, o.Addr(), o.Length)
}

// Parse decodes a raw CTCP payload such as
//
//	DCC SEND "some file.zip" 2907707975 4529 756
//
// into a FileOffer.
func Parse(raw string) (FileOffer, error) {
	tokens, err := Tokenize(raw)
	if err != nil {
		return FileOffer{}, &ParseError{Kind: ErrNotAControlMessage, Input: raw, Err: err}
	}
	if len(tokens) != offerTokens || tokens[0] != Marker {
		return FileOffer{}, &ParseError{Kind: ErrNotAControlMessage, Input: raw}
	}

	service, file := tokens[1], tokens[2]
	if service != ServiceSend {
		return FileOffer{}, &ParseError{Kind: ErrUnsupportedService, Input: raw, Err: fmt.Errorf("service %q", service)}
	}
	if file == "" {
		return FileOffer{}, &ParseError{Kind: ErrNotAControlMessage, Input: raw, Err: errors.New("empty file name")}
	}

	ip, err := strconv.ParseUint(tokens[3], 10, 32)
	if err != nil {
		return FileOffer{}, &ParseError{Kind: ErrInvalidNumber, Input: raw, Err: fmt.Errorf("address: %w", err)}
	}
	port, err := strconv.ParseUint(tokens[4], 10, 16)
	if err != nil {
		return FileOffer{}, &ParseError{Kind: ErrInvalidNumber, Input: raw, Err: fmt.Errorf("port: %w", err)}
	}
	if port == 0 {
		return FileOffer{}, &ParseError{Kind: ErrInvalidNumber, Input: raw, Err: errors.New("port: must be between 1 and 65535")}
	}
	length, err := strconv.ParseUint(tokens[5], 10, 64)
	if err != nil {
		return FileOffer{}, &ParseError{Kind: ErrInvalidNumber, Input: raw, Err: fmt.Errorf("length: %w", err)}
	}

	return FileOffer{
		Service:  service,
		FileName: file,
		IP:       DecodeAddress(uint32(ip)),
		Port:     uint16(port),
		Length:   length,
	}, nil
}

// DecodeAddress renders the decimal DCC address as a dotted quad. The
// lowest byte is extracted first but printed last, so 2130706433 becomes
// "127.0.0.1".
func DecodeAddress(n uint32) string {
	byte1 := n & 0xFF
	byte2 := (n >> 8) & 0xFF
	byte3 := (n >> 16) & 0xFF
	byte4 := (n >> 24) & 0xFF
	return fmt.Sprintf("%d.%d.%d.%d", byte4, byte3, byte2, byte1)
}
