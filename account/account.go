package account

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mr-tron/base58"
)

const (
	Base58Format = "base58"
	OpaqueFormat = "opaque"

	AddressLength   = 32
	MaxOpaqueLength = 128
)

var ErrInvalidAccount = errors.New("invalid account")

// Parser validates a destination and returns the local account identifier it names.
type Parser interface {
	Parse(destination string) (string, error)
}

// Base58Parser accepts base58 encoded 32 byte addresses.
type Base58Parser struct{}

func (p Base58Parser) Parse(destination string) (string, error) {
	raw, err := base58.Decode(destination)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidAccount, err)
	}
	if len(raw) != AddressLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAccount, AddressLength, len(raw))
	}

	return base58.Encode(raw), nil
}

// OpaqueParser accepts any printable identifier without whitespace.
type OpaqueParser struct{}

func (p OpaqueParser) Parse(destination string) (string, error) {
	if destination == "" || len(destination) > MaxOpaqueLength {
		return "", fmt.Errorf("%w: length %d", ErrInvalidAccount, len(destination))
	}
	if strings.IndexFunc(destination, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) != -1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccount, destination)
	}

	return destination, nil
}

func NewParser(format string) (Parser, error) {
	switch format {
	case Base58Format:
		return Base58Parser{}, nil
	case OpaqueFormat:
		return OpaqueParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported account format %s", format)
	}
}
