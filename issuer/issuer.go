package issuer

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sprintertech/sprinter-treasury/signature"
)

var (
	ErrUntrustedSigner   = errors.New("signer is not a trusted issuer")
	ErrUnknownKeyVersion = errors.New("unknown issuer key version")
	ErrEmptyAllowList    = errors.New("no trusted issuer keys configured")
	ErrDuplicateVersion  = errors.New("duplicate issuer key version")
)

// Key is a trusted issuer public key tagged with the version it was rotated in with.
type Key struct {
	Version   uint32
	PublicKey signature.PublicKey
}

// AllowList is the static set of issuer keys coupons can be signed with.
type AllowList struct {
	keys []Key
}

func NewAllowList(keys ...Key) (*AllowList, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyAllowList
	}

	seen := make(map[uint32]bool, len(keys))
	for _, k := range keys {
		if seen[k.Version] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateVersion, k.Version)
		}
		seen[k.Version] = true
	}

	return &AllowList{
		keys: append([]Key{}, keys...),
	}, nil
}

// ParseAllowList parses keys in "version:hex,version:hex" form. A key without a
// version gets its position in the list.
func ParseAllowList(raw string) (*AllowList, error) {
	keys := []Key{}
	for i, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		version := uint32(i)
		hexKey := entry
		if v, k, found := strings.Cut(entry, ":"); found {
			parsed, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid key version %s: %w", v, err)
			}
			version = uint32(parsed)
			hexKey = k
		}

		pub, err := signature.ParsePublicKey(hexKey)
		if err != nil {
			return nil, err
		}
		keys = append(keys, Key{Version: version, PublicKey: pub})
	}

	return NewAllowList(keys...)
}

func (a *AllowList) Keys() []Key {
	return append([]Key{}, a.keys...)
}

// Authorize returns the trusted key matching any of the candidates. Every
// configured key is compared so the time taken does not depend on which one matched.
func (a *AllowList) Authorize(candidates ...signature.PublicKey) (Key, error) {
	var match Key
	found := 0
	for _, c := range candidates {
		for _, k := range a.keys {
			if subtle.ConstantTimeCompare(c[:], k.PublicKey[:]) == 1 {
				match = k
				found = 1
			}
		}
	}

	if found == 0 {
		return Key{}, ErrUntrustedSigner
	}
	return match, nil
}

// AuthorizeVersion only accepts the key registered under version.
func (a *AllowList) AuthorizeVersion(version uint32, candidates ...signature.PublicKey) (Key, error) {
	for _, k := range a.keys {
		if k.Version != version {
			continue
		}

		for _, c := range candidates {
			if subtle.ConstantTimeCompare(c[:], k.PublicKey[:]) == 1 {
				return k, nil
			}
		}
		return Key{}, ErrUntrustedSigner
	}

	return Key{}, fmt.Errorf("%w: %d", ErrUnknownKeyVersion, version)
}
