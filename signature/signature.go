package signature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	CompactLength   = 64
	PublicKeyLength = 64
)

var (
	ErrInvalidRecoveryID        = errors.New("invalid recovery id")
	ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")
	ErrMissingRecoveryID        = errors.New("missing recovery id")
	ErrInvalidPublicKey         = errors.New("invalid public key")
)

// Compact is a secp256k1 signature in r||s form.
type Compact [CompactLength]byte

// PublicKey is an uncompressed secp256k1 point without the 0x04 prefix.
type PublicKey [PublicKeyLength]byte

func (k PublicKey) Hex() string {
	return common.Bytes2Hex(k[:])
}

func (k PublicKey) String() string {
	return k.Hex()
}

func (s Compact) Hex() string {
	return common.Bytes2Hex(s[:])
}

// ParseCompact decodes a 64 byte hex signature, with or without 0x prefix.
func ParseCompact(s string) (Compact, error) {
	var sig Compact
	b, err := decodeHex(s)
	if err != nil {
		return sig, fmt.Errorf("%w: %s", ErrInvalidSignatureEncoding, err)
	}
	if len(b) != CompactLength {
		return sig, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignatureEncoding, CompactLength, len(b))
	}

	copy(sig[:], b)
	return sig, nil
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// ParsePublicKey decodes a hex encoded key in either 64 byte raw or 65 byte
// prefixed form and checks that it lies on the curve.
func ParsePublicKey(s string) (PublicKey, error) {
	var key PublicKey
	b, err := decodeHex(s)
	if err != nil {
		return key, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	switch len(b) {
	case PublicKeyLength:
		copy(key[:], b)
	case PublicKeyLength + 1:
		if b[0] != 0x04 {
			return key, fmt.Errorf("%w: unexpected prefix %#x", ErrInvalidPublicKey, b[0])
		}
		copy(key[:], b[1:])
	default:
		return key, fmt.Errorf("%w: unexpected length %d", ErrInvalidPublicKey, len(b))
	}

	_, err = crypto.UnmarshalPubkey(append([]byte{0x04}, key[:]...))
	if err != nil {
		return key, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}
	return key, nil
}

// Recover returns the public key that produced sig over hash.
func Recover(hash common.Hash, sig Compact, recoveryID uint8) (PublicKey, error) {
	var key PublicKey
	if recoveryID > 1 {
		return key, fmt.Errorf("%w: %d", ErrInvalidRecoveryID, recoveryID)
	}

	rsv := make([]byte, CompactLength+1)
	copy(rsv, sig[:])
	rsv[CompactLength] = recoveryID

	pub, err := crypto.Ecrecover(hash.Bytes(), rsv)
	if err != nil {
		return key, fmt.Errorf("%w: %s", ErrInvalidSignatureEncoding, err)
	}

	copy(key[:], pub[1:])
	return key, nil
}

// RecoverCandidates recovers a key for every valid recovery id. Used for
// coupons that were issued without a recovery id.
func RecoverCandidates(hash common.Hash, sig Compact) ([]PublicKey, error) {
	keys := make([]PublicKey, 0, 2)
	var lastErr error
	for id := uint8(0); id <= 1; id++ {
		key, err := Recover(hash, sig, id)
		if err != nil {
			lastErr = err
			continue
		}

		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, lastErr
	}
	return keys, nil
}

// Sign produces a compact signature and recovery id over hash. Only used by
// offline issuer tooling and tests.
func Sign(hash common.Hash, hexKey string) (Compact, uint8, error) {
	var sig Compact
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return sig, 0, err
	}

	rsv, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return sig, 0, err
	}

	copy(sig[:], rsv[:CompactLength])
	return sig, rsv[CompactLength], nil
}

// PublicKeyFromPrivate derives the issuer public key of a hex private key.
func PublicKeyFromPrivate(hexKey string) (PublicKey, error) {
	var pub PublicKey
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return pub, err
	}

	copy(pub[:], crypto.FromECDSAPub(&key.PublicKey)[1:])
	return pub, nil
}
