package coupon

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// MessageFormat is the exact template the bridge issuer signs. Changing any byte of it
// invalidates every coupon issued so far.
const MessageFormat = `{"from_icp_address":"%s","to_sol_address":"%s","amount":"%s","burn_id":%d,"burn_timestamp":%s,"icp_burn_block_index":%d}`

var (
	ErrHashMismatch  = errors.New("message does not match coupon hash")
	ErrInvalidAmount = errors.New("invalid coupon amount")
)

// Coupon is the claim signed by the bridge issuer after observing a burn on the
// origin chain.
type Coupon struct {
	ID               uint64 `json:"burn_id"`
	From             string `json:"from_icp_address"`
	To               string `json:"to_sol_address"`
	Amount           string `json:"amount"`
	Timestamp        string `json:"burn_timestamp"`
	SourceEventIndex uint64 `json:"icp_burn_block_index"`
}

// Canonicalize returns the byte message the issuer signed for this coupon. Field values
// are inserted verbatim.
func (c Coupon) Canonicalize() []byte {
	return []byte(fmt.Sprintf(
		MessageFormat,
		c.From,
		c.To,
		c.Amount,
		c.ID,
		c.Timestamp,
		c.SourceEventIndex,
	))
}

// Hash is the digest of the canonical message.
func (c Coupon) Hash() common.Hash {
	return Digest(c.Canonicalize())
}

// Value parses the amount in origin chain precision. Underscore digit separators
// are accepted since issuers emit amounts such as "10_000_000".
func (c Coupon) Value() (uint64, error) {
	raw := strings.ReplaceAll(c.Amount, "_", "")
	if raw == "" || strings.HasPrefix(c.Amount, "_") || strings.HasSuffix(c.Amount, "_") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, c.Amount)
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, c.Amount)
	}
	return v, nil
}

// Digest hashes a canonical message.
func Digest(msg []byte) common.Hash {
	return common.Hash(sha256.Sum256(msg))
}

// VerifyHash checks that the claimed hash was computed over msg.
func VerifyHash(msg []byte, claimed common.Hash) error {
	computed := Digest(msg)
	if computed != claimed {
		return fmt.Errorf("%w: computed %s, got %s", ErrHashMismatch, computed.Hex(), claimed.Hex())
	}

	return nil
}
