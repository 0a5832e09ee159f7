package treasury

import (
	"errors"

	"github.com/sprintertech/sprinter-treasury/account"
	"github.com/sprintertech/sprinter-treasury/coupon"
	"github.com/sprintertech/sprinter-treasury/issuer"
	"github.com/sprintertech/sprinter-treasury/replay"
	"github.com/sprintertech/sprinter-treasury/signature"
)

var (
	ErrInsufficientTreasuryBalance = errors.New("insufficient treasury balance")
	ErrReceiverMismatch            = errors.New("receiver does not match coupon destination")
	ErrOverflow                    = errors.New("balance overflow")
	ErrOutsideWithdrawalWindow     = errors.New("outside owner withdrawal window")
	ErrWindowNotSet                = errors.New("owner withdrawal window not set")
	ErrInvalidWindowStart          = errors.New("withdrawal window must start in the future")
	ErrInvalidWindowDuration       = errors.New("withdrawal window duration must be positive")
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidDestination          = errors.New("invalid destination")
	ErrInvalidScalingFactor        = errors.New("scaling factor must be a power of ten")
)

// Kind groups failures by how a caller should react to them.
type Kind int

const (
	Internal Kind = iota
	// Malformed input can be resubmitted once corrected.
	Malformed
	Integrity
	Authorization
	// Replay failures are permanent for the signature.
	Replay
	// Insufficient balance can succeed later once the treasury is replenished.
	Insufficient
	Consistency
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Integrity:
		return "integrity"
	case Authorization:
		return "authorization"
	case Replay:
		return "replay"
	case Insufficient:
		return "insufficient"
	case Consistency:
		return "consistency"
	default:
		return "internal"
	}
}

func (k Kind) Retryable() bool {
	return k == Insufficient || k == Internal
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{coupon.ErrInvalidAmount, Malformed},
	{signature.ErrInvalidSignatureEncoding, Malformed},
	{signature.ErrInvalidRecoveryID, Malformed},
	{signature.ErrMissingRecoveryID, Malformed},
	{signature.ErrInvalidPublicKey, Malformed},
	{account.ErrInvalidAccount, Malformed},
	{ErrInvalidAmount, Malformed},
	{ErrInvalidDestination, Malformed},
	{ErrInvalidWindowStart, Malformed},
	{ErrInvalidWindowDuration, Malformed},
	{coupon.ErrHashMismatch, Integrity},
	{issuer.ErrUntrustedSigner, Authorization},
	{issuer.ErrUnknownKeyVersion, Authorization},
	{replay.ErrSignatureAlreadyUsed, Replay},
	{replay.ErrCouponAlreadyRedeemed, Replay},
	{ErrInsufficientTreasuryBalance, Insufficient},
	{ErrReceiverMismatch, Consistency},
	{replay.ErrMarkerKeyMismatch, Consistency},
	{ErrOutsideWithdrawalWindow, Consistency},
	{ErrWindowNotSet, Consistency},
	{ErrOverflow, Consistency},
}

// KindOf classifies err. Errors the ledger does not know about are Internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return Internal
}
