package replay

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/sprinter-treasury/signature"
	"github.com/sprintertech/sprinter-treasury/store"
)

var (
	ErrSignatureAlreadyUsed  = errors.New("signature already used")
	ErrCouponAlreadyRedeemed = errors.New("coupon already redeemed")
	ErrMarkerKeyMismatch     = errors.New("marker key does not match signature")
)

var couponDomain = []byte("coupon")

// MarkerKey is the location of the single-use marker of a signature.
func MarkerKey(sig signature.Compact) common.Hash {
	return common.Hash(sha256.Sum256(sig[:]))
}

// VerifyMarkerKey checks that the location a caller asserted is derived from sig.
func VerifyMarkerKey(sig signature.Compact, asserted common.Hash) error {
	expected := MarkerKey(sig)
	if expected != asserted {
		return fmt.Errorf("%w: expected %s, got %s", ErrMarkerKeyMismatch, expected.Hex(), asserted.Hex())
	}
	return nil
}

// CouponMarkerKey identifies a coupon independently of its signature, so an
// issuer re-signing the same coupon cannot be redeemed twice.
func CouponMarkerKey(issuerKey signature.PublicKey, couponID uint64) common.Hash {
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, couponID)

	h := sha256.New()
	h.Write(couponDomain)
	h.Write(issuerKey[:])
	h.Write(id)
	return common.BytesToHash(h.Sum(nil))
}

// Guard claims replay markers inside a ledger transaction.
type Guard struct {
	couponGuard bool
}

func NewGuard(couponGuard bool) *Guard {
	return &Guard{
		couponGuard: couponGuard,
	}
}

// Claim marks the signature, and optionally the coupon, as used. It must run in
// the same transaction as the transfer it authorizes.
func (g *Guard) Claim(tx store.Tx, sig signature.Compact, issuerKey signature.PublicKey, couponID uint64, now time.Time) (common.Hash, error) {
	key := MarkerKey(sig)
	reference := strconv.FormatUint(couponID, 10)
	err := tx.ClaimMarker(store.Marker{
		Key:       key,
		Kind:      store.SignatureMarker,
		Reference: reference,
		ClaimedAt: now,
	})
	if errors.Is(err, store.ErrMarkerExists) {
		return key, fmt.Errorf("%w: %s", ErrSignatureAlreadyUsed, key.Hex())
	}
	if err != nil {
		return key, err
	}

	if !g.couponGuard {
		return key, nil
	}

	err = tx.ClaimMarker(store.Marker{
		Key:       CouponMarkerKey(issuerKey, couponID),
		Kind:      store.CouponMarker,
		Reference: key.Hex(),
		ClaimedAt: now,
	})
	if errors.Is(err, store.ErrMarkerExists) {
		return key, fmt.Errorf("%w: %d", ErrCouponAlreadyRedeemed, couponID)
	}
	return key, err
}
