package treasury

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/sprinter-treasury/account"
	"github.com/sprintertech/sprinter-treasury/coupon"
	"github.com/sprintertech/sprinter-treasury/issuer"
	"github.com/sprintertech/sprinter-treasury/replay"
	"github.com/sprintertech/sprinter-treasury/signature"
	"github.com/sprintertech/sprinter-treasury/store"
)

const (
	SuccessOutcome = "success"
)

type Metrics interface {
	TrackWithdrawal(outcome string, amount uint64)
	TrackDeposit(amount uint64)
	TrackBalance(balance uint64)
}

type Config struct {
	// ScalingFactor converts coupon amounts from origin to local precision.
	ScalingFactor uint64
	// BruteForceRecovery accepts coupons without a recovery id by trying both.
	BruteForceRecovery bool
	// CouponReplayGuard additionally marks (issuer key, coupon id) as redeemed.
	CouponReplayGuard bool
	Clock             func() time.Time
}

type DepositRequest struct {
	Sender string
	// Recipient is the origin chain address the deposit is bridged for.
	Recipient string
	Amount    uint64
}

type WithdrawRequest struct {
	Coupon     coupon.Coupon
	Hash       common.Hash
	Signature  signature.Compact
	RecoveryID *uint8
	// MarkerKey is the replay marker location asserted by the caller.
	MarkerKey  *common.Hash
	KeyVersion *uint32
	Receiver   string
}

type OwnerWithdrawRequest struct {
	Receiver string
	Amount   uint64
}

type Receipt struct {
	EntryID          uuid.UUID   `json:"entryId"`
	MarkerKey        common.Hash `json:"markerKey"`
	CouponID         uint64      `json:"couponId"`
	Receiver         string      `json:"receiver"`
	OriginAmount     uint64      `json:"originAmount"`
	Amount           uint64      `json:"amount"`
	IssuerKeyVersion uint32      `json:"issuerKeyVersion"`
	TreasuryBalance  uint64      `json:"treasuryBalance"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Ledger releases treasury funds against coupons signed by a trusted issuer.
type Ledger struct {
	store    store.Store
	issuers  *issuer.AllowList
	accounts account.Parser
	guard    *replay.Guard
	metrics  Metrics

	scalingFactor      uint64
	bruteForceRecovery bool
	now                func() time.Time
}

func NewLedger(
	s store.Store,
	issuers *issuer.AllowList,
	accounts account.Parser,
	metrics Metrics,
	config Config,
) (*Ledger, error) {
	if !isPowerOfTen(config.ScalingFactor) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScalingFactor, config.ScalingFactor)
	}

	now := config.Clock
	if now == nil {
		now = time.Now
	}

	return &Ledger{
		store:              s,
		issuers:            issuers,
		accounts:           accounts,
		guard:              replay.NewGuard(config.CouponReplayGuard),
		metrics:            metrics,
		scalingFactor:      config.ScalingFactor,
		bruteForceRecovery: config.BruteForceRecovery,
		now:                now,
	}, nil
}

func isPowerOfTen(v uint64) bool {
	if v == 0 {
		return false
	}
	for v%10 == 0 {
		v /= 10
	}
	return v == 1
}

// Rescale converts an origin precision amount to local precision, truncating.
func (l *Ledger) Rescale(amount uint64) uint64 {
	return amount / l.scalingFactor
}

// Deposit credits the treasury. Anyone can deposit.
func (l *Ledger) Deposit(ctx context.Context, req DepositRequest) (store.Entry, error) {
	if req.Amount == 0 {
		return store.Entry{}, ErrInvalidAmount
	}

	var entry store.Entry
	var newBalance uint64
	err := l.store.Update(ctx, func(tx store.Tx) error {
		balance, err := tx.Balance()
		if err != nil {
			return err
		}
		if balance > math.MaxUint64-req.Amount {
			return fmt.Errorf("%w: depositing %d on %d", ErrOverflow, req.Amount, balance)
		}

		newBalance = balance + req.Amount
		if err := tx.SetBalance(newBalance); err != nil {
			return err
		}

		entry = store.Entry{
			ID:           uuid.New(),
			Kind:         store.DepositEntry,
			Account:      req.Sender,
			Counterparty: req.Recipient,
			Amount:       req.Amount,
			CreatedAt:    l.now(),
		}
		return tx.AppendEntry(entry)
	})
	if err != nil {
		return store.Entry{}, err
	}

	l.metrics.TrackDeposit(req.Amount)
	l.metrics.TrackBalance(newBalance)
	log.Info().Str("sender", req.Sender).Uint64("amount", req.Amount).Msgf("Deposited into treasury")
	return entry, nil
}

// AuthorizedWithdraw verifies the coupon and transfers its rescaled amount from
// the treasury to the receiver. On any failure no state is changed.
func (l *Ledger) AuthorizedWithdraw(ctx context.Context, req WithdrawRequest) (Receipt, error) {
	receipt, err := l.authorizedWithdraw(ctx, req)
	if err != nil {
		l.metrics.TrackWithdrawal(KindOf(err).String(), 0)
		log.Warn().Uint64("coupon", req.Coupon.ID).Msgf("Coupon withdrawal rejected: %s", err)
		return Receipt{}, err
	}

	l.metrics.TrackWithdrawal(SuccessOutcome, receipt.Amount)
	l.metrics.TrackBalance(receipt.TreasuryBalance)
	log.Info().
		Uint64("coupon", receipt.CouponID).
		Str("receiver", receipt.Receiver).
		Uint64("amount", receipt.Amount).
		Str("marker", receipt.MarkerKey.Hex()).
		Msgf("Coupon redeemed")
	return receipt, nil
}

func (l *Ledger) authorizedWithdraw(ctx context.Context, req WithdrawRequest) (Receipt, error) {
	markerKey := replay.MarkerKey(req.Signature)
	if err := l.checkUnused(ctx, markerKey); err != nil {
		return Receipt{}, err
	}

	if err := coupon.VerifyHash(req.Coupon.Canonicalize(), req.Hash); err != nil {
		return Receipt{}, err
	}

	candidates, err := l.recover(req)
	if err != nil {
		return Receipt{}, err
	}

	var key issuer.Key
	if req.KeyVersion != nil {
		key, err = l.issuers.AuthorizeVersion(*req.KeyVersion, candidates...)
	} else {
		key, err = l.issuers.Authorize(candidates...)
	}
	if err != nil {
		return Receipt{}, err
	}

	if req.MarkerKey != nil {
		if err := replay.VerifyMarkerKey(req.Signature, *req.MarkerKey); err != nil {
			return Receipt{}, err
		}
	}

	originAmount, err := req.Coupon.Value()
	if err != nil {
		return Receipt{}, err
	}

	destination, err := l.accounts.Parse(req.Coupon.To)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %s", ErrInvalidDestination, err)
	}
	if destination != req.Receiver {
		return Receipt{}, fmt.Errorf("%w: coupon pays %s, receiver is %s", ErrReceiverMismatch, destination, req.Receiver)
	}

	amount := l.Rescale(originAmount)
	var receipt Receipt
	err = l.store.Update(ctx, func(tx store.Tx) error {
		now := l.now()
		_, err := l.guard.Claim(tx, req.Signature, key.PublicKey, req.Coupon.ID, now)
		if err != nil {
			return err
		}

		balance, err := l.transfer(tx, destination, amount)
		if err != nil {
			return err
		}

		entry := store.Entry{
			ID:           uuid.New(),
			Kind:         store.WithdrawEntry,
			Account:      destination,
			Counterparty: req.Coupon.From,
			Amount:       amount,
			Reference:    markerKey.Hex(),
			CreatedAt:    now,
		}
		if err := tx.AppendEntry(entry); err != nil {
			return err
		}

		receipt = Receipt{
			EntryID:          entry.ID,
			MarkerKey:        markerKey,
			CouponID:         req.Coupon.ID,
			Receiver:         destination,
			OriginAmount:     originAmount,
			Amount:           amount,
			IssuerKeyVersion: key.Version,
			TreasuryBalance:  balance,
			CreatedAt:        now,
		}
		return nil
	})
	return receipt, err
}

// checkUnused rejects signatures that were already redeemed before spending
// any work on them. The claim inside the transaction stays authoritative.
func (l *Ledger) checkUnused(ctx context.Context, markerKey common.Hash) error {
	return l.store.View(ctx, func(r store.Reader) error {
		_, err := r.Marker(markerKey)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", replay.ErrSignatureAlreadyUsed, markerKey.Hex())
	})
}

func (l *Ledger) recover(req WithdrawRequest) ([]signature.PublicKey, error) {
	if req.RecoveryID != nil {
		key, err := signature.Recover(req.Hash, req.Signature, *req.RecoveryID)
		if err != nil {
			return nil, err
		}
		return []signature.PublicKey{key}, nil
	}

	if !l.bruteForceRecovery {
		return nil, signature.ErrMissingRecoveryID
	}
	return signature.RecoverCandidates(req.Hash, req.Signature)
}

// transfer debits the treasury and credits receiver, returning the new treasury balance.
func (l *Ledger) transfer(tx store.Tx, receiver string, amount uint64) (uint64, error) {
	balance, err := tx.Balance()
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientTreasuryBalance, amount, balance)
	}

	receiverBalance, err := tx.AccountBalance(receiver)
	if err != nil {
		return 0, err
	}
	if receiverBalance > math.MaxUint64-amount {
		return 0, fmt.Errorf("%w: crediting %d to %s", ErrOverflow, amount, receiver)
	}

	if err := tx.SetBalance(balance - amount); err != nil {
		return 0, err
	}
	if err := tx.SetAccountBalance(receiver, receiverBalance+amount); err != nil {
		return 0, err
	}
	return balance - amount, nil
}

// OwnerWithdraw moves treasury funds to the owner while the withdrawal window is open.
// The caller is expected to have authenticated the owner.
func (l *Ledger) OwnerWithdraw(ctx context.Context, req OwnerWithdrawRequest) (store.Entry, error) {
	if req.Amount == 0 {
		return store.Entry{}, ErrInvalidAmount
	}
	receiver, err := l.accounts.Parse(req.Receiver)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%w: %s", ErrInvalidDestination, err)
	}

	var entry store.Entry
	var newBalance uint64
	err = l.store.Update(ctx, func(tx store.Tx) error {
		now := l.now()
		window, err := tx.Window()
		if errors.Is(err, store.ErrNotFound) {
			return ErrWindowNotSet
		}
		if err != nil {
			return err
		}
		if !window.Contains(now) {
			return fmt.Errorf(
				"%w: window is %s to %s",
				ErrOutsideWithdrawalWindow,
				window.Start.Format(time.RFC3339),
				window.End().Format(time.RFC3339),
			)
		}

		newBalance, err = l.transfer(tx, receiver, req.Amount)
		if err != nil {
			return err
		}

		entry = store.Entry{
			ID:        uuid.New(),
			Kind:      store.OwnerWithdrawEntry,
			Account:   receiver,
			Amount:    req.Amount,
			CreatedAt: now,
		}
		return tx.AppendEntry(entry)
	})
	if err != nil {
		return store.Entry{}, err
	}

	l.metrics.TrackBalance(newBalance)
	log.Info().Str("receiver", receiver).Uint64("amount", req.Amount).Msgf("Owner withdrew from treasury")
	return entry, nil
}

// SetWithdrawalWindow schedules the next owner withdrawal window.
func (l *Ledger) SetWithdrawalWindow(ctx context.Context, window store.Window) error {
	if window.Duration <= 0 {
		return ErrInvalidWindowDuration
	}

	return l.store.Update(ctx, func(tx store.Tx) error {
		if !window.Start.After(l.now()) {
			return fmt.Errorf("%w: %s", ErrInvalidWindowStart, window.Start.Format(time.RFC3339))
		}
		return tx.SetWindow(window)
	})
}

func (l *Ledger) Balance(ctx context.Context) (uint64, error) {
	var balance uint64
	err := l.store.View(ctx, func(r store.Reader) error {
		var err error
		balance, err = r.Balance()
		return err
	})
	return balance, err
}

func (l *Ledger) AccountBalance(ctx context.Context, destination string) (string, uint64, error) {
	acc, err := l.accounts.Parse(destination)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidDestination, err)
	}

	var balance uint64
	err = l.store.View(ctx, func(r store.Reader) error {
		var err error
		balance, err = r.AccountBalance(acc)
		return err
	})
	return acc, balance, err
}

// Marker returns the replay marker claimed at key, or store.ErrNotFound.
func (l *Ledger) Marker(ctx context.Context, key common.Hash) (store.Marker, error) {
	var marker store.Marker
	err := l.store.View(ctx, func(r store.Reader) error {
		var err error
		marker, err = r.Marker(key)
		return err
	})
	return marker, err
}

func (l *Ledger) Entries(ctx context.Context) ([]store.Entry, error) {
	var entries []store.Entry
	err := l.store.View(ctx, func(r store.Reader) error {
		var err error
		entries, err = r.Entries()
		return err
	})
	return entries, err
}
