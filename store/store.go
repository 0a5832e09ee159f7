// Package store defines the transactional state the treasury ledger runs on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	ErrMarkerExists = errors.New("marker already exists")
	ErrNotFound     = errors.New("not found")
)

type MarkerKind string

const (
	SignatureMarker MarkerKind = "signature"
	CouponMarker    MarkerKind = "coupon"
)

// Marker records that a signature or coupon has been redeemed. Markers are
// never removed.
type Marker struct {
	Key       common.Hash `json:"key"`
	Kind      MarkerKind  `json:"kind"`
	Reference string      `json:"reference"`
	ClaimedAt time.Time   `json:"claimedAt"`
}

// Window is the period in which the owner may withdraw directly from the treasury.
type Window struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

func (w Window) End() time.Time {
	return w.Start.Add(w.Duration)
}

// Contains reports whether t lies in [Start, Start+Duration].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End())
}

type EntryKind string

const (
	DepositEntry       EntryKind = "deposit"
	WithdrawEntry      EntryKind = "withdraw"
	OwnerWithdrawEntry EntryKind = "owner_withdraw"
)

// Entry is a single record of the treasury journal.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	Kind         EntryKind `json:"kind"`
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       uint64    `json:"amount"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Reader interface {
	Balance() (uint64, error)
	AccountBalance(account string) (uint64, error)
	// Marker returns ErrNotFound if the key was never claimed.
	Marker(key common.Hash) (Marker, error)
	// Window returns ErrNotFound if no window was ever set.
	Window() (Window, error)
	Entries() ([]Entry, error)
}

type Tx interface {
	Reader

	SetBalance(amount uint64) error
	SetAccountBalance(account string, amount uint64) error
	// ClaimMarker inserts the marker or returns ErrMarkerExists.
	ClaimMarker(marker Marker) error
	SetWindow(window Window) error
	AppendEntry(entry Entry) error
}

// Store runs transactions against the treasury state. Update applies every
// write of fn atomically, or none of them when fn returns an error.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(r Reader) error) error
	Close() error
}
