package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/sprintertech/sprinter-treasury/coupon"
	"github.com/sprintertech/sprinter-treasury/signature"
	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/sprintertech/sprinter-treasury/treasury"
)

type WithdrawalStatus string

const (
	RedeemedStatus WithdrawalStatus = "redeemed"
	ClaimedStatus  WithdrawalStatus = "claimed"
)

type Withdrawer interface {
	AuthorizedWithdraw(ctx context.Context, req treasury.WithdrawRequest) (treasury.Receipt, error)
	Marker(ctx context.Context, key common.Hash) (store.Marker, error)
}

type ReceiptCache interface {
	Store(receipt treasury.Receipt)
	Receipt(markerKey common.Hash) (treasury.Receipt, error)
}

type WithdrawalBody struct {
	Coupon     coupon.Coupon `json:"coupon"`
	Hash       hexutil.Bytes `json:"hash"`
	Signature  hexutil.Bytes `json:"signature"`
	RecoveryID *uint8        `json:"recoveryId"`
	MarkerKey  hexutil.Bytes `json:"markerKey"`
	KeyVersion *uint32       `json:"keyVersion"`
	Receiver   string        `json:"receiver"`
}

type WithdrawalStatusResponse struct {
	Status  WithdrawalStatus  `json:"status"`
	Receipt *treasury.Receipt `json:"receipt,omitempty"`
	Marker  *store.Marker     `json:"marker,omitempty"`
}

type WithdrawalHandler struct {
	ledger   Withdrawer
	receipts ReceiptCache
}

func NewWithdrawalHandler(ledger Withdrawer, receipts ReceiptCache) *WithdrawalHandler {
	return &WithdrawalHandler{
		ledger:   ledger,
		receipts: receipts,
	}
}

// HandleWithdrawal redeems a signed coupon and returns the withdrawal receipt
func (h *WithdrawalHandler) HandleWithdrawal(w http.ResponseWriter, r *http.Request) {
	b := &WithdrawalBody{}
	d := json.NewDecoder(r.Body)
	err := d.Decode(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	err = h.validate(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	var sig signature.Compact
	copy(sig[:], b.Signature)
	markerKey := common.BytesToHash(b.MarkerKey)
	receipt, err := h.ledger.AuthorizedWithdraw(r.Context(), treasury.WithdrawRequest{
		Coupon:     b.Coupon,
		Hash:       common.BytesToHash(b.Hash),
		Signature:  sig,
		RecoveryID: b.RecoveryID,
		MarkerKey:  &markerKey,
		KeyVersion: b.KeyVersion,
		Receiver:   b.Receiver,
	})
	if err != nil {
		LedgerError(w, err)
		return
	}

	h.receipts.Store(receipt)
	JSONResponse(w, receipt)
}

func (h *WithdrawalHandler) validate(b *WithdrawalBody) error {
	if len(b.Hash) != common.HashLength {
		return fmt.Errorf("field 'hash' must be %d bytes", common.HashLength)
	}

	if len(b.Signature) != signature.CompactLength {
		return fmt.Errorf("field 'signature' must be %d bytes", signature.CompactLength)
	}

	if len(b.MarkerKey) != common.HashLength {
		return fmt.Errorf("field 'markerKey' must be %d bytes", common.HashLength)
	}

	if b.Receiver == "" {
		return fmt.Errorf("missing field 'receiver'")
	}

	return nil
}

// HandleStatus returns the receipt of a recent withdrawal or the replay marker
// claimed for it
func (h *WithdrawalHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	raw, err := hexutil.Decode(vars["markerKey"])
	if err != nil || len(raw) != common.HashLength {
		JSONError(w, fmt.Errorf("invalid markerKey"), http.StatusBadRequest)
		return
	}
	markerKey := common.BytesToHash(raw)

	receipt, err := h.receipts.Receipt(markerKey)
	if err == nil {
		JSONResponse(w, WithdrawalStatusResponse{
			Status:  RedeemedStatus,
			Receipt: &receipt,
		})
		return
	}

	marker, err := h.ledger.Marker(r.Context(), markerKey)
	if errors.Is(err, store.ErrNotFound) {
		JSONError(w, fmt.Errorf("no withdrawal found for marker %s", markerKey.Hex()), http.StatusNotFound)
		return
	}
	if err != nil {
		LedgerError(w, err)
		return
	}

	JSONResponse(w, WithdrawalStatusResponse{
		Status: ClaimedStatus,
		Marker: &marker,
	})
}
