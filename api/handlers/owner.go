package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/sprintertech/sprinter-treasury/treasury"
)

const maxWindowSeconds = uint64(math.MaxInt64 / int64(time.Second))

type OwnerLedger interface {
	OwnerWithdraw(ctx context.Context, req treasury.OwnerWithdrawRequest) (store.Entry, error)
	SetWithdrawalWindow(ctx context.Context, window store.Window) error
}

type OwnerWithdrawalBody struct {
	Receiver string  `json:"receiver"`
	Amount   *Amount `json:"amount"`
}

type WindowBody struct {
	Start           time.Time `json:"start"`
	DurationSeconds uint64    `json:"durationSeconds"`
}

type OwnerHandler struct {
	ledger OwnerLedger
	token  string
}

func NewOwnerHandler(ledger OwnerLedger, token string) *OwnerHandler {
	return &OwnerHandler{
		ledger: ledger,
		token:  token,
	}
}

// authorized checks the bearer token. Owner routes are closed when no token is configured.
func (h *OwnerHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}

func (h *OwnerHandler) HandleWithdrawal(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		JSONError(w, fmt.Errorf("caller is not the treasury owner"), http.StatusUnauthorized)
		return
	}

	b := &OwnerWithdrawalBody{}
	d := json.NewDecoder(r.Body)
	err := d.Decode(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}
	if b.Amount == nil {
		JSONError(w, fmt.Errorf("invalid request body: missing field 'amount'"), http.StatusBadRequest)
		return
	}

	entry, err := h.ledger.OwnerWithdraw(r.Context(), treasury.OwnerWithdrawRequest{
		Receiver: b.Receiver,
		Amount:   uint64(*b.Amount),
	})
	if err != nil {
		LedgerError(w, err)
		return
	}

	JSONResponse(w, entry)
}

func (h *OwnerHandler) HandleWindow(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		JSONError(w, fmt.Errorf("caller is not the treasury owner"), http.StatusUnauthorized)
		return
	}

	b := &WindowBody{}
	d := json.NewDecoder(r.Body)
	err := d.Decode(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	if b.DurationSeconds > maxWindowSeconds {
		JSONError(w, fmt.Errorf("invalid request body: field 'durationSeconds' too large"), http.StatusBadRequest)
		return
	}

	window := store.Window{
		Start:    b.Start,
		Duration: time.Duration(b.DurationSeconds) * time.Second,
	}
	err = h.ledger.SetWithdrawalWindow(r.Context(), window)
	if err != nil {
		LedgerError(w, err)
		return
	}

	JSONResponse(w, window)
}
