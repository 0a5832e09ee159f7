package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sprintertech/sprinter-treasury/store"
	"github.com/sprintertech/sprinter-treasury/treasury"
)

type Depositor interface {
	Deposit(ctx context.Context, req treasury.DepositRequest) (store.Entry, error)
}

type DepositBody struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    *Amount `json:"amount"`
}

type DepositHandler struct {
	ledger Depositor
}

func NewDepositHandler(ledger Depositor) *DepositHandler {
	return &DepositHandler{
		ledger: ledger,
	}
}

// HandleDeposit credits the treasury and returns the journal entry of the deposit
func (h *DepositHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	b := &DepositBody{}
	d := json.NewDecoder(r.Body)
	err := d.Decode(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	if b.Sender == "" {
		JSONError(w, fmt.Errorf("invalid request body: missing field 'sender'"), http.StatusBadRequest)
		return
	}
	if b.Amount == nil {
		JSONError(w, fmt.Errorf("invalid request body: missing field 'amount'"), http.StatusBadRequest)
		return
	}

	entry, err := h.ledger.Deposit(r.Context(), treasury.DepositRequest{
		Sender:    b.Sender,
		Recipient: b.Recipient,
		Amount:    uint64(*b.Amount),
	})
	if err != nil {
		LedgerError(w, err)
		return
	}

	JSONResponse(w, entry)
}
