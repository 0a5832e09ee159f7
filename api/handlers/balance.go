package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type BalanceReader interface {
	Balance(ctx context.Context) (uint64, error)
	AccountBalance(ctx context.Context, destination string) (string, uint64, error)
}

type TreasuryBalanceResponse struct {
	Balance Amount `json:"balance"`
}

type AccountBalanceResponse struct {
	Account string `json:"account"`
	Balance Amount `json:"balance"`
}

type BalanceHandler struct {
	ledger BalanceReader
}

func NewBalanceHandler(ledger BalanceReader) *BalanceHandler {
	return &BalanceHandler{
		ledger: ledger,
	}
}

func (h *BalanceHandler) HandleTreasury(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context())
	if err != nil {
		LedgerError(w, err)
		return
	}

	JSONResponse(w, TreasuryBalanceResponse{Balance: Amount(balance)})
}

func (h *BalanceHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, balance, err := h.ledger.AccountBalance(r.Context(), vars["account"])
	if err != nil {
		LedgerError(w, err)
		return
	}

	JSONResponse(w, AccountBalanceResponse{
		Account: account,
		Balance: Amount(balance),
	})
}
