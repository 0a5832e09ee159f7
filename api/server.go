package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/sprinter-treasury/api/handlers"
)

func NewRouter(
	depositHandler *handlers.DepositHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	balanceHandler *handlers.BalanceHandler,
	ownerHandler *handlers.OwnerHandler,
) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/deposits", depositHandler.HandleDeposit).Methods("POST")
	r.HandleFunc("/v1/withdrawals", withdrawalHandler.HandleWithdrawal).Methods("POST")
	r.HandleFunc("/v1/withdrawals/{markerKey:0x[0-9a-fA-F]+}", withdrawalHandler.HandleStatus).Methods("GET")
	r.HandleFunc("/v1/treasury", balanceHandler.HandleTreasury).Methods("GET")
	r.HandleFunc("/v1/accounts/{account}", balanceHandler.HandleAccount).Methods("GET")
	r.HandleFunc("/v1/owner/withdrawals", ownerHandler.HandleWithdrawal).Methods("POST")
	r.HandleFunc("/v1/owner/window", ownerHandler.HandleWindow).Methods("PUT")
	return r
}

func Serve(ctx context.Context, addr string, handler http.Handler) {
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: time.Second * 10,
	}
	go func() {
		log.Info().Msgf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		log.Err(err).Msgf("Error shutting down server")
	} else {
		log.Info().Msgf("Server shut down gracefully.")
	}
}
