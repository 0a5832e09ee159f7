// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sprintertech/sprinter-treasury/store"
)

// Handler reports the service healthy while the treasury store can be read.
func Handler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		err := s.View(ctx, func(r store.Reader) error {
			_, err := r.Balance()
			return err
		})
		if err != nil {
			log.Warn().Msgf("Health check failed: %s", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}

		_, _ = w.Write([]byte("ok"))
	}
}

// StartHealthEndpoint starts /health endpoint on provided port that returns ok while the store is reachable
func StartHealthEndpoint(port uint16, s store.Store) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", Handler(s))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	log.Info().Msgf("Starting /health endpoint on port %d", port)
	err := srv.ListenAndServe()
	if err != nil {
		log.Err(err).Msgf("Failed starting health server")
	}
}
