// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package app

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/viper"
	"github.com/sprintertech/sprinter-treasury/account"
	"github.com/sprintertech/sprinter-treasury/api"
	"github.com/sprintertech/sprinter-treasury/api/handlers"
	"github.com/sprintertech/sprinter-treasury/cache"
	"github.com/sprintertech/sprinter-treasury/config"
	"github.com/sprintertech/sprinter-treasury/health"
	"github.com/sprintertech/sprinter-treasury/metrics"
	"github.com/sprintertech/sprinter-treasury/observability"
	"github.com/sprintertech/sprinter-treasury/treasury"
)

var Version string

func Run() error {
	var err error

	configFlag := viper.GetString(config.ConfigFlagName)
	envFile := viper.GetString(config.EnvFileFlagName)

	var configuration *config.Config
	if strings.ToLower(configFlag) == "env" {
		configuration, err = config.GetConfigFromENV(envFile)
		panicOnError(err)
	} else {
		configuration, err = config.GetConfigFromFile(configFlag, envFile)
		panicOnError(err)
	}

	observability.ConfigureLogger(configuration.TreasuryConfig.LogLevel, os.Stdout, configuration.TreasuryConfig.LogJSON)

	log.Info().Msg("Successfully loaded configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewStore(ctx, configuration.StoreConfig)
	panicOnError(err)
	defer func() {
		if err := s.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing store")
		}
	}()
	log.Info().Str("type", configuration.StoreConfig.Type).Msg("Successfully opened store")

	go health.StartHealthEndpoint(configuration.TreasuryConfig.HealthPort, s)

	mp, err := observability.InitMetricProvider(ctx, configuration.TreasuryConfig.OpenTelemetryCollectorURL)
	panicOnError(err)
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error().Msgf("Error shutting down meter provider: %v", err)
		}
	}()

	serviceMetrics, err := metrics.NewServiceMetrics(
		ctx,
		mp.Meter("treasury-metric-provider"),
		configuration.TreasuryConfig.Env,
		configuration.TreasuryConfig.Id,
		Version)
	panicOnError(err)

	accounts, err := account.NewParser(configuration.TreasuryConfig.AccountFormat)
	panicOnError(err)

	ledger, err := treasury.NewLedger(
		s,
		configuration.TreasuryConfig.Issuers,
		accounts,
		serviceMetrics,
		treasury.Config{
			ScalingFactor:      configuration.TreasuryConfig.ScalingFactor,
			BruteForceRecovery: configuration.TreasuryConfig.BruteForceRecovery,
			CouponReplayGuard:  configuration.TreasuryConfig.CouponReplayGuard,
		})
	panicOnError(err)

	balance, err := ledger.Balance(ctx)
	panicOnError(err)
	serviceMetrics.TrackBalance(balance)

	for _, key := range configuration.TreasuryConfig.Issuers.Keys() {
		log.Info().Uint32("version", key.Version).Str("publicKey", key.PublicKey.Hex()).Msg("Trusting issuer key")
	}

	receiptCache := cache.NewReceiptCache(ctx, configuration.TreasuryConfig.ReceiptTTL)
	if configuration.TreasuryConfig.OwnerToken == "" {
		log.Warn().Msg("Owner token not configured, owner endpoints are disabled")
	}

	router := api.NewRouter(
		handlers.NewDepositHandler(ledger),
		handlers.NewWithdrawalHandler(ledger, receiptCache),
		handlers.NewBalanceHandler(ledger),
		handlers.NewOwnerHandler(ledger, configuration.TreasuryConfig.OwnerToken),
	)
	var servers conc.WaitGroup
	servers.Go(func() {
		api.Serve(ctx, configuration.TreasuryConfig.ApiAddr, router)
	})

	sysErr := make(chan os.Signal, 1)
	signal.Notify(sysErr,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT)

	log.Info().Msgf("Started treasury: %s with balance %d. Version: v%s", configuration.TreasuryConfig.Id, balance, Version)

	sig := <-sysErr
	log.Info().Msgf("terminating got ` [%v] signal", sig)

	cancel()
	servers.Wait()
	return nil
}

func panicOnError(err error) {
	if err != nil {
		panic(err)
	}
}
