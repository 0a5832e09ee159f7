// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/imdario/mergo"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/sprintertech/sprinter-treasury/account"
	"github.com/sprintertech/sprinter-treasury/issuer"
	"github.com/sprintertech/sprinter-treasury/signature"
)

type Config struct {
	TreasuryConfig TreasuryConfig
	StoreConfig    StoreConfig
}

type TreasuryConfig struct {
	LogLevel                  zerolog.Level
	LogJSON                   bool
	ApiAddr                   string
	HealthPort                uint16
	OpenTelemetryCollectorURL string
	Env                       string
	Id                        string

	ScalingFactor      uint64
	AccountFormat      string
	BruteForceRecovery bool
	CouponReplayGuard  bool
	OwnerToken         string
	ReceiptTTL         time.Duration
	Issuers            *issuer.AllowList
}

type RawIssuer struct {
	Version   uint32 `mapstructure:"version"`
	PublicKey string `mapstructure:"publicKey"`
}

type RawTreasuryConfig struct {
	LogLevel                  string        `mapstructure:"logLevel" env:"TREASURY_LOG_LEVEL" default:"info"`
	LogJSON                   bool          `mapstructure:"logJSON" env:"TREASURY_LOG_JSON"`
	ApiAddr                   string        `mapstructure:"apiAddr" env:"TREASURY_API_ADDR" default:":3000"`
	HealthPort                uint16        `mapstructure:"healthPort" env:"TREASURY_HEALTH_PORT" default:"9001"`
	OpenTelemetryCollectorURL string        `mapstructure:"openTelemetryCollectorURL" env:"TREASURY_OPEN_TELEMETRY_COLLECTOR_URL"`
	Env                       string        `mapstructure:"env" env:"TREASURY_ENV" default:"local"`
	Id                        string        `mapstructure:"id" env:"TREASURY_ID" default:"treasury"`
	ScalingFactor             uint64        `mapstructure:"scalingFactor" env:"TREASURY_SCALING_FACTOR" default:"1"`
	AccountFormat             string        `mapstructure:"accountFormat" env:"TREASURY_ACCOUNT_FORMAT" default:"base58"`
	BruteForceRecovery        bool          `mapstructure:"bruteForceRecovery" env:"TREASURY_BRUTE_FORCE_RECOVERY"`
	DisableCouponReplayGuard  bool          `mapstructure:"disableCouponReplayGuard" env:"TREASURY_DISABLE_COUPON_REPLAY_GUARD"`
	OwnerToken                string        `mapstructure:"ownerToken" env:"TREASURY_OWNER_TOKEN"`
	ReceiptTTL                time.Duration `mapstructure:"receiptTTL" env:"TREASURY_RECEIPT_TTL" default:"10m"`
	// IssuerKeys lists keys as "version:hex" pairs separated by commas.
	IssuerKeys string      `mapstructure:"issuerKeys" env:"TREASURY_ISSUER_KEYS"`
	Issuers    []RawIssuer `mapstructure:"issuers"`
}

type RawConfig struct {
	TreasuryConfig RawTreasuryConfig `mapstructure:"treasury"`
	StoreConfig    RawStoreConfig    `mapstructure:"store"`
}

func (c *RawTreasuryConfig) Validate() error {
	if c.IssuerKeys == "" && len(c.Issuers) == 0 {
		return fmt.Errorf("required field treasury.issuers empty")
	}
	if c.AccountFormat != account.Base58Format && c.AccountFormat != account.OpaqueFormat {
		return fmt.Errorf("invalid treasury.accountFormat %s", c.AccountFormat)
	}
	if c.ScalingFactor == 0 {
		return fmt.Errorf("treasury.scalingFactor must be positive")
	}
	return nil
}

func (c *RawTreasuryConfig) allowList() (*issuer.AllowList, error) {
	keys := []issuer.Key{}
	if c.IssuerKeys != "" {
		parsed, err := issuer.ParseAllowList(c.IssuerKeys)
		if err != nil {
			return nil, err
		}
		keys = append(keys, parsed.Keys()...)
	}

	for _, raw := range c.Issuers {
		pub, err := signature.ParsePublicKey(raw.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("issuer key version %d: %w", raw.Version, err)
		}
		keys = append(keys, issuer.Key{Version: raw.Version, PublicKey: pub})
	}

	return issuer.NewAllowList(keys...)
}

// GetConfigFromFile reads configuration from a JSON or YAML file. Values set in the
// environment override the file.
func GetConfigFromFile(path string, envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	rawConfig := RawConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rawConfig,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	err = decoder.Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	envConfig, err := loadFromEnv(envFile)
	if err != nil {
		return nil, err
	}
	err = mergo.Merge(&rawConfig, envConfig, mergo.WithOverride)
	if err != nil {
		return nil, err
	}

	return processRawConfig(rawConfig)
}

// GetConfigFromENV reads configuration from environment variables only.
func GetConfigFromENV(envFile string) (*Config, error) {
	rawConfig, err := loadFromEnv(envFile)
	if err != nil {
		return nil, err
	}

	return processRawConfig(rawConfig)
}

func loadFromEnv(envFile string) (RawConfig, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			return RawConfig{}, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	}

	rawConfig := RawConfig{}
	err := envdecode.Decode(&rawConfig)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return RawConfig{}, err
	}
	return rawConfig, nil
}

func processRawConfig(rawConfig RawConfig) (*Config, error) {
	err := defaults.Set(&rawConfig)
	if err != nil {
		return nil, err
	}

	err = rawConfig.TreasuryConfig.Validate()
	if err != nil {
		return nil, err
	}
	err = rawConfig.StoreConfig.Validate()
	if err != nil {
		return nil, err
	}

	logLevel, err := zerolog.ParseLevel(rawConfig.TreasuryConfig.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury.logLevel: %w", err)
	}

	allowList, err := rawConfig.TreasuryConfig.allowList()
	if err != nil {
		return nil, err
	}

	raw := rawConfig.TreasuryConfig
	return &Config{
		TreasuryConfig: TreasuryConfig{
			LogLevel:                  logLevel,
			LogJSON:                   raw.LogJSON,
			ApiAddr:                   raw.ApiAddr,
			HealthPort:                raw.HealthPort,
			OpenTelemetryCollectorURL: raw.OpenTelemetryCollectorURL,
			Env:                       raw.Env,
			Id:                        raw.Id,
			ScalingFactor:             raw.ScalingFactor,
			AccountFormat:             raw.AccountFormat,
			BruteForceRecovery:        raw.BruteForceRecovery,
			CouponReplayGuard:         !raw.DisableCouponReplayGuard,
			OwnerToken:                raw.OwnerToken,
			ReceiptTTL:                raw.ReceiptTTL,
			Issuers:                   allowList,
		},
		StoreConfig: StoreConfig{
			Type:       rawConfig.StoreConfig.Type,
			Path:       rawConfig.StoreConfig.Path,
			DSN:        rawConfig.StoreConfig.DSN,
			MaxRetries: rawConfig.StoreConfig.MaxRetries,
		},
	}, nil
}
