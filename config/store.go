package config

import (
	"fmt"
)

const (
	MemoryStore   = "memory"
	LvlDBStore    = "lvldb"
	PostgresStore = "postgres"
)

type StoreConfig struct {
	Type       string
	Path       string
	DSN        string
	MaxRetries int
}

type RawStoreConfig struct {
	Type       string `mapstructure:"type" env:"TREASURY_STORE_TYPE" default:"lvldb"`
	Path       string `mapstructure:"path" env:"TREASURY_STORE_PATH" default:"./treasury-db"`
	DSN        string `mapstructure:"dsn" env:"TREASURY_STORE_DSN"`
	MaxRetries int    `mapstructure:"maxRetries" env:"TREASURY_STORE_MAX_RETRIES" default:"5"`
}

func (c *RawStoreConfig) Validate() error {
	switch c.Type {
	case MemoryStore:
	case LvlDBStore:
		if c.Path == "" {
			return fmt.Errorf("required field store.path empty for lvldb store")
		}
	case PostgresStore:
		if c.DSN == "" {
			return fmt.Errorf("required field store.dsn empty for postgres store")
		}
	default:
		return fmt.Errorf("unknown store type %s", c.Type)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("store.maxRetries must not be negative")
	}
	return nil
}
