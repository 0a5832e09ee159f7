// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigFlagName  = "config"
	EnvFileFlagName = "env-file"
)

// BindFlags binds the configuration source flags to rootCMD
func BindFlags(rootCMD *cobra.Command) {
	rootCMD.PersistentFlags().String(ConfigFlagName, ".", "Path to JSON/YAML configuration file or 'env' to load from environment")
	_ = viper.BindPFlag(ConfigFlagName, rootCMD.PersistentFlags().Lookup(ConfigFlagName))

	rootCMD.PersistentFlags().String(EnvFileFlagName, "", "Optional .env file loaded into the environment before configuration")
	_ = viper.BindPFlag(EnvFileFlagName, rootCMD.PersistentFlags().Lookup(EnvFileFlagName))
}
