// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sprintertech/sprinter-treasury/cli/coupon"
	"github.com/sprintertech/sprinter-treasury/config"
)

var (
	rootCMD = &cobra.Command{
		Use:   "treasury",
		Short: "Coupon authorized custodial treasury",
		Long: "Treasury pays out pooled funds against coupons signed by a trusted bridge issuer. " +
			"Each coupon signature can be redeemed exactly once.",
		SilenceUsage: true,
	}
)

func init() {
	config.BindFlags(rootCMD)
	rootCMD.AddCommand(runCMD, coupon.CouponCLI)
}

func Execute() {
	if err := rootCMD.Execute(); err != nil {
		log.Fatal().Err(err).Msg("treasury command failed")
	}
}
