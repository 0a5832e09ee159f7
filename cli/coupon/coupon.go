// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package coupon

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/sprintertech/sprinter-treasury/coupon"
	"github.com/sprintertech/sprinter-treasury/replay"
	"github.com/sprintertech/sprinter-treasury/signature"
)

var CouponCLI = NewCouponCLI()

// NewCouponCLI builds the offline coupon tooling used by issuers and operators.
func NewCouponCLI() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupon",
		Short: "Coupon related commands",
	}
	cmd.AddCommand(newCanonicalCMD(), newRecoverCMD(), newMarkerCMD(), newSignCMD())
	return cmd
}

type couponFlags struct {
	id         uint64
	from       string
	to         string
	amount     string
	timestamp  string
	eventIndex uint64
}

func (f *couponFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.id, "id", 0, "burn id of the coupon")
	cmd.Flags().StringVar(&f.from, "from", "", "origin chain address that burned")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&f.to, "to", "", "destination account")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in origin chain precision, as issued")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&f.timestamp, "timestamp", "", "burn timestamp")
	_ = cmd.MarkFlagRequired("timestamp")
	cmd.Flags().Uint64Var(&f.eventIndex, "event-index", 0, "origin chain block index of the burn")
}

func (f *couponFlags) coupon() coupon.Coupon {
	return coupon.Coupon{
		ID:               f.id,
		From:             f.from,
		To:               f.to,
		Amount:           f.amount,
		Timestamp:        f.timestamp,
		SourceEventIndex: f.eventIndex,
	}
}

func newCanonicalCMD() *cobra.Command {
	flags := &couponFlags{}
	cmd := &cobra.Command{
		Use:   "canonical",
		Short: "Print the canonical message and hash of a coupon",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.coupon()
			if _, err := c.Value(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "message: %s\n", c.Canonicalize())
			fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\n", c.Hash().Hex())
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newRecoverCMD() *cobra.Command {
	var hash string
	var sig string
	var recoveryID int
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover the signer public key of a coupon signature",
		Long: "Recovers the public key that produced the signature over hash. Without " +
			"a recovery id every candidate key is printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHash(hash)
			if err != nil {
				return err
			}
			compact, err := signature.ParseCompact(sig)
			if err != nil {
				return err
			}

			if recoveryID >= 0 {
				if recoveryID > 255 {
					return signature.ErrInvalidRecoveryID
				}
				key, err := signature.Recover(h, compact, uint8(recoveryID))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recovery id %d: %s\n", recoveryID, key.Hex())
				return nil
			}

			for id := uint8(0); id <= 1; id++ {
				key, err := signature.Recover(h, compact, id)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "recovery id %d: %s\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recovery id %d: %s\n", id, key.Hex())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hash, "hash", "", "hex coupon hash")
	_ = cmd.MarkFlagRequired("hash")
	cmd.Flags().StringVar(&sig, "signature", "", "hex 64 byte compact signature")
	_ = cmd.MarkFlagRequired("signature")
	cmd.Flags().IntVar(&recoveryID, "recovery-id", -1, "recovery id, all candidates are printed if omitted")
	return cmd
}

func newMarkerCMD() *cobra.Command {
	var sig string
	cmd := &cobra.Command{
		Use:   "marker",
		Short: "Print the replay marker key of a coupon signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			compact, err := signature.ParseCompact(sig)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "marker: %s\n", replay.MarkerKey(compact).Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&sig, "signature", "", "hex 64 byte compact signature")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func newSignCMD() *cobra.Command {
	flags := &couponFlags{}
	var key string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a coupon with an issuer private key",
		Long:  "Signs a coupon for local and staging environments. Production issuer keys never touch this tool.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.coupon()
			if _, err := c.Value(); err != nil {
				return err
			}

			pub, err := signature.PublicKeyFromPrivate(key)
			if err != nil {
				return err
			}
			hash := c.Hash()
			sig, recoveryID, err := signature.Sign(hash, key)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\n", hash.Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "signature: 0x%s\n", sig.Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "recoveryId: %d\n", recoveryID)
			fmt.Fprintf(cmd.OutOrStdout(), "markerKey: %s\n", replay.MarkerKey(sig).Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "publicKey: %s\n", pub.Hex())
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&key, "key", "", "hex issuer private key")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func parseHash(s string) (common.Hash, error) {
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length %d", len(b))
	}
	return common.BytesToHash(b), nil
}
