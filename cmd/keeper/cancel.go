package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/registry"
)

var (
	cancelID         uint64
	cancelReqHex     string
	cancelUnverified bool
	cancelPrefixHex  string
	cancelSuffixHex  string

	cancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a queued request and reclaim its escrow",
		Long: `Cancels a queued request. The registry stores only the hash, so the
full request bytes (the canonical encoding printed at submission time) must
be supplied for it to verify ownership.`,
		RunE: runCancel,
	}
)

func init() {
	cancelCmd.Flags().Uint64Var(&cancelID, "id", 0, "request id")
	cancelCmd.Flags().StringVar(&cancelReqHex, "req", "", "canonical request encoding (0x hex)")
	cancelCmd.Flags().BoolVar(&cancelUnverified, "unverified", false, "request lives in the unverified queue")
	cancelCmd.Flags().StringVar(&cancelPrefixHex, "prefix", "0x", "commitment data prefix (unverified only)")
	cancelCmd.Flags().StringVar(&cancelSuffixHex, "suffix", "0x", "commitment data suffix (unverified only)")
	cancelCmd.MarkFlagRequired("req")
}

// decodeRequestFlag parses and canonically re-validates a --req value.
func decodeRequestFlag(reqHex string) (registry.Request, error) {
	raw, err := hexutil.Decode(reqHex)
	if err != nil {
		return registry.Request{}, fmt.Errorf("req: %w", err)
	}
	r, err := registry.ReqFromBytes(raw)
	if err != nil {
		return registry.Request{}, fmt.Errorf("req: %w", err)
	}
	return r, nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := connect(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := decodeRequestFlag(cancelReqHex)
	if err != nil {
		return err
	}
	id := new(big.Int).SetUint64(cancelID)

	var txHash common.Hash
	if cancelUnverified {
		prefix, err := hexutil.Decode(cancelPrefixHex)
		if err != nil {
			return fmt.Errorf("prefix: %w", err)
		}
		suffix, err := hexutil.Decode(cancelSuffixHex)
		if err != nil {
			return fmt.Errorf("suffix: %w", err)
		}
		txHash, err = a.reg.CancelHashedReqUnveri(ctx, id, r, prefix, suffix)
		if err != nil {
			return err
		}
	} else {
		txHash, err = a.reg.CancelHashedReq(ctx, id, r)
		if err != nil {
			return err
		}
	}
	fmt.Printf("cancelled: tx %s\n", txHash.Hex())
	return nil
}
