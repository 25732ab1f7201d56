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
	executeID         uint64
	executeReqHex     string
	executeUnverified bool
	executePrefixHex  string
	executeSuffixHex  string

	executeCmd = &cobra.Command{
		Use:   "execute",
		Short: "Execute a queued request as a keeper",
		Long: `Executes a queued request, forwarding its call and collecting the
gas-plus-fee reimbursement. The full request bytes must match the stored
hash; simulate the inner call first, a revert on-chain still costs gas.`,
		RunE: runExecute,
	}
)

func init() {
	executeCmd.Flags().Uint64Var(&executeID, "id", 0, "request id")
	executeCmd.Flags().StringVar(&executeReqHex, "req", "", "canonical request encoding (0x hex)")
	executeCmd.Flags().BoolVar(&executeUnverified, "unverified", false, "request lives in the unverified queue")
	executeCmd.Flags().StringVar(&executePrefixHex, "prefix", "0x", "commitment data prefix (unverified only)")
	executeCmd.Flags().StringVar(&executeSuffixHex, "suffix", "0x", "commitment data suffix (unverified only)")
	executeCmd.MarkFlagRequired("req")
}

func runExecute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := connect(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := decodeRequestFlag(executeReqHex)
	if err != nil {
		return err
	}
	id := new(big.Int).SetUint64(executeID)

	// Cross-check against the stored hash before spending gas.
	if executeUnverified {
		prefix, err := hexutil.Decode(executePrefixHex)
		if err != nil {
			return fmt.Errorf("prefix: %w", err)
		}
		suffix, err := hexutil.Decode(executeSuffixHex)
		if err != nil {
			return fmt.Errorf("suffix: %w", err)
		}
		want, err := a.reg.GetHashedReqUnveri(ctx, id)
		if err != nil {
			return err
		}
		have, err := registry.HashReqUnveri(r, prefix, suffix)
		if err != nil {
			return err
		}
		if want != have {
			return fmt.Errorf("%w: stored %s, computed %s", registry.ErrHashMismatch, want.Hex(), have.Hex())
		}
		txHash, err := a.reg.ExecuteHashedReqUnveri(ctx, id, r, prefix, suffix)
		if err != nil {
			return err
		}
		fmt.Printf("executed: tx %s\n", txHash.Hex())
		return nil
	}

	want, err := a.reg.GetHashedReq(ctx, id)
	if err != nil {
		return err
	}
	if want == (common.Hash{}) {
		return fmt.Errorf("%w: id %d has no live request", registry.ErrNotFound, executeID)
	}
	have, err := registry.HashReq(r)
	if err != nil {
		return err
	}
	if want != have {
		return fmt.Errorf("%w: stored %s, computed %s", registry.ErrHashMismatch, want.Hex(), have.Hex())
	}

	txHash, err := a.reg.ExecuteHashedReq(ctx, id, r)
	if err != nil {
		return err
	}
	fmt.Printf("executed: tx %s\n", txHash.Hex())
	return nil
}
