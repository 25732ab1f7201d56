package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/helpers"
)

var (
	statusSliceLen uint64

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show queue lengths, fee parameters and this keeper's counters",
		RunE:  runStatus,
	}
)

func init() {
	statusCmd.Flags().Uint64Var(&statusSliceLen, "tail", 10, "how many trailing queue entries to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := connect(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	veriLen, err := a.reg.GetHashedReqsLen(ctx)
	if err != nil {
		return err
	}
	unveriLen, err := a.reg.GetHashedReqsUnveriLen(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("verified queue:   %s slots\n", veriLen)
	fmt.Printf("unverified queue: %s slots\n", unveriLen)

	printTail(ctx, a, veriLen, false)
	printTail(ctx, a, unveriLen, true)

	fmt.Println("\nfee parameters:")
	for _, name := range []string{"BASE_BPS", "PAY_ETH_BPS", "PAY_AUTO_BPS", "GAS_OVERHEAD_ETH", "GAS_OVERHEAD_AUTO"} {
		v, err := a.reg.Constant(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-18s %s\n", name, v)
	}

	reqs, err := a.reg.GetReqCountOf(ctx, a.from)
	if err != nil {
		return err
	}
	execs, err := a.reg.GetExecCountOf(ctx, a.from)
	if err != nil {
		return err
	}
	refs, err := a.reg.GetReferalCountOf(ctx, a.from)
	if err != nil {
		return err
	}
	fmt.Printf("\nkeeper %s:\n", helpers.FormatAddress(a.from))
	fmt.Printf("  requested %s, executed %s, referred %s\n", reqs, execs, refs)
	return nil
}

func printTail(ctx context.Context, a *app, length *big.Int, unverified bool) {
	if length.Sign() == 0 || statusSliceLen == 0 {
		return
	}
	end := length
	start := new(big.Int).Sub(end, new(big.Int).SetUint64(statusSliceLen))
	if start.Sign() < 0 {
		start = big.NewInt(0)
	}

	var hashes []common.Hash
	var err error
	if unverified {
		hashes, err = a.reg.GetHashedReqsUnveriSlice(ctx, start, end)
	} else {
		hashes, err = a.reg.GetHashedReqsSlice(ctx, start, end)
	}
	if err != nil {
		fmt.Printf("  (slice read failed: %v)\n", err)
		return
	}
	for i, h := range hashes {
		if h == (common.Hash{}) {
			continue // tombstone
		}
		id := new(big.Int).Add(start, big.NewInt(int64(i)))
		fmt.Printf("  [%s] %s\n", id, h.Hex())
	}
}
