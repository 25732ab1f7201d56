package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/helpers"
	"github.com/meltingclock/autoreq_v1/internal/oracle"
	"github.com/meltingclock/autoreq_v1/internal/order"
	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
	"github.com/meltingclock/autoreq_v1/internal/wrapper"
)

var (
	submitTokenIn     string
	submitTokenOut    string
	submitInDecimals  uint8
	submitOutDecimals uint8
	submitAmountIn    string
	submitAmountOut   string
	submitStopPrice   string
	submitExpiry      string
	submitRecipient   string
	submitValue       string
	submitPayAuto     bool

	submitCmd = &cobra.Command{
		Use:   "submit",
		Short: "Sign a limit or stop-loss order and queue it on the registry",
		Long: `Builds a token swap order, signs it, wraps it in a fillOrder call
and submits it to the registry's verified queue. With --stop-price the order
only becomes executable once the oracle price crosses the trigger.`,
		RunE: runSubmit,
	}
)

func init() {
	submitCmd.Flags().StringVar(&submitTokenIn, "token-in", "", "input token address")
	submitCmd.Flags().StringVar(&submitTokenOut, "token-out", "", "output token address")
	submitCmd.Flags().Uint8Var(&submitInDecimals, "in-decimals", 18, "input token decimals")
	submitCmd.Flags().Uint8Var(&submitOutDecimals, "out-decimals", 18, "output token decimals")
	submitCmd.Flags().StringVar(&submitAmountIn, "amount-in", "", "input amount (human units)")
	submitCmd.Flags().StringVar(&submitAmountOut, "amount-out", "", "minimum output amount (human units)")
	submitCmd.Flags().StringVar(&submitStopPrice, "stop-price", "", "stop trigger price (omit for a plain limit order)")
	submitCmd.Flags().StringVar(&submitExpiry, "expiry", "never", "order lifetime: hour|day|week|never")
	submitCmd.Flags().StringVar(&submitRecipient, "recipient", "", "output recipient (default: maker)")
	submitCmd.Flags().StringVar(&submitValue, "value", "0.01", "ETH attached to cover execution fees")
	submitCmd.Flags().BoolVar(&submitPayAuto, "pay-auto", false, "reimburse the executor in AUTO instead of ETH")
	submitCmd.MarkFlagRequired("token-in")
	submitCmd.MarkFlagRequired("token-out")
	submitCmd.MarkFlagRequired("amount-in")
	submitCmd.MarkFlagRequired("amount-out")
}

func parseExpiry(s string) (order.Expiry, error) {
	switch s {
	case "hour":
		return order.ExpiryHour, nil
	case "day":
		return order.ExpiryDay, nil
	case "week":
		return order.ExpiryWeek, nil
	case "never", "":
		return order.ExpiryNever, nil
	}
	return 0, fmt.Errorf("invalid expiry %q (want hour|day|week|never)", s)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := connect(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tokenIn, err := helpers.ValidateAddress(submitTokenIn)
	if err != nil {
		return fmt.Errorf("token-in: %w", err)
	}
	tokenOut, err := helpers.ValidateAddress(submitTokenOut)
	if err != nil {
		return fmt.Errorf("token-out: %w", err)
	}
	amountIn, err := helpers.ParseTokenAmount(submitAmountIn, int32(submitInDecimals))
	if err != nil {
		return fmt.Errorf("amount-in: %w", err)
	}
	amountOut, err := helpers.ParseTokenAmount(submitAmountOut, int32(submitOutDecimals))
	if err != nil {
		return fmt.Errorf("amount-out: %w", err)
	}
	expiry, err := parseExpiry(submitExpiry)
	if err != nil {
		return err
	}
	value, err := helpers.EthToWei(submitValue)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	var recipient common.Address
	if submitRecipient != "" {
		recipient, err = helpers.ValidateAddress(submitRecipient)
		if err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
	}

	var stopPrice *decimal.Decimal
	if submitStopPrice != "" {
		p, err := decimal.NewFromString(submitStopPrice)
		if err != nil {
			return fmt.Errorf("stop-price: %w", err)
		}
		stopPrice = &p
	}

	chainID := uint64(a.net.CHAIN_ID)
	wrapperAddr, err := helpers.ValidateAddress(a.net.WRAPPER_ADDRESS)
	if err != nil {
		return fmt.Errorf("WRAPPER_ADDRESS: %w", err)
	}
	receiver, err := helpers.ValidateAddress(a.net.ROUNDUP_RECEIVER)
	if err != nil {
		return fmt.Errorf("ROUNDUP_RECEIVER: %w", err)
	}

	oracleReg, _ := oracle.ForChain(chainID)
	builder := order.NewBuilder(oracleReg, order.NewLocalSigner(a.key), chainID, wrapperAddr)

	so, err := builder.Build(ctx, order.Params{
		Maker:       a.from,
		Recipient:   recipient,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		InDecimals:  submitInDecimals,
		OutDecimals: submitOutDecimals,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Expiry:      expiry,
		StopPrice:   stopPrice,
		Start:       time.Now(),
	})
	if err != nil {
		return err
	}

	aux, err := wrapper.EncodeAux(
		[]common.Address{tokenIn, tokenOut},
		wrapper.AmountExternal(amountOut),
		receiver,
	)
	if err != nil {
		return err
	}
	callData, err := wrapper.EncodeFillOrder(so, receiver, aux)
	if err != nil {
		return err
	}

	if submitPayAuto {
		if err := checkAutoBalance(ctx, a); err != nil {
			return err
		}
	}

	// The registry keeps only the hash, so these bytes are the caller's
	// proof of what was queued. Encode up front: it validates the value
	// bounds before anything is sent.
	req := registry.Request{
		Requester:   a.from,
		Target:      wrapperAddr,
		CallData:    callData,
		InitEthSent: value,
		EthForCall:  big.NewInt(0),
		PayWithAUTO: submitPayAuto,
	}
	reqBytes, err := registry.ReqBytes(req)
	if err != nil {
		return err
	}

	txHash, err := a.reg.NewReq(ctx, wrapperAddr, common.Address{}, callData,
		big.NewInt(0), value, false, submitPayAuto)
	if err != nil {
		return err
	}
	telemetry.Infof("[keeper] order submitted tx=%s", txHash.Hex())
	fmt.Printf("submitted: tx %s\n", txHash.Hex())

	reqHex := hexutil.Encode(reqBytes)
	id, err := waitForRequestID(ctx, a, txHash)
	if err != nil {
		telemetry.Warnf("[keeper] request id unavailable: %v", err)
		fmt.Println("request id: pending (check `keeper history` once the tx is mined)")
	} else {
		fmt.Printf("request id: %d\n", id)
	}
	fmt.Printf("request bytes: %s\n", reqHex)
	fmt.Println("keep the request bytes: cancel and execute verify against them")

	digest := so.Digest(chainID, wrapperAddr)
	cache, err := order.OpenCache(a.cfg.ORDER_CACHE_PATH)
	if err != nil {
		return err
	}
	if err := cache.Add(order.CachedOrder{
		RequestID: id,
		Req:       reqHex,
		ChainID:   chainID,
		Maker:     a.from.Hex(),
		TokenIn:   tokenIn.Hex(),
		TokenOut:  tokenOut.Hex(),
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
		StopLoss:  stopPrice != nil,
		Digest:    digest.Hex(),
		Submitted: time.Now(),
	}); err != nil {
		return err
	}
	return refreshOrderCache(ctx, a, cache)
}

// checkAutoBalance refuses a pay-auto submission from an account holding no
// AUTO: the request would queue fine and then starve every executor at
// settlement time.
func checkAutoBalance(ctx context.Context, a *app) error {
	autoToken, err := helpers.ValidateAddress(a.net.AUTO_TOKEN)
	if err != nil {
		return fmt.Errorf("AUTO_TOKEN: %w", err)
	}
	data, err := helpers.ERC20BalanceOfData(a.from)
	if err != nil {
		return err
	}
	ret, err := a.eth.CallContract(ctx, ethereum.CallMsg{To: &autoToken, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("AUTO balance read: %w", err)
	}
	bal, err := helpers.ParseERC20Balance(ret)
	if err != nil {
		return err
	}
	if bal.Sign() == 0 {
		return fmt.Errorf("pay-auto: %s holds no AUTO (%s); executors would get nothing", a.from.Hex(), autoToken.Hex())
	}
	telemetry.Debugf("[keeper] AUTO balance %s", bal)
	return nil
}

// waitForRequestID polls for the submission receipt and pulls the assigned
// id out of the HashedReqAdded log.
func waitForRequestID(ctx context.Context, a *app, txHash common.Hash) (uint64, error) {
	regABI, err := registry.ParseABI()
	if err != nil {
		return 0, err
	}
	addedTopic := regABI.Events["HashedReqAdded"].ID

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for attempt := 0; attempt < 60; attempt++ {
		rcpt, err := a.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			if rcpt.Status != types.ReceiptStatusSuccessful {
				return 0, fmt.Errorf("submission tx %s reverted", txHash.Hex())
			}
			for _, lg := range rcpt.Logs {
				if len(lg.Topics) >= 2 && lg.Topics[0] == addedTopic {
					return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64(), nil
				}
			}
			return 0, fmt.Errorf("tx %s carries no request log", txHash.Hex())
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
	return 0, fmt.Errorf("timed out waiting for tx %s", txHash.Hex())
}

// refreshOrderCache drops cached orders whose hash has left the verified
// queue (executed or cancelled elsewhere). The queue is authoritative.
func refreshOrderCache(ctx context.Context, a *app, cache *order.Cache) error {
	length, err := a.reg.GetHashedReqsLen(ctx)
	if err != nil {
		return err
	}
	hashes, err := a.reg.GetHashedReqsSlice(ctx, big.NewInt(0), length)
	if err != nil {
		return err
	}
	live := make(map[common.Hash]bool, len(hashes))
	for _, h := range hashes {
		if h != (common.Hash{}) {
			live[h] = true
		}
	}
	return cache.Refresh(func() ([]order.CachedOrder, error) {
		return liveOrders(cache.List(), live), nil
	})
}

// liveOrders keeps the cached orders whose request hash is still queued.
// Entries whose bytes are missing or unreadable cannot be checked against
// the queue and are kept as-is.
func liveOrders(cached []order.CachedOrder, live map[common.Hash]bool) []order.CachedOrder {
	out := make([]order.CachedOrder, 0, len(cached))
	for _, o := range cached {
		if o.Req == "" {
			out = append(out, o)
			continue
		}
		raw, err := hexutil.Decode(o.Req)
		if err != nil {
			out = append(out, o)
			continue
		}
		r, err := registry.ReqFromBytes(raw)
		if err != nil {
			out = append(out, o)
			continue
		}
		h, err := registry.HashReq(r)
		if err != nil || live[h] {
			out = append(out, o)
		}
	}
	return out
}
