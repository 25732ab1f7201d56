package order

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/meltingclock/autoreq_v1/internal/helpers"
	"github.com/meltingclock/autoreq_v1/internal/oracle"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Expiry is the enumerated lifetime of an order.
type Expiry int

const (
	ExpiryHour Expiry = iota
	ExpiryDay
	ExpiryWeek
	ExpiryNever
)

// EndTime resolves the expiry against the order's start time. Never maps to
// the maximum representable time.
func (e Expiry) EndTime(start time.Time) uint64 {
	switch e {
	case ExpiryHour:
		return uint64(start.Unix()) + 3600
	case ExpiryDay:
		return uint64(start.Unix()) + 86400
	case ExpiryWeek:
		return uint64(start.Unix()) + 604800
	default:
		return math.MaxUint64
	}
}

// Params describes one order to build. Start is explicit rather than read
// from the clock inside Build: a retry after a failed submission must
// reproduce byte-identical call data, so the caller pins the start time
// once and reuses it.
type Params struct {
	Maker     common.Address
	Recipient common.Address // zero means the maker receives the output
	TokenIn   common.Address
	TokenOut  common.Address

	InDecimals  uint8
	OutDecimals uint8

	AmountIn  *big.Int
	AmountOut *big.Int

	Expiry    Expiry
	StopPrice *decimal.Decimal // nil for a plain limit order
	Start     time.Time
}

// Builder assembles and signs orders for one chain. All stages are
// synchronous except the signature, which suspends on the Signer.
type Builder struct {
	oracle   *oracle.Registry
	signer   Signer
	chainID  uint64
	verifier common.Address // stop-limit order contract the signature is bound to
}

func NewBuilder(oracleReg *oracle.Registry, signer Signer, chainID uint64, verifier common.Address) *Builder {
	return &Builder{
		oracle:   oracleReg,
		signer:   signer,
		chainID:  chainID,
		verifier: verifier,
	}
}

// Build constructs, canonicalizes and signs one order. A stop-loss request
// for a pair without a feed fails with oracle.ErrUnsupportedPair before the
// signer is ever invoked; cancelling the context during signing leaves no
// trace.
func (b *Builder) Build(ctx context.Context, p Params) (*SignedOrder, error) {
	if err := helpers.ValidateTokenPair(p.TokenIn, p.TokenOut); err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}
	if err := helpers.ValidateAmount(p.AmountIn); err != nil {
		return nil, fmt.Errorf("invalid input amount: %w", err)
	}
	if err := helpers.ValidateAmount(p.AmountOut); err != nil {
		return nil, fmt.Errorf("invalid output amount: %w", err)
	}
	if p.Maker == (common.Address{}) {
		return nil, fmt.Errorf("build order: maker is zero")
	}
	if p.Start.IsZero() {
		return nil, fmt.Errorf("build order: start time not set")
	}

	// Resolve the price condition first: an unsupported pair must fail
	// before any signature is requested, never turn into an always-true
	// condition.
	stopPrice := big.NewInt(0)
	oracleAddr := oracle.ZeroAddress
	oracleData := oracle.ZeroData
	if p.StopPrice != nil {
		if b.oracle == nil {
			return nil, oracle.ErrUnsupportedPair
		}
		cond, err := b.oracle.PrepareStopPrice(p.TokenIn, p.TokenOut, p.InDecimals, p.OutDecimals, *p.StopPrice)
		if err != nil {
			return nil, err
		}
		if cond.Sentinel() {
			return nil, fmt.Errorf("%w: %s/%s", oracle.ErrUnsupportedPair, p.TokenIn.Hex(), p.TokenOut.Hex())
		}
		stopPrice = cond.StopPrice
		oracleAddr = b.oracle.Adapter()
		oracleData = cond.OracleData
	}

	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = p.Maker
	}

	o := LimitOrder{
		Maker:         p.Maker,
		TokenIn:       p.TokenIn,
		TokenOut:      p.TokenOut,
		AmountIn:      new(big.Int).Set(p.AmountIn),
		AmountOut:     new(big.Int).Set(p.AmountOut),
		Recipient:     recipient,
		StartTime:     uint64(p.Start.Unix()),
		EndTime:       p.Expiry.EndTime(p.Start),
		StopPrice:     stopPrice,
		OracleAddress: oracleAddr,
		OracleData:    oracleData,
	}

	digest := o.Digest(b.chainID, b.verifier)
	sig, err := b.signer.Sign(ctx, digest)
	if err != nil {
		return nil, err
	}

	telemetry.Debugf("[order] signed digest=%s maker=%s amountIn=%s", digest.Hex(), o.Maker.Hex(), o.AmountIn)
	return &SignedOrder{LimitOrder: o, Sig: sig}, nil
}
