// Package oracle builds the price-trigger payload attached to stop-loss
// orders. The payload is checked by the chainlink oracle adapter at
// execution time; this package only prepares it.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedPair: no usable feed route between the two tokens. Must be
// surfaced before any signature is requested.
var ErrUnsupportedPair = errors.New("oracle: unsupported pair")

// Sentinel "no oracle" values. An order carrying these has no price
// condition at all.
var (
	ZeroAddress = common.Address{}
	ZeroData    = []byte{}
)

// Feed is one chainlink token/USD aggregator.
type Feed struct {
	Aggregator common.Address
	Decimals   uint8 // feed answer decimals, typically 8
}

// Registry holds the per-chain feed table plus the chainlink oracle adapter
// address the condition is evaluated against.
type Registry struct {
	mu      sync.RWMutex
	chainID uint64
	adapter common.Address
	feeds   map[common.Address]Feed
}

func NewRegistry(chainID uint64, adapter common.Address) *Registry {
	return &Registry{
		chainID: chainID,
		adapter: adapter,
		feeds:   make(map[common.Address]Feed),
	}
}

func (r *Registry) ChainID() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chainID
}

// Adapter returns the oracle address orders reference. Zero when the chain
// has no deployed adapter; stop-loss orders are impossible there.
func (r *Registry) Adapter() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapter
}

func (r *Registry) AddFeed(token common.Address, feed Feed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[token] = feed
}

func (r *Registry) feed(token common.Address) (Feed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.feeds[token]
	return f, ok
}

// Condition is a prepared trigger: the stop price normalized to the pair's
// canonical 18-decimal scale plus the opaque data blob the adapter consumes.
type Condition struct {
	StopPrice  *big.Int
	OracleData []byte
}

// Sentinel reports whether the condition is the "no oracle" value.
func (c Condition) Sentinel() bool {
	return c.StopPrice == nil && len(c.OracleData) == 0
}

// oracleData is ABI-encoded (multiply, divide, decimals): the two feed
// aggregators the adapter combines into a pair price, and the scale it
// normalizes the answer to.
var condArgs abi.Arguments

func init() {
	addrT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(fmt.Sprintf("oracle: address type: %v", err))
	}
	uintT, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("oracle: uint256 type: %v", err))
	}
	condArgs = abi.Arguments{
		{Type: addrT, Name: "multiply"},
		{Type: addrT, Name: "divide"},
		{Type: uintT, Name: "decimals"},
	}
}

// PrepareStopPrice builds the trigger for a tokenIn/tokenOut pair at the
// given price (output units per input unit). When either token has no feed,
// the sentinel condition is returned with a nil error; callers deciding to
// submit a stop-loss order must treat the sentinel as ErrUnsupportedPair
// before signing anything.
func (r *Registry) PrepareStopPrice(tokenIn, tokenOut common.Address, inDecimals, outDecimals uint8, price decimal.Decimal) (Condition, error) {
	if price.Sign() <= 0 {
		return Condition{}, fmt.Errorf("oracle: stop price must be positive, got %s", price)
	}

	feedIn, okIn := r.feed(tokenIn)
	feedOut, okOut := r.feed(tokenOut)
	if !okIn || !okOut || r.Adapter() == ZeroAddress {
		return Condition{}, nil // sentinel
	}

	// The adapter divides the tokenIn feed by the tokenOut feed and scales
	// the quotient; the trigger price itself is normalized to 18 decimals
	// adjusted for the token decimal difference.
	scale := 18 + int32(outDecimals) - int32(inDecimals)
	encoded := price.Shift(scale)
	if encoded.Exponent() < 0 {
		encoded = encoded.Truncate(0)
	}

	dataDecimals := big.NewInt(18 + int64(feedOut.Decimals) - int64(feedIn.Decimals))
	data, err := condArgs.Pack(feedIn.Aggregator, feedOut.Aggregator, dataDecimals)
	if err != nil {
		return Condition{}, fmt.Errorf("oracle: pack condition: %w", err)
	}

	return Condition{StopPrice: encoded.BigInt(), OracleData: data}, nil
}

// DecodeStopPrice inverts the normalization of PrepareStopPrice, for
// display and round-trip checks.
func DecodeStopPrice(encoded *big.Int, inDecimals, outDecimals uint8) decimal.Decimal {
	scale := 18 + int32(outDecimals) - int32(inDecimals)
	return decimal.NewFromBigInt(encoded, 0).Shift(-scale)
}
