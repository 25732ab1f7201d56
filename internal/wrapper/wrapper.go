// Package wrapper encodes the downstream fill instruction for the
// stop-limit order wrapper contract: the call data a registry request
// carries, plus the auxiliary routing blob the wrapper consumes at
// execution time.
package wrapper

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/meltingclock/autoreq_v1/internal/order"
)

// Wrapper ABI (minimal fragment: just the fill entrypoint).
const FillABI = `[
	{"inputs":[
		{"internalType":"uint256","name":"feeAmount","type":"uint256"},
		{"components":[
			{"internalType":"address","name":"maker","type":"address"},
			{"internalType":"uint256","name":"amountIn","type":"uint256"},
			{"internalType":"uint256","name":"amountOut","type":"uint256"},
			{"internalType":"address","name":"recipient","type":"address"},
			{"internalType":"uint256","name":"startTime","type":"uint256"},
			{"internalType":"uint256","name":"endTime","type":"uint256"},
			{"internalType":"uint256","name":"stopPrice","type":"uint256"},
			{"internalType":"address","name":"oracleAddress","type":"address"},
			{"internalType":"bytes","name":"oracleData","type":"bytes"},
			{"internalType":"uint256","name":"amountToFill","type":"uint256"},
			{"internalType":"uint8","name":"v","type":"uint8"},
			{"internalType":"bytes32","name":"r","type":"bytes32"},
			{"internalType":"bytes32","name":"s","type":"bytes32"}],
		 "internalType":"struct ILimitOrderReceiver.OrderArgs","name":"order","type":"tuple"},
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"address","name":"receiver","type":"address"},
		{"internalType":"bytes","name":"data","type":"bytes"}],
	 "name":"fillOrder","outputs":[],
	 "stateMutability":"nonpayable","type":"function"}
]`

// externalFeeBps is the slice of the output amount reserved for the keeper's
// profit on top of the registry fee, in bps of the notional.
const externalFeeBps = 20

var (
	fillABIOnce sync.Once
	fillABI     abi.ABI
	fillABIErr  error
)

func parsedABI() (abi.ABI, error) {
	fillABIOnce.Do(func() {
		fillABI, fillABIErr = abi.JSON(strings.NewReader(FillABI))
	})
	return fillABI, fillABIErr
}

type orderArgs struct {
	Maker         common.Address
	AmountIn      *big.Int
	AmountOut     *big.Int
	Recipient     common.Address
	StartTime     *big.Int
	EndTime       *big.Int
	StopPrice     *big.Int
	OracleAddress common.Address
	OracleData    []byte
	AmountToFill  *big.Int
	V             uint8
	R             [32]byte
	S             [32]byte
}

// EncodeFillOrder packs the fillOrder call for a signed order. The fee
// amount is deliberately zero: it sits in the first argument word, where the
// registry (or the executor on the unverified path) splices the real fee in
// at execution time. Everything else is bound by the request hash.
func EncodeFillOrder(so *order.SignedOrder, receiver common.Address, auxData []byte) ([]byte, error) {
	parsed, err := parsedABI()
	if err != nil {
		return nil, fmt.Errorf("parse fill ABI: %w", err)
	}
	stop := so.StopPrice
	if stop == nil {
		stop = big.NewInt(0)
	}
	args := orderArgs{
		Maker:         so.Maker,
		AmountIn:      so.AmountIn,
		AmountOut:     so.AmountOut,
		Recipient:     so.Recipient,
		StartTime:     new(big.Int).SetUint64(so.StartTime),
		EndTime:       new(big.Int).SetUint64(so.EndTime),
		StopPrice:     stop,
		OracleAddress: so.OracleAddress,
		OracleData:    so.OracleData,
		AmountToFill:  so.AmountIn, // full fill
		V:             so.Sig.V,
		R:             so.Sig.R,
		S:             so.Sig.S,
	}
	data, err := parsed.Pack("fillOrder", big.NewInt(0), args, so.TokenIn, so.TokenOut, receiver, auxData)
	if err != nil {
		return nil, fmt.Errorf("pack fillOrder: %w", err)
	}
	return data, nil
}

var auxArgs abi.Arguments

func init() {
	pathT, err := abi.NewType("address[]", "", nil)
	if err != nil {
		panic(fmt.Sprintf("wrapper: path type: %v", err))
	}
	uintT, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("wrapper: uint256 type: %v", err))
	}
	addrT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(fmt.Sprintf("wrapper: address type: %v", err))
	}
	boolT, err := abi.NewType("bool", "", nil)
	if err != nil {
		panic(fmt.Sprintf("wrapper: bool type: %v", err))
	}
	auxArgs = abi.Arguments{
		{Type: pathT, Name: "path"},
		{Type: uintT, Name: "amountExternal"},
		{Type: addrT, Name: "profitReceiver"},
		{Type: boolT, Name: "keepTokenIn"},
	}
}

// EncodeAux packs the routing blob the wrapper consumes when it executes the
// swap: the token path, the external amount buffer, and where keeper profit
// goes. The fee is always charged in the output token, so keepTokenIn stays
// false.
func EncodeAux(path []common.Address, amountExternal *big.Int, profitReceiver common.Address) ([]byte, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("aux data: path needs at least two hops, got %d", len(path))
	}
	data, err := auxArgs.Pack(path, amountExternal, profitReceiver, false)
	if err != nil {
		return nil, fmt.Errorf("pack aux data: %w", err)
	}
	return data, nil
}

// AmountExternal is the output-token buffer reserved on top of the
// requested amountOut so the fill can cover the keeper's withheld fee.
func AmountExternal(amountOut *big.Int) *big.Int {
	buf := new(big.Int).Mul(amountOut, big.NewInt(externalFeeBps))
	return buf.Div(buf, big.NewInt(10000))
}

// InsertFeeAmount overwrites the zero fee placeholder in encoded fillOrder
// call data. Offset 4 skips the selector; the fee is the first static
// argument.
func InsertFeeAmount(callData []byte, fee *big.Int) ([]byte, error) {
	if len(callData) < 36 {
		return nil, fmt.Errorf("call data too short for fee slot: %d bytes", len(callData))
	}
	out := make([]byte, len(callData))
	copy(out, callData)
	word := make([]byte, 32)
	fee.FillBytes(word)
	copy(out[4:36], word)
	return out, nil
}
