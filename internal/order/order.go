// Package order builds, canonicalizes and signs conditional swap orders
// before they are wrapped into registry requests.
package order

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LimitOrder is the canonical order tuple. StopPrice of zero with the
// sentinel oracle values means the order has no price condition (a plain
// limit order); otherwise the oracle adapter checks the trigger before the
// fill is allowed.
type LimitOrder struct {
	Maker         common.Address
	TokenIn       common.Address
	TokenOut      common.Address
	AmountIn      *big.Int
	AmountOut     *big.Int
	Recipient     common.Address
	StartTime     uint64
	EndTime       uint64
	StopPrice     *big.Int
	OracleAddress common.Address
	OracleData    []byte
}

// Signature is the authorizing (v, r, s) over the order digest.
type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// SignedOrder is an order plus its maker signature, ready for the fill
// encoder.
type SignedOrder struct {
	LimitOrder
	Sig Signature
}

var canonicalArgs abi.Arguments

func init() {
	typ, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "maker", Type: "address"},
		{Name: "amountIn", Type: "uint256"},
		{Name: "amountOut", Type: "uint256"},
		{Name: "recipient", Type: "address"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "stopPrice", Type: "uint256"},
		{Name: "oracleAddress", Type: "address"},
		{Name: "oracleData", Type: "bytes"},
	})
	if err != nil {
		panic(fmt.Sprintf("order: canonical tuple type: %v", err))
	}
	canonicalArgs = abi.Arguments{{Type: typ, Name: "order"}}
}

type canonicalTuple struct {
	Maker         common.Address
	AmountIn      *big.Int
	AmountOut     *big.Int
	Recipient     common.Address
	StartTime     *big.Int
	EndTime       *big.Int
	StopPrice     *big.Int
	OracleAddress common.Address
	OracleData    []byte
}

// CanonicalBytes returns the deterministic encoding of the nine-field order
// tuple. The same order always yields the same bytes, so a retried
// construction reproduces identical call data and hashes.
func (o *LimitOrder) CanonicalBytes() ([]byte, error) {
	if o.AmountIn == nil || o.AmountOut == nil {
		return nil, fmt.Errorf("order: nil amount")
	}
	stop := o.StopPrice
	if stop == nil {
		stop = big.NewInt(0)
	}
	enc, err := canonicalArgs.Pack(canonicalTuple{
		Maker:         o.Maker,
		AmountIn:      o.AmountIn,
		AmountOut:     o.AmountOut,
		Recipient:     o.Recipient,
		StartTime:     new(big.Int).SetUint64(o.StartTime),
		EndTime:       new(big.Int).SetUint64(o.EndTime),
		StopPrice:     stop,
		OracleAddress: o.OracleAddress,
		OracleData:    o.OracleData,
	})
	if err != nil {
		return nil, fmt.Errorf("order: encode: %w", err)
	}
	return enc, nil
}

var (
	domainTypehash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,uint256 chainId,address verifyingContract)"))
	orderTypehash = crypto.Keccak256Hash([]byte(
		"LimitOrder(address maker,address tokenIn,address tokenOut,uint256 amountIn,uint256 amountOut,address recipient,uint256 startTime,uint256 endTime,uint256 stopPrice,address oracleAddress,bytes32 oracleDataHash)"))
	domainName = crypto.Keccak256Hash([]byte("LimitOrder"))
)

// Digest is the EIP-712 signing hash of the order, bound to a chain and the
// verifying stop-limit contract.
func (o *LimitOrder) Digest(chainID uint64, verifyingContract common.Address) common.Hash {
	domain := crypto.Keccak256Hash(
		domainTypehash.Bytes(),
		domainName.Bytes(),
		word(new(big.Int).SetUint64(chainID)),
		addrWord(verifyingContract),
	)
	stop := o.StopPrice
	if stop == nil {
		stop = big.NewInt(0)
	}
	structHash := crypto.Keccak256Hash(
		orderTypehash.Bytes(),
		addrWord(o.Maker),
		addrWord(o.TokenIn),
		addrWord(o.TokenOut),
		word(o.AmountIn),
		word(o.AmountOut),
		addrWord(o.Recipient),
		word(new(big.Int).SetUint64(o.StartTime)),
		word(new(big.Int).SetUint64(o.EndTime)),
		word(stop),
		addrWord(o.OracleAddress),
		crypto.Keccak256(o.OracleData),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain.Bytes(), structHash.Bytes())
}

func word(v *big.Int) []byte {
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

func addrWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}
