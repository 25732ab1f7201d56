package registry

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request is the unit of deferred work held by the registry. Once created it is
// immutable; cancel/execute are the only transitions and both consume the entry.
type Request struct {
	Requester    common.Address
	Target       common.Address
	Referer      common.Address
	CallData     []byte
	InitEthSent  *big.Int // uint120, escrowed at creation
	EthForCall   *big.Int // uint120, forwarded to Target on execution
	VerifySender bool
	PayWithAUTO  bool
}

// maxUint120 bounds the two value fields, matching the contract's uint120 slots.
var maxUint120 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1))

// reqTuple mirrors Request with the exact field order of the on-chain struct.
// abi.Pack walks struct fields in declaration order, so order matters here.
type reqTuple struct {
	Requester    common.Address
	Target       common.Address
	Referer      common.Address
	CallData     []byte
	InitEthSent  *big.Int
	EthForCall   *big.Int
	VerifySender bool
	PayWithAUTO  bool
}

// Tuple adapts a Request for abi.Pack against the registry's method
// signatures, which take the request as a struct tuple.
func Tuple(r Request) interface{} {
	return reqTuple(r)
}

var reqArgs abi.Arguments

func init() {
	typ, err := abi.NewType("tuple", "struct IRegistry.Request", []abi.ArgumentMarshaling{
		{Name: "requester", Type: "address"},
		{Name: "target", Type: "address"},
		{Name: "referer", Type: "address"},
		{Name: "callData", Type: "bytes"},
		{Name: "initEthSent", Type: "uint120"},
		{Name: "ethForCall", Type: "uint120"},
		{Name: "verifySender", Type: "bool"},
		{Name: "payWithAUTO", Type: "bool"},
	})
	if err != nil {
		panic(fmt.Sprintf("registry: request tuple type: %v", err))
	}
	reqArgs = abi.Arguments{{Type: typ, Name: "r"}}
}

// Validate checks the structural invariants a Request must satisfy before it
// may enter a queue.
func (r Request) Validate() error {
	if r.InitEthSent == nil || r.EthForCall == nil {
		return fmt.Errorf("%w: nil value field", ErrMalformedRequest)
	}
	if r.InitEthSent.Sign() < 0 || r.EthForCall.Sign() < 0 {
		return fmt.Errorf("%w: negative value field", ErrMalformedRequest)
	}
	if r.InitEthSent.Cmp(maxUint120) > 0 || r.EthForCall.Cmp(maxUint120) > 0 {
		return fmt.Errorf("%w: value exceeds uint120", ErrMalformedRequest)
	}
	if r.EthForCall.Cmp(r.InitEthSent) > 0 {
		return fmt.Errorf("%w: ethForCall exceeds initEthSent", ErrMalformedRequest)
	}
	return nil
}

// Equal reports whether two Requests encode to the same bytes.
func (r Request) Equal(other Request) bool {
	return r.Requester == other.Requester &&
		r.Target == other.Target &&
		r.Referer == other.Referer &&
		bytes.Equal(r.CallData, other.CallData) &&
		r.InitEthSent.Cmp(other.InitEthSent) == 0 &&
		r.EthForCall.Cmp(other.EthForCall) == 0 &&
		r.VerifySender == other.VerifySender &&
		r.PayWithAUTO == other.PayWithAUTO
}

// ReqBytes returns the canonical ABI encoding of r. Deterministic: the same
// Request always yields the same bytes.
func ReqBytes(r Request) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	enc, err := reqArgs.Pack(reqTuple(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return enc, nil
}

// ReqFromBytes decodes a canonical encoding back into a Request. The input
// must parse as exactly one Request tuple; trailing or missing bytes fail
// with ErrMalformedRequest rather than being ignored.
func ReqFromBytes(data []byte) (Request, error) {
	vals, err := reqArgs.Unpack(data)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	tup := *abi.ConvertType(vals[0], new(reqTuple)).(*reqTuple)
	r := Request(tup)
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	// The ABI decoder tolerates trailing garbage; re-encode and compare so
	// that decode(encode(r)) is the only accepted shape.
	reenc, err := ReqBytes(r)
	if err != nil {
		return Request{}, err
	}
	if !bytes.Equal(reenc, data) {
		return Request{}, fmt.Errorf("%w: encoding is not canonical", ErrMalformedRequest)
	}
	return r, nil
}

// HashReq is the content address of a verified-queue entry:
// keccak256(ReqBytes(r)). Pure, so any party can recompute it offline.
func HashReq(r Request) (common.Hash, error) {
	enc, err := ReqBytes(r)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// HashReqUnveri is the commitment stored for an unverified-queue entry:
// keccak256(ReqBytes(r) || prefix || suffix). The prefix/suffix bytes bind
// execution-time context that is withheld until the entry is revealed.
func HashReqUnveri(r Request, prefix, suffix []byte) (common.Hash, error) {
	enc, err := ReqBytes(r)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc, prefix, suffix), nil
}
