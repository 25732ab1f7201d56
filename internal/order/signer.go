package order

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSigningCancelled: the caller aborted before a signature was produced.
// Nothing has been submitted at that point; the flow is safe to retry from
// scratch.
var ErrSigningCancelled = errors.New("order: signing cancelled")

// Signer authorizes an order digest. Signing is the single suspend point in
// order construction; implementations backed by interactive wallets may
// block on the context indefinitely.
type Signer interface {
	Sign(ctx context.Context, digest common.Hash) (Signature, error)
	Address() common.Address
}

// LocalSigner signs with an in-process ECDSA key.
type LocalSigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *LocalSigner) Address() common.Address { return s.addr }

func (s *LocalSigner) Sign(ctx context.Context, digest common.Hash) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrSigningCancelled, err)
	}
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign order: %w", err)
	}
	return Signature{
		V: sig[64] + 27,
		R: common.BytesToHash(sig[:32]),
		S: common.BytesToHash(sig[32:64]),
	}, nil
}

// RecoverMaker recovers the signing address from an order signature, for
// pre-submission sanity checks.
func RecoverMaker(o *LimitOrder, sig Signature, chainID uint64, verifyingContract common.Address) (common.Address, error) {
	digest := o.Digest(chainID, verifyingContract)
	raw := make([]byte, 65)
	copy(raw[:32], sig.R.Bytes())
	copy(raw[32:64], sig.S.Bytes())
	raw[64] = sig.V - 27
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover maker: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
