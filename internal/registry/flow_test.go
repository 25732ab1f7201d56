package registry_test

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/meltingclock/autoreq_v1/internal/order"
	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/wrapper"
)

// Full client-side flow: build and sign a plain limit order, wrap it into
// fillOrder call data, submit it to the verified queue, then execute it and
// watch the call data arrive at the wrapper untouched.
func TestLimitOrderSubmitExecuteFlow(t *testing.T) {
	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	signer := order.NewLocalSigner(key)
	maker := signer.Address()

	tokenX := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	tokenY := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	wrapperAddr := common.HexToAddress("0x5afc709047E113267f46e47f6cdeA6466614D99C")
	receiver := common.HexToAddress("0x802290173908ed30A9642D6872e252Ef4f6e59A2")
	registryAddr := common.HexToAddress("0xB82Ae7779aB1742734fCE32A4b7fDBCf020F2667")
	executor := common.HexToAddress("0x2000000000000000000000000000000000000002")

	b := order.NewBuilder(nil, signer, 1, wrapperAddr)
	p := order.Params{
		Maker:       maker,
		TokenIn:     tokenX,
		TokenOut:    tokenY,
		InDecimals:  18,
		OutDecimals: 6,
		AmountIn:    big.NewInt(100),
		AmountOut:   big.NewInt(250),
		Expiry:      order.ExpiryNever,
		Start:       time.Unix(1700000000, 0),
	}

	so, err := b.Build(context.Background(), p)
	require.NoError(t, err)

	// Deterministic rebuild: a retry reproduces byte-identical call data.
	so2, err := b.Build(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, so.Digest(1, wrapperAddr), so2.Digest(1, wrapperAddr))

	aux, err := wrapper.EncodeAux([]common.Address{tokenX, tokenY}, wrapper.AmountExternal(so.AmountOut), receiver)
	require.NoError(t, err)
	callData, err := wrapper.EncodeFillOrder(so, receiver, aux)
	require.NoError(t, err)

	env := registry.NewSimEnv(big.NewInt(1))
	env.Fund(maker, big.NewInt(1000000))

	var delivered []byte
	env.SetHandler(wrapperAddr, func(value *big.Int, data []byte) (uint64, error) {
		delivered = data
		return 50000, nil
	})

	q := registry.NewQueue(registryAddr, env, nil)
	id, err := q.NewReq(maker, big.NewInt(10000), wrapperAddr, common.Address{}, callData, nil, false, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), q.CountVeri())

	r := registry.Request{
		Requester:   maker,
		Target:      wrapperAddr,
		CallData:    callData,
		InitEthSent: big.NewInt(10000),
		EthForCall:  big.NewInt(0),
	}
	storedHash, err := q.GetHashedReq(id)
	require.NoError(t, err)
	wantHash, err := registry.HashReq(r)
	require.NoError(t, err)
	require.Equal(t, wantHash, storedHash)

	entries, err := q.SliceVeri(0, q.LenVeri())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, id, entries[0].ID)

	gasUsed, err := q.ExecuteHashedReq(id, executor, r)
	require.NoError(t, err)
	require.Equal(t, uint64(50000), gasUsed)

	// The wrapper saw exactly the committed bytes, zero fee word included.
	require.True(t, bytes.Equal(callData, delivered))
	require.Equal(t, make([]byte, 32), delivered[4:36])

	require.Equal(t, uint64(0), q.CountVeri())
	require.Equal(t, uint64(1), q.ExecCountOf(maker))
	require.Equal(t, uint64(1), q.ReqCountOf(maker))
}
