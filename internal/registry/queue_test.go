package registry

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr = common.HexToAddress("0xAAAA00000000000000000000000000000000AAAA")
	alice        = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob          = common.HexToAddress("0x2000000000000000000000000000000000000002")
	carol        = common.HexToAddress("0x3000000000000000000000000000000000000003")
	targetAddr   = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

type recorder struct {
	events []Event
}

func (r *recorder) Emit(ev Event) { r.events = append(r.events, ev) }

func newTestQueue(t *testing.T, gasPrice int64) (*Queue, *SimEnv, *recorder) {
	t.Helper()
	env := NewSimEnv(big.NewInt(gasPrice))
	rec := &recorder{}
	return NewQueue(registryAddr, env, rec), env, rec
}

func TestNewReqAssignsMonotonicIDs(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))

	for want := uint64(0); want < 3; want++ {
		id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, false, false)
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		CallData:    nil,
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(0),
	}
	require.NoError(t, q.CancelHashedReq(1, alice, r))

	// A consumed slot never frees its id.
	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, false, false)
	require.NoError(t, err)
	require.Equal(t, uint64(3), id)
	require.Equal(t, uint64(4), q.LenVeri())
	require.Equal(t, uint64(3), q.CountVeri())
}

func TestNewReqEscrowChecks(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)

	// Attached value below ethForCall is refused up front.
	_, err := q.NewReq(alice, big.NewInt(50), targetAddr, common.Address{}, nil, big.NewInt(100), false, false)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// An unfunded sender cannot escrow; queue stays empty either way.
	_, err = q.NewReq(alice, big.NewInt(50), targetAddr, common.Address{}, nil, nil, false, false)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, uint64(0), q.LenVeri())

	env.Fund(alice, big.NewInt(100))
	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, big.NewInt(40), false, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
	require.Equal(t, big.NewInt(0), env.Balance(alice))
	require.Equal(t, big.NewInt(100), env.Balance(registryAddr))
}

func TestCancelRefundsEscrow(t *testing.T) {
	q, env, rec := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(1000))

	id, err := q.NewReq(alice, big.NewInt(700), targetAddr, common.Address{}, []byte{0x01}, big.NewInt(300), false, false)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		CallData:    []byte{0x01},
		InitEthSent: big.NewInt(700),
		EthForCall:  big.NewInt(300),
	}
	require.NoError(t, q.CancelHashedReq(id, alice, r))
	require.Equal(t, big.NewInt(1000), env.Balance(alice))
	require.Equal(t, big.NewInt(0), env.Balance(registryAddr))

	require.Len(t, rec.events, 2)
	removed, ok := rec.events[1].(HashedReqRemoved)
	require.True(t, ok)
	require.Equal(t, id, removed.ID)
	require.False(t, removed.WasExecuted)
}

func TestCancelGuards(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(1000))

	id, err := q.NewReq(alice, big.NewInt(500), targetAddr, common.Address{}, nil, nil, false, false)
	require.NoError(t, err)

	good := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(500),
		EthForCall:  big.NewInt(0),
	}

	wrong := good
	wrong.CallData = []byte{0xff}
	require.ErrorIs(t, q.CancelHashedReq(id, alice, wrong), ErrHashMismatch)

	require.ErrorIs(t, q.CancelHashedReq(id, bob, good), ErrNotRequester)
	require.ErrorIs(t, q.CancelHashedReq(99, alice, good), ErrNotFound)

	// None of the failures consumed the entry.
	require.Equal(t, uint64(1), q.CountVeri())
}

func TestExecuteAtMostOnce(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))

	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, false, false)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(0),
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)

	_, err = q.ExecuteHashedReq(id, bob, r)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, q.CancelHashedReq(id, alice, r), ErrNotFound)
}

func TestExecuteVerifySenderFailure(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))
	env.SetVerifyFailure(alice, true)

	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, true, false)
	require.NoError(t, err)

	r := Request{
		Requester:    alice,
		Target:       targetAddr,
		InitEthSent:  big.NewInt(100),
		EthForCall:   big.NewInt(0),
		VerifySender: true,
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.ErrorIs(t, err, ErrVerifyFailed)

	// The entry survives a failed verification and runs once it clears.
	require.Equal(t, uint64(1), q.CountVeri())
	env.SetVerifyFailure(alice, false)
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)
}

func TestExecuteSettlesEthPayout(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(1000000))
	env.SetHandler(targetAddr, func(value *big.Int, data []byte) (uint64, error) {
		return 50000, nil
	})

	id, err := q.NewReq(alice, big.NewInt(2000), targetAddr, common.Address{}, nil, big.NewInt(1000), false, false)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(2000),
		EthForCall:  big.NewInt(1000),
	}
	gasUsed, err := q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)
	require.Equal(t, uint64(50000), gasUsed)

	// payout = (50000 + 100000) * 1 + 1000 * 30 / 10000 = 150003
	want := ExecutorPayout(false, 50000, big.NewInt(1), big.NewInt(1000))
	require.Equal(t, big.NewInt(150003), want)

	require.Equal(t, big.NewInt(1000), env.Balance(targetAddr))
	require.Equal(t, want, env.Balance(bob))
	// Escrow remainder (1000) covered part of the payout; the shortfall came
	// off the requester's balance and the registry holds nothing.
	require.Equal(t, big.NewInt(848997), env.Balance(alice))
	require.Equal(t, big.NewInt(0), env.Balance(registryAddr))
}

func TestExecuteRefundsEscrowRemainderLeftover(t *testing.T) {
	q, env, _ := newTestQueue(t, 0)
	env.Fund(alice, big.NewInt(100000))
	env.SetHandler(targetAddr, func(value *big.Int, data []byte) (uint64, error) {
		return 21000, nil
	})

	// Zero gas price: payout is fee only (10000 * 30 / 10000 = 30), well
	// below the escrow remainder, so the rest returns to the requester.
	id, err := q.NewReq(alice, big.NewInt(50000), targetAddr, common.Address{}, nil, big.NewInt(10000), false, false)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(50000),
		EthForCall:  big.NewInt(10000),
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(30), env.Balance(bob))
	require.Equal(t, big.NewInt(10000), env.Balance(targetAddr))
	require.Equal(t, big.NewInt(89970), env.Balance(alice))
	require.Equal(t, big.NewInt(0), env.Balance(registryAddr))
}

func TestExecutePayWithAUTO(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))
	env.FundAUTO(alice, big.NewInt(1000000))
	env.SetHandler(targetAddr, func(value *big.Int, data []byte) (uint64, error) {
		return 50000, nil
	})

	id, err := q.NewReq(alice, big.NewInt(2000), targetAddr, common.Address{}, nil, big.NewInt(1000), false, true)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(2000),
		EthForCall:  big.NewInt(1000),
		PayWithAUTO: true,
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)

	// The whole escrow remainder goes home in ETH; the reimbursement runs on
	// AUTO at the AUTO rates: (50000 + 140000) * 1 + 1000 * 20 / 10000.
	require.Equal(t, big.NewInt(9000), env.Balance(alice))
	require.Equal(t, big.NewInt(0), env.Balance(bob))
	require.Equal(t, big.NewInt(190002), env.BalanceAUTO(bob))
	require.Equal(t, big.NewInt(809998), env.BalanceAUTO(alice))
}

func TestExecutePayWithAUTOCappedByBalance(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))
	env.FundAUTO(alice, big.NewInt(75))

	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, false, true)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(0),
		PayWithAUTO: true,
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)

	// Execution still succeeds; the executor absorbs the difference.
	require.Equal(t, big.NewInt(75), env.BalanceAUTO(bob))
	require.Equal(t, big.NewInt(0), env.BalanceAUTO(alice))
}

func TestExecuteRevertConsumesAndRefunds(t *testing.T) {
	q, env, rec := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))
	env.SetHandler(targetAddr, func(value *big.Int, data []byte) (uint64, error) {
		return 30000, errors.New("boom")
	})

	id, err := q.NewReq(alice, big.NewInt(2000), targetAddr, common.Address{}, nil, big.NewInt(1000), false, false)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(2000),
		EthForCall:  big.NewInt(1000),
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.ErrorIs(t, err, ErrCallReverted)

	// Full escrow back to the requester, nothing for the executor, and the
	// entry is gone: the attempt itself consumed it.
	require.Equal(t, big.NewInt(10000), env.Balance(alice))
	require.Equal(t, big.NewInt(0), env.Balance(bob))
	require.Equal(t, big.NewInt(0), env.Balance(targetAddr))

	_, err = q.ExecuteHashedReq(id, bob, r)
	require.ErrorIs(t, err, ErrNotFound)

	removed, ok := rec.events[len(rec.events)-1].(HashedReqRemoved)
	require.True(t, ok)
	require.True(t, removed.WasExecuted)
}

func unveriRequest(callData []byte) Request {
	return Request{
		Requester:   alice,
		Target:      targetAddr,
		CallData:    callData,
		InitEthSent: big.NewInt(0),
		EthForCall:  big.NewInt(0),
		PayWithAUTO: true,
	}
}

func TestUnverifiedLifecycle(t *testing.T) {
	q, env, rec := newTestQueue(t, 1)
	env.FundAUTO(alice, big.NewInt(1000000))

	// Selector plus one zero argument word, the fee slot.
	callData := make([]byte, 36)
	copy(callData, []byte{0xde, 0xad, 0xbe, 0xef})

	r := unveriRequest(callData)
	prefix := []byte("prefix")
	suffix := []byte("suffix")
	h, err := HashReqUnveri(r, prefix, suffix)
	require.NoError(t, err)

	id, err := q.NewHashedReqUnveri(alice, h)
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
	require.Equal(t, uint64(1), q.CountUnveri())

	stored, err := q.GetHashedReqUnveri(id)
	require.NoError(t, err)
	require.Equal(t, h, stored)

	// Wrong context fails closed without touching the entry.
	_, err = q.ExecuteHashedReqUnveri(id, bob, r, prefix, []byte("other"))
	require.ErrorIs(t, err, ErrHashMismatch)
	require.Equal(t, uint64(1), q.CountUnveri())

	var seenFee *big.Int
	env.SetHandler(targetAddr, func(value *big.Int, data []byte) (uint64, error) {
		seenFee = new(big.Int).SetBytes(data[4:36])
		return 40000, nil
	})

	gasUsed, err := q.ExecuteHashedReqUnveri(id, bob, r, prefix, suffix)
	require.NoError(t, err)
	require.Equal(t, uint64(40000), gasUsed)

	// The fee slot carried the overhead-only floor, while the charge itself
	// used the measured gas: (40000 + 140000) * 1.
	require.Equal(t, big.NewInt(140000), seenFee)
	require.Equal(t, big.NewInt(180000), env.BalanceAUTO(bob))
	require.Equal(t, big.NewInt(820000), env.BalanceAUTO(alice))

	_, err = q.ExecuteHashedReqUnveri(id, bob, r, prefix, suffix)
	require.ErrorIs(t, err, ErrNotFound)

	removed, ok := rec.events[len(rec.events)-1].(HashedReqUnveriRemoved)
	require.True(t, ok)
	require.True(t, removed.WasExecuted)
}

func TestUnverifiedCancel(t *testing.T) {
	q, _, rec := newTestQueue(t, 1)

	r := unveriRequest([]byte{0x01})
	h, err := HashReqUnveri(r, nil, nil)
	require.NoError(t, err)

	id, err := q.NewHashedReqUnveri(alice, h)
	require.NoError(t, err)

	require.ErrorIs(t, q.CancelHashedReqUnveri(id, bob, r, nil, nil), ErrNotRequester)
	require.NoError(t, q.CancelHashedReqUnveri(id, alice, r, nil, nil))
	require.Equal(t, uint64(0), q.CountUnveri())

	removed, ok := rec.events[len(rec.events)-1].(HashedReqUnveriRemoved)
	require.True(t, ok)
	require.False(t, removed.WasExecuted)
}

func TestUnverifiedRejectsEscrowClaims(t *testing.T) {
	q, _, _ := newTestQueue(t, 1)

	withValue := unveriRequest(nil)
	withValue.InitEthSent = big.NewInt(10)
	withValue.EthForCall = big.NewInt(10)
	_, err := q.ExecuteHashedReqUnveri(0, bob, withValue, nil, nil)
	require.ErrorIs(t, err, ErrUnveriEscrow)

	ethPaying := unveriRequest(nil)
	ethPaying.PayWithAUTO = false
	_, err = q.ExecuteHashedReqUnveri(0, bob, ethPaying, nil, nil)
	require.ErrorIs(t, err, ErrUnveriEscrow)
	require.ErrorIs(t, q.CancelHashedReqUnveri(0, alice, ethPaying, nil, nil), ErrUnveriEscrow)
}

func TestSliceSemantics(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))

	for i := 0; i < 4; i++ {
		_, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, []byte{byte(i)}, nil, false, false)
		require.NoError(t, err)
	}
	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		CallData:    []byte{0x02},
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(0),
	}
	require.NoError(t, q.CancelHashedReq(2, alice, r))

	_, err := q.SliceVeri(3, 1)
	require.ErrorIs(t, err, ErrInvalidRange)

	// End clamps to the queue length; consumed slots are skipped.
	entries, err := q.SliceVeri(0, 100)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []uint64{0, 1, 3}, []uint64{entries[0].ID, entries[1].ID, entries[2].ID})

	entries, err = q.SliceVeri(2, 4)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint64(3), entries[0].ID)
}

func TestGetHashedReqConsumedSlot(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(1000))

	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, false, false)
	require.NoError(t, err)

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(0),
	}
	want, err := HashReq(r)
	require.NoError(t, err)

	got, err := q.GetHashedReq(id)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, q.CancelHashedReq(id, alice, r))

	// A consumed slot reads as the zero hash; an id never issued is an error.
	got, err = q.GetHashedReq(id)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, got)

	_, err = q.GetHashedReq(id + 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCounters(t *testing.T) {
	q, env, _ := newTestQueue(t, 1)
	env.Fund(alice, big.NewInt(10000))

	id, err := q.NewReq(alice, big.NewInt(100), targetAddr, carol, nil, nil, false, false)
	require.NoError(t, err)
	_, err = q.NewReq(alice, big.NewInt(100), targetAddr, common.Address{}, nil, nil, false, false)
	require.NoError(t, err)

	require.Equal(t, uint64(2), q.ReqCountOf(alice))
	require.Equal(t, uint64(0), q.ExecCountOf(alice))

	r := Request{
		Requester:   alice,
		Target:      targetAddr,
		Referer:     carol,
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(0),
	}
	_, err = q.ExecuteHashedReq(id, bob, r)
	require.NoError(t, err)

	require.Equal(t, uint64(1), q.ExecCountOf(alice))
	require.Equal(t, uint64(1), q.ReferalCountOf(carol))
	require.Equal(t, uint64(0), q.ReferalCountOf(bob))
}
