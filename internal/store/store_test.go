package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/meltingclock/autoreq_v1/internal/registry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRequest() registry.Request {
	return registry.Request{
		Requester:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Target:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Referer:    common.HexToAddress("0x3333333333333333333333333333333333333333"),
		CallData:   []byte{0xde, 0xad, 0xbe, 0xef},
		InitEthSent: big.NewInt(100),
		EthForCall:  big.NewInt(100),
	}
}

func TestOutcomeLifecycle(t *testing.T) {
	s := openTestStore(t)

	s.Emit(registry.HashedReqAdded{ID: 0, Req: sampleRequest()})

	out, err := s.Outcome(0, false)
	require.NoError(t, err)
	require.Equal(t, OutcomePending, out)

	s.Emit(registry.HashedReqRemoved{ID: 0, WasExecuted: true})

	out, err = s.Outcome(0, false)
	require.NoError(t, err)
	require.Equal(t, OutcomeExecuted, out)
}

func TestCancelledDistinctFromExecuted(t *testing.T) {
	s := openTestStore(t)

	s.Emit(registry.HashedReqAdded{ID: 0, Req: sampleRequest()})
	s.Emit(registry.HashedReqAdded{ID: 1, Req: sampleRequest()})
	s.Emit(registry.HashedReqRemoved{ID: 0, WasExecuted: true})
	s.Emit(registry.HashedReqRemoved{ID: 1, WasExecuted: false})

	out, err := s.Outcome(0, false)
	require.NoError(t, err)
	require.Equal(t, OutcomeExecuted, out)

	out, err = s.Outcome(1, false)
	require.NoError(t, err)
	require.Equal(t, OutcomeCancelled, out)
}

func TestQueuesDoNotCollide(t *testing.T) {
	s := openTestStore(t)

	s.Emit(registry.HashedReqAdded{ID: 0, Req: sampleRequest()})
	s.Emit(registry.HashedReqUnveriAdded{ID: 0, Hash: common.HexToHash("0xabc0")})
	s.Emit(registry.HashedReqUnveriRemoved{ID: 0, WasExecuted: true})

	out, err := s.Outcome(0, false)
	require.NoError(t, err)
	require.Equal(t, OutcomePending, out)

	out, err = s.Outcome(0, true)
	require.NoError(t, err)
	require.Equal(t, OutcomeExecuted, out)
}

func TestUnknownIDIsPending(t *testing.T) {
	s := openTestStore(t)
	out, err := s.Outcome(42, false)
	require.NoError(t, err)
	require.Equal(t, OutcomePending, out)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for i := uint64(0); i < 3; i++ {
		s.Emit(registry.HashedReqUnveriAdded{ID: i, Hash: common.HexToHash("0x01")})
	}

	rows, err := s.History(10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, uint64(2), rows[0].ID)
	require.Equal(t, "unverified", rows[0].Queue)
}
