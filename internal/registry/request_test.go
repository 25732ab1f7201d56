package registry

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	return Request{
		Requester:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Target:       common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Referer:      common.HexToAddress("0x3333333333333333333333333333333333333333"),
		CallData:     []byte{0xaa, 0xbb, 0xcc, 0xdd, 0x01, 0x02},
		InitEthSent:  big.NewInt(5000),
		EthForCall:   big.NewInt(3000),
		VerifySender: true,
		PayWithAUTO:  false,
	}
}

func TestReqBytesRoundTrip(t *testing.T) {
	r := testRequest()

	enc, err := ReqBytes(r)
	require.NoError(t, err)
	require.NotEmpty(t, enc)

	back, err := ReqFromBytes(enc)
	require.NoError(t, err)
	require.True(t, r.Equal(back))

	// Deterministic: encoding twice yields identical bytes.
	enc2, err := ReqBytes(back)
	require.NoError(t, err)
	require.Equal(t, enc, enc2)
}

func TestReqFromBytesRejectsTrailingGarbage(t *testing.T) {
	enc, err := ReqBytes(testRequest())
	require.NoError(t, err)

	padded := append(append([]byte{}, enc...), make([]byte, 32)...)
	_, err = ReqFromBytes(padded)
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestReqFromBytesRejectsTruncation(t *testing.T) {
	enc, err := ReqBytes(testRequest())
	require.NoError(t, err)

	_, err = ReqFromBytes(enc[:len(enc)-7])
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestHashReqStable(t *testing.T) {
	r := testRequest()

	h1, err := HashReq(r)
	require.NoError(t, err)
	h2, err := HashReq(r)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	// Any field change moves the hash.
	r2 := testRequest()
	r2.CallData = []byte{0xaa, 0xbb, 0xcc, 0xdd, 0x01, 0x03}
	h3, err := HashReq(r2)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)

	r3 := testRequest()
	r3.PayWithAUTO = true
	h4, err := HashReq(r3)
	require.NoError(t, err)
	require.NotEqual(t, h1, h4)
}

func TestHashReqUnveriBindsPrefixAndSuffix(t *testing.T) {
	r := testRequest()
	prefix := []byte{0x01, 0x02}
	suffix := []byte{0x03}

	h, err := HashReqUnveri(r, prefix, suffix)
	require.NoError(t, err)

	plain, err := HashReq(r)
	require.NoError(t, err)
	require.NotEqual(t, plain, h)

	hOther, err := HashReqUnveri(r, []byte{0x01, 0x03}, suffix)
	require.NoError(t, err)
	require.NotEqual(t, h, hOther)

	hOther, err = HashReqUnveri(r, prefix, []byte{0x04})
	require.NoError(t, err)
	require.NotEqual(t, h, hOther)

	// Empty context degenerates to the plain keccak of the encoding.
	hEmpty, err := HashReqUnveri(r, nil, nil)
	require.NoError(t, err)
	require.Equal(t, plain, hEmpty)
}

func TestValidateBounds(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), 120)

	r := testRequest()
	r.InitEthSent = over
	r.EthForCall = over
	require.ErrorIs(t, r.Validate(), ErrMalformedRequest)

	r = testRequest()
	r.InitEthSent = nil
	require.ErrorIs(t, r.Validate(), ErrMalformedRequest)

	r = testRequest()
	r.InitEthSent = big.NewInt(100)
	r.EthForCall = big.NewInt(101)
	require.ErrorIs(t, r.Validate(), ErrMalformedRequest)

	// Exactly at the uint120 boundary is fine.
	r = testRequest()
	r.InitEthSent = new(big.Int).Sub(over, big.NewInt(1))
	r.EthForCall = big.NewInt(0)
	require.NoError(t, r.Validate())
}

func TestExecutorPayoutVectors(t *testing.T) {
	gasPrice := big.NewInt(1)

	// ETH path: (50000 + 100000) * 1 + 1000 * 30 / 10000.
	got := ExecutorPayout(false, 50000, gasPrice, big.NewInt(1000))
	require.Equal(t, big.NewInt(150003), got)

	// AUTO path: (50000 + 140000) * 1 + 1000 * 20 / 10000.
	got = ExecutorPayout(true, 50000, gasPrice, big.NewInt(1000))
	require.Equal(t, big.NewInt(190002), got)

	// Fee floors toward zero.
	got = ExecutorPayout(false, 0, big.NewInt(0), big.NewInt(333))
	require.Zero(t, big.NewInt(0).Cmp(got))

	// Gas price scales the gas term only.
	got = ExecutorPayout(false, 1000, big.NewInt(5), big.NewInt(0))
	require.Equal(t, big.NewInt(505000), got)
}
