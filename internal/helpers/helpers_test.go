package helpers

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestEthToWei(t *testing.T) {
	wei, err := EthToWei("1.5")
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000", wei.String())

	// Unit suffix is tolerated.
	wei, err = EthToWei("0.01 ETH")
	require.NoError(t, err)
	require.Equal(t, "10000000000000000", wei.String())

	_, err = EthToWei("")
	require.Error(t, err)
	_, err = EthToWei("-1")
	require.Error(t, err)
	_, err = EthToWei("abc")
	require.Error(t, err)
}

func TestParseTokenAmount(t *testing.T) {
	v, err := ParseTokenAmount("1.5", 6)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1500000), v)

	v, err = ParseTokenAmount("2", 18)
	require.NoError(t, err)
	require.Equal(t, WeiFromUnits(2, 18), v)

	// More fractional digits than the token carries.
	_, err = ParseTokenAmount("1.1234567", 6)
	require.Error(t, err)

	_, err = ParseTokenAmount("0", 6)
	require.Error(t, err)
}

func TestFormatTokenAmountRoundTrip(t *testing.T) {
	v, err := ParseTokenAmount("123.456", 6)
	require.NoError(t, err)
	require.Equal(t, "123.456", FormatTokenAmount(v, 6))
	require.Equal(t, "0", FormatTokenAmount(nil, 6))
}

func TestValidateAddress(t *testing.T) {
	addr, err := ValidateAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), addr)

	_, err = ValidateAddress("0x0000000000000000000000000000000000000000")
	require.Error(t, err)
	_, err = ValidateAddress("not-an-address")
	require.Error(t, err)
}

func TestValidateAmountBounds(t *testing.T) {
	require.NoError(t, ValidateAmount(big.NewInt(1)))
	require.Error(t, ValidateAmount(nil))
	require.Error(t, ValidateAmount(big.NewInt(0)))

	tooMuch := new(big.Int).Mul(big.NewInt(1000001), Wei1ETH)
	require.Error(t, ValidateAmount(tooMuch))
}

func TestValidatePrivateKey(t *testing.T) {
	const keyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

	key, addr, err := ValidatePrivateKey(keyHex)
	require.NoError(t, err)
	require.NotNil(t, key)
	require.NotEqual(t, common.Address{}, addr)

	// 0x prefix accepted, same key.
	_, addr2, err := ValidatePrivateKey("0x" + keyHex)
	require.NoError(t, err)
	require.Equal(t, addr, addr2)

	_, _, err = ValidatePrivateKey("")
	require.Error(t, err)
	_, _, err = ValidatePrivateKey("abcd")
	require.Error(t, err)
}

func TestERC20BalanceOfRoundTrip(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	data, err := ERC20BalanceOfData(owner)
	require.NoError(t, err)
	require.Len(t, data, 36)
	// balanceOf(address) selector.
	require.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, data[:4])
	require.Equal(t, common.LeftPadBytes(owner.Bytes(), 32), data[4:])

	word := make([]byte, 32)
	big.NewInt(123456).FillBytes(word)
	bal, err := ParseERC20Balance(word)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(123456), bal)

	_, err = ParseERC20Balance([]byte{0x01})
	require.Error(t, err)
}

func TestValidateGasPrice(t *testing.T) {
	require.NoError(t, ValidateGasPrice(GWei1, GWei100))
	require.NoError(t, ValidateGasPrice(GWei1, nil))
	require.Error(t, ValidateGasPrice(nil, nil))
	require.Error(t, ValidateGasPrice(big.NewInt(0), nil))
	require.Error(t, ValidateGasPrice(new(big.Int).Add(GWei100, big.NewInt(1)), GWei100))
}
