package helpers

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ERC20 fragment: just the balance read.
const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var (
	erc20Once   sync.Once
	erc20Parsed abi.ABI
	erc20Err    error
)

func parsedERC20() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20Parsed, erc20Err = abi.JSON(strings.NewReader(erc20ABI))
	})
	return erc20Parsed, erc20Err
}

// ERC20BalanceOfData encodes a balanceOf(owner) call.
func ERC20BalanceOfData(owner common.Address) ([]byte, error) {
	parsed, err := parsedERC20()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 ABI: %w", err)
	}
	data, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	return data, nil
}

// ParseERC20Balance decodes a balanceOf return value.
func ParseERC20Balance(ret []byte) (*big.Int, error) {
	parsed, err := parsedERC20()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 ABI: %w", err)
	}
	vals, err := parsed.Unpack("balanceOf", ret)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type %T", vals[0])
	}
	return bal, nil
}
