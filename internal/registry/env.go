package registry

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Env abstracts the deterministic execution environment the queue runs
// against: native and AUTO balances, the forwarded call itself, and the
// requester-state check behind verifySender. The queue never touches chain
// state except through this interface.
type Env interface {
	Balance(addr common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
	TransferAUTO(from, to common.Address, amount *big.Int) error
	// Call forwards value and calldata from the registry to target and
	// reports how much gas the call consumed.
	Call(from, target common.Address, value *big.Int, data []byte) (gasUsed uint64, err error)
	VerifyRequester(requester common.Address) bool
	GasPrice() *big.Int
}

// CallHandler simulates a target contract for SimEnv. gasUsed is whatever
// the handler reports; a non-nil error models a revert (value is returned
// to the caller).
type CallHandler func(value *big.Int, data []byte) (gasUsed uint64, err error)

// SimEnv is an in-memory Env for tests and local simulation: a flat balance
// ledger per currency, a handler table standing in for deployed targets, and
// a fixed gas price.
type SimEnv struct {
	mu       sync.Mutex
	eth      map[common.Address]*big.Int
	auto     map[common.Address]*big.Int
	handlers map[common.Address]CallHandler
	verify   map[common.Address]bool
	gasPrice *big.Int
}

func NewSimEnv(gasPrice *big.Int) *SimEnv {
	return &SimEnv{
		eth:      make(map[common.Address]*big.Int),
		auto:     make(map[common.Address]*big.Int),
		handlers: make(map[common.Address]CallHandler),
		verify:   make(map[common.Address]bool),
		gasPrice: new(big.Int).Set(gasPrice),
	}
}

func (e *SimEnv) Fund(addr common.Address, amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eth[addr] = add(e.eth[addr], amount)
}

func (e *SimEnv) FundAUTO(addr common.Address, amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auto[addr] = add(e.auto[addr], amount)
}

// SetHandler installs a simulated target. Calls to addresses without a
// handler succeed as plain transfers with zero extra gas.
func (e *SimEnv) SetHandler(addr common.Address, h CallHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[addr] = h
}

// SetVerifyFailure marks a requester whose verifySender check must fail,
// modelling state that has diverged since submission.
func (e *SimEnv) SetVerifyFailure(addr common.Address, failed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.verify[addr] = failed
}

func (e *SimEnv) Balance(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(get(e.eth, addr))
}

func (e *SimEnv) BalanceAUTO(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(get(e.auto, addr))
}

func (e *SimEnv) Transfer(from, to common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return move(e.eth, from, to, amount)
}

func (e *SimEnv) TransferAUTO(from, to common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return move(e.auto, from, to, amount)
}

func (e *SimEnv) Call(from, target common.Address, value *big.Int, data []byte) (uint64, error) {
	e.mu.Lock()
	h := e.handlers[target]
	e.mu.Unlock()

	if err := e.Transfer(from, target, value); err != nil {
		return 0, err
	}
	if h == nil {
		return 0, nil
	}
	gasUsed, err := h(value, data)
	if err != nil {
		// Revert: the forwarded value comes back.
		_ = e.Transfer(target, from, value)
		return gasUsed, err
	}
	return gasUsed, nil
}

func (e *SimEnv) VerifyRequester(requester common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.verify[requester]
}

func (e *SimEnv) GasPrice() *big.Int {
	return new(big.Int).Set(e.gasPrice)
}

func get(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if v := m[addr]; v != nil {
		return v
	}
	return big.NewInt(0)
}

func add(v, amount *big.Int) *big.Int {
	if v == nil {
		v = big.NewInt(0)
	}
	return new(big.Int).Add(v, amount)
}

func move(m map[common.Address]*big.Int, from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount")
	}
	bal := get(m, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, bal, amount)
	}
	m[from] = new(big.Int).Sub(bal, amount)
	m[to] = add(m[to], amount)
	return nil
}
