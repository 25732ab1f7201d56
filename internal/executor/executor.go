package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/meltingclock/autoreq_v1/internal/bundle"
	"github.com/meltingclock/autoreq_v1/internal/helpers"
	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Config contains execution parameters for the fulfilment loop.
type Config struct {
	PollInterval    time.Duration
	GasBoostPercent int      // percentage boost over the suggested gas price
	MaxGasPrice     *big.Int // nil for no cap
	MinProfit       *big.Int // minimum wei margin before an execution is attempted
	UseBundles      bool     // submit via private relay instead of the mempool
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    3 * time.Second,
		GasBoostPercent: 10,
		MinProfit:       big.NewInt(0),
	}
}

// candidate is a verified-queue request the executor knows in full, learned
// from the registry's added events.
type candidate struct {
	id  uint64
	req registry.Request
}

// Executor fulfils verified-queue requests. It learns request bodies from
// the event stream (the chain stores only hashes), simulates each one, and
// executes those whose reimbursement clears the gas cost.
type Executor struct {
	client     *ethclient.Client
	reg        *registry.Client
	regAddr    common.Address
	privateKey *ecdsa.PrivateKey
	walletAddr common.Address
	regABI     abi.ABI
	chainID    *big.Int
	bundler    *bundle.Bundler
	cfg        Config

	pendingMu sync.Mutex
	pending   map[uint64]candidate
}

func New(
	client *ethclient.Client,
	reg *registry.Client,
	regAddr common.Address,
	privateKey *ecdsa.PrivateKey,
	walletAddr common.Address,
	cfg Config,
) (*Executor, error) {
	regABI, err := registry.ParseABI()
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}

	// Private relay only exists on mainnet
	var bundler *bundle.Bundler
	if cfg.UseBundles && chainID.Int64() == 1 {
		bundler, err = bundle.NewBundler(client, privateKey, chainID)
		if err != nil {
			telemetry.Warnf("[executor] bundler init failed: %v", err)
		}
	}

	return &Executor{
		client:     client,
		reg:        reg,
		regAddr:    regAddr,
		privateKey: privateKey,
		walletAddr: walletAddr,
		regABI:     regABI,
		chainID:    chainID,
		bundler:    bundler,
		cfg:        cfg,
		pending:    make(map[uint64]candidate),
	}, nil
}

// Emit implements registry.EventSink: the executor tracks live verified
// requests from the watcher's feed.
func (e *Executor) Emit(ev registry.Event) {
	switch evt := ev.(type) {
	case registry.HashedReqAdded:
		e.pendingMu.Lock()
		e.pending[evt.ID] = candidate{id: evt.ID, req: evt.Req}
		e.pendingMu.Unlock()
	case registry.HashedReqRemoved:
		e.pendingMu.Lock()
		delete(e.pending, evt.ID)
		e.pendingMu.Unlock()
	}
}

// Run polls until the context is cancelled.
func (e *Executor) Run(ctx context.Context) {
	interval := e.cfg.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Executor) sweep(ctx context.Context) {
	e.pendingMu.Lock()
	candidates := make([]candidate, 0, len(e.pending))
	for _, c := range e.pending {
		candidates = append(candidates, c)
	}
	e.pendingMu.Unlock()

	for _, c := range candidates {
		if ctx.Err() != nil {
			return
		}
		if err := e.tryExecute(ctx, c); err != nil {
			telemetry.Debugf("[executor] id=%d not executable: %v", c.id, err)
		}
	}
}

// tryExecute simulates one request and submits it when profitable. A
// request whose inner call reverts fails the gas estimate and is skipped;
// it stays pending in case state changes make it executable later.
func (e *Executor) tryExecute(ctx context.Context, c candidate) error {
	id := new(big.Int).SetUint64(c.id)
	data, err := e.regABI.Pack("executeHashedReq", id, registry.Tuple(c.req))
	if err != nil {
		return fmt.Errorf("pack executeHashedReq: %w", err)
	}

	gasEstimate, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.walletAddr,
		To:   &e.regAddr,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	gasPrice, err := e.gasPrice(ctx)
	if err != nil {
		return err
	}

	if !c.req.PayWithAUTO {
		payout := registry.ExecutorPayout(false, gasEstimate, gasPrice, c.req.EthForCall)
		cost := new(big.Int).Mul(new(big.Int).SetUint64(gasEstimate), gasPrice)
		margin := new(big.Int).Sub(payout, cost)
		minProfit := e.cfg.MinProfit
		if minProfit == nil {
			minProfit = big.NewInt(0)
		}
		if margin.Cmp(minProfit) < 0 {
			return fmt.Errorf("margin %s below threshold %s", margin, minProfit)
		}
		telemetry.Infof("[executor] id=%d margin=%s ETH", c.id, helpers.FormatEth(margin))
	}

	tx, err := e.buildTx(ctx, data, gasEstimate, gasPrice)
	if err != nil {
		return err
	}

	txHash, err := e.submit(ctx, tx)
	if err != nil {
		return err
	}

	// Drop it locally; the removal event confirms, and a re-add never
	// reuses the id.
	e.pendingMu.Lock()
	delete(e.pending, c.id)
	e.pendingMu.Unlock()

	telemetry.Infof("[executor] executed id=%d tx=%s", c.id, txHash.Hex())
	return nil
}

func (e *Executor) buildTx(ctx context.Context, data []byte, gasEstimate uint64, gasPrice *big.Int) (*types.Transaction, error) {
	nonce, err := e.client.PendingNonceAt(ctx, e.walletAddr)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasLimit := gasEstimate + gasEstimate/5 // headroom over the estimate

	tx := types.NewTransaction(nonce, e.regAddr, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signedTx, nil
}

func (e *Executor) gasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	if e.cfg.GasBoostPercent > 0 {
		boost := big.NewInt(100 + int64(e.cfg.GasBoostPercent))
		gasPrice = new(big.Int).Mul(gasPrice, boost)
		gasPrice = new(big.Int).Div(gasPrice, big.NewInt(100))
	}
	if err := helpers.ValidateGasPrice(gasPrice, e.cfg.MaxGasPrice); err != nil {
		return nil, err
	}
	return gasPrice, nil
}

// submit sends via the relay when available, falling back to the mempool.
func (e *Executor) submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if e.bundler != nil {
		b := bundle.NewExecutionBundle(tx)
		if sim, err := e.bundler.SimulateBundle(ctx, b); err == nil && sim.Success {
			currentBlock, _ := e.client.BlockNumber(ctx)
			for i := uint64(1); i <= 3; i++ {
				b.BlockNumber = new(big.Int).SetUint64(currentBlock + i)
				if _, err := e.bundler.SendBundle(ctx, b); err != nil {
					telemetry.Errorf("[executor] bundle send failed: %v", err)
				}
			}
			return tx.Hash(), nil
		}
		telemetry.Warnf("[executor] bundle simulation failed; falling back to mempool")
	}

	if err := e.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}
