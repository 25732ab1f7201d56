package registry

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Watcher follows a deployed registry's lifecycle events and replays them
// into an EventSink. Reconnects with backoff on subscription failure.
type Watcher struct {
	WSSURL      string
	Registry    common.Address
	Sink        EventSink
	DialTimeout time.Duration

	abi abi.ABI
	wg  sync.WaitGroup
}

func NewWatcher(wssURL string, registryAddr common.Address, sink EventSink) (*Watcher, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		WSSURL:      wssURL,
		Registry:    registryAddr,
		Sink:        sink,
		DialTimeout: 10 * time.Second,
		abi:         parsed,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if w.WSSURL == "" {
		return errors.New("WSSURL is empty")
	}
	if w.Sink == nil {
		return errors.New("event sink is nil")
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runLoop(ctx)
	}()
	return nil
}

func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) runLoop(ctx context.Context) {
	var attempt int
	for {
		if ctx.Err() != nil {
			return
		}
		err := w.subscribeOnce(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		// backoff
		delayMs := 500 * (1 << uint(minInt(attempt, 6)))
		if delayMs > 8000 {
			delayMs = 8000
		}
		delay := time.Duration(delayMs) * time.Millisecond
		telemetry.Warnf("[watcher] subscribe error: %v; reconnecting in %s", err, delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		attempt++
	}
}

func (w *Watcher) subscribeOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, w.DialTimeout)
	defer cancel()

	rpcClient, err := rpc.DialContext(dialCtx, w.WSSURL)
	if err != nil {
		return err
	}
	defer rpcClient.Close()

	ethCl := ethclient.NewClient(rpcClient)
	defer ethCl.Close()

	logs := make(chan types.Log, 256)
	sub, err := ethCl.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{w.Registry},
	}, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	telemetry.Infof("[watcher] subscribed to registry logs at %s", w.Registry.Hex())

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err != nil {
				return err
			}
			return nil
		case lg := <-logs:
			if lg.Removed {
				continue
			}
			ev, err := w.decode(lg)
			if err != nil {
				telemetry.Debugf("[watcher] skip log %s: %v", lg.TxHash.Hex(), err)
				continue
			}
			if ev != nil {
				w.Sink.Emit(ev)
			}
		}
	}
}

// decode maps a raw contract log to a queue event. Logs from other
// contracts or unknown topics return a nil event.
func (w *Watcher) decode(lg types.Log) (Event, error) {
	if len(lg.Topics) == 0 {
		return nil, nil
	}
	evDef, err := w.abi.EventByID(lg.Topics[0])
	if err != nil {
		return nil, nil
	}
	if len(lg.Topics) < 2 {
		return nil, errors.New("missing id topic")
	}
	id := new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64()

	switch evDef.Name {
	case "HashedReqAdded":
		var out struct {
			Requester    common.Address
			Target       common.Address
			Referer      common.Address
			CallData     []byte
			InitEthSent  *big.Int
			EthForCall   *big.Int
			VerifySender bool
			PayWithAUTO  bool
		}
		if err := w.abi.UnpackIntoInterface(&out, evDef.Name, lg.Data); err != nil {
			return nil, err
		}
		return HashedReqAdded{ID: id, Req: Request(out)}, nil
	case "HashedReqRemoved":
		var out struct{ WasExecuted bool }
		if err := w.abi.UnpackIntoInterface(&out, evDef.Name, lg.Data); err != nil {
			return nil, err
		}
		return HashedReqRemoved{ID: id, WasExecuted: out.WasExecuted}, nil
	case "HashedReqUnveriAdded":
		return HashedReqUnveriAdded{ID: id}, nil
	case "HashedReqUnveriRemoved":
		var out struct{ WasExecuted bool }
		if err := w.abi.UnpackIntoInterface(&out, evDef.Name, lg.Data); err != nil {
			return nil, err
		}
		return HashedReqUnveriRemoved{ID: id, WasExecuted: out.WasExecuted}, nil
	}
	return nil, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
