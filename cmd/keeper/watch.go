package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/executor"
	"github.com/meltingclock/autoreq_v1/internal/helpers"
	"github.com/meltingclock/autoreq_v1/internal/notify"
	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/store"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

var (
	watchExecute  bool
	watchBundles  bool
	watchGasBoost int

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow registry events, record them and optionally execute requests",
		Long: `Subscribes to the registry's lifecycle events. Every addition and
removal is written to the local event database; executed and cancelled
outcomes stay distinguishable there after the queue forgets them.

With --execute the keeper also simulates each live verified request and
submits executions whose fee reimbursement clears the gas cost.`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchExecute, "execute", false, "execute profitable requests")
	watchCmd.Flags().BoolVar(&watchBundles, "bundles", false, "submit executions via private relay (mainnet only)")
	watchCmd.Flags().IntVar(&watchGasBoost, "gas-boost", 10, "gas price boost percent for executions")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	net, err := appCfg.Network(flagNetwork)
	if err != nil {
		return err
	}
	regAddr, err := helpers.ValidateAddress(net.REGISTRY_ADDRESS)
	if err != nil {
		return fmt.Errorf("REGISTRY_ADDRESS: %w", err)
	}

	db, err := store.Open(appCfg.EVENT_DB_PATH)
	if err != nil {
		return err
	}
	defer db.Close()

	sinks := []registry.EventSink{db, notify.Sink(notifier())}

	var exec *executor.Executor
	if watchExecute {
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		execCfg := executor.DefaultConfig()
		execCfg.GasBoostPercent = watchGasBoost
		execCfg.UseBundles = watchBundles
		exec, err = executor.New(a.eth, a.reg, regAddr, a.key, a.from, execCfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, exec)
	}

	sink := registry.SinkFunc(func(ev registry.Event) {
		for _, s := range sinks {
			s.Emit(ev)
		}
	})

	w, err := registry.NewWatcher(net.RPC_URL, regAddr, sink)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	telemetry.Infof("[keeper] watching registry %s", regAddr.Hex())

	if exec != nil {
		go exec.Run(ctx)
		telemetry.Infof("[keeper] executor running")
	}

	<-ctx.Done()
	w.Wait()
	telemetry.Infof("[keeper] watch stopped")
	return nil
}
