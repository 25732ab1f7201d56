package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/config"
	"github.com/meltingclock/autoreq_v1/internal/helpers"
	"github.com/meltingclock/autoreq_v1/internal/notify"
	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

var (
	flagConfig  string
	flagNetwork string

	rootCmd = &cobra.Command{
		Use:   "keeper",
		Short: "Automation registry keeper",
		Long:  `Submit, cancel, execute and monitor deferred call requests on an automation registry.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				fmt.Printf("config load: %v\n", err)
				os.Exit(1)
			}
			if cfg.DEBUG {
				telemetry.EnableDebug(true)
			}
			appCfg = cfg
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	appCfg *config.Config
)

// app bundles the connected clients a command needs. Commands that only
// touch local state (cache, history) never dial out.
type app struct {
	cfg *config.Config
	net config.NetworkConfig

	eth  *ethclient.Client
	reg  *registry.Client
	key  *ecdsa.PrivateKey
	from common.Address
}

func connect(ctx context.Context) (*app, error) {
	net, err := appCfg.Network(flagNetwork)
	if err != nil {
		return nil, err
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}

	key, from, err := helpers.ValidatePrivateKey(appCfg.PRIVATE_KEY)
	if err != nil {
		return nil, fmt.Errorf("PRIVATE_KEY: %w", err)
	}
	regAddr, err := helpers.ValidateAddress(net.REGISTRY_ADDRESS)
	if err != nil {
		return nil, fmt.Errorf("REGISTRY_ADDRESS: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, net.RPC_URL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", net.RPC_URL, err)
	}
	reg, err := registry.NewClient(eth, key, from, regAddr)
	if err != nil {
		eth.Close()
		return nil, err
	}
	return &app{cfg: appCfg, net: net, eth: eth, reg: reg, key: key, from: from}, nil
}

func (a *app) Close() {
	if a.eth != nil {
		a.eth.Close()
	}
}

// notifier prefers telegram when configured, else logs.
func notifier() notify.Notifier {
	if appCfg.TELEGRAM_TOKEN != "" && appCfg.TELEGRAM_CHAT_ID != 0 {
		n, err := notify.NewTelegramNotifier(appCfg.TELEGRAM_TOKEN, appCfg.TELEGRAM_CHAT_ID)
		if err == nil {
			return n
		}
		telemetry.Warnf("[keeper] telegram notifier unavailable: %v", err)
	}
	return notify.LogNotifier{}
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Root().CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&flagNetwork, "network", "", "network name from config (default: DEFAULT_NETWORK)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(ordersCmd)
}
