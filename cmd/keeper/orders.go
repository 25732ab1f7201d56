package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/order"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List locally cached submitted orders",
	RunE:  runOrders,
}

func runOrders(cmd *cobra.Command, args []string) error {
	cache, err := order.OpenCache(appCfg.ORDER_CACHE_PATH)
	if err != nil {
		return err
	}
	orders := cache.List()
	if len(orders) == 0 {
		fmt.Println("no cached orders")
		return nil
	}
	for _, o := range orders {
		kind := "limit"
		if o.StopLoss {
			kind = "stop-loss"
		}
		fmt.Printf("[%d] %s  %s -> %s  in=%s out=%s  %s  %s\n",
			o.RequestID, kind, o.TokenIn, o.TokenOut, o.AmountIn, o.AmountOut,
			o.Digest, o.Submitted.Format("2006-01-02 15:04"))
		if o.Req != "" {
			fmt.Printf("      req %s\n", o.Req)
		}
	}
	return nil
}
