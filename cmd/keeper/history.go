package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meltingclock/autoreq_v1/internal/store"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded request outcomes from the local event database",
		RunE:  runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 25, "max rows to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.Open(appCfg.EVENT_DB_PATH)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.History(historyLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no recorded requests; run `keeper watch` to start recording")
		return nil
	}
	for _, r := range rows {
		fmt.Printf("[%d/%s] %-9s %s  added %s\n",
			r.ID, r.Queue, r.Outcome, r.Hash, r.AddedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
