// overdue-sweep marks unpaid payments past their due date as Overdue once and exits.
// Meant for a scheduled job when the server runs with OVERDUE_SWEEP_INTERVAL_MINUTES=0.
//
// Usage:
//
//	go run ./cmd/overdue-sweep [-batch 200]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/workflow"
)

func main() {
	batch := flag.Int("batch", models.DefaultSweepBatchSize, "payments per batch")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	defer func() {
		if rdb := config.GetRedisDB(); rdb != nil {
			_ = rdb.Close()
		}
	}()

	sweeper := workflow.NewOverdueSweeper(config.GetLogger())
	sweeper.BatchSize = *batch
	changed, err := sweeper.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overdue sweep failed after %d payments: %v\n", changed, err)
		os.Exit(1)
	}
	fmt.Printf("marked %d payments overdue\n", changed)
}
