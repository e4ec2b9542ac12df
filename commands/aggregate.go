package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/jobs"
	"github.com/flowpulse/flowpulse/internal/util"
)

var (
	aggregateOnce bool
	aggregateDate string
	aggregateHour int
	aggregateMin  int
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Roll activity intervals into daily focus statistics",
	Long: `aggregate computes each user's DailyStats row from the previous UTC
calendar day's activity intervals and evaluates nudges against the fresh
rows. Without --once it keeps running on the daily schedule.`,
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().BoolVar(&aggregateOnce, "once", false,
		"Run a single aggregation pass and exit")
	aggregateCmd.Flags().StringVar(&aggregateDate, "date", "",
		"Aggregate a specific date (YYYY-MM-DD) instead of yesterday; implies --once")
	aggregateCmd.Flags().IntVar(&aggregateHour, "at-hour", 3,
		"UTC hour of the daily run")
	aggregateCmd.Flags().IntVar(&aggregateMin, "at-minute", 0,
		"UTC minute of the daily run")

	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			util.LogErrorf("close store: %v", err)
		}
	}()

	job := jobs.NewAggregationJob(st, jobs.NewNudgeEngine(st))

	if aggregateDate != "" {
		return job.RunForDate(ctx, aggregateDate)
	}
	if aggregateOnce {
		return job.Run(ctx)
	}

	scheduler := jobs.NewScheduler(jobs.Schedule{
		Name:   "daily aggregation",
		Hour:   aggregateHour,
		Minute: aggregateMin,
		Job:    job,
	})
	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
