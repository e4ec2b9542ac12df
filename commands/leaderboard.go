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
	leaderboardOnce bool
	leaderboardHour int
	leaderboardMin  int
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Publish the weekly anonymized focus ranking",
	RunE:  runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().BoolVar(&leaderboardOnce, "once", false,
		"Run a single ranking pass and exit")
	leaderboardCmd.Flags().IntVar(&leaderboardHour, "at-hour", 3,
		"UTC hour of the daily run")
	leaderboardCmd.Flags().IntVar(&leaderboardMin, "at-minute", 15,
		"UTC minute of the daily run; after the aggregation job by default")

	rootCmd.AddCommand(leaderboardCmd)
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
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

	job := jobs.NewLeaderboardJob(st)

	if leaderboardOnce {
		return job.Run(ctx)
	}

	scheduler := jobs.NewScheduler(jobs.Schedule{
		Name:   "weekly leaderboard",
		Hour:   leaderboardHour,
		Minute: leaderboardMin,
		Job:    job,
	})
	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
