package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/core/classifier"
	"github.com/flowpulse/flowpulse/internal/core/settings"
	"github.com/flowpulse/flowpulse/internal/core/tracker"
	"github.com/flowpulse/flowpulse/internal/data/queue"
	"github.com/flowpulse/flowpulse/internal/util"
)

var (
	signalsFile   string
	followSignals bool
	settingsFile  string
	queueBackend  string
	ingestURL     string
	ingestToken   string
	maxBatchSize  int
	flushInterval time.Duration
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the session tracker agent against a browser signal log",
	RunE:  runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&signalsFile, "signals", "",
		"Path to a line-delimited JSON browser signal log (required)")
	trackCmd.Flags().BoolVar(&followSignals, "follow", false,
		"Keep tailing the signal log for appended signals")
	trackCmd.Flags().StringVar(&settingsFile, "settings", "~/.flowpulse/settings.json",
		"Path to the local user settings file")
	trackCmd.Flags().StringVar(&queueBackend, "queue-backend", "file",
		"Durable queue backend (file, sqlite)")
	trackCmd.Flags().StringVar(&ingestURL, "ingest-url", "http://localhost:8080/api/v1/events",
		"Ingest endpoint URL")
	trackCmd.Flags().StringVar(&ingestToken, "token", "",
		"Bearer credential for the ingest endpoint (defaults to $FLOWPULSE_TOKEN)")
	trackCmd.Flags().IntVar(&maxBatchSize, "max-batch", queue.DefaultMaxBatchSize,
		"Queue size that triggers an immediate flush")
	trackCmd.Flags().DurationVar(&flushInterval, "flush-interval", queue.DefaultFlushInterval,
		"Timer-driven flush cadence")
	_ = trackCmd.MarkFlagRequired("signals")

	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := settings.NewManager(expandPath(settingsFile))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !mgr.Current().TrackingEnabled {
		util.LogInfo("tracking disabled in settings, exiting")
		return nil
	}
	go func() {
		if err := mgr.Watch(ctx); err != nil && ctx.Err() == nil {
			util.LogWarnf("settings watch stopped: %v", err)
		}
	}()

	store, err := openQueueStore()
	if err != nil {
		return err
	}

	token := ingestToken
	if token == "" {
		token = os.Getenv("FLOWPULSE_TOKEN")
	}
	sender := queue.NewHTTPSender(ingestURL, token)

	q, err := queue.New(store, sender, queue.Config{
		MaxBatchSize:  maxBatchSize,
		FlushInterval: flushInterval,
	})
	if err != nil {
		return fmt.Errorf("initialize queue: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := q.Close(closeCtx); err != nil {
			util.LogErrorf("close queue: %v", err)
		}
	}()

	t := tracker.New(q,
		tracker.WithBlockedDomains(mgr.BlockedDomains),
		tracker.WithChannelMemory(classifier.NewChannelMemory()),
	)
	reader := tracker.NewReplayReader(t)

	path := expandPath(signalsFile)
	if followSignals {
		util.LogInfof("tracking signals from %s (follow mode)", path)
		if err := reader.Follow(ctx, path); err != nil && ctx.Err() == nil {
			return fmt.Errorf("follow signal log: %w", err)
		}
		return nil
	}

	applied, err := reader.ReplayFile(path)
	if err != nil {
		return fmt.Errorf("replay signal log: %w", err)
	}
	t.Close()
	util.LogInfof("replayed %d signals, %d intervals queued", applied, q.Len())

	// One final flush so a pure replay run delivers before exit.
	q.Flush(ctx)
	return nil
}

func openQueueStore() (queue.Store, error) {
	dataDir := expandPath(defaultDataDir)
	switch queueBackend {
	case "sqlite":
		return queue.NewSQLiteStore(filepath.Join(dataDir, "queue.db"))
	case "file":
		return queue.NewFileStore(filepath.Join(dataDir, "queue.json"))
	default:
		return nil, fmt.Errorf("unknown queue backend %q (expected file or sqlite)", queueBackend)
	}
}
