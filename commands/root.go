package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/util"
)

var (
	debug    bool
	logLevel string
	mongoURI string
	mongoDB  string

	rootCmd = &cobra.Command{
		Use:   "flowpulse",
		Short: "Activity telemetry and focus scoring pipeline",
		Long: `flowpulse runs the FlowPulse activity pipeline: it tracks browser
activity into classified intervals, delivers them durably to the remote
store, and rolls them up into daily focus scores, nudges and a weekly
anonymized leaderboard.

Examples:
  flowpulse track --signals events.jsonl           # Replay a recorded signal log
  flowpulse track --signals events.jsonl --follow  # Tail the signal log live
  flowpulse serve --addr :8080                     # Run the ingest endpoint
  flowpulse aggregate --once                       # Aggregate yesterday now
  flowpulse aggregate                              # Run the daily schedule
  flowpulse leaderboard --once                     # Publish this week's ranking`,
		SilenceUsage: true,
	}
)

const (
	defaultLogFile  = "~/.flowpulse/logs/app.log"
	defaultDataDir  = "~/.flowpulse"
	defaultMongoURI = "mongodb://localhost:27017"
	defaultDatabase = "flowpulse"
)

func init() {
	cobra.OnInitialize(initRuntime)

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error); defaults to info, or debug with --debug")
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", "",
		"MongoDB connection URI (defaults to $MONGO_URI)")
	rootCmd.PersistentFlags().StringVar(&mongoDB, "mongo-db", defaultDatabase,
		"MongoDB database name")
}

func initRuntime() {
	if err := godotenv.Load(); err == nil {
		util.LogDebug("loaded environment from .env")
	}

	level := logLevel
	if level == "" {
		level = "info"
		if debug {
			level = "debug"
		}
	}

	logFile := expandPath(defaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		logFile = ""
	}
	util.InitLogger(level, logFile, debug)
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// envOr returns the environment variable's value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
