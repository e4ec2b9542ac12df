// Package store defines the document-oriented remote store the pipeline
// reads from and writes to, with a MongoDB implementation for deployment
// and an in-memory implementation for tests and local runs.
package store

import (
	"context"
	"time"

	"github.com/flowpulse/flowpulse/internal/core/model"
)

// Store is the shared persistence boundary of the pipeline. Implementations
// must provide per-interval idempotent upsert (to absorb the queue's
// at-least-once redeliveries) and per-day idempotent overwrite of stats.
type Store interface {
	// ListUsers returns the ids of all known users.
	ListUsers(ctx context.Context) ([]string, error)

	// Settings returns the user's preferences, or defaults if none stored.
	Settings(ctx context.Context, userID string) (model.UserSettings, error)

	// UpsertIntervals writes intervals keyed by their deterministic id and
	// returns how many were accepted. Re-writing an existing id is a no-op
	// on the stored data.
	UpsertIntervals(ctx context.Context, userID string, intervals []model.ActivityInterval) (int, error)

	// IntervalsBetween returns the user's intervals whose start time falls
	// in [from, to], sorted by start time.
	IntervalsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.ActivityInterval, error)

	// UpsertDailyStats overwrites the user's stats row for stats.Date.
	UpsertDailyStats(ctx context.Context, userID string, stats model.DailyStats) error

	// DailyStats returns the user's stats row for a date, if present.
	DailyStats(ctx context.Context, userID, date string) (model.DailyStats, bool, error)

	// InsertNudges appends nudge records for the user.
	InsertNudges(ctx context.Context, userID string, nudges []model.Nudge) error

	// ReplaceLeaderboard atomically replaces the full entry set for a week.
	ReplaceLeaderboard(ctx context.Context, weekID string, entries []model.LeaderboardEntry) error

	// LeaderboardEntries returns a week's entries ordered by rank.
	LeaderboardEntries(ctx context.Context, weekID string) ([]model.LeaderboardEntry, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
