package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowpulse/flowpulse/internal/core/model"
)

// MemoryStore is an in-memory Store for tests and local single-user runs.
type MemoryStore struct {
	mu          sync.RWMutex
	settings    map[string]model.UserSettings
	intervals   map[string]map[string]model.ActivityInterval // userID -> id -> interval
	dailyStats  map[string]map[string]model.DailyStats       // userID -> date -> stats
	nudges      map[string][]model.Nudge
	leaderboard map[string][]model.LeaderboardEntry // weekID -> entries
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:    make(map[string]model.UserSettings),
		intervals:   make(map[string]map[string]model.ActivityInterval),
		dailyStats:  make(map[string]map[string]model.DailyStats),
		nudges:      make(map[string][]model.Nudge),
		leaderboard: make(map[string][]model.LeaderboardEntry),
	}
}

// AddUser registers a user with the given settings.
func (s *MemoryStore) AddUser(userID string, settings model.UserSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[userID] = settings
	if _, ok := s.intervals[userID]; !ok {
		s.intervals[userID] = make(map[string]model.ActivityInterval)
	}
}

// ListUsers returns all registered user ids, sorted for determinism.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.settings))
	for userID := range s.settings {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

// Settings returns the user's preferences, or defaults if unregistered.
func (s *MemoryStore) Settings(ctx context.Context, userID string) (model.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if settings, ok := s.settings[userID]; ok {
		return settings, nil
	}
	return model.DefaultSettings(), nil
}

// UpsertIntervals stores intervals keyed by id; duplicates overwrite in place.
func (s *MemoryStore) UpsertIntervals(ctx context.Context, userID string, intervals []model.ActivityInterval) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.intervals[userID]
	if !ok {
		byID = make(map[string]model.ActivityInterval)
		s.intervals[userID] = byID
		if _, ok := s.settings[userID]; !ok {
			s.settings[userID] = model.DefaultSettings()
		}
	}
	for _, interval := range intervals {
		byID[interval.ID] = interval
	}
	return len(intervals), nil
}

// IntervalsBetween returns intervals whose start falls in [from, to],
// sorted by start time.
func (s *MemoryStore) IntervalsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.ActivityInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ActivityInterval
	for _, interval := range s.intervals[userID] {
		start, err := interval.Start()
		if err != nil {
			continue
		}
		if !start.Before(from) && !start.After(to) {
			result = append(result, interval)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

// UpsertDailyStats overwrites the stats row for stats.Date.
func (s *MemoryStore) UpsertDailyStats(ctx context.Context, userID string, stats model.DailyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate, ok := s.dailyStats[userID]
	if !ok {
		byDate = make(map[string]model.DailyStats)
		s.dailyStats[userID] = byDate
	}
	byDate[stats.Date] = stats
	return nil
}

// DailyStats returns the stats row for a date, if present.
func (s *MemoryStore) DailyStats(ctx context.Context, userID, date string) (model.DailyStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.dailyStats[userID][date]
	return stats, ok, nil
}

// InsertNudges appends nudges for the user.
func (s *MemoryStore) InsertNudges(ctx context.Context, userID string, nudges []model.Nudge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nudges[userID] = append(s.nudges[userID], nudges...)
	return nil
}

// Nudges returns all nudges recorded for the user.
func (s *MemoryStore) Nudges(userID string) []model.Nudge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Nudge, len(s.nudges[userID]))
	copy(out, s.nudges[userID])
	return out
}

// ReplaceLeaderboard swaps in the full entry set for a week.
func (s *MemoryStore) ReplaceLeaderboard(ctx context.Context, weekID string, entries []model.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replacement := make([]model.LeaderboardEntry, len(entries))
	copy(replacement, entries)
	s.leaderboard[weekID] = replacement
	return nil
}

// LeaderboardEntries returns a week's entries ordered by rank.
func (s *MemoryStore) LeaderboardEntries(ctx context.Context, weekID string) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]model.LeaderboardEntry, len(s.leaderboard[weekID]))
	copy(entries, s.leaderboard[weekID])
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rank < entries[j].Rank
	})
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
