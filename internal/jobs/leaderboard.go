package jobs

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/data/store"
	"github.com/flowpulse/flowpulse/internal/util"
)

// Nickname word lists. The pairing is derived from a deterministic hash of
// the user id, so the same user always maps to the same pseudonym without
// any stored reverse lookup.
var nicknameAdjectives = []string{
	"Swift", "Silent", "Bright", "Calm", "Bold", "Keen", "Quick", "Wise",
	"Brave", "Witty", "Vivid", "Eager", "Noble", "Lively", "Steady",
}

var nicknameAnimals = []string{
	"Falcon", "Otter", "Fox", "Owl", "Wolf", "Hawk", "Bear", "Lynx",
	"Puma", "Raven", "Eagle", "Heron", "Stag", "Tiger", "Crane",
}

// Nickname derives the user's anonymous leaderboard name. The hash is the
// classic 31-multiplier string hash in 32-bit arithmetic; it only needs to
// be consistent, not cryptographically strong.
func Nickname(userID string) string {
	var hash int32
	for _, c := range userID {
		hash = (hash << 5) - hash + int32(c)
	}
	abs := func(v int32) int32 {
		if v < 0 {
			return -v
		}
		return v
	}
	adjective := nicknameAdjectives[abs(hash)%int32(len(nicknameAdjectives))]
	animal := nicknameAnimals[abs(hash>>8)%int32(len(nicknameAnimals))]
	return adjective + " " + animal
}

// LeaderboardJob ranks users by average focus score over the last 7 days
// and atomically rewrites the week's anonymized entry set.
type LeaderboardJob struct {
	store store.Store
	now   func() time.Time
}

// NewLeaderboardJob creates the job.
func NewLeaderboardJob(st store.Store) *LeaderboardJob {
	return &LeaderboardJob{store: st, now: time.Now}
}

// Run computes and publishes the current week's leaderboard. Users who
// opted out or have no data in the window are excluded; per-user read
// failures are logged and skipped.
func (j *LeaderboardJob) Run(ctx context.Context) error {
	now := j.now()
	weekID := util.WeekID(now)
	dates := util.LastNDates(now, 7)

	users, err := j.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	type userScore struct {
		userID         string
		avgFocusScore  int
		deepWorkBlocks int
	}

	scores := make([]userScore, 0, len(users))
	for _, userID := range users {
		settings, err := j.store.Settings(ctx, userID)
		if err != nil {
			util.LogErrorf("load settings for %s: %v", userID, err)
			continue
		}
		if !settings.LeaderboardOptIn {
			continue
		}

		totalScore := 0
		totalDeep := 0
		daysWithData := 0
		for _, date := range dates {
			stats, ok, err := j.store.DailyStats(ctx, userID, date)
			if err != nil {
				util.LogErrorf("load stats %s/%s: %v", userID, date, err)
				continue
			}
			if !ok {
				continue
			}
			totalScore += stats.FocusScore
			totalDeep += stats.DeepWorkBlocks
			daysWithData++
		}
		// Missing days shrink the denominator; zero days excludes the user.
		if daysWithData == 0 {
			continue
		}

		scores = append(scores, userScore{
			userID:         userID,
			avgFocusScore:  int(math.Round(float64(totalScore) / float64(daysWithData))),
			deepWorkBlocks: totalDeep,
		})
	}

	sort.SliceStable(scores, func(i, k int) bool {
		return scores[i].avgFocusScore > scores[k].avgFocusScore
	})

	entries := make([]model.LeaderboardEntry, 0, len(scores))
	for idx, score := range scores {
		rank := idx + 1
		percentile := 100
		if len(scores) > 1 {
			percentile = int(math.Round(float64(len(scores)-rank) / float64(len(scores)-1) * 100))
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:         score.userID,
			Rank:           rank,
			Nickname:       Nickname(score.userID),
			AvgFocusScore:  score.avgFocusScore,
			DeepWorkBlocks: score.deepWorkBlocks,
			Percentile:     percentile,
		})
	}

	if err := j.store.ReplaceLeaderboard(ctx, weekID, entries); err != nil {
		return fmt.Errorf("publish leaderboard %s: %w", weekID, err)
	}

	util.LogInfof("ranked %d users for week %s", len(entries), weekID)
	return nil
}
