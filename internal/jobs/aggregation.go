// Package jobs contains the scheduled batch processes of the pipeline:
// daily aggregation, nudge generation and the weekly leaderboard ranking.
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

const (
	topDomainCount = 10
	// deepWorkThreshold is the minimum uninterrupted productive streak
	// that counts as one deep-work block.
	deepWorkThreshold = 25 * 60 // seconds
)

// AggregationJob rolls one day of activity intervals into a DailyStats row
// per user and hands each fresh row to the nudge engine.
type AggregationJob struct {
	store  store.Store
	nudges *NudgeEngine
	now    func() time.Time
}

// NewAggregationJob creates the job. The nudge engine may be nil, in which
// case stats are written without nudge evaluation.
func NewAggregationJob(st store.Store, nudges *NudgeEngine) *AggregationJob {
	return &AggregationJob{store: st, nudges: nudges, now: time.Now}
}

// Run aggregates the previous UTC calendar day for every known user. A
// failure for one user is logged and does not abort the others.
func (j *AggregationJob) Run(ctx context.Context) error {
	return j.RunForDate(ctx, util.PreviousDate(j.now()))
}

// RunForDate aggregates a specific YYYY-MM-DD date for every known user.
// The job is idempotent: reruns overwrite the same rows.
func (j *AggregationJob) RunForDate(ctx context.Context, date string) error {
	users, err := j.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	util.LogInfof("aggregating %s for %d users", date, len(users))

	written := 0
	for _, userID := range users {
		if err := j.aggregateUser(ctx, userID, date); err != nil {
			util.LogErrorf("aggregate %s for user %s: %v", date, userID, err)
			continue
		}
		written++
	}

	util.LogInfof("aggregation for %s finished: %d/%d users processed", date, written, len(users))
	return nil
}

// aggregateUser computes and writes one user's DailyStats row. Users with
// no intervals for the date are skipped entirely: absence means "no data",
// not a zero score.
func (j *AggregationJob) aggregateUser(ctx context.Context, userID, date string) error {
	from, to, err := util.DayWindow(date)
	if err != nil {
		return fmt.Errorf("bad date %q: %w", date, err)
	}

	intervals, err := j.store.IntervalsBetween(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("load intervals: %w", err)
	}
	if len(intervals) == 0 {
		util.LogDebugf("no intervals for user %s on %s, skipping", userID, date)
		return nil
	}

	stats := ComputeDailyStats(date, intervals)
	stats.UpdatedAt = j.now().UTC().Format(time.RFC3339)

	if err := j.store.UpsertDailyStats(ctx, userID, stats); err != nil {
		return fmt.Errorf("write daily stats: %w", err)
	}

	if j.nudges != nil {
		if err := j.nudges.Evaluate(ctx, userID, stats); err != nil {
			// Nudges are advisory; their failure never rolls back stats.
			util.LogWarnf("nudge evaluation for %s/%s: %v", userID, date, err)
		}
	}
	return nil
}

// ComputeDailyStats aggregates one day of intervals into a DailyStats row.
// The caller guarantees intervals is non-empty.
func ComputeDailyStats(date string, intervals []model.ActivityInterval) model.DailyStats {
	sorted := make([]model.ActivityInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, k int) bool {
		return sorted[i].StartTime < sorted[k].StartTime
	})

	stats := model.DailyStats{Date: date}
	domainDurations := make(map[string]int)
	domainCategories := make(map[string]model.Category)
	hourHistogram := make(map[int]int)

	for _, interval := range sorted {
		dur := interval.DurationSeconds
		stats.TotalDuration += dur

		switch interval.Category {
		case model.CategoryProductive:
			stats.ProductiveTime += dur
		case model.CategoryDistraction:
			stats.DistractionTime += dur
		default:
			stats.NeutralTime += dur
		}

		domainDurations[interval.Domain] += dur
		domainCategories[interval.Domain] = interval.Category

		if start, err := interval.Start(); err == nil {
			hourHistogram[start.UTC().Hour()] += dur
		}
	}

	stats.TopDomains = topDomains(domainDurations, domainCategories, topDomainCount)
	stats.PeakHour = peakHour(hourHistogram)
	stats.ContextSwitches = contextSwitches(sorted)
	stats.FocusScore = focusScore(stats.ProductiveTime, stats.DistractionTime, stats.TotalDuration)
	stats.FocusLevel = model.ToFocusLevel(stats.FocusScore)
	stats.DeepWorkBlocks = deepWorkBlocks(sorted)

	return stats
}

func topDomains(durations map[string]int, categories map[string]model.Category, limit int) []model.DomainStat {
	all := make([]model.DomainStat, 0, len(durations))
	for domain, duration := range durations {
		all = append(all, model.DomainStat{
			Domain:   domain,
			Duration: duration,
			Category: categories[domain],
		})
	}
	sort.Slice(all, func(i, k int) bool {
		if all[i].Duration != all[k].Duration {
			return all[i].Duration > all[k].Duration
		}
		return all[i].Domain < all[k].Domain
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func peakHour(histogram map[int]int) int {
	peak, peakDuration := 0, -1
	for hour := 0; hour < 24; hour++ {
		if histogram[hour] > peakDuration {
			peak, peakDuration = hour, histogram[hour]
		}
	}
	return peak
}

// contextSwitches counts adjacent interval pairs, in start order, whose
// domains differ.
func contextSwitches(sorted []model.ActivityInterval) int {
	switches := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Domain != sorted[i-1].Domain {
			switches++
		}
	}
	return switches
}

// focusScore scores a day 0-100. Productive time scales linearly up to 80
// points; distraction time subtracts from a 20-point baseline, so an
// all-distraction day lands strictly below an all-neutral one.
func focusScore(productive, distraction, total int) int {
	if total == 0 {
		return 0
	}
	score := (float64(productive)/float64(total))*80 +
		(20 - (float64(distraction)/float64(total))*40)
	return int(math.Round(math.Min(100, math.Max(0, score))))
}

// deepWorkBlocks counts productive streaks: each full threshold worth of
// accumulated productive time in the running streak is one block, so a
// continuous 50-minute run counts as two blocks.
func deepWorkBlocks(sorted []model.ActivityInterval) int {
	blocks := 0
	streak := 0
	for _, interval := range sorted {
		if interval.Category != model.CategoryProductive {
			continue
		}
		streak += interval.DurationSeconds
		for streak >= deepWorkThreshold {
			blocks++
			streak -= deepWorkThreshold
		}
	}
	return blocks
}
