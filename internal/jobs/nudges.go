package jobs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/data/store"
	"github.com/flowpulse/flowpulse/internal/util"
)

// NudgeEngine derives advisory messages from freshly written DailyStats
// rows. Every rule is evaluated independently; zero, one or many nudges may
// fire for the same row. Re-evaluation after an aggregation rerun creates
// fresh nudge records without deduplicating against earlier ones: the
// dashboard always surfaces the latest advice for the day.
type NudgeEngine struct {
	store store.Store
	now   func() time.Time
}

// NewNudgeEngine creates the engine writing to the given store.
func NewNudgeEngine(st store.Store) *NudgeEngine {
	return &NudgeEngine{store: st, now: time.Now}
}

// Evaluate runs all rules against one stats row and records any nudges
// that fire.
func (e *NudgeEngine) Evaluate(ctx context.Context, userID string, stats model.DailyStats) error {
	nudges := EvaluateRules(stats)
	if len(nudges) == 0 {
		return nil
	}

	createdAt := e.now().UTC().Format(time.RFC3339)
	for i := range nudges {
		nudges[i].ID = uuid.NewString()
		nudges[i].CreatedAt = createdAt
	}

	if err := e.store.InsertNudges(ctx, userID, nudges); err != nil {
		return fmt.Errorf("insert nudges: %w", err)
	}
	util.LogInfof("created %d nudges for user %s on %s", len(nudges), userID, stats.Date)
	return nil
}

// EvaluateRules applies the rule list to one stats row and returns the
// nudges that fire, without ids or timestamps.
func EvaluateRules(stats model.DailyStats) []model.Nudge {
	var nudges []model.Nudge

	add := func(nudgeType model.NudgeType, message string, priority model.NudgePriority) {
		nudges = append(nudges, model.Nudge{
			Type:     nudgeType,
			Message:  message,
			Priority: priority,
			Date:     stats.Date,
		})
	}

	// Long active day without enough deep-work recovery.
	if stats.TotalDuration > 6*3600 && stats.DeepWorkBlocks < 2 {
		add(model.NudgeBreak,
			"You've been active for over 6 hours today. Take a short walk — your brain will thank you!",
			model.PriorityMedium)
	}

	// Distraction ratio; the higher threshold takes precedence.
	if stats.TotalDuration > 1800 {
		ratio := float64(stats.DistractionTime) / float64(stats.TotalDuration)
		if ratio > 0.4 {
			add(model.NudgeRefocus,
				fmt.Sprintf("%d%% of your screen time today was on distracting sites. Try blocking them for a focused sprint.",
					int(math.Round(ratio*100))),
				model.PriorityHigh)
		} else if ratio > 0.25 {
			add(model.NudgeRefocus,
				"Your distraction ratio is creeping up. A 25-minute focus block could help reset your flow.",
				model.PriorityLow)
		}
	}

	// Very long screen day.
	if stats.TotalDuration > 8*3600 {
		add(model.NudgeSleepWarning,
			"Over 8 hours of screen time today — consider winding down early tonight.",
			model.PriorityMedium)
	}

	// Positive reinforcement for strong focus days.
	if stats.FocusScore >= 80 && stats.DeepWorkBlocks >= 3 {
		add(model.NudgeLowMovement,
			"Amazing focus today! Remember to stand up and stretch — sustained sitting can slow you down tomorrow.",
			model.PriorityLow)
	}

	return nudges
}
