package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/data/store"
)

func TestEvaluateRules(t *testing.T) {
	tests := []struct {
		name  string
		stats model.DailyStats
		types []model.NudgeType
	}{
		{
			name:  "quiet day fires nothing",
			stats: model.DailyStats{Date: "2026-03-04", TotalDuration: 1200, FocusScore: 50},
			types: nil,
		},
		{
			name: "long day without deep work fires break",
			stats: model.DailyStats{
				Date:          "2026-03-04",
				TotalDuration: 7 * 3600,
				NeutralTime:   7 * 3600,
				FocusScore:    20,
			},
			types: []model.NudgeType{model.NudgeBreak},
		},
		{
			name: "long day with recovery stays quiet",
			stats: model.DailyStats{
				Date:           "2026-03-04",
				TotalDuration:  7 * 3600,
				ProductiveTime: 7 * 3600,
				DeepWorkBlocks: 2,
				FocusScore:     79,
			},
			types: nil,
		},
		{
			name: "heavy distraction fires high refocus only",
			stats: model.DailyStats{
				Date:            "2026-03-04",
				TotalDuration:   3600,
				DistractionTime: 1800,
				FocusScore:      0,
			},
			types: []model.NudgeType{model.NudgeRefocus},
		},
		{
			name: "mild distraction fires low refocus",
			stats: model.DailyStats{
				Date:            "2026-03-04",
				TotalDuration:   3600,
				DistractionTime: 1080,
				FocusScore:      8,
			},
			types: []model.NudgeType{model.NudgeRefocus},
		},
		{
			name: "marathon day fires break and sleep warning",
			stats: model.DailyStats{
				Date:          "2026-03-04",
				TotalDuration: 9 * 3600,
				NeutralTime:   9 * 3600,
				FocusScore:    20,
			},
			types: []model.NudgeType{model.NudgeBreak, model.NudgeSleepWarning},
		},
		{
			name: "strong focus day fires stretch reminder",
			stats: model.DailyStats{
				Date:           "2026-03-04",
				TotalDuration:  4 * 3600,
				ProductiveTime: 4 * 3600,
				DeepWorkBlocks: 4,
				FocusScore:     100,
			},
			types: []model.NudgeType{model.NudgeLowMovement},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nudges := EvaluateRules(tt.stats)
			got := make([]model.NudgeType, 0, len(nudges))
			for _, nudge := range nudges {
				assert.Equal(t, tt.stats.Date, nudge.Date)
				assert.NotEmpty(t, nudge.Message)
				got = append(got, nudge.Type)
			}
			if tt.types == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.types, got)
			}
		})
	}
}

func TestRefocusThresholdPrecedence(t *testing.T) {
	// At 50% distraction only the high-priority variant fires, with the
	// percentage embedded in the message.
	nudges := EvaluateRules(model.DailyStats{
		Date:            "2026-03-04",
		TotalDuration:   3600,
		DistractionTime: 1800,
	})
	require.Len(t, nudges, 1)
	assert.Equal(t, model.PriorityHigh, nudges[0].Priority)
	assert.Contains(t, nudges[0].Message, "50%")

	// Just over the lower threshold the gentle variant fires instead.
	nudges = EvaluateRules(model.DailyStats{
		Date:            "2026-03-04",
		TotalDuration:   3600,
		DistractionTime: 1000,
	})
	require.Len(t, nudges, 1)
	assert.Equal(t, model.PriorityLow, nudges[0].Priority)
}

func TestRefocusNeedsMinimumActivity(t *testing.T) {
	// Below 30 minutes of total activity the ratio is not meaningful.
	nudges := EvaluateRules(model.DailyStats{
		Date:            "2026-03-04",
		TotalDuration:   1500,
		DistractionTime: 1500,
	})
	assert.Empty(t, nudges)
}

func TestEvaluateAssignsIdentity(t *testing.T) {
	st := store.NewMemoryStore()
	engine := NewNudgeEngine(st)

	stats := model.DailyStats{
		Date:          "2026-03-04",
		TotalDuration: 9 * 3600,
		NeutralTime:   9 * 3600,
	}
	require.NoError(t, engine.Evaluate(context.Background(), "alice", stats))

	nudges := st.Nudges("alice")
	require.Len(t, nudges, 2)
	assert.NotEqual(t, nudges[0].ID, nudges[1].ID)
	for _, nudge := range nudges {
		assert.NotEmpty(t, nudge.ID)
		assert.NotEmpty(t, nudge.CreatedAt)
		assert.False(t, nudge.Dismissed)
	}
}

func TestEvaluateRerunAppendsFreshRecords(t *testing.T) {
	st := store.NewMemoryStore()
	engine := NewNudgeEngine(st)

	stats := model.DailyStats{
		Date:          "2026-03-04",
		TotalDuration: 7 * 3600,
		NeutralTime:   7 * 3600,
	}
	ctx := context.Background()
	require.NoError(t, engine.Evaluate(ctx, "alice", stats))
	require.NoError(t, engine.Evaluate(ctx, "alice", stats))

	// Reruns create new records rather than deduplicating old ones.
	assert.Len(t, st.Nudges("alice"), 2)
}
