package model

import (
	"time"
)

// Category classifies one browsing interval.
type Category string

const (
	CategoryProductive  Category = "productive"
	CategoryNeutral     Category = "neutral"
	CategoryDistraction Category = "distraction"
)

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryProductive, CategoryNeutral, CategoryDistraction:
		return true
	}
	return false
}

// ActivityInterval is one contiguous span of attention on one destination.
// Immutable once created; only ever read downstream.
type ActivityInterval struct {
	ID              string   `json:"id" bson:"intervalId"`
	URL             string   `json:"url" bson:"url"`
	Domain          string   `json:"domain" bson:"domain"`
	Title           string   `json:"title" bson:"title"`
	Category        Category `json:"category" bson:"category"`
	StartTime       string   `json:"startTime" bson:"startTime"` // RFC3339
	EndTime         string   `json:"endTime" bson:"endTime"`     // RFC3339
	DurationSeconds int      `json:"durationSeconds" bson:"durationSeconds"`
	Idle            bool     `json:"idle,omitempty" bson:"idle,omitempty"`
}

// Start parses the interval's start timestamp.
func (a *ActivityInterval) Start() (time.Time, error) {
	return time.Parse(time.RFC3339, a.StartTime)
}

// End parses the interval's end timestamp.
func (a *ActivityInterval) End() (time.Time, error) {
	return time.Parse(time.RFC3339, a.EndTime)
}

// DomainStat is one entry of a DailyStats top-domain list.
type DomainStat struct {
	Domain   string   `json:"domain" bson:"domain"`
	Duration int      `json:"duration" bson:"duration"` // seconds
	Category Category `json:"category" bson:"category"`
}

// DailyStats is the aggregated summary for one (user, calendar date).
// Written whole by the aggregation job; superseded on rerun, never appended.
type DailyStats struct {
	Date            string       `json:"date" bson:"date"` // YYYY-MM-DD
	TotalDuration   int          `json:"totalDuration" bson:"totalDuration"`
	ProductiveTime  int          `json:"productiveTime" bson:"productiveTime"`
	NeutralTime     int          `json:"neutralTime" bson:"neutralTime"`
	DistractionTime int          `json:"distractionTime" bson:"distractionTime"`
	TopDomains      []DomainStat `json:"topDomains" bson:"topDomains"`
	PeakHour        int          `json:"peakHour" bson:"peakHour"` // 0-23
	FocusScore      int          `json:"focusScore" bson:"focusScore"`
	FocusLevel      FocusLevel   `json:"focusLevel" bson:"focusLevel"`
	ContextSwitches int          `json:"contextSwitches" bson:"contextSwitches"`
	DeepWorkBlocks  int          `json:"deepWorkBlocks" bson:"deepWorkBlocks"`
	UpdatedAt       string       `json:"updatedAt" bson:"updatedAt"`
}

// NudgeType identifies which rule produced a nudge.
type NudgeType string

const (
	NudgeBreak        NudgeType = "break"
	NudgeRefocus      NudgeType = "refocus"
	NudgeLowMovement  NudgeType = "low_movement"
	NudgeSleepWarning NudgeType = "sleep_warning"
)

// NudgePriority orders nudges for display.
type NudgePriority string

const (
	PriorityLow    NudgePriority = "low"
	PriorityMedium NudgePriority = "medium"
	PriorityHigh   NudgePriority = "high"
)

// Nudge is an advisory message derived from one DailyStats row.
// Only the Dismissed flag is mutated after creation, by the dashboard.
type Nudge struct {
	ID        string        `json:"id" bson:"nudgeId"`
	Type      NudgeType     `json:"type" bson:"type"`
	Message   string        `json:"message" bson:"message"`
	Priority  NudgePriority `json:"priority" bson:"priority"`
	Date      string        `json:"date" bson:"date"` // YYYY-MM-DD
	Dismissed bool          `json:"dismissed" bson:"dismissed"`
	CreatedAt string        `json:"createdAt" bson:"createdAt"`
}

// LeaderboardEntry is one row per (week, user), rewritten atomically
// as a complete set each ranker run.
type LeaderboardEntry struct {
	UserID         string `json:"-" bson:"userId"`
	Rank           int    `json:"rank" bson:"rank"`
	Nickname       string `json:"anonymousNickname" bson:"anonymousNickname"`
	AvgFocusScore  int    `json:"avgFocusScore" bson:"avgFocusScore"`
	DeepWorkBlocks int    `json:"deepWorkBlocks" bson:"deepWorkBlocks"`
	Percentile     int    `json:"percentile" bson:"percentile"`
}

// UserSettings controls tracking and leaderboard participation.
type UserSettings struct {
	TrackingEnabled  bool     `json:"trackingEnabled" bson:"trackingEnabled"`
	BlockedDomains   []string `json:"blockedDomains" bson:"blockedDomains"`
	Timezone         string   `json:"timezone" bson:"timezone"`
	LeaderboardOptIn bool     `json:"leaderboardOptIn" bson:"leaderboardOptIn"`
}

// DefaultSettings returns the settings applied to users without a stored
// preferences document. Leaderboard participation defaults to opted in.
func DefaultSettings() UserSettings {
	return UserSettings{
		TrackingEnabled:  true,
		BlockedDomains:   nil,
		Timezone:         "UTC",
		LeaderboardOptIn: true,
	}
}

// FocusLevel buckets a 0-100 focus score for display consumers.
type FocusLevel string

const (
	FocusDeep       FocusLevel = "deep"
	FocusFlow       FocusLevel = "flow"
	FocusShallow    FocusLevel = "shallow"
	FocusDistracted FocusLevel = "distracted"
)

// ToFocusLevel maps a focus score onto its display bucket.
func ToFocusLevel(score int) FocusLevel {
	switch {
	case score > 80:
		return FocusDeep
	case score > 65:
		return FocusFlow
	case score > 45:
		return FocusShallow
	default:
		return FocusDistracted
	}
}
