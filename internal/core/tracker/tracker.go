// Package tracker converts low-level browser signals into discrete,
// immutable activity intervals. One Tracker instance serves one client; the
// host environment serializes signal callbacks, so the state machine itself
// needs no locking, but Apply never blocks: committed intervals are handed
// to the sink and the sink is expected to queue, not deliver inline.
package tracker

import (
	"math"
	"strings"
	"time"

	"github.com/flowpulse/flowpulse/internal/core/classifier"
	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/util"
)

// State is the tracker's explicit attention state.
type State int

const (
	// StateIdle means no segment is open: the user is absent, the screen
	// is locked, or nothing has been tracked yet.
	StateIdle State = iota
	// StateActive means a URL segment is open and the window is focused.
	StateActive
	// StateSuspended means a URL segment is open but the window has lost
	// focus; time keeps accruing to the segment until idle or a switch.
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	default:
		return "idle"
	}
}

// Sink receives committed intervals. Implementations must not block.
type Sink interface {
	Enqueue(interval model.ActivityInterval)
}

// segment is the in-flight span of attention, finalized on commit.
type segment struct {
	url         string
	title       string
	channelName string
	tabID       int
	start       time.Time
}

// Tracker is the per-client session state machine.
type Tracker struct {
	state   State
	current *segment
	idleTag bool // next committed interval is tagged idle

	sink           Sink
	blockedDomains func() []string
	channelMemory  *classifier.ChannelMemory
	now            func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the tracker's time source, for tests and replay.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithBlockedDomains supplies the user's block list; it is consulted at
// commit time so settings changes apply to in-flight segments.
func WithBlockedDomains(fn func() []string) Option {
	return func(t *Tracker) {
		t.blockedDomains = fn
	}
}

// WithChannelMemory records video channel categories across segments.
func WithChannelMemory(memory *classifier.ChannelMemory) Option {
	return func(t *Tracker) {
		t.channelMemory = memory
	}
}

// New creates a Tracker that emits committed intervals into sink.
func New(sink Sink, opts ...Option) *Tracker {
	t := &Tracker{
		state:          StateIdle,
		sink:           sink,
		blockedDomains: func() []string { return nil },
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the tracker's current attention state.
func (t *Tracker) State() State {
	return t.state
}

// Apply feeds one browser signal through the state machine.
func (t *Tracker) Apply(signal model.BrowserSignal) {
	now := t.signalTime(signal)

	switch signal.Type {
	case model.SignalTabActivated:
		t.commit(now)
		t.open(signal, now)

	case model.SignalTabUpdated:
		if signal.URL != "" {
			// Navigation: close the old segment, open on the new URL.
			t.commit(now)
			t.open(signal, now)
			return
		}
		// Title-only update mutates the open segment without committing.
		if t.current != nil {
			if signal.Title != "" {
				t.current.title = signal.Title
			}
			if signal.ChannelName != "" {
				t.current.channelName = signal.ChannelName
			}
		}

	case model.SignalWindowBlur:
		if t.state == StateActive {
			t.state = StateSuspended
		}

	case model.SignalWindowFocus:
		if t.state == StateSuspended {
			t.state = StateActive
		}
		// Reset the reference point so unfocused time is not counted
		// as attention on the open segment.
		if t.current != nil {
			t.current.start = now
		}
		t.idleTag = false

	case model.SignalIdleChanged:
		switch signal.IdleState {
		case model.IdleIdle, model.IdleLocked:
			t.commit(now)
			t.state = StateIdle
			t.idleTag = true
		case model.IdleActive:
			t.idleTag = false
			if t.current != nil {
				t.current.start = now
				t.state = StateActive
			}
		}

	default:
		util.LogDebugf("ignoring unknown browser signal type %q", signal.Type)
	}
}

// open starts a new segment, unless the URL is untrackable.
func (t *Tracker) open(signal model.BrowserSignal, now time.Time) {
	if !trackable(signal.URL) {
		t.current = nil
		t.state = StateIdle
		return
	}
	t.current = &segment{
		url:         signal.URL,
		title:       signal.Title,
		channelName: signal.ChannelName,
		tabID:       signal.TabID,
		start:       now,
	}
	if t.state == StateIdle {
		t.state = StateActive
	}
}

// commit finalizes the in-flight segment into an immutable interval and
// hands it to the sink. A commit with no open segment is a no-op.
func (t *Tracker) commit(now time.Time) {
	if t.current == nil {
		return
	}
	seg := t.current
	t.current = nil

	duration := int(math.Round(now.Sub(seg.start).Seconds()))
	if duration < 1 {
		duration = 1 // floor to avoid zero-length noise records
	}

	result := classifier.Classify(seg.url, seg.title, seg.channelName, t.blockedDomains())
	if t.channelMemory != nil && seg.channelName != "" {
		if seg.title == "" && result.LearningProbability != nil {
			// Titleless video segment: fall back to the channel's last
			// known verdict instead of the no-evidence default.
			if category, ok := t.channelMemory.Lookup(seg.channelName); ok {
				result.Category = category
			}
		}
		t.channelMemory.Remember(seg.channelName, result.Category)
	}

	start := seg.start.UTC().Format(time.RFC3339)
	end := seg.start.Add(time.Duration(duration) * time.Second).UTC().Format(time.RFC3339)

	interval := model.ActivityInterval{
		ID:              util.IntervalFingerprint(seg.url, start, end),
		URL:             seg.url,
		Domain:          classifier.ExtractDomain(seg.url),
		Title:           seg.title,
		Category:        result.Category,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: duration,
		Idle:            t.idleTag,
	}
	t.idleTag = false

	t.sink.Enqueue(interval)
}

// Close commits any in-flight segment, for clean shutdown.
func (t *Tracker) Close() {
	t.commit(t.now())
	t.state = StateIdle
}

func (t *Tracker) signalTime(signal model.BrowserSignal) time.Time {
	if signal.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, signal.Timestamp); err == nil {
			return ts
		}
		util.LogWarnf("unparseable signal timestamp %q, using wall clock", signal.Timestamp)
	}
	return t.now()
}

func trackable(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	for _, prefix := range []string{"chrome://", "chrome-extension://", "about:", "edge://"} {
		if strings.HasPrefix(rawURL, prefix) {
			return false
		}
	}
	return true
}
