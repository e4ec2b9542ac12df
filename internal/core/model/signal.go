package model

// SignalType identifies the host-browser event carried by a BrowserSignal.
type SignalType string

const (
	SignalTabActivated SignalType = "tab_activated"
	SignalTabUpdated   SignalType = "tab_updated"
	SignalWindowFocus  SignalType = "window_focus"
	SignalWindowBlur   SignalType = "window_blur"
	SignalIdleChanged  SignalType = "idle_changed"
)

// IdleState mirrors the host browser's idle detection states.
type IdleState string

const (
	IdleActive IdleState = "active"
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

// BrowserSignal is one low-level browser event consumed by the session
// tracker. Replay files carry one signal per line as JSON.
type BrowserSignal struct {
	Type        SignalType `json:"type"`
	Timestamp   string     `json:"timestamp,omitempty"` // RFC3339, replay only
	URL         string     `json:"url,omitempty"`
	Title       string     `json:"title,omitempty"`
	ChannelName string     `json:"channelName,omitempty"`
	TabID       int        `json:"tabId,omitempty"`
	IdleState   IdleState  `json:"idleState,omitempty"`
}
