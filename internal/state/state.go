package state

import "github.com/miniview-io/miniview/internal/layout"

// Quality is a received-video quality tier.
type Quality string

const (
	QualityLow  Quality = "low"
	QualityHigh Quality = "high"
)

// PiPState is the picture-in-picture slice of the application state.
// Listener is non-nil only while the host application is mounted and a
// layout subscription is active; at most one subscription exists at a time.
type PiPState struct {
	Enabled  bool
	Listener layout.Handle
}

// ConferenceState is the conference slice this controller adjusts. It is
// owned by the conferencing side; the controller only emits desired values.
type ConferenceState struct {
	AudioOnly         bool
	MaxSenders        *int // nil means unset/default
	ReceivedQuality   Quality
	PinnedParticipant string // "" means nothing pinned
}

// AppState is the full state tree held by the store.
type AppState struct {
	PiP        PiPState
	Conference ConferenceState
}

// initialState returns the state a fresh store starts from: not in PiP,
// no subscription, full received quality, no sender limit.
func initialState() AppState {
	return AppState{
		Conference: ConferenceState{ReceivedQuality: QualityHigh},
	}
}

// Senders returns a pointer to limit, for building SetMaxSenders actions.
func Senders(limit int) *int { return &limit }
