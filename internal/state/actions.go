package state

import "github.com/miniview-io/miniview/internal/layout"

// Action is the closed set of mutations the store accepts. The sealed
// interface keeps dispatch exhaustive: the reducer switches over every
// variant and nothing outside this package can add one.
type Action interface {
	isAction()
}

// SetLayoutListener stores the current layout subscription handle. A nil
// Listener clears it. The reducer releases any previous handle before
// storing the new value.
type SetLayoutListener struct {
	Listener layout.Handle
}

// PipModeChanged records whether the local window is in picture-in-picture
// mode.
type PipModeChanged struct {
	Enabled bool
}

// ConferenceJoined marks that a conference session was established. It
// carries no state change of its own; hooks use it to re-apply the stored
// PiP flag to the new session.
type ConferenceJoined struct {
	ConferenceID string
}

// SetAudioOnly toggles audio-only conference mode.
type SetAudioOnly struct {
	Enabled bool
}

// PinParticipant pins the given participant on the stage. An empty ID
// clears the pin.
type PinParticipant struct {
	ParticipantID string
}

// SetMaxSenders caps how many video senders are received. A nil Limit
// restores the unset/default behavior.
type SetMaxSenders struct {
	Limit *int
}

// SetReceivedQuality selects the preferred received-video quality tier.
type SetReceivedQuality struct {
	Quality Quality
}

func (SetLayoutListener) isAction()  {}
func (PipModeChanged) isAction()     {}
func (ConferenceJoined) isAction()   {}
func (SetAudioOnly) isAction()       {}
func (PinParticipant) isAction()     {}
func (SetMaxSenders) isAction()      {}
func (SetReceivedQuality) isAction() {}
