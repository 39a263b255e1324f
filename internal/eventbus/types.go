package eventbus

import "time"

// Topic identifies a logical channel on the bus.
type Topic string

const (
	TopicLayoutChanged       Topic = "layout.changed"
	TopicConferenceJoined    Topic = "conference.joined"
	TopicConferenceAudioOnly Topic = "conference.audio_only"
	TopicConferencePin       Topic = "conference.pin"
	TopicPipModeChanged      Topic = "pip.mode_changed"
	TopicPipRequested        Topic = "pip.requested"
	TopicHostsLifecycle      Topic = "hosts.lifecycle"
)

// Source describes which component produced an event.
type Source string

const (
	SourceGateway    Source = "gateway"
	SourceController Source = "pip_controller"
	SourceDaemon     Source = "daemon"
	SourceHostApp    Source = "host_app"
	SourceUnknown    Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic         Topic
	Timestamp     time.Time
	Source        Source
	CorrelationID string
	Payload       any
}

// LayoutChangedEvent carries one geometry notification from a host
// application. Window dimensions drive PiP classification; screen
// dimensions are informational only.
type LayoutChangedEvent struct {
	HostID       string
	WindowWidth  float64
	WindowHeight float64
	ScreenWidth  float64
	ScreenHeight float64
}

// ConferenceJoinedEvent signals that the host application joined a
// conference and the currently-known PiP mode's effects should be
// (re)applied.
type ConferenceJoinedEvent struct {
	HostID       string
	ConferenceID string
}

// AudioOnlyChangedEvent toggles the conference audio-only flag.
type AudioOnlyChangedEvent struct {
	HostID  string
	Enabled bool
}

// ParticipantPinnedEvent pins a participant; empty ParticipantID clears
// the selection.
type ParticipantPinnedEvent struct {
	HostID        string
	ParticipantID string
}

// PipModeChangedEvent announces a genuine flip of the stored PiP flag.
type PipModeChangedEvent struct {
	Enabled      bool
	WindowWidth  float64
	WindowHeight float64
	Trigger      string // "layout" or "joined"
}

// PipRequestedEvent asks the daemon to forward an explicit enter-PiP
// request to the host capability.
type PipRequestedEvent struct {
	HostID string
}

// HostState summarises host connection lifecycle changes.
type HostState string

const (
	HostStateConnected    HostState = "connected"
	HostStateDisconnected HostState = "disconnected"
)

// HostLifecycleEvent notifies consumers about host connections.
type HostLifecycleEvent struct {
	HostID string
	State  HostState
}
