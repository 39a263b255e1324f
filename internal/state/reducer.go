package state

// reduce applies a single action to the state and returns the next state.
// It runs under the store mutex; releasing a replaced layout handle is the
// only side effect it performs.
func reduce(s AppState, a Action) AppState {
	switch act := a.(type) {
	case SetLayoutListener:
		// The previous subscription is released exactly once, before the
		// new value (including nil) is stored. Re-storing the same handle
		// keeps it alive.
		if prev := s.PiP.Listener; prev != nil && prev != act.Listener {
			prev.Remove()
		}
		s.PiP.Listener = act.Listener
	case PipModeChanged:
		s.PiP.Enabled = act.Enabled
	case ConferenceJoined:
		// State is untouched; hooks observe the action and re-apply the
		// stored PiP flag to the new session.
	case SetAudioOnly:
		s.Conference.AudioOnly = act.Enabled
	case PinParticipant:
		s.Conference.PinnedParticipant = act.ParticipantID
	case SetMaxSenders:
		s.Conference.MaxSenders = act.Limit
	case SetReceivedQuality:
		s.Conference.ReceivedQuality = act.Quality
	}
	return s
}
