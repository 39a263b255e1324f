package state

import (
	"sync/atomic"
	"testing"

	"github.com/miniview-io/miniview/internal/layout"
)

type countingHandle struct {
	removed atomic.Int32
}

func (h *countingHandle) Remove() { h.removed.Add(1) }

func TestStoreInitialState(t *testing.T) {
	s := NewStore()
	st := s.State()
	if st.PiP.Enabled {
		t.Fatalf("expected pip disabled initially")
	}
	if st.PiP.Listener != nil {
		t.Fatalf("expected no listener initially")
	}
	if st.Conference.ReceivedQuality != QualityHigh {
		t.Fatalf("expected high quality initially, got %q", st.Conference.ReceivedQuality)
	}
	if st.Conference.MaxSenders != nil {
		t.Fatalf("expected max senders unset initially")
	}
}

func TestStoreListenerReplaceReleasesPrevious(t *testing.T) {
	s := NewStore()
	first := &countingHandle{}
	second := &countingHandle{}

	s.Dispatch(SetLayoutListener{Listener: first})
	if got := s.State().PiP.Listener; got != layout.Handle(first) {
		t.Fatalf("expected first handle stored")
	}
	if n := first.removed.Load(); n != 0 {
		t.Fatalf("first handle released prematurely: %d", n)
	}

	s.Dispatch(SetLayoutListener{Listener: second})
	if n := first.removed.Load(); n != 1 {
		t.Fatalf("expected first handle released once, got %d", n)
	}
	if n := second.removed.Load(); n != 0 {
		t.Fatalf("second handle must stay alive, got %d removals", n)
	}

	s.Dispatch(SetLayoutListener{Listener: nil})
	if n := second.removed.Load(); n != 1 {
		t.Fatalf("expected second handle released once on clear, got %d", n)
	}
	if s.State().PiP.Listener != nil {
		t.Fatalf("expected listener cleared")
	}
}

func TestStoreListenerSameHandleNotReleased(t *testing.T) {
	s := NewStore()
	h := &countingHandle{}
	s.Dispatch(SetLayoutListener{Listener: h})
	s.Dispatch(SetLayoutListener{Listener: h})
	if n := h.removed.Load(); n != 0 {
		t.Fatalf("re-storing the same handle must not release it, got %d", n)
	}
}

func TestStoreConferenceActions(t *testing.T) {
	s := NewStore()

	s.Dispatch(SetAudioOnly{Enabled: true})
	if !s.State().Conference.AudioOnly {
		t.Fatalf("expected audio-only enabled")
	}

	s.Dispatch(PinParticipant{ParticipantID: "p-1"})
	if got := s.State().Conference.PinnedParticipant; got != "p-1" {
		t.Fatalf("expected pin p-1, got %q", got)
	}
	s.Dispatch(PinParticipant{})
	if got := s.State().Conference.PinnedParticipant; got != "" {
		t.Fatalf("expected pin cleared, got %q", got)
	}

	s.Dispatch(SetMaxSenders{Limit: Senders(1)})
	if got := s.State().Conference.MaxSenders; got == nil || *got != 1 {
		t.Fatalf("expected max senders 1, got %v", got)
	}
	s.Dispatch(SetMaxSenders{})
	if s.State().Conference.MaxSenders != nil {
		t.Fatalf("expected max senders unset")
	}

	s.Dispatch(SetReceivedQuality{Quality: QualityLow})
	if got := s.State().Conference.ReceivedQuality; got != QualityLow {
		t.Fatalf("expected low quality, got %q", got)
	}
}

func TestStoreHooksRunInOrder(t *testing.T) {
	s := NewStore()
	var order []string
	s.Use(func(a Action, _ AppState) {
		order = append(order, "first")
	})
	s.Use(func(a Action, _ AppState) {
		order = append(order, "second")
	})
	s.Dispatch(PipModeChanged{Enabled: true})
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected hook order: %v", order)
	}
}

func TestStoreHookSeesPostReduceState(t *testing.T) {
	s := NewStore()
	var seen bool
	s.Use(func(a Action, st AppState) {
		if _, ok := a.(PipModeChanged); ok {
			seen = st.PiP.Enabled
		}
	})
	s.Dispatch(PipModeChanged{Enabled: true})
	if !seen {
		t.Fatalf("hook must observe state after reduction")
	}
}

func TestStoreHookRecursiveDispatch(t *testing.T) {
	s := NewStore()
	s.Use(func(a Action, _ AppState) {
		if m, ok := a.(PipModeChanged); ok && m.Enabled {
			s.Dispatch(SetReceivedQuality{Quality: QualityLow})
		}
	})
	s.Dispatch(PipModeChanged{Enabled: true})
	st := s.State()
	if !st.PiP.Enabled {
		t.Fatalf("expected pip enabled")
	}
	if st.Conference.ReceivedQuality != QualityLow {
		t.Fatalf("expected recursive dispatch applied, got %q", st.Conference.ReceivedQuality)
	}
}

func TestStoreConferenceJoinedLeavesStateUntouched(t *testing.T) {
	s := NewStore()
	s.Dispatch(PipModeChanged{Enabled: true})
	before := s.State()
	s.Dispatch(ConferenceJoined{ConferenceID: "c-1"})
	after := s.State()
	if before.PiP.Enabled != after.PiP.Enabled || before.Conference != after.Conference {
		t.Fatalf("joined action must not mutate state")
	}
}
