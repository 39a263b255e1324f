package pip

import (
	"context"
	"testing"
	"time"

	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/state"
)

func waitMode(t *testing.T, sub *eventbus.TypedSubscription[eventbus.PipModeChangedEvent]) eventbus.PipModeChangedEvent {
	t.Helper()
	select {
	case env, ok := <-sub.C():
		if !ok {
			t.Fatalf("mode subscription closed")
		}
		return env.Payload
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for mode event")
	}
	return eventbus.PipModeChangedEvent{}
}

func TestServiceLayoutFlowPublishesModeChange(t *testing.T) {
	bus := eventbus.New()
	defer bus.Shutdown()
	store := state.NewStore()
	svc := NewService(bus, store, nil)

	modeSub := eventbus.SubscribeTo(bus, eventbus.Pip.ModeChanged)
	defer modeSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Shutdown(context.Background())

	eventbus.Publish(ctx, bus, eventbus.Layout.Changed, eventbus.SourceGateway, eventbus.LayoutChangedEvent{
		HostID: "h-1", WindowWidth: 200, WindowHeight: 400, ScreenWidth: 1920, ScreenHeight: 1080,
	})

	ev := waitMode(t, modeSub)
	if !ev.Enabled || ev.Trigger != "layout" {
		t.Fatalf("expected enabled layout-triggered event, got %+v", ev)
	}
	if ev.WindowWidth != 200 || ev.WindowHeight != 400 {
		t.Fatalf("expected triggering window size, got %+v", ev)
	}

	// Same verdict again: no further mode event should arrive before the
	// next genuine flip.
	eventbus.Publish(ctx, bus, eventbus.Layout.Changed, eventbus.SourceGateway, eventbus.LayoutChangedEvent{
		HostID: "h-1", WindowWidth: 180, WindowHeight: 300,
	})
	eventbus.Publish(ctx, bus, eventbus.Layout.Changed, eventbus.SourceGateway, eventbus.LayoutChangedEvent{
		HostID: "h-1", WindowWidth: 800, WindowHeight: 600,
	})
	ev = waitMode(t, modeSub)
	if ev.Enabled || ev.Trigger != "layout" {
		t.Fatalf("expected disabled layout-triggered event, got %+v", ev)
	}
}

func TestServiceJoinedReaffirmsStoredMode(t *testing.T) {
	bus := eventbus.New()
	defer bus.Shutdown()
	store := state.NewStore()
	svc := NewService(bus, store, nil)

	modeSub := eventbus.SubscribeTo(bus, eventbus.Pip.ModeChanged)
	defer modeSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Shutdown(context.Background())

	eventbus.Publish(ctx, bus, eventbus.Layout.Changed, eventbus.SourceGateway, eventbus.LayoutChangedEvent{
		HostID: "h-1", WindowWidth: 100, WindowHeight: 100,
	})
	if ev := waitMode(t, modeSub); !ev.Enabled {
		t.Fatalf("expected pip enabled, got %+v", ev)
	}

	eventbus.Publish(ctx, bus, eventbus.Conference.Joined, eventbus.SourceGateway, eventbus.ConferenceJoinedEvent{
		HostID: "h-1", ConferenceID: "c-1",
	})
	ev := waitMode(t, modeSub)
	if !ev.Enabled || ev.Trigger != "joined" {
		t.Fatalf("expected joined-triggered reaffirmation, got %+v", ev)
	}
	if st := store.State(); st.Conference.ReceivedQuality != state.QualityLow {
		t.Fatalf("joined must re-apply stored mode effects, got %+v", st.Conference)
	}
}

func TestServiceAudioOnlyAndPinEvents(t *testing.T) {
	bus := eventbus.New()
	defer bus.Shutdown()
	store := state.NewStore()
	svc := NewService(bus, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Shutdown(context.Background())

	eventbus.Publish(ctx, bus, eventbus.Conference.AudioOnly, eventbus.SourceGateway, eventbus.AudioOnlyChangedEvent{Enabled: true})
	eventbus.Publish(ctx, bus, eventbus.Conference.Pin, eventbus.SourceGateway, eventbus.ParticipantPinnedEvent{ParticipantID: "p-9"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := store.State()
		if st.Conference.AudioOnly && st.Conference.PinnedParticipant == "p-9" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bus events not applied to store: %+v", st.Conference)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServiceRequestInvokesCapability(t *testing.T) {
	bus := eventbus.New()
	defer bus.Shutdown()
	store := state.NewStore()

	entered := make(chan struct{}, 1)
	svc := NewService(bus, store, nil, WithCapability(Available(func() {
		select {
		case entered <- struct{}{}:
		default:
		}
	})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Shutdown(context.Background())

	eventbus.Publish(ctx, bus, eventbus.Pip.Requested, eventbus.SourceGateway, eventbus.PipRequestedEvent{HostID: "h-1"})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("capability was not invoked")
	}
}
