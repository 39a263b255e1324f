package pip

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/miniview-io/miniview/internal/eventbus"
	"github.com/miniview-io/miniview/internal/layout"
	"github.com/miniview-io/miniview/internal/logging"
	"github.com/miniview-io/miniview/internal/state"
)

// Service bridges the event bus to the controller and store. Inbound
// layout notifications are replayed into the controller's feed, conference
// events become store actions, and genuine mode flips are published back
// on the bus.
type Service struct {
	bus        *eventbus.Bus
	store      *state.Store
	feed       *layout.MemoryFeed
	controller *Controller
	log        logging.Logger
	lifecycle  eventbus.ServiceLifecycle

	mu         sync.Mutex
	lastWindow layout.Size
}

// NewService wires a controller over an in-process feed. Controller
// options (capability, classifier) pass through; the service installs its
// own logger and mode listener.
func NewService(bus *eventbus.Bus, store *state.Store, log logging.Logger, ctrlOpts ...Option) *Service {
	if log == nil {
		log = logging.Nop()
	}
	s := &Service{
		bus:   bus,
		store: store,
		feed:  layout.NewMemoryFeed(),
		log:   log,
	}
	ctrlOpts = append(ctrlOpts, WithLogger(log), WithModeListener(s.publishFlip))
	s.controller = NewController(store, s.feed, ctrlOpts...)
	return s
}

// Controller exposes the underlying controller, for direct in-process use.
func (s *Service) Controller() *Controller { return s.controller }

// Start mounts the controller and begins consuming bus events.
func (s *Service) Start(ctx context.Context) {
	s.lifecycle.Start(ctx)

	layoutSub := eventbus.SubscribeTo(s.bus, eventbus.Layout.Changed)
	joinedSub := eventbus.SubscribeTo(s.bus, eventbus.Conference.Joined)
	audioSub := eventbus.SubscribeTo(s.bus, eventbus.Conference.AudioOnly)
	pinSub := eventbus.SubscribeTo(s.bus, eventbus.Conference.Pin)
	requestSub := eventbus.SubscribeTo(s.bus, eventbus.Pip.Requested)
	s.lifecycle.AddSubscriptions(layoutSub, joinedSub, audioSub, pinSub, requestSub)

	s.lifecycle.Go(func(ctx context.Context) { eventbus.Consume(ctx, layoutSub, s.handleLayout) })
	s.lifecycle.Go(func(ctx context.Context) { eventbus.Consume(ctx, joinedSub, s.handleJoined) })
	s.lifecycle.Go(func(ctx context.Context) { eventbus.Consume(ctx, audioSub, s.handleAudioOnly) })
	s.lifecycle.Go(func(ctx context.Context) { eventbus.Consume(ctx, pinSub, s.handlePin) })
	s.lifecycle.Go(func(ctx context.Context) { eventbus.Consume(ctx, requestSub, s.handleRequest) })

	s.controller.Mount()
	s.log.Info("pip service started")
}

// Shutdown unmounts the controller and stops all consumers.
func (s *Service) Shutdown(ctx context.Context) error {
	s.controller.Unmount()
	return s.lifecycle.Shutdown(ctx)
}

func (s *Service) handleLayout(ev eventbus.LayoutChangedEvent) {
	change := layout.Change{
		Window: layout.Size{Width: ev.WindowWidth, Height: ev.WindowHeight},
		Screen: layout.Size{Width: ev.ScreenWidth, Height: ev.ScreenHeight},
	}
	s.mu.Lock()
	s.lastWindow = change.Window
	s.mu.Unlock()
	s.feed.Publish(layout.EventChange, change)
}

// handleJoined re-applies the stored mode's effects to the new session.
// Geometry is not reclassified here; the published event reaffirms the
// last-known flag so journal and hosts see the re-application.
func (s *Service) handleJoined(ev eventbus.ConferenceJoinedEvent) {
	s.log.Info("conference joined", zap.String("conference_id", ev.ConferenceID))
	s.store.Dispatch(state.ConferenceJoined{ConferenceID: ev.ConferenceID})

	s.mu.Lock()
	window := s.lastWindow
	s.mu.Unlock()
	eventbus.Publish(context.Background(), s.bus, eventbus.Pip.ModeChanged, eventbus.SourceController, eventbus.PipModeChangedEvent{
		Enabled:      s.store.State().PiP.Enabled,
		WindowWidth:  window.Width,
		WindowHeight: window.Height,
		Trigger:      "joined",
	})
}

func (s *Service) handleAudioOnly(ev eventbus.AudioOnlyChangedEvent) {
	s.store.Dispatch(state.SetAudioOnly{Enabled: ev.Enabled})
}

func (s *Service) handlePin(ev eventbus.ParticipantPinnedEvent) {
	s.store.Dispatch(state.PinParticipant{ParticipantID: ev.ParticipantID})
}

func (s *Service) handleRequest(ev eventbus.PipRequestedEvent) {
	s.log.Debug("enter pip requested", zap.String("host_id", ev.HostID))
	s.controller.RequestPictureInPicture()
}

func (s *Service) publishFlip(enabled bool, window layout.Size) {
	eventbus.Publish(context.Background(), s.bus, eventbus.Pip.ModeChanged, eventbus.SourceController, eventbus.PipModeChangedEvent{
		Enabled:      enabled,
		WindowWidth:  window.Width,
		WindowHeight: window.Height,
		Trigger:      "layout",
	})
}
