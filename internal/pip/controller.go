package pip

import (
	"go.uber.org/zap"

	"github.com/miniview-io/miniview/internal/layout"
	"github.com/miniview-io/miniview/internal/logging"
	"github.com/miniview-io/miniview/internal/state"
)

// ModeListener is invoked on every genuine flip of the PiP flag, with the
// window size that triggered the classification.
type ModeListener func(enabled bool, window layout.Size)

// Controller owns the layout subscription lifecycle and the mode
// transition rules. It holds explicit references to its collaborators
// (store, feed, classifier, capability); nothing is resolved lazily.
type Controller struct {
	store      *state.Store
	feed       layout.Feed
	classifier layout.Classifier
	capability Capability
	log        logging.Logger
	onMode     ModeListener
}

// Option configures a Controller.
type Option func(*Controller)

// WithClassifier overrides the default geometry classifier.
func WithClassifier(c layout.Classifier) Option {
	return func(ctrl *Controller) {
		ctrl.classifier = c
	}
}

// WithCapability sets the host PiP capability. Defaults to Unavailable.
func WithCapability(capability Capability) Option {
	return func(ctrl *Controller) {
		if capability != nil {
			ctrl.capability = capability
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(log logging.Logger) Option {
	return func(ctrl *Controller) {
		if log != nil {
			ctrl.log = log
		}
	}
}

// WithModeListener registers a callback for genuine mode flips.
func WithModeListener(fn ModeListener) Option {
	return func(ctrl *Controller) {
		ctrl.onMode = fn
	}
}

// NewController builds a controller bound to the store and feed and
// registers its transition hook on the store.
func NewController(store *state.Store, feed layout.Feed, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		feed:       feed,
		classifier: layout.NewClassifier(0),
		capability: Unavailable(),
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	store.Use(c.transitionHook)
	return c
}

// Mount subscribes to the feed's change events and stores the handle.
// Mounting while already mounted replaces the subscription; the reducer
// releases the stale handle before storing the new one.
func (c *Controller) Mount() {
	handle := c.feed.Subscribe(layout.EventChange, c.onLayoutChanged)
	c.store.Dispatch(state.SetLayoutListener{Listener: handle})
	c.log.Debug("layout subscription mounted")
}

// Unmount clears the stored handle, releasing the active subscription.
// Safe to call when nothing is subscribed.
func (c *Controller) Unmount() {
	c.store.Dispatch(state.SetLayoutListener{Listener: nil})
	c.log.Debug("layout subscription unmounted")
}

// RequestPictureInPicture forwards an explicit enter-PiP request to the
// host capability. Fire and forget: no result is observed.
func (c *Controller) RequestPictureInPicture() {
	c.capability.EnterPictureInPicture()
}

// onLayoutChanged classifies every measurement but dispatches only when
// the verdict differs from the stored flag. This is the sole gate against
// redundant downstream notifications.
func (c *Controller) onLayoutChanged(change layout.Change) {
	enabled := c.classifier.InPictureInPicture(change.Window)
	if enabled == c.store.State().PiP.Enabled {
		return
	}
	c.log.Info("pip mode changed",
		zap.Bool("enabled", enabled),
		zap.Float64("window_width", change.Window.Width),
		zap.Float64("window_height", change.Window.Height))
	c.store.Dispatch(state.PipModeChanged{Enabled: enabled})
	if c.onMode != nil {
		c.onMode(enabled, change.Window)
	}
}

// transitionHook applies the derived conference adjustments after a mode
// flip, or re-applies the stored mode's effects when a conference is
// joined. Joining does not reclassify geometry; the last-known flag is
// reused as-is.
func (c *Controller) transitionHook(a state.Action, st state.AppState) {
	switch act := a.(type) {
	case state.PipModeChanged:
		c.applyAdjustments(act.Enabled, st.Conference.AudioOnly)
	case state.ConferenceJoined:
		c.applyAdjustments(st.PiP.Enabled, st.Conference.AudioOnly)
	}
}

// applyAdjustments emits the session adjustments for the effective mode.
// Entering PiP always clears the pinned participant. Sender-limit and
// quality changes are skipped entirely in audio-only mode: there is no
// video to degrade.
func (c *Controller) applyAdjustments(enabled, audioOnly bool) {
	if enabled {
		c.store.Dispatch(state.PinParticipant{})
	}
	if audioOnly {
		return
	}
	if enabled {
		c.store.Dispatch(state.SetMaxSenders{Limit: state.Senders(1)})
		c.store.Dispatch(state.SetReceivedQuality{Quality: state.QualityLow})
	} else {
		c.store.Dispatch(state.SetMaxSenders{})
		c.store.Dispatch(state.SetReceivedQuality{Quality: state.QualityHigh})
	}
}
