package layout

// Size stores width/height geometry in logical units as reported by the
// host application.
type Size struct {
	Width  float64
	Height float64
}

// Change captures a single layout notification from the host. Window is the
// visible application window; Screen is the full device display. The screen
// does not shrink when the app collapses into picture-in-picture, so mode
// detection must only ever look at Window.
type Change struct {
	Window Size
	Screen Size
}

// EventChange is the event name the host's layout stream delivers geometry
// updates under.
const EventChange = "change"

// Handle represents a live layout subscription. Remove releases it and is
// safe to call more than once.
type Handle interface {
	Remove()
}

// Feed is a source of layout notifications. Subscribe registers fn for the
// named event and returns a handle the caller releases when done. Feeds
// deliver events synchronously on the publishing turn.
type Feed interface {
	Subscribe(event string, fn func(Change)) Handle
}
