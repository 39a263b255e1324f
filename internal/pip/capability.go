package pip

// Capability is the host environment's native picture-in-picture entry
// point. Absence is a legitimate state, not an error: requests against an
// unavailable capability are silently dropped.
type Capability interface {
	EnterPictureInPicture()
}

type funcCapability func()

func (f funcCapability) EnterPictureInPicture() { f() }

// Available wraps the host's enter-PiP function as a Capability.
func Available(enter func()) Capability {
	if enter == nil {
		return Unavailable()
	}
	return funcCapability(enter)
}

type unavailable struct{}

func (unavailable) EnterPictureInPicture() {}

// Unavailable returns a Capability that ignores all requests.
func Unavailable() Capability { return unavailable{} }
