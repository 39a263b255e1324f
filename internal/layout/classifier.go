package layout

// DefaultThreshold is the dimension (logical units) below which the window
// is considered collapsed into picture-in-picture. PiP presentations shrink
// at least one axis drastically, so the check is an OR across both axes to
// catch letterboxed and pillarboxed shrinkage alike.
const DefaultThreshold = 240

// Classifier decides whether a window size represents picture-in-picture
// presentation. The zero value is not usable; construct with NewClassifier.
type Classifier struct {
	threshold float64
}

// NewClassifier returns a classifier using DefaultThreshold. A positive
// override replaces it.
func NewClassifier(threshold float64) Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Classifier{threshold: threshold}
}

// Threshold returns the active threshold.
func (c Classifier) Threshold() float64 { return c.threshold }

// InPictureInPicture reports whether the window size indicates PiP
// presentation: either dimension strictly below the threshold. A window of
// exactly threshold x threshold is not PiP.
func (c Classifier) InPictureInPicture(window Size) bool {
	return window.Width < c.threshold || window.Height < c.threshold
}
