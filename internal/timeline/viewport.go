package timeline

// ViewportState classifies the message viewport.
type ViewportState string

const (
	// AtBottom means the viewport rests at (or within epsilon of) the
	// newest rendered message.
	AtBottom ViewportState = "at_bottom"
	// ScrolledUp means the user has scrolled away from the bottom.
	ScrolledUp ViewportState = "scrolled_up"
)

// DefaultScrollEpsilon is the pixel tolerance for the at-bottom check.
const DefaultScrollEpsilon = 10

// ClassifyViewport returns AtBottom when the distance between the viewport
// bottom edge and the content bottom is within epsilon, else ScrolledUp.
// It has no side effects; callers recompute it on every scroll event and
// once on conversation switch.
func ClassifyViewport(scrollTop, scrollHeight, clientHeight, epsilon int) ViewportState {
	if epsilon < 0 {
		epsilon = DefaultScrollEpsilon
	}
	if scrollHeight-scrollTop-clientHeight <= epsilon {
		return AtBottom
	}
	return ScrolledUp
}
