package navigator

// Epsilon is the tolerance, in content units, for treating an inner scroll
// position as being at a boundary.
const Epsilon = 1.0

// ScrollState describes the inner scrollable region of the active slide.
type ScrollState struct {
	Offset          float64
	ContentHeight   float64
	ContainerHeight float64
}

// IsScrollable reports whether the content overflows its container.
func (s ScrollState) IsScrollable() bool {
	return s.ContentHeight-s.ContainerHeight > Epsilon
}

// AtTop reports whether the region is scrolled to (near) its top.
func (s ScrollState) AtTop() bool {
	return !s.IsScrollable() || s.Offset <= Epsilon
}

// AtBottom reports whether the region is scrolled to (near) its bottom.
func (s ScrollState) AtBottom() bool {
	return !s.IsScrollable() || s.Offset+s.ContainerHeight >= s.ContentHeight-Epsilon
}

// MaxOffset is the largest meaningful offset.
func (s ScrollState) MaxOffset() float64 {
	if !s.IsScrollable() {
		return 0
	}
	return s.ContentHeight - s.ContainerHeight
}
