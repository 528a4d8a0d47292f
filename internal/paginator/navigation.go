package paginator

// BoundaryBehavior governs what happens when navigation reaches the
// first or last page.
type BoundaryBehavior string

const (
	// Clamp stops at the boundary: advancing past the last page or
	// retreating past the first is a no-op.
	Clamp BoundaryBehavior = "clamp"

	// WrapAround cycles: advancing past the last page lands on the
	// first, retreating past the first lands on the last.
	WrapAround BoundaryBehavior = "wrap"
)

// Valid reports whether b is a recognized boundary behavior.
func (b BoundaryBehavior) Valid() bool {
	return b == Clamp || b == WrapAround
}

// navigator owns the current page index and applies the session's
// boundary behavior on every transition. It is not safe for concurrent
// use on its own; the Session serializes all access under its mutex.
//
// The single hard invariant of the whole core: after every transition,
// 0 <= index < count.
type navigator struct {
	index    int
	count    int
	behavior BoundaryBehavior
}

func newNavigator(count int, behavior BoundaryBehavior) *navigator {
	return &navigator{count: count, behavior: behavior}
}

// advance moves to the next page, honoring the boundary behavior at the
// last page.
func (n *navigator) advance() {
	if n.index == n.count-1 {
		if n.behavior == WrapAround {
			n.index = 0
		}
		return
	}
	n.index++
}

// retreat moves to the previous page, honoring the boundary behavior at
// the first page.
func (n *navigator) retreat() {
	if n.index == 0 {
		if n.behavior == WrapAround {
			n.index = n.count - 1
		}
		return
	}
	n.index--
}

// jumpToFirst unconditionally moves to the first page.
func (n *navigator) jumpToFirst() {
	n.index = 0
}

// jumpToLast unconditionally moves to the last page.
func (n *navigator) jumpToLast() {
	n.index = n.count - 1
}
