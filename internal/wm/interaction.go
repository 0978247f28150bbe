package wm

import "github.com/1broseidon/deskshell/internal/platform"

type interactionKind int

const (
	interactionNone interactionKind = iota
	interactionDrag
	interactionResize
)

// interaction is the single in-progress pointer operation. Dragging and
// resizing are mutually exclusive by construction.
type interaction struct {
	kind   interactionKind
	target ID
	edge   ResizeEdge

	startX float64
	startY float64

	startPos  platform.Point
	startSize platform.Size
}

// SetPointer records the pointer position and advances any drag or resize.
func (m *Manager) SetPointer(x, y float64) {
	m.pointerX, m.pointerY = x, y
	switch m.interaction.kind {
	case interactionDrag:
		m.UpdateDrag()
	case interactionResize:
		m.UpdateResize()
	}
}

// Pointer returns the last known pointer position.
func (m *Manager) Pointer() (float64, float64) {
	return m.pointerX, m.pointerY
}

// Dragging returns the id of the window being dragged.
func (m *Manager) Dragging() (ID, bool) {
	if m.interaction.kind != interactionDrag {
		return 0, false
	}
	return m.interaction.target, true
}

// Resizing returns the id and edge of the window being resized.
func (m *Manager) Resizing() (ID, ResizeEdge, bool) {
	if m.interaction.kind != interactionResize {
		return 0, 0, false
	}
	return m.interaction.target, m.interaction.edge, true
}

// EndInteraction drops any drag or resize in progress.
func (m *Manager) EndInteraction() {
	m.interaction = interaction{}
}

// StartDrag begins moving id with the pointer.
func (m *Manager) StartDrag(id ID) bool {
	loc, ok := m.space.Location(id)
	if !ok {
		return false
	}
	m.interaction = interaction{
		kind:     interactionDrag,
		target:   id,
		startX:   m.pointerX,
		startY:   m.pointerY,
		startPos: loc,
	}
	return true
}

// UpdateDrag moves the dragged window by the pointer delta, snapping each
// edge to the screen border or the panel when it comes close.
func (m *Manager) UpdateDrag() {
	if m.interaction.kind != interactionDrag {
		return
	}
	_, w := m.byID(m.interaction.target)
	if w == nil {
		m.interaction = interaction{}
		return
	}

	dx := int(m.pointerX - m.interaction.startX)
	dy := int(m.pointerY - m.interaction.startY)
	x := m.interaction.startPos.X + dx
	y := m.interaction.startPos.Y + dy

	if abs(x) < m.snapThreshold {
		x = 0
	}
	if abs(y-m.panelHeight) < m.snapThreshold {
		y = m.panelHeight
	}
	if abs(x+w.Size.Width-m.screen.Width) < m.snapThreshold {
		x = m.screen.Width - w.Size.Width
	}
	if abs(y+w.Size.Height-m.screen.Height) < m.snapThreshold {
		y = m.screen.Height - w.Size.Height
	}

	m.space.Map(w.ID, platform.Point{X: x, Y: y})
}

// StartResize begins resizing id from the given edge.
func (m *Manager) StartResize(id ID, edge ResizeEdge) bool {
	_, w := m.byID(id)
	if w == nil {
		return false
	}
	loc, ok := m.space.Location(id)
	if !ok {
		return false
	}
	m.interaction = interaction{
		kind:      interactionResize,
		target:    id,
		edge:      edge,
		startX:    m.pointerX,
		startY:    m.pointerY,
		startPos:  loc,
		startSize: w.Size,
	}
	return true
}

// UpdateResize recomputes the resized window's geometry from the pointer
// delta. The edge opposite the one being dragged stays put.
func (m *Manager) UpdateResize() {
	if m.interaction.kind != interactionResize {
		return
	}
	_, w := m.byID(m.interaction.target)
	if w == nil {
		m.interaction = interaction{}
		return
	}

	dx := int(m.pointerX - m.interaction.startX)
	dy := int(m.pointerY - m.interaction.startY)
	rect := resizeRect(m.interaction.edge, m.interaction.startPos, m.interaction.startSize, dx, dy)

	m.space.Map(w.ID, platform.Point{X: rect.X, Y: rect.Y})
	size := platform.Size{Width: rect.Width, Height: rect.Height}
	if size != w.Size {
		w.Size = size
		m.configure(w)
	}
}

func resizeRect(edge ResizeEdge, pos platform.Point, size platform.Size, dx, dy int) platform.Rect {
	r := platform.Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}

	growRight := func() { r.Width = max(size.Width+dx, MinWindowSize) }
	growDown := func() { r.Height = max(size.Height+dy, MinWindowSize) }
	growLeft := func() {
		r.Width = max(size.Width-dx, MinWindowSize)
		r.X = pos.X + size.Width - r.Width
	}
	growUp := func() {
		r.Height = max(size.Height-dy, MinWindowSize)
		r.Y = pos.Y + size.Height - r.Height
	}

	switch edge {
	case EdgeRight:
		growRight()
	case EdgeBottom:
		growDown()
	case EdgeLeft:
		growLeft()
	case EdgeTop:
		growUp()
	case EdgeTopLeft:
		growUp()
		growLeft()
	case EdgeTopRight:
		growUp()
		growRight()
	case EdgeBottomLeft:
		growDown()
		growLeft()
	case EdgeBottomRight:
		growDown()
		growRight()
	}
	return r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
