package wm

import (
	"fmt"

	"github.com/1broseidon/deskshell/internal/platform"
)

// Decoration geometry, in pixels.
const (
	TitleBarHeight = 30
	BorderWidth    = 5
	ButtonSize     = 20
	// ButtonInset is the gap between the title bar top and the buttons.
	ButtonInset = 5
)

// Right-edge offsets of the title bar buttons.
const (
	closeButtonOffset    = 25
	maximizeButtonOffset = 50
	minimizeButtonOffset = 75
)

// ResizeEdge names the edge or corner being dragged during a resize.
type ResizeEdge int

const (
	EdgeTop ResizeEdge = iota
	EdgeBottom
	EdgeLeft
	EdgeRight
	EdgeTopLeft
	EdgeTopRight
	EdgeBottomLeft
	EdgeBottomRight
)

func (e ResizeEdge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTopLeft:
		return "top-left"
	case EdgeTopRight:
		return "top-right"
	case EdgeBottomLeft:
		return "bottom-left"
	case EdgeBottomRight:
		return "bottom-right"
	default:
		return fmt.Sprintf("edge(%d)", int(e))
	}
}

// HitKind classifies what part of a decorated window a point falls on.
type HitKind int

const (
	HitNone HitKind = iota
	HitTitleBar
	HitCloseButton
	HitMaximizeButton
	HitMinimizeButton
	HitResize
	HitClient
)

func (k HitKind) String() string {
	switch k {
	case HitNone:
		return "none"
	case HitTitleBar:
		return "title-bar"
	case HitCloseButton:
		return "close"
	case HitMaximizeButton:
		return "maximize"
	case HitMinimizeButton:
		return "minimize"
	case HitResize:
		return "resize"
	case HitClient:
		return "client"
	default:
		return fmt.Sprintf("hit(%d)", int(k))
	}
}

// HitResult is the outcome of a hit test. Edge is only set for HitResize.
type HitResult struct {
	Kind HitKind
	Edge ResizeEdge
}

func (h HitResult) String() string {
	if h.Kind == HitResize {
		return "resize:" + h.Edge.String()
	}
	return h.Kind.String()
}

func hit(kind HitKind) HitResult {
	return HitResult{Kind: kind}
}

func resizeHit(edge ResizeEdge) HitResult {
	return HitResult{Kind: HitResize, Edge: edge}
}

// HitTest classifies pointer against a window whose client area sits at pos
// with the given size. The title bar is drawn above pos and the resize border
// surrounds the whole decorated frame.
func HitTest(size platform.Size, pos platform.Point, pointer platform.Point) HitResult {
	left := pos.X
	right := pos.X + size.Width
	top := pos.Y - TitleBarHeight
	clientTop := pos.Y
	bottom := pos.Y + size.Height
	x, y := pointer.X, pointer.Y

	if x < left-BorderWidth || x > right+BorderWidth || y < top-BorderWidth || y > bottom+BorderWidth {
		return hit(HitNone)
	}

	// Band above the title bar.
	if y < top {
		switch {
		case x < left+BorderWidth:
			return resizeHit(EdgeTopLeft)
		case x > right-BorderWidth:
			return resizeHit(EdgeTopRight)
		default:
			return resizeHit(EdgeTop)
		}
	}

	// Band below the client area.
	if y > bottom {
		switch {
		case x < left+BorderWidth:
			return resizeHit(EdgeBottomLeft)
		case x > right-BorderWidth:
			return resizeHit(EdgeBottomRight)
		default:
			return resizeHit(EdgeBottom)
		}
	}

	if x < left {
		return resizeHit(EdgeLeft)
	}
	if x > right {
		return resizeHit(EdgeRight)
	}

	if y < clientTop {
		buttonTop := top + ButtonInset
		if y >= buttonTop && y <= buttonTop+ButtonSize {
			switch {
			case inButton(x, right, closeButtonOffset):
				return hit(HitCloseButton)
			case inButton(x, right, maximizeButtonOffset):
				return hit(HitMaximizeButton)
			case inButton(x, right, minimizeButtonOffset):
				return hit(HitMinimizeButton)
			}
		}
		return hit(HitTitleBar)
	}

	return hit(HitClient)
}

func inButton(x, right, offset int) bool {
	return x >= right-offset && x <= right-offset+ButtonSize
}

// ButtonRect returns the on-screen rectangle of a title bar button for a
// window whose client area starts at pos. kind must be one of the button
// hit kinds.
func ButtonRect(kind HitKind, size platform.Size, pos platform.Point) platform.Rect {
	offset := 0
	switch kind {
	case HitCloseButton:
		offset = closeButtonOffset
	case HitMaximizeButton:
		offset = maximizeButtonOffset
	case HitMinimizeButton:
		offset = minimizeButtonOffset
	default:
		return platform.Rect{}
	}
	return platform.Rect{
		X:      pos.X + size.Width - offset,
		Y:      pos.Y - TitleBarHeight + ButtonInset,
		Width:  ButtonSize,
		Height: ButtonSize,
	}
}
