package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/deskshell/internal/platform"
)

// chrome is the full-screen override-redirect window the shell draws into.
// Its bounding shape hides everything outside the frame's shape ops and its
// input shape is empty, so clicks always land on the clients below.
type chrome struct {
	conn  *Connection
	win   *xwindow.Window
	img   *xgraphics.Image
	size  platform.Size
	shape []platform.ShapeOp
}

func newChrome(conn *Connection, size platform.Size) (*chrome, error) {
	win, err := xwindow.Generate(conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate chrome window: %w", err)
	}
	err = win.CreateChecked(conn.Root, 0, 0, max(size.Width, 1), max(size.Height, 1),
		xproto.CwBackPixel|xproto.CwOverrideRedirect, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create chrome window: %w", err)
	}

	c := &chrome{conn: conn, win: win}
	x := conn.XUtil.Conn()
	shape.Rectangles(x, shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted, win.Id, 0, 0, nil)
	shape.Rectangles(x, shape.SoSet, shape.SkBounding, xproto.ClipOrderingUnsorted, win.Id, 0, 0, nil)
	c.resize(size)
	win.Map()
	return c, nil
}

func (c *chrome) resize(size platform.Size) {
	if size == c.size && c.img != nil {
		return
	}
	if c.img != nil {
		c.img.Destroy()
	}
	c.size = size
	c.win.MoveResize(0, 0, max(size.Width, 1), max(size.Height, 1))
	c.img = xgraphics.New(c.conn.XUtil, image.Rect(0, 0, max(size.Width, 1), max(size.Height, 1)))
	if err := c.img.XSurfaceSet(c.win.Id); err != nil {
		c.img = nil
	}
}

// paint copies src into the window pixmap. Alpha is dropped; the shape
// decides what is visible.
func (c *chrome) paint(src *image.RGBA) {
	if c.img == nil || src == nil {
		return
	}
	copyBGRA(c.img.Pix, c.img.Stride, src, c.img.Rect)
	c.img.XDraw()
	c.img.XPaint(c.win.Id)
}

// copyBGRA writes the RGBA pixels of src that fall inside dstRect into a
// BGRA buffer.
func copyBGRA(dst []uint8, stride int, src *image.RGBA, dstRect image.Rectangle) {
	r := src.Rect.Intersect(dstRect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := (y-dstRect.Min.Y)*stride + (r.Min.X-dstRect.Min.X)*4
		for x := r.Min.X; x < r.Max.X; x++ {
			dst[di+0] = src.Pix[si+2]
			dst[di+1] = src.Pix[si+1]
			dst[di+2] = src.Pix[si+0]
			dst[di+3] = src.Pix[si+3]
			si += 4
			di += 4
		}
	}
}

func (c *chrome) setShape(ops []platform.ShapeOp) {
	if shapeEqual(ops, c.shape) {
		return
	}
	x := c.conn.XUtil.Conn()
	shape.Rectangles(x, shape.SoSet, shape.SkBounding, xproto.ClipOrderingUnsorted, c.win.Id, 0, 0, nil)
	for _, op := range ops {
		if op.Rect.Empty() {
			continue
		}
		kind := shape.Op(shape.SoUnion)
		if op.Subtract {
			kind = shape.SoSubtract
		}
		shape.Rectangles(x, kind, shape.SkBounding, xproto.ClipOrderingUnsorted, c.win.Id, 0, 0,
			[]xproto.Rectangle{toXRect(op.Rect)})
	}
	c.shape = append(c.shape[:0], ops...)
}

func shapeEqual(a, b []platform.ShapeOp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toXRect(r platform.Rect) xproto.Rectangle {
	return xproto.Rectangle{
		X:      int16(r.X),
		Y:      int16(r.Y),
		Width:  uint16(max(r.Width, 0)),
		Height: uint16(max(r.Height, 0)),
	}
}

// Present places the frame's surfaces bottom to top, unmaps managed windows
// the frame leaves out, then raises and repaints the chrome.
func (b *Backend) Present(frame *platform.Frame) error {
	if frame == nil {
		return nil
	}
	conn := b.conn.XUtil.Conn()

	visible := make(map[xproto.Window]bool, len(frame.Surfaces))
	restack := b.stackChanged(frame.Surfaces)
	for _, p := range frame.Surfaces {
		win := xproto.Window(p.ID)
		c, ok := b.managed[win]
		if !ok {
			continue
		}
		visible[win] = true
		if c.placed != p.Bounds {
			xproto.ConfigureWindow(conn, win,
				xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
				[]uint32{uint32(int32(p.Bounds.X)), uint32(int32(p.Bounds.Y)),
					uint32(max(p.Bounds.Width, 1)), uint32(max(p.Bounds.Height, 1))})
			c.placed = p.Bounds
		}
		if restack {
			xproto.ConfigureWindow(conn, win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
		}
		if !c.mapped {
			xproto.MapWindow(conn, win)
			c.mapped = true
		}
	}
	for win, c := range b.managed {
		if visible[win] || !c.mapped {
			continue
		}
		xproto.UnmapWindow(conn, win)
		c.mapped = false
		c.ignoreUnmaps++
	}
	b.lastStack = b.lastStack[:0]
	for _, p := range frame.Surfaces {
		b.lastStack = append(b.lastStack, p.ID)
	}

	b.chrome.resize(b.screen)
	b.chrome.win.Stack(xproto.StackModeAbove)
	b.chrome.setShape(frame.Shape)
	b.chrome.paint(frame.Chrome)

	b.setKeyboardGrab(frame.GrabKeyboard)
	return nil
}

func (b *Backend) stackChanged(surfaces []platform.Placement) bool {
	if len(surfaces) != len(b.lastStack) {
		return true
	}
	for i, p := range surfaces {
		if b.lastStack[i] != p.ID {
			return true
		}
	}
	return false
}

func (b *Backend) setKeyboardGrab(on bool) {
	if on == b.keyboardGrab {
		return
	}
	conn := b.conn.XUtil.Conn()
	if !on {
		xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)
		b.keyboardGrab = false
		return
	}
	reply, err := xproto.GrabKeyboard(conn, false, b.conn.Root, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil || reply.Status != xproto.GrabStatusSuccess {
		// Retried on the next frame.
		b.logger.Debug("keyboard grab failed", "error", err)
		return
	}
	b.keyboardGrab = true
}
