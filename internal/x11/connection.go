package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// wmName is advertised through _NET_SUPPORTING_WM_CHECK.
const wmName = "deskshell"

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Display string
}

// NewConnection connects to display, or to $DISPLAY when display is empty,
// and initializes the SHAPE extension the chrome window needs.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
		display = os.Getenv("DISPLAY")
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, err
	}
	if err := shape.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("shape extension unavailable: %w", err)
	}

	return &Connection{
		XUtil:   xu,
		Root:    xu.RootWin(),
		Display: display,
	}, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// BecomeManager selects substructure redirection on the root window. Only
// one client may hold it, so this fails when another window manager runs.
func (c *Connection) BecomeManager() error {
	mask := uint32(xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskStructureNotify)
	err := xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root,
		xproto.CwEventMask, []uint32{mask}).Check()
	if err != nil {
		return fmt.Errorf("another window manager is running: %w", err)
	}
	return nil
}

// Advertise publishes the EWMH supporting-WM check window and the hints the
// shell maintains.
func (c *Connection) Advertise() error {
	check, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return fmt.Errorf("failed to allocate check window: %w", err)
	}
	check.Create(c.Root, -1, -1, 1, 1, xproto.CwOverrideRedirect, 1)

	if err := ewmh.SupportingWmCheckSet(c.XUtil, c.Root, check.Id); err != nil {
		return err
	}
	if err := ewmh.SupportingWmCheckSet(c.XUtil, check.Id, check.Id); err != nil {
		return err
	}
	if err := ewmh.WmNameSet(c.XUtil, check.Id, wmName); err != nil {
		return err
	}
	return ewmh.SupportedSet(c.XUtil, []string{
		"_NET_SUPPORTED",
		"_NET_SUPPORTING_WM_CHECK",
		"_NET_CLIENT_LIST",
		"_NET_ACTIVE_WINDOW",
		"_NET_WM_NAME",
	})
}

// ScreenSize returns the current root window size.
func (c *Connection) ScreenSize() (int, int, error) {
	geom, err := xwindow.RawGeometry(c.XUtil, xproto.Drawable(c.Root))
	if err != nil {
		return 0, 0, err
	}
	return geom.Width(), geom.Height(), nil
}

func (c *Connection) atom(name string) (xproto.Atom, error) {
	return xprop.Atm(c.XUtil, name)
}
