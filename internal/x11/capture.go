package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xgraphics"
)

// CaptureScreen reads the root window, which holds every mapped window and
// the chrome as they are currently shown.
func (b *Backend) CaptureScreen() (*image.RGBA, error) {
	ximg, err := xgraphics.NewDrawable(b.conn.XUtil, xproto.Drawable(b.conn.Root))
	if err != nil {
		return nil, fmt.Errorf("failed to read screen: %w", err)
	}
	defer ximg.Destroy()

	bounds := ximg.Bounds()
	if b.screen.Width > 0 && b.screen.Height > 0 {
		bounds = bounds.Intersect(image.Rect(0, 0, b.screen.Width, b.screen.Height))
	}
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		si := ximg.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < bounds.Dx(); x++ {
			out.Pix[di+0] = ximg.Pix[si+2]
			out.Pix[di+1] = ximg.Pix[si+1]
			out.Pix[di+2] = ximg.Pix[si+0]
			out.Pix[di+3] = 0xff
			si += 4
			di += 4
		}
	}
	return out, nil
}
