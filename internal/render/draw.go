package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/BurntSushi/freetype-go/freetype"
)

// rgba converts a 0xRRGGBB color and an opacity in [0,1].
func rgba(c uint32, alpha float64) color.NRGBA {
	alpha = min(max(alpha, 0), 1)
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(alpha * 255)}
}

func fill(dst *image.RGBA, r platform.Rect, c color.Color) {
	if r.Empty() {
		return
	}
	draw.Draw(dst, r.Image().Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// erase makes r fully transparent.
func erase(dst *image.RGBA, r platform.Rect) {
	draw.Draw(dst, r.Image().Intersect(dst.Bounds()), image.Transparent, image.Point{}, draw.Src)
}

func outline(dst *image.RGBA, r platform.Rect, width int, c color.Color) {
	for _, edge := range outlineRects(r, width) {
		fill(dst, edge, c)
	}
}

// textDrawer draws strings with the cached font. Without a font it draws
// nothing and measures with a fixed advance.
type textDrawer struct {
	fonts *FontCache
	ctx   *freetype.Context
}

func (t *textDrawer) context() *freetype.Context {
	if t.ctx != nil {
		return t.ctx
	}
	font, err := t.fonts.Font()
	if err != nil {
		return nil
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(font)
	t.ctx = ctx
	return ctx
}

// draw renders s with its baseline at y.
func (t *textDrawer) draw(dst *image.RGBA, s string, x, y int, size float64, c color.Color) {
	ctx := t.context()
	if ctx == nil || s == "" {
		return
	}
	ctx.SetDst(dst)
	ctx.SetClip(dst.Bounds())
	ctx.SetSrc(image.NewUniform(c))
	ctx.SetFontSize(size)
	_, _ = ctx.DrawString(s, freetype.Pt(x, y))
}

// centered draws s horizontally centered in r with its baseline at y.
func (t *textDrawer) centered(dst *image.RGBA, s string, r platform.Rect, y int, size float64, c color.Color) {
	t.draw(dst, s, r.X+(r.Width-t.width(s, size))/2, y, size, c)
}

func (t *textDrawer) width(s string, size float64) int {
	ctx := t.context()
	if ctx == nil {
		return len([]rune(s)) * int(size) / 2
	}
	ctx.SetFontSize(size)
	w, _, err := ctx.MeasureString(s)
	if err != nil {
		return 0
	}
	return freetype.Pixel(w)
}

// fit shortens s with an ellipsis until it is at most maxWidth wide.
func (t *textDrawer) fit(s string, size float64, maxWidth int) string {
	if t.width(s, size) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if t.width(candidate, size) <= maxWidth {
			return candidate
		}
	}
	return ""
}
