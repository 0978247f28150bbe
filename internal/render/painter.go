package render

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"

	"github.com/1broseidon/deskshell/internal/compositor"
	"github.com/1broseidon/deskshell/internal/lockscreen"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/shellui"
	"github.com/1broseidon/deskshell/internal/wm"
	"github.com/BurntSushi/graphics-go/graphics"
)

// Options configures a Painter.
type Options struct {
	// FontPaths are tried in order; DefaultFontPaths when empty.
	FontPaths []string
	Logger    *slog.Logger
}

// Painter rasterizes compositor scenes into a reused RGBA buffer.
type Painter struct {
	text   textDrawer
	logger *slog.Logger
	buf    *image.RGBA

	avatarPath string
	avatar     *image.RGBA
}

var _ compositor.Painter = (*Painter)(nil)

func NewPainter(opts Options) *Painter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Painter{
		text:   textDrawer{fonts: NewFontCache(opts.FontPaths, logger)},
		logger: logger,
	}
}

type shapeBuilder struct {
	ops []platform.ShapeOp
}

func (s *shapeBuilder) add(rects ...platform.Rect) {
	for _, r := range rects {
		if !r.Empty() {
			s.ops = append(s.ops, platform.ShapeOp{Rect: r})
		}
	}
}

func (s *shapeBuilder) sub(r platform.Rect) {
	if !r.Empty() {
		s.ops = append(s.ops, platform.ShapeOp{Rect: r, Subtract: true})
	}
}

// Paint draws the scene's layers in order. The returned image is reused by
// the next call.
func (p *Painter) Paint(scene *compositor.Scene) (*image.RGBA, []platform.ShapeOp) {
	dst := p.target(scene.Screen)
	shape := &shapeBuilder{}

	for _, layer := range scene.Layers {
		switch layer {
		case compositor.LayerSurfaces:
			// Client pixels are placed by the backend, not drawn here.
		case compositor.LayerDecorations:
			p.decorations(dst, scene.Windows, shape)
		case compositor.LayerPanel:
			p.panel(dst, scene.Panel, shape)
		case compositor.LayerNotifications:
			p.toasts(dst, scene, shape)
		case compositor.LayerOSD:
			if scene.OSD != nil {
				p.osd(dst, scene, shape)
			}
		case compositor.LayerRegion:
			p.region(dst, scene, shape)
		case compositor.LayerPowerMenu:
			p.powerMenu(dst, scene, shape)
		case compositor.LayerLockScreen:
			p.lockScreen(dst, scene, shape)
		}
	}
	return dst, shape.ops
}

func (p *Painter) target(size platform.Size) *image.RGBA {
	bounds := image.Rect(0, 0, size.Width, size.Height)
	if p.buf == nil || p.buf.Bounds() != bounds {
		p.buf = image.NewRGBA(bounds)
		return p.buf
	}
	clear(p.buf.Pix)
	return p.buf
}

var titleButtons = []struct {
	kind  wm.HitKind
	color uint32
	glyph string
}{
	{wm.HitCloseButton, colorClose, "×"},
	{wm.HitMaximizeButton, colorButton, "□"},
	{wm.HitMinimizeButton, colorButton, "−"},
}

// decorations draws title bars and borders bottom to top. Each window's
// client area is cut out so lower decorations never cover it.
func (p *Painter) decorations(dst *image.RGBA, windows []wm.WindowState, shape *shapeBuilder) {
	for _, w := range windows {
		b := w.Bounds
		erase(dst, b)
		shape.sub(b)

		bar := platform.Rect{X: b.X - 1, Y: b.Y - wm.TitleBarHeight, Width: b.Width + 2, Height: wm.TitleBarHeight}
		bg := uint32(colorTitle)
		if w.Focused {
			bg = colorTitleFocus
		}
		fill(dst, bar, rgba(bg, 1))
		shape.add(bar)

		title := p.text.fit(w.Title, 13, b.Width-95)
		p.text.draw(dst, title, b.X+10, b.Y-10, 13, rgba(colorText, 1))

		pos := platform.Point{X: b.X, Y: b.Y}
		size := platform.Size{Width: b.Width, Height: b.Height}
		for _, btn := range titleButtons {
			r := wm.ButtonRect(btn.kind, size, pos)
			fill(dst, r, rgba(btn.color, 1))
			p.text.centered(dst, btn.glyph, r, r.Y+15, 14, rgba(colorText, 1))
		}

		edges := []platform.Rect{
			{X: b.X - 1, Y: b.Y, Width: 1, Height: b.Height},
			{X: b.X + b.Width, Y: b.Y, Width: 1, Height: b.Height},
			{X: b.X - 1, Y: b.Y + b.Height, Width: b.Width + 2, Height: 1},
		}
		for _, e := range edges {
			fill(dst, e, rgba(colorBorder, 1))
		}
		shape.add(edges...)
	}
}

func (p *Painter) panel(dst *image.RGBA, pv compositor.PanelView, shape *shapeBuilder) {
	fill(dst, pv.Rect, rgba(colorPanel, 0.92))
	shape.add(pv.Rect)

	btn := pv.Button
	btn.Y += 8
	btn.Height -= 16
	btnColor := uint32(colorAccent)
	if pv.Launcher != nil {
		btnColor = colorAccentHot
	}
	fill(dst, btn, rgba(btnColor, 1))
	p.text.centered(dst, "Apps", btn, btn.Y+btn.Height/2+5, 13, rgba(colorText, 1))

	for _, item := range pv.Tray {
		p.trayIcon(dst, item)
	}

	baseline := pv.Rect.Y + pv.Rect.Height/2 + 6
	p.text.draw(dst, pv.Clock, pv.ClockOrigin.X, baseline, 14, rgba(colorSoft, 1))
	if len(pv.Tray) > 0 {
		x := pv.Tray[0].Rect.X - p.text.width(pv.Date, 12) - 12
		p.text.draw(dst, pv.Date, x, baseline, 12, rgba(colorMuted, 1))
	}

	if pv.Launcher != nil {
		p.launcher(dst, pv.Launcher, shape)
	}
	if pv.TrayPopup != nil {
		p.trayPopup(dst, pv.TrayPopup, shape)
	}
}

func (p *Painter) trayIcon(dst *image.RGBA, item compositor.TrayItem) {
	const size = 24
	x := item.Rect.X + (item.Rect.Width-size)/2
	y := item.Rect.Y + (item.Rect.Height-size)/2
	at := func(dx, dy, w, h int) platform.Rect {
		return platform.Rect{X: x + dx, Y: y + dy, Width: w, Height: h}
	}
	fg := rgba(colorSoft, 1)
	icon := item.Icon

	switch icon.Kind {
	case shellui.TrayNetwork:
		lit := (icon.Level + 24) / 25
		for i := range 4 {
			h := 4 + i*4
			c := rgba(colorBorder, 1)
			if i < lit {
				c = fg
			}
			fill(dst, at(3+i*5, size-h-2, 3, h), c)
		}
	case shellui.TrayVolume:
		fill(dst, at(3, 8, 6, 8), fg)
		fill(dst, at(9, 5, 4, 14), fg)
		if icon.Level == 0 {
			fill(dst, at(16, 11, 6, 2), rgba(colorError, 1))
			break
		}
		fill(dst, at(15, 8, 2, 8), fg)
		if icon.Level > 50 {
			fill(dst, at(19, 5, 2, 14), fg)
		}
	case shellui.TrayBattery:
		outline(dst, at(2, 6, 18, 12), 1, fg)
		fill(dst, at(20, 9, 2, 6), fg)
		c := rgba(colorOK, 1)
		switch {
		case icon.Charging:
			c = rgba(colorWarn, 1)
		case icon.Level <= 20:
			c = rgba(colorError, 1)
		}
		fill(dst, at(4, 8, 14*min(max(icon.Level, 0), 100)/100, 8), c)
	case shellui.TrayNotifications:
		fill(dst, at(6, 4, 12, 14), fg)
		fill(dst, at(4, 16, 16, 3), fg)
		fill(dst, at(10, 19, 4, 3), fg)
		if icon.Level > 0 {
			badge := at(14, 1, 10, 10)
			fill(dst, badge, rgba(colorClose, 1))
			p.text.centered(dst, fmt.Sprint(min(icon.Level, 9)), badge, badge.Y+9, 9, rgba(colorText, 1))
		}
	default:
		outline(dst, at(4, 4, 16, 16), 2, fg)
	}
}

func (p *Painter) launcher(dst *image.RGBA, lv *compositor.LauncherView, shape *shapeBuilder) {
	fill(dst, lv.Rect, rgba(colorSurface, 0.96))
	outline(dst, lv.Rect, 1, rgba(colorBorder, 1))
	shape.add(lv.Rect)

	p.text.draw(dst, "Applications", lv.Rect.X+20, lv.Rect.Y+32, 16, rgba(colorText, 1))
	for _, e := range lv.Entries {
		bg := uint32(colorEntry)
		if e.Hover {
			bg = colorEntryHot
		}
		fill(dst, e.Rect, rgba(bg, 1))
		p.text.draw(dst, e.Name, e.Rect.X+15, e.Rect.Y+e.Rect.Height/2+5, 14, rgba(colorText, 1))
	}
}

func (p *Painter) trayPopup(dst *image.RGBA, tp *compositor.TrayPopupView, shape *shapeBuilder) {
	r := tp.Rect
	fill(dst, r, rgba(colorSurface, 0.96))
	fill(dst, platform.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: 2}, rgba(colorAccent, 1))
	shape.add(r)

	p.text.draw(dst, tp.Icon.Name, r.X+10, r.Y+22, 14, rgba(colorText, 1))
	p.text.draw(dst, p.text.fit(tp.Icon.Tooltip, 12, r.Width-20), r.X+10, r.Y+42, 12, rgba(colorMuted, 1))

	switch tp.Icon.Kind {
	case shellui.TrayNetwork, shellui.TrayVolume, shellui.TrayBattery:
		p.bar(dst, platform.Rect{X: r.X + 10, Y: r.Y + 56, Width: r.Width - 20, Height: 8}, tp.Icon.Level, 1)
	}
}

// bar draws a progress bar filled to percent.
func (p *Painter) bar(dst *image.RGBA, r platform.Rect, percent int, opacity float64) {
	fill(dst, r, rgba(colorBorder, opacity))
	filled := r
	filled.Width = r.Width * min(max(percent, 0), 100) / 100
	fill(dst, filled, rgba(colorAccent, opacity))
}

func toastColors(u notify.Urgency) (bg, accent uint32) {
	switch u {
	case notify.Critical:
		return 0x501e1e, 0xc85050
	case notify.Low:
		return 0x1e2328, 0x5078a0
	default:
		return 0x232328, 0x508cc8
	}
}

func (p *Painter) toasts(dst *image.RGBA, scene *compositor.Scene, shape *shapeBuilder) {
	for i, n := range scene.Toasts {
		r := ToastRect(scene.Screen, scene.Panel.Rect.Height, i)
		opacity := n.RemainingFraction(scene.Now)
		bg, accent := toastColors(n.Urgency)

		fill(dst, r, rgba(bg, 0.9*opacity))
		fill(dst, platform.Rect{X: r.X, Y: r.Y, Width: 4, Height: r.Height}, rgba(accent, opacity))
		shape.add(r)

		textWidth := r.Width - 45
		p.text.draw(dst, n.AppName, r.X+15, r.Y+18, 11, rgba(colorMuted, opacity))
		p.text.draw(dst, p.text.fit(n.Summary, 14, textWidth), r.X+15, r.Y+40, 14, rgba(colorText, opacity))
		p.text.draw(dst, p.text.fit(n.Body, 12, textWidth), r.X+15, r.Y+58, 12, rgba(colorSoft, opacity))
		p.text.draw(dst, "×", r.X+r.Width-20, r.Y+20, 16, rgba(colorMuted, opacity))

		if n.Progress != nil {
			p.bar(dst, platform.Rect{X: r.X + 15, Y: r.Y + 68, Width: r.Width - 30, Height: 4}, *n.Progress, opacity)
		}
	}
}

func osdLabel(k notify.OSDKind) string {
	switch k {
	case notify.OSDVolume:
		return "Volume"
	case notify.OSDBrightness:
		return "Brightness"
	case notify.OSDMute:
		return "Muted"
	default:
		return k.String()
	}
}

func (p *Painter) osd(dst *image.RGBA, scene *compositor.Scene, shape *shapeBuilder) {
	o := scene.OSD
	r := OSDRect(scene.Screen)
	opacity := o.Opacity(scene.Now)

	fill(dst, r, rgba(colorSurface, 0.9*opacity))
	shape.add(r)

	p.text.centered(dst, osdLabel(o.Kind), r, r.Y+32, 14, rgba(colorText, opacity))
	p.bar(dst, platform.Rect{X: r.X + 20, Y: r.Y + 50, Width: r.Width - 40, Height: 8}, o.Value, opacity)
	p.text.centered(dst, fmt.Sprintf("%d%%", o.Value), r, r.Y+84, 14, rgba(colorText, opacity))
}

// region draws the selection outline, its size and a usage hint. Pixels
// outside them stay untouched so the user sees what they select.
func (p *Painter) region(dst *image.RGBA, scene *compositor.Scene, shape *shapeBuilder) {
	if sel := scene.Selection; sel != nil && !sel.Empty() {
		outline(dst, *sel, 2, rgba(colorAccent, 1))
		shape.add(outlineRects(*sel, 2)...)

		dims := fmt.Sprintf("%d×%d", sel.Width, sel.Height)
		label := platform.Rect{X: sel.X, Y: max(sel.Y-24, 0), Width: p.text.width(dims, 12) + 12, Height: 20}
		fill(dst, label, rgba(colorSurface, 0.9))
		p.text.draw(dst, dims, label.X+6, label.Y+15, 12, rgba(colorText, 1))
		shape.add(label)
	}

	hint := "Click and drag to select region • Esc to cancel"
	w := p.text.width(hint, 14) + 24
	box := platform.Rect{X: (scene.Screen.Width - w) / 2, Y: scene.Screen.Height - 50, Width: w, Height: 30}
	fill(dst, box, rgba(colorSurface, 0.9))
	p.text.centered(dst, hint, box, box.Y+20, 14, rgba(colorText, 1))
	shape.add(box)
}

func (p *Painter) powerMenu(dst *image.RGBA, scene *compositor.Scene, shape *shapeBuilder) {
	pv := scene.Power
	r := PowerMenuRect(scene.Screen, len(pv.Actions))
	fill(dst, r, rgba(colorSurface, 0.97))
	outline(dst, r, 1, rgba(colorBorder, 1))
	shape.add(r)

	p.text.centered(dst, "Power Options", r, r.Y+28, 16, rgba(colorText, 1))
	for i, action := range pv.Actions {
		item := PowerItemRect(r, i)
		fg := rgba(colorSoft, 1)
		if i == pv.Selected {
			fill(dst, item, rgba(colorAccent, 1))
			fg = rgba(colorText, 1)
		}
		p.text.draw(dst, action.Label(), item.X+50, item.Y+item.Height/2+5, 15, fg)
	}
}

func (p *Painter) lockScreen(dst *image.RGBA, scene *compositor.Scene, shape *shapeBuilder) {
	v := scene.Lock
	screen := platform.Rect{Width: scene.Screen.Width, Height: scene.Screen.Height}
	fill(dst, screen, rgba(colorLockBg, 1))
	shape.add(screen)

	card := LockCardRect(scene.Screen)
	fill(dst, card, rgba(colorSurface, 1))
	fill(dst, platform.Rect{X: card.X, Y: card.Y, Width: card.Width, Height: 3}, rgba(colorAccent, 1))

	avatar := platform.Rect{X: card.X + (card.Width-avatarSize)/2, Y: card.Y + 30, Width: avatarSize, Height: avatarSize}
	if img := p.loadAvatar(v.Avatar); img != nil {
		draw.Draw(dst, avatar.Image(), img, image.Point{}, draw.Over)
	} else {
		fill(dst, avatar, rgba(colorAvatar, 1))
		if initial := []rune(v.User); len(initial) > 0 {
			p.text.centered(dst, string(initial[0]), avatar, avatar.Y+54, 36, rgba(colorSoft, 1))
		}
	}
	p.text.centered(dst, v.User, card, avatar.Y+avatarSize+28, 18, rgba(colorText, 1))

	input := platform.Rect{
		X:      card.X + (card.Width-lockInputWidth)/2,
		Y:      avatar.Y + avatarSize + 45,
		Width:  lockInputWidth,
		Height: lockInputHeight,
	}
	fill(dst, input, rgba(colorEntry, 1))
	underline := uint32(colorAccent)
	if v.State == lockscreen.AuthFailed {
		underline = colorError
	}
	fill(dst, platform.Rect{X: input.X, Y: input.Y + input.Height - 2, Width: input.Width, Height: 2}, rgba(underline, 1))
	if v.Password == "" {
		p.text.draw(dst, "Enter password...", input.X+15, input.Y+26, 14, rgba(colorMuted, 1))
	} else {
		p.text.draw(dst, p.text.fit(v.Password, 16, input.Width-30), input.X+15, input.Y+26, 16, rgba(colorText, 1))
	}

	status, statusColor := "", uint32(colorError)
	switch {
	case v.LockoutRemaining > 0:
		status = fmt.Sprintf("Locked for %ds", int(math.Ceil(v.LockoutRemaining.Seconds())))
	case v.State == lockscreen.Authenticating:
		status, statusColor = "Authenticating...", colorMuted
	case v.Error != "":
		status = v.Error
	}
	p.text.centered(dst, status, card, input.Y+input.Height+22, 12, rgba(statusColor, 1))

	p.text.centered(dst, scene.Now.Format("15:04"), screen, screen.Height-60, 48, rgba(colorText, 1))
	p.text.centered(dst, scene.Now.Format("Monday, January 2"), screen, screen.Height-25, 14, rgba(colorMuted, 1))
}

// loadAvatar decodes and scales the avatar once per path. A path that fails
// to load is not retried.
func (p *Painter) loadAvatar(path string) *image.RGBA {
	if path == "" {
		return nil
	}
	if path == p.avatarPath {
		return p.avatar
	}
	p.avatarPath, p.avatar = path, nil

	f, err := os.Open(path)
	if err != nil {
		p.logger.Warn("avatar unavailable", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		p.logger.Warn("avatar unreadable", "path", path, "error", err)
		return nil
	}
	thumb := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	if err := graphics.Thumbnail(thumb, src); err != nil {
		p.logger.Warn("avatar scale failed", "path", path, "error", err)
		return nil
	}
	p.avatar = thumb
	return thumb
}
