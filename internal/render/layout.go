package render

import "github.com/1broseidon/deskshell/internal/platform"

// Geometry of the shell-drawn elements that are not laid out by shellui.
const (
	ToastWidth  = 320
	ToastHeight = 80
	ToastGap    = 10
	toastMargin = 20

	OSDWidth  = 200
	OSDHeight = 100
	osdBottom = 150

	PowerMenuWidth  = 300
	powerItemHeight = 50
	powerHeader     = 40

	lockCardWidth   = 350
	lockCardHeight  = 280
	avatarSize      = 80
	lockInputWidth  = 280
	lockInputHeight = 40
)

// Colors
const (
	colorText       = 0xffffff
	colorMuted      = 0x9ca3af
	colorSoft       = 0xc8c8d0
	colorAccent     = 0x3b82f6
	colorAccentHot  = 0x60a5fa
	colorPanel      = 0x19191e
	colorSurface    = 0x1e1e26
	colorEntry      = 0x2a2a34
	colorEntryHot   = 0x3a3a48
	colorBorder     = 0x3c3c46
	colorTitle      = 0x28282d
	colorTitleFocus = 0x34343f
	colorButton     = 0x50505a
	colorClose      = 0xc83c3c
	colorError      = 0xf87171
	colorOK         = 0x4ade80
	colorWarn       = 0xfacc15
	colorLockBg     = 0x0f0f14
	colorAvatar     = 0x3c3c50
)

// ToastRect is where the i-th visible toast goes, stacked down the right
// edge below the panel.
func ToastRect(screen platform.Size, panelHeight, i int) platform.Rect {
	return platform.Rect{
		X:      screen.Width - ToastWidth - toastMargin,
		Y:      panelHeight + ToastGap + i*(ToastHeight+ToastGap),
		Width:  ToastWidth,
		Height: ToastHeight,
	}
}

// OSDRect is the indicator box, centered near the bottom of the screen.
func OSDRect(screen platform.Size) platform.Rect {
	return platform.Rect{
		X:      (screen.Width - OSDWidth) / 2,
		Y:      screen.Height - osdBottom,
		Width:  OSDWidth,
		Height: OSDHeight,
	}
}

// PowerMenuRect centers a menu of n actions on the screen.
func PowerMenuRect(screen platform.Size, n int) platform.Rect {
	h := n*powerItemHeight + powerHeader
	return platform.Rect{
		X:      (screen.Width - PowerMenuWidth) / 2,
		Y:      (screen.Height - h) / 2,
		Width:  PowerMenuWidth,
		Height: h,
	}
}

// PowerItemRect is the highlight box of the i-th action inside menu.
func PowerItemRect(menu platform.Rect, i int) platform.Rect {
	return platform.Rect{
		X:      menu.X + 10,
		Y:      menu.Y + powerHeader + i*powerItemHeight,
		Width:  menu.Width - 20,
		Height: powerItemHeight - 5,
	}
}

// LockCardRect is the centered card holding the avatar and password field.
func LockCardRect(screen platform.Size) platform.Rect {
	return platform.Rect{
		X:      (screen.Width - lockCardWidth) / 2,
		Y:      (screen.Height - lockCardHeight) / 2,
		Width:  lockCardWidth,
		Height: lockCardHeight,
	}
}

func outlineRects(r platform.Rect, width int) []platform.Rect {
	return []platform.Rect{
		{X: r.X, Y: r.Y, Width: r.Width, Height: width},
		{X: r.X, Y: r.Y + r.Height - width, Width: r.Width, Height: width},
		{X: r.X, Y: r.Y + width, Width: width, Height: r.Height - 2*width},
		{X: r.X + r.Width - width, Y: r.Y + width, Width: width, Height: r.Height - 2*width},
	}
}
