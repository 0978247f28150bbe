package notify

import (
	"fmt"
	"time"
)

// OSDKind is what an on-screen display is showing.
type OSDKind int

const (
	OSDVolume OSDKind = iota
	OSDBrightness
	OSDMute
)

func (k OSDKind) String() string {
	switch k {
	case OSDVolume:
		return "volume"
	case OSDBrightness:
		return "brightness"
	case OSDMute:
		return "mute"
	default:
		return fmt.Sprintf("osd(%d)", int(k))
	}
}

// ParseOSDKind accepts the names produced by String.
func ParseOSDKind(s string) (OSDKind, error) {
	switch s {
	case "volume":
		return OSDVolume, nil
	case "brightness":
		return OSDBrightness, nil
	case "mute":
		return OSDMute, nil
	default:
		return 0, fmt.Errorf("unknown osd kind %q", s)
	}
}

const (
	OSDTimeout = 1500 * time.Millisecond

	// fadeFraction is the tail of the OSD's life spent fading out.
	fadeFraction = 0.2
)

// OSD is a short-lived volume or brightness indicator.
type OSD struct {
	Kind      OSDKind
	Value     int
	CreatedAt time.Time
	Timeout   time.Duration
}

// NewOSD builds an indicator created at now. Mute always carries value 0.
func NewOSD(kind OSDKind, value int, now time.Time) *OSD {
	if kind == OSDMute {
		value = 0
	}
	return &OSD{
		Kind:      kind,
		Value:     clampProgress(value),
		CreatedAt: now,
		Timeout:   OSDTimeout,
	}
}

func (o *OSD) IsExpired(now time.Time) bool {
	return now.Sub(o.CreatedAt) > o.Timeout
}

// Opacity is 1 for most of the OSD's life and falls linearly to 0 over the
// final fifth.
func (o *OSD) Opacity(now time.Time) float64 {
	remaining := 1 - now.Sub(o.CreatedAt).Seconds()/o.Timeout.Seconds()
	if remaining < fadeFraction {
		return max(remaining/fadeFraction, 0)
	}
	return 1
}
