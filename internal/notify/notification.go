package notify

import (
	"fmt"
	"time"
)

// Urgency controls how long a toast stays on screen.
type Urgency int

const (
	Low Urgency = iota
	Normal
	Critical
)

func (u Urgency) String() string {
	switch u {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("urgency(%d)", int(u))
	}
}

// ParseUrgency accepts the names produced by String.
func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "low":
		return Low, nil
	case "", "normal":
		return Normal, nil
	case "critical":
		return Critical, nil
	default:
		return Normal, fmt.Errorf("unknown urgency %q", s)
	}
}

// DefaultTimeout is how long a Normal toast stays visible.
const DefaultTimeout = 5 * time.Second

// Action is a button offered on a toast.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Notification is a single toast. A zero Timeout never expires.
type Notification struct {
	ID        uint32        `json:"id"`
	AppName   string        `json:"app_name"`
	Summary   string        `json:"summary"`
	Body      string        `json:"body,omitempty"`
	Icon      string        `json:"icon,omitempty"`
	Urgency   Urgency       `json:"urgency"`
	Actions   []Action      `json:"actions,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Timeout   time.Duration `json:"timeout"`
	Progress  *int          `json:"progress,omitempty"`
}

// Option adjusts a notification under construction. Options apply in the
// order given, so WithTimeout after WithUrgency(Critical) wins.
type Option func(*Notification)

func WithUrgency(u Urgency) Option {
	return func(n *Notification) {
		n.Urgency = u
		if u == Critical {
			n.Timeout = 0
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(n *Notification) {
		if d < 0 {
			d = 0
		}
		n.Timeout = d
	}
}

func WithIcon(icon string) Option {
	return func(n *Notification) { n.Icon = icon }
}

func WithAction(id, label string) Option {
	return func(n *Notification) {
		n.Actions = append(n.Actions, Action{ID: id, Label: label})
	}
}

// WithProgress attaches a progress bar, clamped to 0..100.
func WithProgress(p int) Option {
	return func(n *Notification) {
		p = clampProgress(p)
		n.Progress = &p
	}
}

// New builds a notification with the default timeout and the given options.
// The id and creation time are assigned when it is added to a Daemon.
func New(app, summary, body string, opts ...Option) Notification {
	n := Notification{
		AppName: app,
		Summary: summary,
		Body:    body,
		Urgency: Normal,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

// IsExpired reports whether the toast has outlived its timeout.
func (n *Notification) IsExpired(now time.Time) bool {
	if n.Timeout == 0 {
		return false
	}
	return now.Sub(n.CreatedAt) > n.Timeout
}

// RemainingFraction decays linearly from 1 at creation to 0 at the timeout.
func (n *Notification) RemainingFraction(now time.Time) float64 {
	if n.Timeout == 0 {
		return 1
	}
	elapsed := now.Sub(n.CreatedAt).Seconds()
	return min(max(1-elapsed/n.Timeout.Seconds(), 0), 1)
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}
