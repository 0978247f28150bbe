package notify

import "time"

const (
	DefaultMaxVisible = 5
	DefaultMaxHistory = 50
)

// Options configures a Daemon. Zero values select the defaults.
type Options struct {
	MaxVisible     int
	MaxHistory     int
	DefaultTimeout time.Duration
	Clock          func() time.Time
}

// Daemon holds the visible toasts, oldest first, and the dismissal history.
type Daemon struct {
	active  []Notification
	history []Notification
	nextID  uint32

	maxVisible     int
	maxHistory     int
	defaultTimeout time.Duration
	now            func() time.Time
}

func NewDaemon(opts Options) *Daemon {
	d := &Daemon{
		nextID:         1,
		maxVisible:     opts.MaxVisible,
		maxHistory:     opts.MaxHistory,
		defaultTimeout: opts.DefaultTimeout,
		now:            opts.Clock,
	}
	if d.maxVisible <= 0 {
		d.maxVisible = DefaultMaxVisible
	}
	if d.maxHistory <= 0 {
		d.maxHistory = DefaultMaxHistory
	}
	if d.defaultTimeout <= 0 {
		d.defaultTimeout = DefaultTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Notify posts a toast built from the daemon's default timeout and opts and
// returns its id.
func (d *Daemon) Notify(app, summary, body string, opts ...Option) uint32 {
	n := New(app, summary, body, append([]Option{WithTimeout(d.defaultTimeout)}, opts...)...)
	return d.Add(n)
}

// Add posts a fully built notification, assigning it the next id. Overflow
// beyond the visible limit moves the oldest toasts to history.
func (d *Daemon) Add(n Notification) uint32 {
	n.ID = d.nextID
	d.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	d.active = append(d.active, n)
	for len(d.active) > d.maxVisible {
		old := d.active[0]
		d.active = d.active[1:]
		d.addToHistory(old)
	}
	return n.ID
}

// Dismiss moves the toast with id to history. Unknown ids are ignored.
func (d *Daemon) Dismiss(id uint32) bool {
	for i := range d.active {
		if d.active[i].ID != id {
			continue
		}
		n := d.active[i]
		d.active = append(d.active[:i], d.active[i+1:]...)
		d.addToHistory(n)
		return true
	}
	return false
}

// DismissAll moves every visible toast to history, oldest first.
func (d *Daemon) DismissAll() int {
	count := len(d.active)
	for _, n := range d.active {
		d.addToHistory(n)
	}
	d.active = nil
	return count
}

// Update changes only the supplied fields of a visible toast.
func (d *Daemon) Update(id uint32, summary, body *string, progress *int) bool {
	n := d.find(id)
	if n == nil {
		return false
	}
	if summary != nil {
		n.Summary = *summary
	}
	if body != nil {
		n.Body = *body
	}
	if progress != nil {
		p := clampProgress(*progress)
		n.Progress = &p
	}
	return true
}

// Cleanup dismisses every expired toast and returns how many went.
func (d *Daemon) Cleanup() int {
	now := d.now()
	var expired []uint32
	for i := range d.active {
		if d.active[i].IsExpired(now) {
			expired = append(expired, d.active[i].ID)
		}
	}
	for _, id := range expired {
		d.Dismiss(id)
	}
	return len(expired)
}

// Visible returns the active toasts, oldest first.
func (d *Daemon) Visible() []Notification {
	return append([]Notification(nil), d.active...)
}

func (d *Daemon) Count() int { return len(d.active) }

// History returns dismissed toasts, oldest first.
func (d *Daemon) History() []Notification {
	return append([]Notification(nil), d.history...)
}

// Get returns a visible toast by id.
func (d *Daemon) Get(id uint32) (Notification, bool) {
	if n := d.find(id); n != nil {
		return *n, true
	}
	return Notification{}, false
}

// Now returns the daemon's clock reading.
func (d *Daemon) Now() time.Time { return d.now() }

// RestoreHistory replaces the history with entries loaded from disk and makes
// sure new ids do not collide with them.
func (d *Daemon) RestoreHistory(entries []Notification) {
	d.history = nil
	for _, n := range entries {
		d.addToHistory(n)
		if n.ID >= d.nextID {
			d.nextID = n.ID + 1
		}
	}
}

func (d *Daemon) find(id uint32) *Notification {
	for i := range d.active {
		if d.active[i].ID == id {
			return &d.active[i]
		}
	}
	return nil
}

func (d *Daemon) addToHistory(n Notification) {
	d.history = append(d.history, n)
	if over := len(d.history) - d.maxHistory; over > 0 {
		d.history = append([]Notification(nil), d.history[over:]...)
	}
}
