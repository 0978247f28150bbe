package notify

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDaemon() (*Daemon, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	return NewDaemon(Options{Clock: clock.Now}), clock
}

func ids(ns []Notification) []uint32 {
	out := make([]uint32, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestNotifyAssignsMonotonicIDs(t *testing.T) {
	d, _ := newTestDaemon()
	id1 := d.Notify("App1", "Title1", "Body1")
	id2 := d.Notify("App2", "Title2", "Body2")
	if id1 != 1 || id2 != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", id1, id2)
	}
	if d.Count() != 2 {
		t.Fatalf("Count = %d, want 2", d.Count())
	}
	n, ok := d.Get(id2)
	if !ok || n.AppName != "App2" || n.Timeout != DefaultTimeout {
		t.Fatalf("Get(%d) = %+v, %v", id2, n, ok)
	}
}

func TestOverflowEvictsOldestIntoHistory(t *testing.T) {
	d, _ := newTestDaemon()
	for i := 0; i < 7; i++ {
		d.Notify("app", fmt.Sprintf("n%d", i), "")
	}
	if got := fmt.Sprint(ids(d.Visible())); got != "[3 4 5 6 7]" {
		t.Fatalf("visible = %s", got)
	}
	if got := fmt.Sprint(ids(d.History())); got != "[1 2]" {
		t.Fatalf("history = %s", got)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	d := NewDaemon(Options{MaxVisible: 1, MaxHistory: 3})
	for i := 0; i < 6; i++ {
		d.Notify("app", "s", "")
	}
	if got := fmt.Sprint(ids(d.History())); got != "[3 4 5]" {
		t.Fatalf("history = %s", got)
	}
}

func TestDismissAndDismissAll(t *testing.T) {
	d, _ := newTestDaemon()
	a := d.Notify("app", "a", "")
	b := d.Notify("app", "b", "")
	c := d.Notify("app", "c", "")

	if !d.Dismiss(b) {
		t.Fatal("Dismiss(b) = false")
	}
	if d.Dismiss(b) || d.Dismiss(99) {
		t.Fatal("dismissing a missing id reported success")
	}
	if got := fmt.Sprint(ids(d.Visible())); got != fmt.Sprint([]uint32{a, c}) {
		t.Fatalf("visible = %s", got)
	}

	if n := d.DismissAll(); n != 2 {
		t.Fatalf("DismissAll = %d", n)
	}
	if d.Count() != 0 {
		t.Fatal("toasts left after DismissAll")
	}
	if got := fmt.Sprint(ids(d.History())); got != fmt.Sprint([]uint32{b, a, c}) {
		t.Fatalf("history = %s", got)
	}
}

func TestUpdateOnlyTouchesSuppliedFields(t *testing.T) {
	d, _ := newTestDaemon()
	id := d.Notify("app", "Copying", "file.txt", WithProgress(10))

	over := 150
	if !d.Update(id, nil, nil, &over) {
		t.Fatal("Update = false")
	}
	n, _ := d.Get(id)
	if n.Summary != "Copying" || n.Body != "file.txt" || n.Progress == nil || *n.Progress != 100 {
		t.Fatalf("after progress update: %+v", n)
	}

	summary := "Done"
	d.Update(id, &summary, nil, nil)
	n, _ = d.Get(id)
	if n.Summary != "Done" || n.Body != "file.txt" {
		t.Fatalf("after summary update: %+v", n)
	}

	if d.Update(42, &summary, nil, nil) {
		t.Fatal("Update of missing id = true")
	}
}

func TestOptionsApplyInOrder(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{"default", nil, DefaultTimeout},
		{"critical", []Option{WithUrgency(Critical)}, 0},
		{"timeout then critical", []Option{WithTimeout(9 * time.Second), WithUrgency(Critical)}, 0},
		{"critical then timeout", []Option{WithUrgency(Critical), WithTimeout(9 * time.Second)}, 9 * time.Second},
		{"low keeps default", []Option{WithUrgency(Low)}, DefaultTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New("app", "s", "b", tt.opts...)
			if n.Timeout != tt.want {
				t.Fatalf("Timeout = %v, want %v", n.Timeout, tt.want)
			}
		})
	}

	n := New("app", "s", "b", WithIcon("camera"), WithAction("open", "Open"), WithAction("dismiss", "Dismiss"), WithProgress(-5))
	if n.Icon != "camera" || len(n.Actions) != 2 || n.Actions[1].ID != "dismiss" || *n.Progress != 0 {
		t.Fatalf("built notification = %+v", n)
	}
}

func TestCleanupExpiresByTimeout(t *testing.T) {
	d, clock := newTestDaemon()
	short := d.Notify("app", "short", "", WithTimeout(time.Second))
	normal := d.Notify("app", "normal", "")
	critical := d.Notify("app", "critical", "", WithUrgency(Critical))

	clock.Advance(time.Second)
	if d.Cleanup() != 0 {
		t.Fatal("toast expired exactly at its timeout")
	}
	clock.Advance(time.Millisecond)
	if d.Cleanup() != 1 {
		t.Fatal("short toast did not expire")
	}
	if _, ok := d.Get(short); ok {
		t.Fatal("expired toast still visible")
	}

	clock.Advance(time.Hour)
	d.Cleanup()
	if _, ok := d.Get(normal); ok {
		t.Fatal("normal toast survived an hour")
	}
	if _, ok := d.Get(critical); !ok {
		t.Fatal("critical toast expired")
	}
}

func TestRemainingFraction(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := Notification{CreatedAt: start, Timeout: 4 * time.Second}
	tests := []struct {
		after time.Duration
		want  float64
	}{
		{0, 1},
		{time.Second, 0.75},
		{2 * time.Second, 0.5},
		{4 * time.Second, 0},
		{10 * time.Second, 0},
	}
	for _, tt := range tests {
		if got := n.RemainingFraction(start.Add(tt.after)); got != tt.want {
			t.Fatalf("RemainingFraction(+%v) = %v, want %v", tt.after, got, tt.want)
		}
	}
	never := Notification{CreatedAt: start}
	if never.RemainingFraction(start.Add(time.Hour)) != 1 {
		t.Fatal("never-expiring toast decayed")
	}
}

func TestOSDOpacityAndExpiry(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o := NewOSD(OSDVolume, 140, start)
	if o.Value != 100 {
		t.Fatalf("Value = %d, want clamp to 100", o.Value)
	}
	if got := o.Opacity(start.Add(600 * time.Millisecond)); got != 1 {
		t.Fatalf("opacity mid-life = %v", got)
	}
	if got := o.Opacity(start.Add(1350 * time.Millisecond)); got < 0.49 || got > 0.51 {
		t.Fatalf("opacity while fading = %v, want ~0.5", got)
	}
	if o.IsExpired(start.Add(OSDTimeout)) {
		t.Fatal("expired at exactly the timeout")
	}
	if !o.IsExpired(start.Add(OSDTimeout + time.Millisecond)) {
		t.Fatal("not expired after the timeout")
	}
	if got := o.Opacity(start.Add(2 * OSDTimeout)); got != 0 {
		t.Fatalf("opacity after expiry = %v", got)
	}

	if m := NewOSD(OSDMute, 70, start); m.Value != 0 {
		t.Fatalf("mute value = %d", m.Value)
	}
}

func TestParseNames(t *testing.T) {
	for _, u := range []Urgency{Low, Normal, Critical} {
		got, err := ParseUrgency(u.String())
		if err != nil || got != u {
			t.Fatalf("ParseUrgency(%q) = %v, %v", u.String(), got, err)
		}
	}
	if _, err := ParseUrgency("urgent"); err == nil {
		t.Fatal("ParseUrgency accepted an unknown name")
	}
	for _, k := range []OSDKind{OSDVolume, OSDBrightness, OSDMute} {
		got, err := ParseOSDKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseOSDKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}

func TestHistoryPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json.zst")

	entries, err := LoadHistory(path)
	if err != nil || entries != nil {
		t.Fatalf("LoadHistory(missing) = %v, %v", entries, err)
	}

	d, _ := newTestDaemon()
	d.Notify("Screenshot", "Region captured", "Saved to Pictures/Screenshots", WithIcon("camera"))
	d.Notify("System", "Screen locked", "", WithUrgency(Critical), WithProgress(40))
	d.DismissAll()

	if err := SaveHistory(path, d.History()); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d entries", len(loaded))
	}
	if loaded[0].Summary != "Region captured" || loaded[0].Icon != "camera" {
		t.Fatalf("entry 0 = %+v", loaded[0])
	}
	if loaded[1].Urgency != Critical || loaded[1].Progress == nil || *loaded[1].Progress != 40 {
		t.Fatalf("entry 1 = %+v", loaded[1])
	}
	if !loaded[0].CreatedAt.Equal(d.History()[0].CreatedAt) {
		t.Fatal("creation time not preserved")
	}

	restored, _ := newTestDaemon()
	restored.RestoreHistory(loaded)
	if id := restored.Notify("app", "next", ""); id != 3 {
		t.Fatalf("id after restore = %d, want 3", id)
	}
}
