package lockscreen

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State is the lock screen's authentication state.
type State int

const (
	Unlocked State = iota
	Locked
	Authenticating
	AuthFailed
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	case Authenticating:
		return "authenticating"
	case AuthFailed:
		return "auth-failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultIdleTimeout = 300 * time.Second
	DefaultAuthTimeout = 5 * time.Second

	// MaxAttempts failed unlocks in a row start the lockout.
	MaxAttempts = 5

	lockoutStep = 30 * time.Second
	maxLockout  = 300 * time.Second

	maskChar = "●"
)

// Options configures a LockScreen.
type Options struct {
	User        string
	Avatar      string
	IdleTimeout time.Duration
	Auth        Authenticator
	AuthTimeout time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// LockScreen is the session lock state machine. It holds no drawing state;
// the renderer reads a View.
type LockScreen struct {
	state    State
	password []rune
	errMsg   string

	failedAttempts int
	lockoutUntil   time.Time
	lockedAt       time.Time

	idleTimeout  time.Duration
	lastActivity time.Time
	showPassword bool

	user        string
	avatar      string
	auth        Authenticator
	authTimeout time.Duration
	now         func() time.Time

	// pending receives the outcome of a verification started by InputEnter.
	pending chan bool
}

func New(opts Options) *LockScreen {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	idle := opts.IdleTimeout
	if idle == 0 {
		idle = DefaultIdleTimeout
	}
	authTimeout := opts.AuthTimeout
	if authTimeout <= 0 {
		authTimeout = DefaultAuthTimeout
	}
	return &LockScreen{
		state:        Unlocked,
		idleTimeout:  idle,
		lastActivity: clock(),
		user:         opts.User,
		avatar:       opts.Avatar,
		auth:         opts.Auth,
		authTimeout:  authTimeout,
		now:          clock,
	}
}

func (l *LockScreen) State() State { return l.state }

// IsLocked reports whether the lock screen is up in any state.
func (l *LockScreen) IsLocked() bool { return l.state != Unlocked }

func (l *LockScreen) FailedAttempts() int { return l.failedAttempts }

// Error returns the message shown under the password field.
func (l *LockScreen) Error() string { return l.errMsg }

func (l *LockScreen) IdleTimeout() time.Duration { return l.idleTimeout }

// SetIdleTimeout changes the idle lock delay. A negative value disables idle
// locking.
func (l *LockScreen) SetIdleTimeout(d time.Duration) {
	if d == 0 {
		d = DefaultIdleTimeout
	}
	l.idleTimeout = d
}

// SetAuthenticator swaps the password verifier.
func (l *LockScreen) SetAuthenticator(auth Authenticator) {
	l.auth = auth
}

// Lock engages the lock screen.
func (l *LockScreen) Lock() {
	l.state = Locked
	l.clearPassword()
	l.errMsg = ""
	l.showPassword = false
	l.lockedAt = l.now()
}

// TryUnlock checks password against the authenticator on the caller's
// goroutine. During a lockout the attempt is rejected without being counted.
func (l *LockScreen) TryUnlock(password string) bool {
	defer l.clearPassword()
	if !l.beginAttempt() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.authTimeout)
	defer cancel()
	return l.finishAttempt(verify(ctx, l.auth, l.user, password))
}

// beginAttempt refuses attempts during a lockout and clears an expired one
// together with the attempt counter.
func (l *LockScreen) beginAttempt() bool {
	now := l.now()
	if !l.lockoutUntil.IsZero() {
		if now.Before(l.lockoutUntil) {
			remaining := l.lockoutUntil.Sub(now)
			l.errMsg = fmt.Sprintf("Too many attempts. Try again in %ds", int(remaining.Seconds()))
			return false
		}
		l.lockoutUntil = time.Time{}
		l.failedAttempts = 0
	}
	l.state = Authenticating
	return true
}

func (l *LockScreen) finishAttempt(ok bool) bool {
	now := l.now()
	if ok {
		l.state = Unlocked
		l.failedAttempts = 0
		l.lockoutUntil = time.Time{}
		l.lockedAt = time.Time{}
		l.errMsg = ""
		l.lastActivity = now
		return true
	}

	l.failedAttempts++
	l.state = AuthFailed
	if l.failedAttempts >= MaxAttempts {
		lockout := min(lockoutStep*time.Duration(l.failedAttempts-MaxAttempts+1), maxLockout)
		l.lockoutUntil = now.Add(lockout)
		l.errMsg = fmt.Sprintf("Too many failed attempts. Locked for %ds", int(lockout.Seconds()))
	} else {
		l.errMsg = fmt.Sprintf("Incorrect password (%d/%d attempts)", l.failedAttempts, MaxAttempts)
	}
	return false
}

func verify(ctx context.Context, auth Authenticator, user, password string) bool {
	if auth == nil {
		return false
	}
	return auth.Verify(ctx, user, password)
}

// Poll applies the outcome of a verification started by InputEnter once it
// is available. done reports whether an attempt finished; unlocked whether
// it opened the session.
func (l *LockScreen) Poll() (done, unlocked bool) {
	if l.pending == nil {
		return false, false
	}
	select {
	case ok := <-l.pending:
		l.pending = nil
		return true, l.finishAttempt(ok)
	default:
		return false, false
	}
}

// InputChar appends r to the password buffer. Typing after a failed attempt
// returns to the Locked state first.
func (l *LockScreen) InputChar(r rune) {
	if !l.acceptsInput() {
		return
	}
	l.password = append(l.password, r)
}

// InputBackspace deletes the last typed character.
func (l *LockScreen) InputBackspace() {
	if !l.acceptsInput() {
		return
	}
	if n := len(l.password); n > 0 {
		l.password[n-1] = 0
		l.password = l.password[:n-1]
	}
}

func (l *LockScreen) acceptsInput() bool {
	switch l.state {
	case Locked:
		return true
	case AuthFailed:
		l.state = Locked
		l.errMsg = ""
		return true
	default:
		return false
	}
}

// InputEnter submits the typed password and returns at once. The
// authenticator runs on its own goroutine while the state is Authenticating;
// Poll applies the result. It reports whether an attempt was started.
func (l *LockScreen) InputEnter() bool {
	if l.state != Locked && l.state != AuthFailed {
		return false
	}
	password := string(l.password)
	l.clearPassword()
	if !l.beginAttempt() {
		return false
	}

	result := make(chan bool, 1)
	auth, user, timeout := l.auth, l.user, l.authTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result <- verify(ctx, auth, user, password)
	}()
	l.pending = result
	return true
}

// clearPassword zeroes the typed runes before dropping them.
func (l *LockScreen) clearPassword() {
	clear(l.password)
	l.password = l.password[:0]
}

// InputEscape discards the typed password and any error.
func (l *LockScreen) InputEscape() {
	l.clearPassword()
	l.errMsg = ""
	if l.state == AuthFailed {
		l.state = Locked
	}
}

// ToggleShowPassword switches between the masked and plain password display.
func (l *LockScreen) ToggleShowPassword() {
	l.showPassword = !l.showPassword
}

// RegisterActivity resets the idle timer.
func (l *LockScreen) RegisterActivity() {
	l.lastActivity = l.now()
}

// ShouldIdleLock reports whether the session has been idle long enough to
// lock.
func (l *LockScreen) ShouldIdleLock() bool {
	if l.state != Unlocked || l.idleTimeout < 0 {
		return false
	}
	return l.now().Sub(l.lastActivity) > l.idleTimeout
}

// IsLockedOut reports whether unlock attempts are currently refused.
func (l *LockScreen) IsLockedOut() bool {
	return !l.lockoutUntil.IsZero() && l.now().Before(l.lockoutUntil)
}

// LockoutRemaining returns how long attempts stay refused.
func (l *LockScreen) LockoutRemaining() time.Duration {
	if !l.IsLockedOut() {
		return 0
	}
	return l.lockoutUntil.Sub(l.now())
}

// TimeLocked returns how long the screen has been locked.
func (l *LockScreen) TimeLocked() time.Duration {
	if l.lockedAt.IsZero() {
		return 0
	}
	return l.now().Sub(l.lockedAt)
}

// DisplayPassword returns the password as it should be drawn.
func (l *LockScreen) DisplayPassword() string {
	if l.showPassword {
		return string(l.password)
	}
	return strings.Repeat(maskChar, len(l.password))
}

// View is a snapshot of what the lock screen shows.
type View struct {
	State            State
	User             string
	Avatar           string
	Password         string
	Error            string
	LockedFor        time.Duration
	LockoutRemaining time.Duration
}

func (l *LockScreen) View() View {
	return View{
		State:            l.state,
		User:             l.user,
		Avatar:           l.avatar,
		Password:         l.DisplayPassword(),
		Error:            l.errMsg,
		LockedFor:        l.TimeLocked(),
		LockoutRemaining: l.LockoutRemaining(),
	}
}
