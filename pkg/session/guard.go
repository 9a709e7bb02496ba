package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/faults"
)

// LogoutFunc terminates the process-wide session.
type LogoutFunc func()

// Observer is notified every time the guard forces a logout.
type Observer interface {
	Logout(kind faults.Kind)
}

// Guard turns session faults into a single logout per session epoch. One guard
// is shared by every form controller in a process.
type Guard struct {
	mu       sync.Mutex
	logout   LogoutFunc
	fired    bool
	logger   *zap.Logger
	observer Observer
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used to report forced logouts.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver registers an observer, typically a metrics recorder.
func WithObserver(observer Observer) Option {
	return func(g *Guard) {
		g.observer = observer
	}
}

// NewGuard builds a guard around logout.
//
// The guard latches after the first session fault: later faults are ignored
// until Reset. Hosts that let the user sign in again must call Reset once the
// new session is established, or a later real expiry will not log out.
func NewGuard(logout LogoutFunc, opts ...Option) *Guard {
	g := &Guard{
		logout: logout,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// OnFailure inspects err and, when it is a session fault, runs logout unless it
// already ran in the current epoch. It reports whether err was a session fault.
func (g *Guard) OnFailure(err error) bool {
	if g == nil || !faults.IsSession(err) {
		return false
	}
	kind := faults.KindOf(err)

	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		g.logger.Debug("session already terminated", zap.String("kind", string(kind)))
		return true
	}
	g.fired = true
	logout := g.logout
	g.mu.Unlock()

	g.logger.Info("session fault, logging out", zap.String("kind", string(kind)))
	if logout != nil {
		logout()
	}
	if g.observer != nil {
		g.observer.Logout(kind)
	}
	return true
}

// Terminated reports whether logout ran in the current epoch.
func (g *Guard) Terminated() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

// Reset starts a new epoch, for example after the user logs in again.
func (g *Guard) Reset() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.fired = false
	g.mu.Unlock()
}
