package submit

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/session"
)

// State is the lifecycle of a single submission.
type State string

const (
	Idle      State = "idle"
	InFlight  State = "in_flight"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// DefaultSessionHint is appended to session fault messages.
const DefaultSessionHint = "Please log in again."

// CallFunc performs the remote call for a snapshot.
type CallFunc func(ctx context.Context, snapshot form.Snapshot) (any, error)

// RefreshFunc reconciles local state with the authoritative entity after a
// successful call.
type RefreshFunc func(ctx context.Context) error

// CompletionFunc is notified once per successful submission.
type CompletionFunc func()

// Recorder receives one observation per finished attempt.
type Recorder interface {
	Submission(form string, outcome string, elapsed time.Duration)
}

// Outcome describes what a Submit call did.
type Outcome struct {
	AttemptID string
	State     State
	// Skipped is set when another submission was already in flight.
	Skipped bool
	// Discarded is set when the controller was torn down before the call
	// resolved; nothing was written back.
	Discarded bool
	Result    any
	Message   string
	Hint      string
	Kind      faults.Kind
	Err       error
}

// Submitter issues at most one remote call at a time and writes the result back
// into a form store.
type Submitter struct {
	name       string
	store      *form.Store
	call       CallFunc
	refresh    RefreshFunc
	onComplete CompletionFunc
	guard      *session.Guard
	fallback   string
	success    string
	hint       string
	logger     *zap.Logger
	recorder   Recorder
	listeners  []func(State)

	mu       sync.Mutex
	state    State
	inflight atomic.Bool
	detached atomic.Bool
}

// New builds a submitter writing feedback into store.
func New(name string, store *form.Store, call CallFunc, opts ...Option) *Submitter {
	s := &Submitter{
		name:     name,
		store:    store,
		call:     call,
		fallback: "Submission failed",
		hint:     DefaultSessionHint,
		logger:   zap.NewNop(),
		state:    Idle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns the current submission state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InFlight reports whether a call is outstanding.
func (s *Submitter) InFlight() bool {
	return s.inflight.Load()
}

// Touch marks the start of a new edit: a finished submission returns to Idle.
// An in-flight submission is unaffected.
func (s *Submitter) Touch() {
	s.mu.Lock()
	changed := false
	if s.state == Succeeded || s.state == Failed {
		s.state = Idle
		changed = true
	}
	s.mu.Unlock()
	if changed {
		s.emit(Idle)
	}
}

// Detach suppresses every write-back from calls that resolve afterwards.
func (s *Submitter) Detach() {
	s.detached.Store(true)
}

// Submit sends snapshot. Callers gate on validation before calling.
func (s *Submitter) Submit(ctx context.Context, snapshot form.Snapshot) Outcome {
	if s.detached.Load() {
		return Outcome{State: s.State(), Discarded: true}
	}
	if !s.inflight.CompareAndSwap(false, true) {
		s.logger.Debug("submission already in flight", zap.String("form", s.name))
		return Outcome{State: InFlight, Skipped: true}
	}
	defer s.inflight.Store(false)

	attempt := uuid.NewString()
	logger := s.logger.With(zap.String("form", s.name), zap.String("attempt", attempt))
	start := time.Now()

	s.setState(InFlight)
	s.store.ClearFeedback()
	logger.Debug("submission started")

	result, err := s.invoke(ctx, snapshot)

	if s.detached.Load() {
		logger.Debug("discarding result after teardown", zap.Error(err))
		if err != nil {
			s.guard.OnFailure(err)
		}
		return Outcome{AttemptID: attempt, State: s.State(), Discarded: true, Err: err}
	}

	if err != nil {
		return s.fail(logger, attempt, start, err)
	}

	s.setState(Succeeded)
	if s.success != "" {
		s.store.SetSuccess(s.success)
	}
	logger.Info("submission succeeded", zap.Duration("elapsed", time.Since(start)))
	s.observe("succeeded", start)
	if s.onComplete != nil {
		s.onComplete()
	}

	return Outcome{
		AttemptID: attempt,
		State:     Succeeded,
		Result:    result,
		Message:   s.success,
	}
}

func (s *Submitter) invoke(ctx context.Context, snapshot form.Snapshot) (any, error) {
	if s.call == nil {
		return nil, faults.New(faults.KindTransport, "")
	}
	result, err := s.call(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if s.refresh != nil {
		if err := s.refresh(ctx); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// fail records the failure before consulting the session guard so the message
// is visible even when a logout follows.
func (s *Submitter) fail(logger *zap.Logger, attempt string, start time.Time, err error) Outcome {
	kind := faults.KindOf(err)
	message := faults.MessageOf(err, s.fallback)
	hint := ""
	if faults.IsSession(err) {
		hint = s.hint
	}

	messages := append([]string{message}, s.fieldMessages(err)...)
	s.store.SetErrors(hint, messages...)
	s.setState(Failed)

	logger.Warn("submission failed",
		zap.String("kind", string(kind)),
		zap.String("message", message),
		zap.Error(err),
	)
	s.observe("failed_"+string(kind), start)

	s.guard.OnFailure(err)

	return Outcome{
		AttemptID: attempt,
		State:     Failed,
		Message:   message,
		Hint:      hint,
		Kind:      kind,
		Err:       err,
	}
}

// fieldMessages flattens server-side field messages in schema order.
func (s *Submitter) fieldMessages(err error) []string {
	fields := faults.FieldMessages(err)
	if len(fields) == 0 {
		return nil
	}
	order := make(map[string]int)
	for i, name := range s.store.Schema().Names() {
		order[name] = i
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, iok := order[names[i]]
		oj, jok := order[names[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	var out []string
	for _, name := range names {
		out = append(out, fields[name]...)
	}
	return out
}

func (s *Submitter) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emit(state)
}

func (s *Submitter) emit(state State) {
	for _, fn := range s.listeners {
		fn(state)
	}
}

func (s *Submitter) observe(outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.Submission(s.name, outcome, time.Since(start))
	}
}
