package paginator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeletionPolicy is the disposal action taken against the rendered
// artifact when a session ends. Fixed at session construction, consumed
// exactly once at session end.
type DeletionPolicy string

const (
	// DeleteControlMarks removes all control reactions from the
	// rendered message but keeps the message.
	DeleteControlMarks DeletionPolicy = "delete_marks"

	// DeleteRenderedArtifact deletes the rendered message itself.
	DeleteRenderedArtifact DeletionPolicy = "delete_message"

	// KeepControlMarks leaves the rendered message untouched.
	KeepControlMarks DeletionPolicy = "keep"
)

// Valid reports whether p is a recognized deletion policy.
func (p DeletionPolicy) Valid() bool {
	switch p {
	case DeleteControlMarks, DeleteRenderedArtifact, KeepControlMarks:
		return true
	}
	return false
}

// State is the lifecycle state of a session. Transitions run strictly
// forward: Active -> Completed -> Disposed.
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateDisposed  State = "disposed"
)

// CompletionReason records what ended a session.
type CompletionReason string

const (
	// ReasonTimeout means the session's timeout elapsed with no stop
	// control received.
	ReasonTimeout CompletionReason = "timeout"

	// ReasonStopped means a stop control or an explicit Stop call ended
	// the session.
	ReasonStopped CompletionReason = "stopped"
)

// RenderTarget identifies the externally owned rendered message a
// session is attached to. The session only holds this reference for
// issuing cleanup calls; the message itself is owned by the transport.
type RenderTarget struct {
	ChannelID string
	MessageID string
}

// Cleaner issues the remote cleanup primitives a deletion policy needs.
// Both calls may fail; failure never blocks session disposal.
type Cleaner interface {
	RemoveAllControlMarks(ctx context.Context, target RenderTarget) error
	DeleteArtifact(ctx context.Context, target RenderTarget) error
}

// Options configures a new session.
type Options struct {
	// Pages is the ordered content of the session. Required, length >= 1.
	Pages []Page

	// Owner is the identity of the single user permitted to drive
	// navigation. Required. Input from other users is filtered upstream
	// by the collector.
	Owner string

	// Behavior governs boundary handling. Defaults to Clamp.
	Behavior BoundaryBehavior

	// DeletionPolicy selects the disposal action. Defaults to
	// DeleteControlMarks.
	DeletionPolicy DeletionPolicy

	// Timeout bounds the session's lifetime, counted from creation.
	// Defaults to 5 minutes.
	Timeout time.Duration

	// Bindings maps input tokens to control actions. Defaults to the
	// emoji reaction set.
	Bindings BindingSet

	// Target is the rendered message the session is attached to.
	// Required.
	Target RenderTarget

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger
}

// Validate checks the options and applies defaults.
func (o *Options) Validate() error {
	if len(o.Pages) == 0 {
		return ErrInvalidInput("at least one page is required", nil)
	}
	if o.Owner == "" {
		return ErrInvalidInput("owner is required", nil)
	}
	if o.Target.ChannelID == "" || o.Target.MessageID == "" {
		return ErrInvalidInput("render target channel and message IDs are required", nil)
	}
	if o.Behavior == "" {
		o.Behavior = Clamp
	}
	if !o.Behavior.Valid() {
		return ErrInvalidInput("unknown boundary behavior: "+string(o.Behavior), nil)
	}
	if o.DeletionPolicy == "" {
		o.DeletionPolicy = DeleteControlMarks
	}
	if !o.DeletionPolicy.Valid() {
		return ErrInvalidInput("unknown deletion policy: "+string(o.DeletionPolicy), nil)
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.Bindings == nil {
		o.Bindings = NewEmojiBindings()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// Session is one active pagination interaction bound to one rendered
// message and one controlling user.
//
// All navigation state and the completion signal live behind one mutex:
// RegisterControl, Stop, and the timeout callback contend for the same
// critical section, so completion is a total barrier on navigation. Two
// sessions never share any state.
type Session struct {
	id       uuid.UUID
	store    *PageStore
	owner    string
	policy   DeletionPolicy
	bindings BindingSet
	timeout  time.Duration
	target   RenderTarget
	logger   *slog.Logger

	mu        sync.Mutex
	nav       *navigator
	state     State
	reason    CompletionReason
	timer     *time.Timer
	done      chan struct{}
	startedAt time.Time
}

// CreateSession builds and activates a session. The timeout clock starts
// immediately: the session completes on its own when the timeout elapses
// with no stop control received.
func CreateSession(opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	store, err := NewPageStore(opts.Pages)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.New(),
		store:     store,
		owner:     opts.Owner,
		policy:    opts.DeletionPolicy,
		bindings:  opts.Bindings,
		timeout:   opts.Timeout,
		target:    opts.Target,
		nav:       newNavigator(store.PageCount(), opts.Behavior),
		state:     StateActive,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	s.logger = opts.Logger.With("component", "session", "session_id", s.id.String())

	s.timer = time.AfterFunc(opts.Timeout, func() {
		if s.complete(ReasonTimeout) {
			s.logger.Debug("session timed out", "timeout", opts.Timeout)
		}
	})

	s.logger.Debug("session created",
		"pages", store.PageCount(),
		"owner", opts.Owner,
		"behavior", opts.Behavior,
		"deletion_policy", opts.DeletionPolicy,
		"bindings", opts.Bindings.Kind())

	return s, nil
}

// ID returns the session's identity, used for log correlation.
func (s *Session) ID() uuid.UUID { return s.id }

// Owner returns the identity of the user permitted to drive navigation.
func (s *Session) Owner() string { return s.owner }

// Target returns the rendered message the session is attached to.
func (s *Session) Target() RenderTarget { return s.target }

// Bindings returns the session's control binding set.
func (s *Session) Bindings() BindingSet { return s.bindings }

// DeletionPolicy returns the disposal action fixed at construction.
func (s *Session) DeletionPolicy() DeletionPolicy { return s.policy }

// CurrentPageCount returns the fixed number of pages.
func (s *Session) CurrentPageCount() int { return s.store.PageCount() }

// StartedAt returns the session's activation time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns what ended the session. Empty while the session is
// still active.
func (s *Session) Reason() CompletionReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// CurrentPage returns the page at the current index.
func (s *Session) CurrentPage() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PageAt(s.nav.index)
}

// RegisterControl applies one recognized input token to the navigation
// state machine and returns the page to render plus whether the session
// is still active. A stop token completes the session and reports
// stillActive false.
//
// After completion the session rejects all controls with a
// SESSION_INACTIVE error and mutates nothing. Unrecognized tokens
// produce a CAPABILITY_ERROR and leave the index unchanged.
func (s *Session) RegisterControl(token string) (Page, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return Page{}, false, ErrSessionInactive("control registered after session end")
	}

	action, err := s.bindings.Resolve(token)
	if err != nil {
		return Page{}, true, err
	}

	switch action {
	case ActionFirst:
		s.nav.jumpToFirst()
	case ActionPrevious:
		s.nav.retreat()
	case ActionNext:
		s.nav.advance()
	case ActionLast:
		s.nav.jumpToLast()
	case ActionStop:
		s.completeLocked(ReasonStopped)
		return s.store.PageAt(s.nav.index), false, nil
	}

	return s.store.PageAt(s.nav.index), true, nil
}

// Stop completes the session immediately, equivalent to the timeout
// elapsing. Safe to call any number of times and safe to race with the
// timeout: completion fires exactly once.
func (s *Session) Stop() {
	s.complete(ReasonStopped)
}

// WaitUntilComplete blocks until the session completes, via timeout or
// stop. It returns promptly on completion and never holds the session
// mutex while blocked. The context lets the caller abandon the wait
// without ending the session.
func (s *Session) WaitUntilComplete(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ErrTimeout("wait for session completion cancelled", ctx.Err())
	}
}

// Dispose executes the session's deletion policy exactly once and moves
// the session to Disposed. An Active session is stopped first. Cleanup
// failure is returned as a TRANSPORT_ERROR but never blocks disposal:
// the session reaches Disposed on every path. Redundant calls are
// no-ops returning nil.
func (s *Session) Dispose(ctx context.Context, cleaner Cleaner) error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateActive {
		s.completeLocked(ReasonStopped)
	}
	s.state = StateDisposed
	policy := s.policy
	target := s.target
	s.mu.Unlock()

	var err error
	switch policy {
	case DeleteControlMarks:
		if cleaner == nil {
			return ErrInternal("no cleaner provided for deletion policy "+string(policy), nil)
		}
		err = cleaner.RemoveAllControlMarks(ctx, target)
	case DeleteRenderedArtifact:
		if cleaner == nil {
			return ErrInternal("no cleaner provided for deletion policy "+string(policy), nil)
		}
		err = cleaner.DeleteArtifact(ctx, target)
	case KeepControlMarks:
		// No remote call.
	}

	if err != nil {
		s.logger.Warn("cleanup failed",
			"deletion_policy", policy,
			"channel_id", target.ChannelID,
			"message_id", target.MessageID,
			"error", err)
		return ErrTransport("cleanup failed", err)
	}

	s.logger.Debug("session disposed", "deletion_policy", policy, "reason", s.Reason())
	return nil
}

// complete fires the completion signal if the session is still active.
// It reports whether this call was the one that completed the session.
func (s *Session) complete(reason CompletionReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(reason)
}

// completeLocked must be called with s.mu held. Completion disarms the
// timeout timer so a racing expiry does no further work; the state check
// keeps the signal one-shot regardless.
func (s *Session) completeLocked(reason CompletionReason) bool {
	if s.state != StateActive {
		return false
	}
	s.state = StateCompleted
	s.reason = reason
	s.timer.Stop()
	close(s.done)
	return true
}
