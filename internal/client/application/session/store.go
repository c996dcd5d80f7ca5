// Package session owns the client's single authenticated identity. State
// transitions happen on the event loop; State() may be read from anywhere.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/auth"
	"cabconnect/internal/shared/logger"
)

// placeholderToken is stored when the gateway authenticates without issuing a token.
const placeholderToken = "dummy-token"

// Loop is the part of eventloop.Loop the store needs.
type Loop interface {
	Post(fn func()) bool
	Call(ctx context.Context, fn func()) error
}

type Listener func(domain.SessionChange)

type Store struct {
	loop    Loop
	gateway out.Gateway
	storage out.SessionStorage
	log     *logger.Logger
	now     func() time.Time

	// epoch moves on every login, logout and expiry. A login that captured an
	// older epoch lost the race and is dropped.
	epoch atomic.Uint64

	mu        sync.RWMutex
	state     domain.SessionState
	listeners map[int]Listener
	nextID    int
}

type Option func(*Store)

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(loop Loop, gateway out.Gateway, storage out.SessionStorage, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		loop:      loop,
		gateway:   gateway,
		storage:   storage,
		log:       log,
		now:       time.Now,
		state:     domain.Loading(),
		listeners: map[int]Listener{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns a snapshot of the current session state.
func (s *Store) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the authenticated session, if any.
func (s *Store) Current() (domain.Session, bool) {
	st := s.State()
	if st.Status != domain.StatusAuthenticated || st.Session == nil {
		return domain.Session{}, false
	}
	return *st.Session, true
}

// Subscribe registers fn for every state change. fn runs on the event loop
// synchronously with the transition. The returned func unsubscribes.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Restore loads persisted material and settles the Loading state without
// talking to the gateway. Anything partial, malformed or expired is cleared.
func (s *Store) Restore(ctx context.Context) error {
	profile, token, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:  "session_load_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	sess, reason := s.validate(profile, token, err)
	wipe := reason != "" && (len(profile) > 0 || token != "")

	return s.loop.Call(ctx, func() {
		if s.State().Status != domain.StatusLoading {
			return
		}
		if sess == nil {
			if wipe {
				s.clearStorage(ctx)
			}
			s.log.Info(logger.Entry{
				Action:     "session_restore_discarded",
				Message:    "starting anonymous",
				Additional: map[string]any{"reason": reason},
			})
			s.set(domain.Anonymous(), domain.ReasonRestore)
			return
		}
		s.log.Info(logger.Entry{
			Action:     "session_restored",
			Message:    "restored session from storage",
			Additional: map[string]any{"username": sess.Username, "role": string(sess.Role)},
		})
		s.set(domain.Authenticated(*sess), domain.ReasonRestore)
	})
}

func (s *Store) validate(profile []byte, token string, loadErr error) (*domain.Session, string) {
	switch {
	case loadErr != nil:
		return nil, "storage unreadable"
	case len(profile) == 0 && token == "":
		return nil, "empty"
	case len(profile) == 0 || token == "":
		return nil, "partial"
	}
	sess, err := domain.UnmarshalSession(profile)
	if err != nil {
		return nil, err.Error()
	}
	if err := auth.Usable(token, s.now()); err != nil {
		return nil, "token: " + err.Error()
	}
	return &sess, ""
}

// Login authenticates against the gateway. Must not be called from the loop.
func (s *Store) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	epoch := s.epoch.Load()

	res, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:     "login_failed",
			Message:    err.Error(),
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"username": username, "kind": string(domain.Classify(err))},
		})
		return nil, err
	}
	if !res.Role.Valid() {
		return nil, &domain.DomainError{Op: "login", Reason: fmt.Sprintf("unsupported user type %q", res.Role), Err: domain.ErrUnknownRole}
	}

	sess := domain.NewSession(username, res.Role, res.Profile)
	raw, err := sess.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	token := res.Token
	if token == "" {
		token = placeholderToken
	}

	// Once the gateway has accepted the credentials the commit must either
	// happen and be reported, or not happen at all.
	commit := context.WithoutCancel(ctx)
	var applyErr error
	callErr := s.loop.Call(commit, func() {
		if !s.epoch.CompareAndSwap(epoch, epoch+1) {
			applyErr = domain.ErrSuperseded
			return
		}
		if err := s.storage.Save(commit, raw, token); err != nil {
			applyErr = fmt.Errorf("persist session: %w", err)
			return
		}
		s.set(domain.Authenticated(sess), domain.ReasonLogin)
	})
	if err := errors.Join(callErr, applyErr); err != nil {
		if errors.Is(err, domain.ErrSuperseded) {
			s.log.Info(logger.Entry{
				Action:     "login_superseded",
				Message:    "login result arrived after session ended",
				Additional: map[string]any{"username": username},
			})
		}
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:     "login_succeeded",
		Message:    "user logged in",
		Additional: map[string]any{"username": username, "role": string(sess.Role)},
	})
	return &sess, nil
}

// Register creates an account. It never authenticates.
func (s *Store) Register(ctx context.Context, r domain.Registration) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	msg, err := s.gateway.Register(ctx, out.RegisterInput{
		Username: r.Username,
		Password: r.Password,
		Role:     r.Role,
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
	})
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:     "register_failed",
			Message:    err.Error(),
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"username": r.Username},
		})
		return "", err
	}
	if msg == "" {
		msg = "Registration successful"
	}
	s.log.Info(logger.Entry{
		Action:     "register_succeeded",
		Message:    msg,
		Additional: map[string]any{"username": r.Username, "role": string(r.Role)},
	})
	return msg, nil
}

// Logout ends the session and waits until listeners have run.
func (s *Store) Logout(ctx context.Context) error {
	return s.loop.Call(ctx, func() { s.end(ctx, domain.ReasonLogout) })
}

// Expire ends the current session. It is safe to call from any goroutine and
// returns immediately.
func (s *Store) Expire() {
	s.loop.Post(func() { s.end(context.Background(), domain.ReasonExpired) })
}

// Generation identifies the current session. It changes on every login,
// logout and expiry.
func (s *Store) Generation() uint64 {
	return s.epoch.Load()
}

// ExpireGeneration is the unauthorized hook. gen is the Generation sampled
// when the rejected request was sent; a rejection aimed at a session that has
// already ended or been replaced is ignored.
func (s *Store) ExpireGeneration(gen uint64) {
	s.loop.Post(func() {
		if cur := s.epoch.Load(); cur != gen {
			s.log.Info(logger.Entry{
				Action:     "stale_unauthorized",
				Message:    "401 for a previous session ignored",
				Additional: map[string]any{"generation": gen, "current": cur},
			})
			return
		}
		s.end(context.Background(), domain.ReasonExpired)
	})
}

// end runs on the loop. Storage is cleared before listeners see the change.
func (s *Store) end(ctx context.Context, reason domain.ChangeReason) {
	s.epoch.Add(1)
	s.clearStorage(ctx)

	if s.State().Status != domain.StatusAuthenticated {
		return
	}
	s.log.Info(logger.Entry{
		Action:     "session_ended",
		Message:    "session ended",
		Additional: map[string]any{"reason": string(reason)},
	})
	s.set(domain.Anonymous(), reason)
}

func (s *Store) clearStorage(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.log.Error(logger.Entry{
			Action:  "session_clear_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}

func (s *Store) set(st domain.SessionState, reason domain.ChangeReason) {
	s.mu.Lock()
	s.state = st
	ls := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			ls = append(ls, fn)
		}
	}
	s.mu.Unlock()

	change := domain.SessionChange{State: st, Reason: reason}
	for _, fn := range ls {
		fn(change)
	}
}
