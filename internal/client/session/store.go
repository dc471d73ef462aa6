// Package session holds the client's two independent identities: the resident
// session mirrored from the identity provider and the locally persisted admin
// session. Consumers read the resolved model.Session and subscribe to changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

const (
	// AdminKey holds the persisted {id, username, role} admin record.
	AdminKey = "adminSession"
	// UserKey mirrors the provider session between runs.
	UserKey = "userSession"
)

// Provider is the remote identity provider.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (model.UserSession, error)
	SignIn(ctx context.Context, email, password string) (model.UserSession, error)
	VerifyMFA(ctx context.Context, factorID, code string) (model.UserSession, error)
	SendPhoneCode(ctx context.Context, phone string) error
	VerifyPhoneCode(ctx context.Context, phone, code string) (model.UserSession, error)
	FederatedURL(ctx context.Context, returnTo string) (string, error)
	CurrentSession(ctx context.Context, token string) (model.UserSession, error)
	SignOut(ctx context.Context, token string) error
	AdminLogin(ctx context.Context, username, password string) (model.AdminSession, error)
}

// Watcher is implemented by providers that push session changes (refreshes,
// sign-outs elsewhere). A nil value means signed out. The channel must be
// closed once ctx is done.
type Watcher interface {
	SessionChanges(ctx context.Context) <-chan *model.UserSession
}

// Store is the session-state service. Construct one per process with Open.
type subscriber struct {
	id int
	fn func(model.Session)
}

type Store struct {
	provider Provider
	storage  Storage
	log      *zap.Logger
	now      func() time.Time

	mu    sync.RWMutex
	user  *model.UserSession
	admin *model.AdminSession

	// apply serializes state changes and their enqueueing, so pending holds
	// snapshots in the order they were applied.
	apply sync.Mutex

	// subMu guards the subscriber list and the delivery queue. It is never held
	// while a subscriber runs, so subscribers may call back into the Store.
	subMu    sync.Mutex
	subs     []subscriber
	nextID   int
	pending  []model.Session
	draining bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Open restores persisted sessions and starts following provider changes.
func Open(ctx context.Context, p Provider, st Storage, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		provider: p,
		storage:  st,
		log:      log,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	s.admin = s.loadAdmin()
	s.user = s.restoreUser(ctx)

	wctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if w, ok := p.(Watcher); ok {
		go s.follow(w.SessionChanges(wctx))
	} else {
		close(s.done)
	}
	return s, nil
}

func (s *Store) loadAdmin() *model.AdminSession {
	raw, err := s.storage.Load(AdminKey)
	if err != nil {
		if !errors.Is(err, ErrNoValue) {
			s.log.Warn("admin session unreadable", zap.Error(err))
		}
		return nil
	}
	var a model.AdminSession
	if err := json.Unmarshal(raw, &a); err != nil || !a.Valid() {
		s.log.Warn("discarding corrupt admin session")
		_ = s.storage.Remove(AdminKey)
		return nil
	}
	return &a
}

// restoreUser revalidates the mirrored token with the provider.
func (s *Store) restoreUser(ctx context.Context) *model.UserSession {
	raw, err := s.storage.Load(UserKey)
	if err != nil {
		return nil
	}
	var us model.UserSession
	if err := json.Unmarshal(raw, &us); err != nil || us.AccessToken == "" || us.Expired(s.now()) {
		_ = s.storage.Remove(UserKey)
		return nil
	}
	fresh, err := s.provider.CurrentSession(ctx, us.AccessToken)
	switch {
	case err == nil:
		return &fresh
	case errors.Is(err, errs.ErrUnauthorized), errors.Is(err, errs.ErrForbidden):
		_ = s.storage.Remove(UserKey)
		return nil
	default:
		// provider unreachable: keep the mirror until it expires
		s.log.Warn("session check failed", zap.Error(err))
		return &us
	}
}

func (s *Store) follow(ch <-chan *model.UserSession) {
	defer close(s.done)
	for us := range ch {
		s.setUser(us)
	}
}

// Close stops following provider changes and drops all subscribers.
func (s *Store) Close() {
	s.cancel()
	<-s.done
	s.subMu.Lock()
	s.subs = nil
	s.subMu.Unlock()
}

// Current resolves the active session. An expired user session counts as absent.
func (s *Store) Current() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user := s.user
	if user != nil && user.Expired(s.now()) {
		user = nil
	}
	return model.Resolve(user, s.admin)
}

// Token returns the bearer of the active session.
func (s *Store) Token() string {
	switch cur := s.Current().(type) {
	case model.Admin:
		return cur.Token
	case model.Resident:
		return cur.AccessToken
	default:
		return ""
	}
}

// Subscribe registers fn for every change. Subscribers run in subscription
// order and see changes in the order they were applied. fn may call back into
// the Store; a change it causes is delivered after the current one.
// The returned func unsubscribes.
func (s *Store) Subscribe(fn func(model.Session)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
		s.subMu.Unlock()
	}
}

func (s *Store) setUser(us *model.UserSession) {
	defer s.deliver()
	s.apply.Lock()
	defer s.apply.Unlock()

	s.mu.Lock()
	s.user = us
	s.mu.Unlock()

	if us == nil {
		_ = s.storage.Remove(UserKey)
	} else if raw, err := json.Marshal(us); err == nil {
		if err := s.storage.Save(UserKey, raw); err != nil {
			s.log.Warn("persist user session", zap.Error(err))
		}
	}
	s.enqueue()
}

func (s *Store) setAdmin(a *model.AdminSession) error {
	defer s.deliver()
	s.apply.Lock()
	defer s.apply.Unlock()

	var err error
	if a == nil {
		err = s.storage.Remove(AdminKey)
	} else {
		var raw []byte
		if raw, err = json.Marshal(a); err == nil {
			err = s.storage.Save(AdminKey, raw)
		}
	}

	s.mu.Lock()
	s.admin = a
	s.mu.Unlock()

	s.enqueue()
	return err
}

// enqueue snapshots the resolved session. Callers hold apply.
func (s *Store) enqueue() {
	cur := s.Current()
	s.subMu.Lock()
	s.pending = append(s.pending, cur)
	s.subMu.Unlock()
}

// deliver drains the queue unless another call is already draining it.
func (s *Store) deliver() {
	s.subMu.Lock()
	if s.draining {
		s.subMu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		cur := s.pending[0]
		s.pending = s.pending[1:]
		subs := slices.Clone(s.subs)
		s.subMu.Unlock()
		for _, sub := range subs {
			sub.fn(cur)
		}
		s.subMu.Lock()
	}
	s.draining = false
	s.subMu.Unlock()
}

func (s *Store) established(us model.UserSession, err error) (model.UserSession, error) {
	if err != nil {
		return model.UserSession{}, err
	}
	s.setUser(&us)
	return us, nil
}

func (s *Store) SignUp(ctx context.Context, email, password string) (model.UserSession, error) {
	return s.established(s.provider.SignUp(ctx, email, password))
}

// SignIn returns errs.ErrMFARequired (with the factor id in the message) when a second factor is due.
func (s *Store) SignIn(ctx context.Context, email, password string) (model.UserSession, error) {
	return s.established(s.provider.SignIn(ctx, email, password))
}

func (s *Store) VerifyMFA(ctx context.Context, factorID, code string) (model.UserSession, error) {
	return s.established(s.provider.VerifyMFA(ctx, factorID, code))
}

// SignInWithPhone sends a one-time code to phone.
func (s *Store) SignInWithPhone(ctx context.Context, phone string) error {
	return s.provider.SendPhoneCode(ctx, phone)
}

// VerifyOtp completes a phone sign-in.
func (s *Store) VerifyOtp(ctx context.Context, phone, code string) (model.UserSession, error) {
	return s.established(s.provider.VerifyPhoneCode(ctx, phone, code))
}

// SignInWithGoogle returns the URL to send the user to.
func (s *Store) SignInWithGoogle(ctx context.Context, returnTo string) (string, error) {
	return s.provider.FederatedURL(ctx, returnTo)
}

// CompleteFederated adopts the token handed back by the provider callback.
func (s *Store) CompleteFederated(ctx context.Context, token string) (model.UserSession, error) {
	if token == "" {
		return model.UserSession{}, errs.ErrUnauthorized
	}
	return s.established(s.provider.CurrentSession(ctx, token))
}

// AdminSignIn checks credentials and persists the admin record.
func (s *Store) AdminSignIn(ctx context.Context, username, password string) (model.AdminSession, error) {
	a, err := s.provider.AdminLogin(ctx, username, password)
	if err != nil {
		return model.AdminSession{}, err
	}
	if !a.Valid() {
		return model.AdminSession{}, errs.ErrUnauthorized
	}
	if err := s.setAdmin(&a); err != nil {
		return a, err
	}
	return a, nil
}

// SignOut clears the admin record first, then signs out of the provider. The
// admin record is gone even when the provider call fails.
func (s *Store) SignOut(ctx context.Context) error {
	adminErr := s.setAdmin(nil)

	s.mu.RLock()
	user := s.user
	s.mu.RUnlock()
	if user == nil {
		return adminErr
	}
	provErr := s.provider.SignOut(ctx, user.AccessToken)
	s.setUser(nil)
	return errors.Join(adminErr, provErr)
}
