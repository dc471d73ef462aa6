package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{data: map[string][]byte{}} }

func (m *memStorage) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNoValue
	}
	return v, nil
}
func (m *memStorage) Save(key string, v []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}
func (m *memStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeProvider struct {
	signInErr  error
	signOutErr error
	current    func(token string) (model.UserSession, error)
	signedOut  []string
	admin      model.AdminSession
	adminErr   error
	changes    chan *model.UserSession
}

func session(tok string) model.UserSession {
	return model.UserSession{AccessToken: tok, UserID: uuid.Must(uuid.NewV4()), ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fakeProvider) SignUp(_ context.Context, _, _ string) (model.UserSession, error) {
	return session("signup"), nil
}
func (f *fakeProvider) SignIn(_ context.Context, _, _ string) (model.UserSession, error) {
	if f.signInErr != nil {
		return model.UserSession{}, f.signInErr
	}
	return session("signin"), nil
}
func (f *fakeProvider) VerifyMFA(context.Context, string, string) (model.UserSession, error) {
	return session("mfa"), nil
}
func (f *fakeProvider) SendPhoneCode(context.Context, string) error { return nil }
func (f *fakeProvider) VerifyPhoneCode(context.Context, string, string) (model.UserSession, error) {
	return session("phone"), nil
}
func (f *fakeProvider) FederatedURL(_ context.Context, returnTo string) (string, error) {
	return "https://provider/consent?r=" + returnTo, nil
}
func (f *fakeProvider) CurrentSession(_ context.Context, token string) (model.UserSession, error) {
	if f.current != nil {
		return f.current(token)
	}
	return session(token), nil
}
func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}
func (f *fakeProvider) AdminLogin(context.Context, string, string) (model.AdminSession, error) {
	return f.admin, f.adminErr
}

type watchingProvider struct {
	*fakeProvider
}

func (w watchingProvider) SessionChanges(ctx context.Context) <-chan *model.UserSession {
	out := make(chan *model.UserSession)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case us := <-w.changes:
				select {
				case out <- us:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func validAdmin() model.AdminSession {
	return model.AdminSession{ID: uuid.Must(uuid.NewV4()), Username: "alice", Role: model.RoleAdmin, Token: "admin-tok"}
}

func open(t *testing.T, p Provider, st Storage) *Store {
	t.Helper()
	s, err := Open(context.Background(), p, st, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpen_Anonymous(t *testing.T) {
	s := open(t, &fakeProvider{}, newMemStorage())
	require.Equal(t, model.Anonymous{}, s.Current())
	require.Empty(t, s.Token())
}

func TestOpen_DiscardsCorruptAdminRecord(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":    "{not json",
		"wrong role": `{"id":"` + uuid.Must(uuid.NewV4()).String() + `","username":"bob","role":"user"}`,
	} {
		t.Run(name, func(t *testing.T) {
			st := newMemStorage()
			st.data[AdminKey] = []byte(raw)
			s := open(t, &fakeProvider{}, st)
			require.Equal(t, model.Anonymous{}, s.Current())
			_, err := st.Load(AdminKey)
			require.ErrorIs(t, err, ErrNoValue)
		})
	}
}

func TestOpen_RestoresAdminAndRevalidatesUser(t *testing.T) {
	st := newMemStorage()
	s1 := open(t, &fakeProvider{admin: validAdmin()}, st)
	_, err := s1.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	_, err = s1.AdminSignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)

	p := &fakeProvider{current: func(string) (model.UserSession, error) { return model.UserSession{}, errs.ErrUnauthorized }}
	s2 := open(t, p, st)
	cur, ok := s2.Current().(model.Admin)
	require.True(t, ok)
	require.Equal(t, "alice", cur.Username)
	_, err = st.Load(UserKey)
	require.ErrorIs(t, err, ErrNoValue, "a token the provider rejects is dropped")
}

func TestAdminTakesPrecedence(t *testing.T) {
	s := open(t, &fakeProvider{admin: validAdmin()}, newMemStorage())
	_, err := s.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	require.IsType(t, model.Resident{}, s.Current())
	require.Equal(t, "signin", s.Token())

	_, err = s.AdminSignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.IsType(t, model.Admin{}, s.Current())
	require.Equal(t, "admin-tok", s.Token())
}

func TestAdminSignIn_Failure(t *testing.T) {
	st := newMemStorage()
	s := open(t, &fakeProvider{adminErr: errs.ErrAdminPasswordMismatch}, st)
	_, err := s.AdminSignIn(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, errs.ErrAdminPasswordMismatch)
	require.Equal(t, model.Anonymous{}, s.Current())
	_, err = st.Load(AdminKey)
	require.ErrorIs(t, err, ErrNoValue)
}

func TestSignOut_ClearsAdminEvenWhenProviderFails(t *testing.T) {
	st := newMemStorage()
	p := &fakeProvider{admin: validAdmin(), signOutErr: errors.New("provider down")}
	s := open(t, p, st)
	_, _ = s.SignIn(context.Background(), "a@b.c", "pw")
	_, _ = s.AdminSignIn(context.Background(), "alice", "pw")

	err := s.SignOut(context.Background())
	require.Error(t, err)
	require.Equal(t, model.Anonymous{}, s.Current())
	_, loadErr := st.Load(AdminKey)
	require.ErrorIs(t, loadErr, ErrNoValue)
	require.Equal(t, []string{"signin"}, p.signedOut)
}

func TestSignIn_MFAErrorLeavesSessionUntouched(t *testing.T) {
	s := open(t, &fakeProvider{signInErr: errs.ErrMFARequired}, newMemStorage())
	_, err := s.SignIn(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, errs.ErrMFARequired)
	require.Equal(t, model.Anonymous{}, s.Current())
}

func TestExpiredUserSessionIsAnonymous(t *testing.T) {
	s := open(t, &fakeProvider{}, newMemStorage())
	_, err := s.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.Equal(t, model.Anonymous{}, s.Current())
}

func TestSubscribe_OrderedAndUnsubscribe(t *testing.T) {
	p := &fakeProvider{changes: make(chan *model.UserSession)}
	s := open(t, watchingProvider{p}, newMemStorage())

	var (
		mu  sync.Mutex
		got []string
	)
	unsubscribe := s.Subscribe(func(cur model.Session) {
		mu.Lock()
		defer mu.Unlock()
		if r, ok := cur.(model.Resident); ok {
			got = append(got, r.AccessToken)
		} else {
			got = append(got, "anon")
		}
	})

	a, b := session("a"), session("b")
	p.changes <- &a
	p.changes <- &b
	p.changes <- nil

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"a", "b", "anon"}, got)

	unsubscribe()
	_, _ = s.SignIn(context.Background(), "a@b.c", "pw")
	mu.Lock()
	require.Len(t, got, 3)
	mu.Unlock()
}

func TestSubscribe_CallbacksMayReenterStore(t *testing.T) {
	s := open(t, &fakeProvider{admin: validAdmin()}, newMemStorage())

	name := func(cur model.Session) string {
		if _, ok := cur.(model.Admin); ok {
			return "admin"
		}
		return "anon"
	}
	var first, second, late []string
	var unsubscribeSecond func()
	subscribedLate := false
	s.Subscribe(func(cur model.Session) {
		first = append(first, name(cur))
		if _, ok := cur.(model.Admin); ok {
			if !subscribedLate {
				subscribedLate = true
				s.Subscribe(func(cur model.Session) { late = append(late, name(cur)) })
			}
			_ = s.SignOut(context.Background())
		}
	})
	unsubscribeSecond = s.Subscribe(func(cur model.Session) {
		second = append(second, name(cur))
		if _, ok := cur.(model.Anonymous); ok {
			unsubscribeSecond()
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.AdminSignIn(context.Background(), "alice", "pw")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sign-in blocked on a subscriber calling back into the store")
	}

	require.Equal(t, model.Anonymous{}, s.Current())
	require.Equal(t, []string{"admin", "anon"}, first)
	require.Equal(t, []string{"admin", "anon"}, second)
	require.Equal(t, []string{"anon"}, late)

	_, err := s.AdminSignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, []string{"anon", "admin", "anon"}, late)
}

func TestCompleteFederated(t *testing.T) {
	s := open(t, &fakeProvider{}, newMemStorage())
	_, err := s.CompleteFederated(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	us, err := s.CompleteFederated(context.Background(), "from-callback")
	require.NoError(t, err)
	require.Equal(t, "from-callback", us.AccessToken)
	require.Equal(t, "from-callback", s.Token())
}

func TestFileStorage(t *testing.T) {
	fs := FileStorage{Dir: t.TempDir()}
	_, err := fs.Load("k")
	require.ErrorIs(t, err, ErrNoValue)
	require.NoError(t, fs.Save("k", []byte(`{"a":1}`)))
	b, err := fs.Load("k")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(b))
	require.NoError(t, fs.Remove("k"))
	require.NoError(t, fs.Remove("k"))
}
