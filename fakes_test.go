package goSession

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/tokenstore"
)

// fakeClient is a scriptable AuthClient. Gates hold a call in flight until
// the test closes them.
type fakeClient struct {
	mu sync.Mutex

	loginResp *LoginResponse
	loginErr  error

	registerResp *RegisterResponse
	registerErr  error

	refreshResp    *RefreshResponse
	refreshErr     error
	refreshGate    chan struct{}
	refreshStarted chan struct{}

	profileFn   func(accessToken string) (*User, error)
	profileGate chan struct{}

	statusResp *AccountStatusInfo
	statusErr  error

	logoutErr error

	loginCalls    atomic.Int32
	registerCalls atomic.Int32
	refreshCalls  atomic.Int32
	logoutCalls   atomic.Int32
	profileCalls  atomic.Int32
	statusCalls   atomic.Int32

	lastRefreshToken string
	lastLogoutToken  string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		loginResp:   fullAccessLogin(),
		refreshResp: &RefreshResponse{AccessToken: "t2", RefreshToken: "r2", ExpiresIn: 3600},
		profileFn: func(string) (*User, error) {
			return testUser(), nil
		},
		statusResp: &AccountStatusInfo{
			AccountStatus:    AccountActive,
			ValidationStatus: ValidationValidated,
			AccessLevel:      "FULL",
		},
	}
}

func testUser() *User {
	return &User{
		ID:               "u1",
		Name:             "Ada",
		Email:            "a@b.co",
		Role:             Role{ID: "r-admin", Name: "admin"},
		Permissions:      []string{"slips.read", "invoices.write"},
		UserType:         "staff",
		AccountStatus:    AccountActive,
		ValidationStatus: ValidationValidated,
	}
}

func fullAccessLogin() *LoginResponse {
	return &LoginResponse{
		User:          testUser(),
		AccessToken:   "t1",
		RefreshToken:  "r1",
		ExpiresIn:     3600,
		FullAccess:    true,
		AccountStatus: AccountActive,
	}
}

func (c *fakeClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	c.loginCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginResp, c.loginErr
}

func (c *fakeClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	c.registerCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registerResp, c.registerErr
}

func (c *fakeClient) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	c.refreshCalls.Add(1)
	c.mu.Lock()
	c.lastRefreshToken = refreshToken
	gate, started := c.refreshGate, c.refreshStarted
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshResp, c.refreshErr
}

func (c *fakeClient) Logout(ctx context.Context, refreshToken string) error {
	c.logoutCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastLogoutToken = refreshToken
	return c.logoutErr
}

func (c *fakeClient) GetProfile(ctx context.Context, accessToken string) (*User, error) {
	c.profileCalls.Add(1)
	c.mu.Lock()
	gate, fn := c.profileGate, c.profileFn
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return fn(accessToken)
}

func (c *fakeClient) GetAccountStatus(ctx context.Context, accessToken string) (*AccountStatusInfo, error) {
	c.statusCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	if c.statusResp == nil {
		return nil, nil
	}
	out := *c.statusResp
	return &out, nil
}

func (c *fakeClient) networkCalls() int32 {
	return c.loginCalls.Load() + c.registerCalls.Load() + c.refreshCalls.Load() +
		c.logoutCalls.Load() + c.profileCalls.Load() + c.statusCalls.Load()
}

func (c *fakeClient) set(fn func(c *fakeClient)) {
	c.mu.Lock()
	fn(c)
	c.mu.Unlock()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	m      *Manager
	client *fakeClient
	store  *tokenstore.MemoryStore
	clock  *testClock
}

func newTestEnv(t *testing.T, configure ...func(*Builder)) *testEnv {
	t.Helper()
	env := &testEnv{
		client: newFakeClient(),
		store:  tokenstore.NewMemoryStore(),
		clock:  newTestClock(),
	}
	b := New().
		WithClient(env.client).
		WithTokenStore(env.store).
		WithClock(env.clock.Now).
		WithLogger(log.New(io.Discard, "", 0)).
		WithMetricsEnabled(true)
	for _, fn := range configure {
		fn(b)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(m.Close)
	env.m = m
	return env
}

func (e *testEnv) login(t *testing.T) LoginResult {
	t.Helper()
	res, err := e.m.Login(context.Background(), Credentials{Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res
}

func (e *testEnv) stored(t *testing.T) tokenstore.Tokens {
	t.Helper()
	tokens, err := e.store.Load(context.Background())
	if err != nil {
		t.Fatalf("store load: %v", err)
	}
	return tokens
}

// assertConsistent checks that authentication is exactly "user and access
// token both present".
func assertConsistent(t *testing.T, m *Manager) {
	t.Helper()
	s := m.State()
	want := s.User != nil && s.AccessToken != ""
	if s.IsAuthenticated != want {
		t.Fatalf("IsAuthenticated=%v but user=%v token=%q", s.IsAuthenticated, s.User != nil, s.AccessToken)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
