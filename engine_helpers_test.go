package fitAuth

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fitlife/fitAuth/account"
	"github.com/fitlife/fitAuth/localauth"
	"github.com/fitlife/fitAuth/password"
	"github.com/fitlife/fitAuth/remote"
	"github.com/fitlife/fitAuth/remote/stub"
	"github.com/fitlife/fitAuth/storage"
	"github.com/fitlife/fitAuth/token"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testHashConfig() password.Config {
	return password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Remote.Enabled = false
	cfg.Password.Hash = testHashConfig()
	return cfg
}

// failingRemote fails every call the way an unreachable service does.
type failingRemote struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFailingRemote() *failingRemote {
	return &failingRemote{calls: map[string]int{}}
}

func (f *failingRemote) fail(op string) error {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
	return fmt.Errorf("%w: dial tcp 127.0.0.1:5000: connect: connection refused", remote.ErrUnavailable)
}

func (f *failingRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *failingRemote) Login(context.Context, remote.LoginRequest) (remote.AuthResponse, error) {
	return remote.AuthResponse{}, f.fail("login")
}

func (f *failingRemote) Register(context.Context, remote.RegisterRequest) (remote.AuthResponse, error) {
	return remote.AuthResponse{}, f.fail("register")
}

func (f *failingRemote) Profile(context.Context, string) (account.User, error) {
	return account.User{}, f.fail("profile")
}

func (f *failingRemote) UpdateProfile(context.Context, string, account.ProfilePatch) (account.User, error) {
	return account.User{}, f.fail("update_profile")
}

func (f *failingRemote) Logout(context.Context, string) error {
	return f.fail("logout")
}

// harness is one tab. Tabs created from the same harness share the durable
// store.
type harness struct {
	t       *testing.T
	clock   *testClock
	durable *storage.Memory
	hasher  password.Hasher
	cfg     Config
	svc     remote.Service
}

func newHarness(t *testing.T, svc remote.Service) *harness {
	t.Helper()
	h, err := password.NewArgon2(testHashConfig())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return &harness{
		t:       t,
		clock:   newTestClock(),
		durable: storage.NewMemory(),
		hasher:  h,
		cfg:     testConfig(),
		svc:     svc,
	}
}

// tab builds an engine with its own tab store, or with tab when non-nil.
func (h *harness) tab(tab *storage.Memory) (*Engine, *storage.Memory) {
	h.t.Helper()
	if tab == nil {
		tab = storage.NewMemory()
	}
	e, err := New().
		WithConfig(h.cfg).
		WithRemote(h.svc).
		WithDurableStore(h.durable).
		WithTabStore(tab).
		WithHasher(h.hasher).
		WithClock(h.clock.Now).
		Build()
	if err != nil {
		h.t.Fatalf("Build: %v", err)
	}
	h.t.Cleanup(e.Close)
	return e, tab
}

func newStubRemote(t *testing.T) (*stub.Server, remote.Service) {
	t.Helper()
	iss, err := token.NewIssuer(token.IssuerConfig{
		AccessTTL:     time.Hour,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("engine-test-key"),
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	hasher, err := password.NewArgon2(testHashConfig())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	srv, err := stub.New(iss, hasher, localauth.DefaultSeeds())
	if err != nil {
		t.Fatalf("stub.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, remote.NewClient(ts.URL, 2*time.Second)
}
