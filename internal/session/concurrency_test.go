package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dymgr/internal/api"
	"dymgr/internal/credential"
	"dymgr/internal/services"
)

// fakeAuth lets tests hold token exchanges and profile fetches open.
type fakeAuth struct {
	tokenCalls atomic.Int32
	started    chan struct{}
	gate       chan struct{}
	meGate     chan struct{}
	meStarted  chan struct{}
}

func (f *fakeAuth) Token(ctx context.Context, creds api.Credentials) (*api.TokenResponse, error) {
	f.tokenCalls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return &api.TokenResponse{AccessToken: "tok-" + creds.Username, TokenType: "bearer"}, nil
}

func (f *fakeAuth) Register(ctx context.Context, reg api.Registration) (*api.User, error) {
	return &api.User{Username: reg.Username}, nil
}

func (f *fakeAuth) Me(ctx context.Context) (*api.User, error) {
	if f.meStarted != nil {
		f.meStarted <- struct{}{}
	}
	if f.meGate != nil {
		<-f.meGate
	}
	return &api.User{ID: 9, Username: "u1303"}, nil
}

func TestConcurrentSameUserLoginsShareOneExchange(t *testing.T) {
	auth := &fakeAuth{started: make(chan struct{}, 8), gate: make(chan struct{})}
	store, err := New(auth, credential.NewMemoryStore(""))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	const callers = 5
	results := make([]Result, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = store.Login(context.Background(), api.Credentials{Username: "u1303", Password: "p"})
	}()
	<-auth.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Login(context.Background(), api.Credentials{Username: "u1303", Password: "p"})
		}(i)
	}
	// Give the followers time to join the in-flight exchange.
	time.Sleep(50 * time.Millisecond)
	close(auth.gate)
	wg.Wait()

	if got := auth.tokenCalls.Load(); got != 1 {
		t.Fatalf("expected one token exchange, got %d", got)
	}
	for i, result := range results {
		if !result.Success {
			t.Fatalf("caller %d failed: %+v", i, result)
		}
	}
	if store.Loading() || store.State() != StateAuthenticated {
		t.Fatalf("unexpected final snapshot %+v", store.Snapshot())
	}
}

func TestLoginForDifferentUserRejectedWhileInFlight(t *testing.T) {
	auth := &fakeAuth{started: make(chan struct{}, 2), gate: make(chan struct{})}
	slot := credential.NewMemoryStore("")
	store, err := New(auth, slot)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan Result, 1)
	go func() {
		done <- store.Login(context.Background(), api.Credentials{Username: "alice", Password: "p"})
	}()
	<-auth.started

	rejected := store.Login(context.Background(), api.Credentials{Username: "bob", Password: "p"})
	if rejected.Success {
		t.Fatal("expected rejection while another user's login is in flight")
	}
	if !errors.Is(rejected.Err, services.ErrLoginInProgress) {
		t.Fatalf("expected login in progress marker, got %v", rejected.Err)
	}
	if !store.Loading() {
		t.Fatal("first login should still hold the busy flag")
	}

	close(auth.gate)
	if first := <-done; !first.Success {
		t.Fatalf("first login failed: %+v", first)
	}
	if token, _ := store.Token(); token != "tok-alice" {
		t.Fatalf("expected alice's token, got %q", token)
	}
	if persisted, _ := slot.Load(); persisted != "tok-alice" {
		t.Fatalf("expected alice's token persisted, got %q", persisted)
	}

	// The guard releases once the exchange completes.
	auth.started = nil
	auth.gate = nil
	if next := store.Login(context.Background(), api.Credentials{Username: "bob", Password: "p"}); !next.Success {
		t.Fatalf("login after release failed: %+v", next)
	}
	if store.Loading() {
		t.Fatal("busy flag left set")
	}
}

func TestLogoutDuringProfileFetchDiscardsProfile(t *testing.T) {
	auth := &fakeAuth{meStarted: make(chan struct{}, 1), meGate: make(chan struct{})}
	store, err := New(auth, credential.NewMemoryStore("tok-live"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan struct{})
	go func() {
		store.FetchProfile(context.Background())
		close(done)
	}()
	<-auth.meStarted
	store.Logout()
	close(auth.meGate)
	<-done

	snap := store.Snapshot()
	if snap.User != nil || snap.Token != "" {
		t.Fatalf("profile must not be attached after logout: %+v", snap)
	}
}

func TestConcurrentReadersDuringLogin(t *testing.T) {
	auth := &fakeAuth{}
	store, err := New(auth, credential.NewMemoryStore(""))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					snap := store.Snapshot()
					if snap.User != nil && snap.Token == "" {
						t.Error("user present without token")
						return
					}
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		store.Login(context.Background(), api.Credentials{Username: "u1303", Password: "p"})
		store.Logout()
	}
	close(stop)
	wg.Wait()
}

func TestObserversSeeBusyClearedAfterConcurrentRegisters(t *testing.T) {
	store, err := New(&fakeAuth{}, credential.NewMemoryStore(""))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var (
		mu   sync.Mutex
		last Snapshot
		seen int
	)
	cancel := store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		last = snap
		seen++
		mu.Unlock()
	})
	defer cancel()

	const callers = 16
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Register(context.Background(), api.Registration{Username: "neo", Email: "neo@example.com", Password: "pw"})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if seen != 2*callers {
		t.Fatalf("expected %d notifications, got %d", 2*callers, seen)
	}
	if last.Loading {
		t.Fatalf("last delivered snapshot still busy: %+v", last)
	}
}

func TestCancelledLoginDoesNotFailSharedExchange(t *testing.T) {
	auth := &fakeAuth{started: make(chan struct{}, 2), gate: make(chan struct{})}
	slot := credential.NewMemoryStore("")
	store, err := New(auth, slot)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	first := make(chan Result, 1)
	go func() {
		first <- store.Login(firstCtx, api.Credentials{Username: "u1303", Password: "p"})
	}()
	<-auth.started

	second := make(chan Result, 1)
	go func() {
		second <- store.Login(context.Background(), api.Credentials{Username: "u1303", Password: "p"})
	}()
	// Give the second caller time to join the in-flight exchange.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case result := <-first:
		if result.Success || !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("expected cancelled caller to fail with context.Canceled, got %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(auth.gate)
	if result := <-second; !result.Success {
		t.Fatalf("remaining caller failed: %+v", result)
	}
	if got := auth.tokenCalls.Load(); got != 1 {
		t.Fatalf("expected one token exchange, got %d", got)
	}
	if persisted, _ := slot.Load(); persisted != "tok-u1303" {
		t.Fatalf("expected token persisted, got %q", persisted)
	}
	if store.Loading() || store.State() != StateAuthenticated {
		t.Fatalf("unexpected final snapshot %+v", store.Snapshot())
	}
}
