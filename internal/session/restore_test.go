package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dymgr/internal/credential"
)

func signedToken(t *testing.T, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u1303",
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestTokenExpiry(t *testing.T) {
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	got, ok := TokenExpiry(signedToken(t, expires))
	if !ok || !got.Equal(expires) {
		t.Fatalf("expected %s, got %s (%v)", expires, got, ok)
	}
	if _, ok := TokenExpiry("opaque-token"); ok {
		t.Fatal("opaque tokens have no known expiry")
	}
}

func TestRestoreNoneTrustsSlot(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := signedToken(t, now.Add(-time.Hour))
	store, err := New(&fakeAuth{}, credential.NewMemoryStore(expired), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Restore(context.Background()) {
		t.Fatal("default validation must not demote")
	}
	if store.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", store.State())
	}
}

func TestRestoreExpiryDemotesExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := WithClock(func() time.Time { return now })

	slot := credential.NewMemoryStore(signedToken(t, now.Add(-time.Minute)))
	store, err := New(&fakeAuth{}, slot, WithValidation(ValidateExpiry), clock)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !store.Restore(context.Background()) {
		t.Fatal("expected expired token to be demoted")
	}
	if store.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", store.State())
	}
	if persisted, _ := slot.Load(); persisted != "" {
		t.Fatalf("expected slot cleared, got %q", persisted)
	}

	fresh := signedToken(t, now.Add(time.Hour))
	store, err = New(&fakeAuth{}, credential.NewMemoryStore(fresh), WithValidation(ValidateExpiry), clock)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Restore(context.Background()) {
		t.Fatal("fresh token must be kept")
	}

	store, err = New(&fakeAuth{}, credential.NewMemoryStore("opaque"), WithValidation(ValidateExpiry), clock)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Restore(context.Background()) {
		t.Fatal("opaque token must be kept")
	}
}

func TestRestoreProfileDemotesOnlyOnUnauthorized(t *testing.T) {
	cases := []struct {
		status  int
		demoted bool
	}{
		{http.StatusOK, false},
		{http.StatusUnauthorized, true},
		{http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		b := &backend{me: respond(tc.status, profileBody)}
		if tc.status != http.StatusOK {
			b.me = respond(tc.status, `{"detail":"Could not validate credentials"}`)
		}
		slot := credential.NewMemoryStore("tok-restored")
		store, _ := newHarness(t, b, slot)
		store.validation = ValidateProfile

		if got := store.Restore(context.Background()); got != tc.demoted {
			t.Fatalf("status %d: expected demoted=%v, got %v", tc.status, tc.demoted, got)
		}
		persisted, _ := slot.Load()
		if tc.demoted && (persisted != "" || store.State() != StateAnonymous) {
			t.Fatalf("status %d: expected cleared session, slot=%q state=%s", tc.status, persisted, store.State())
		}
		if !tc.demoted && (persisted != "tok-restored" || store.State() != StateAuthenticated) {
			t.Fatalf("status %d: expected kept session, slot=%q state=%s", tc.status, persisted, store.State())
		}
		if tc.status == http.StatusOK {
			if user := store.User(); user == nil || user.Username != "u1303" {
				t.Fatalf("expected profile loaded, got %+v", user)
			}
		}
	}
}

func TestRestoreAnonymousIsNoop(t *testing.T) {
	store, err := New(&fakeAuth{}, credential.NewMemoryStore(""), WithValidation(ValidateProfile))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Restore(context.Background()) {
		t.Fatal("nothing to demote")
	}
}
