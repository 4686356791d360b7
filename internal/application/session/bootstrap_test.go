package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"dokan/internal/adapters/kv/memory"
	domain "dokan/internal/domain/session"
)

func newBootstrap(kv *memory.Store, issuer *mockIssuer) *Bootstrapper {
	store := NewTokenStore(kv, time.Hour)
	return NewBootstrapper(store, NewRefresher(store, issuer, time.Second), domain.DefaultRefreshMargin)
}

func TestBootstrapper_LoggedOutWithoutCompleteSession(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"empty store", nil},
		{"access token only", map[string]string{domain.KeyAccessToken: "T1"}},
		{"no refresh token", map[string]string{
			domain.KeyUser:        `{"id":"1","name":"A"}`,
			domain.KeyAccessToken: "T1",
		}},
		{"no user", map[string]string{
			domain.KeyAccessToken:  "T1",
			domain.KeyRefreshToken: "R1",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := memory.NewStore()
			if tt.values != nil {
				_ = kv.SetMany(context.Background(), tt.values)
			}
			issuer := &mockIssuer{refreshFn: refreshReturning("T2")}

			out := newBootstrap(kv, issuer).Run(context.Background())
			if out.State != StateLoggedOut {
				t.Errorf("Expected logged_out, got %s", out.State)
			}
			if out.User != nil {
				t.Errorf("Expected no user, got %+v", out.User)
			}
			if calls := issuer.refreshCalls.Load(); calls != 0 {
				t.Errorf("Expected no refresh, got %d calls", calls)
			}
		})
	}
}

func TestBootstrapper_CorruptStoreIsCleared(t *testing.T) {
	kv := memory.NewStore()
	_ = kv.SetMany(context.Background(), map[string]string{
		domain.KeyUser:         "{broken",
		domain.KeyAccessToken:  "T1",
		domain.KeyRefreshToken: "R1",
	})

	out := newBootstrap(kv, &mockIssuer{}).Run(context.Background())
	if out.State != StateLoggedOut {
		t.Errorf("Expected logged_out, got %s", out.State)
	}
	if kv.Len() != 0 {
		t.Errorf("Expected corrupt session to be cleared, %d keys remain", kv.Len())
	}
}

func TestBootstrapper_ValidSessionRestoredWithoutRefresh(t *testing.T) {
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(30*time.Minute))
	issuer := &mockIssuer{refreshFn: refreshReturning("T2")}

	out := newBootstrap(kv, issuer).Run(context.Background())
	if out.State != StateLoggedIn {
		t.Fatalf("Expected logged_in, got %s", out.State)
	}
	if out.AccessToken != "T1" {
		t.Errorf("Expected stored token T1, got %q", out.AccessToken)
	}
	if out.User == nil || *out.User != testUser {
		t.Errorf("Expected user %+v, got %+v", testUser, out.User)
	}
	if calls := issuer.refreshCalls.Load(); calls != 0 {
		t.Errorf("Expected no refresh, got %d calls", calls)
	}
}

func TestBootstrapper_ExpiringSessionIsRefreshed(t *testing.T) {
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(2*time.Minute))
	issuer := &mockIssuer{refreshFn: refreshReturning("T2")}

	out := newBootstrap(kv, issuer).Run(context.Background())
	if out.State != StateLoggedIn {
		t.Fatalf("Expected logged_in, got %s", out.State)
	}
	if out.AccessToken != "T2" {
		t.Errorf("Expected refreshed token T2, got %q", out.AccessToken)
	}
	if calls := issuer.refreshCalls.Load(); calls != 1 {
		t.Errorf("Expected one refresh, got %d", calls)
	}

	token, _ := NewTokenStore(kv, time.Hour).AccessToken(context.Background())
	if token != "T2" {
		t.Errorf("Expected stored token T2, got %q", token)
	}
}

func TestBootstrapper_MissingExpiryTriggersRefresh(t *testing.T) {
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Hour))
	_ = kv.Delete(context.Background(), domain.KeyAccessTokenExpiresAt)
	issuer := &mockIssuer{refreshFn: refreshReturning("T2")}

	out := newBootstrap(kv, issuer).Run(context.Background())
	if out.State != StateLoggedIn || out.AccessToken != "T2" {
		t.Errorf("Expected logged_in with T2, got %s with %q", out.State, out.AccessToken)
	}
	if calls := issuer.refreshCalls.Load(); calls != 1 {
		t.Errorf("Expected one refresh, got %d", calls)
	}
}

func TestBootstrapper_RefreshFailureLogsOut(t *testing.T) {
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(-time.Minute))
	issuer := &mockIssuer{refreshFn: refreshFailing(errors.New("refresh token expired"))}

	out := newBootstrap(kv, issuer).Run(context.Background())
	if out.State != StateLoggedOut {
		t.Errorf("Expected logged_out, got %s", out.State)
	}
	if kv.Len() != 0 {
		t.Errorf("Expected store to be empty, %d keys remain", kv.Len())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateLoggedIn, "logged_in"},
		{StateLoggedOut, "logged_out"},
		{StateUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
