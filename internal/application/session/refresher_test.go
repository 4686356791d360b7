package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dokan/internal/adapters/kv/memory"
	domain "dokan/internal/domain/session"
)

func TestRefresher_NoRefreshTokenSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	_ = kv.SetMany(ctx, map[string]string{domain.KeyAccessToken: "T1"})
	issuer := &mockIssuer{refreshFn: refreshReturning("T2")}
	r := NewRefresher(NewTokenStore(kv, time.Hour), issuer, time.Second)

	_, err := r.Refresh(ctx)
	if !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Errorf("Expected ErrNoRefreshToken, got %v", err)
	}
	if calls := issuer.refreshCalls.Load(); calls != 0 {
		t.Errorf("Expected no issuer call, got %d", calls)
	}
	if kv.Len() != 0 {
		t.Errorf("Expected the leftover access token to be cleared, %d keys remain", kv.Len())
	}
}

func TestRefresher_ReplacesAccessTokenOnly(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Minute))
	before, _ := kv.Get(ctx, domain.Keys...)

	issuer := &mockIssuer{refreshFn: refreshReturning("T2")}
	r := NewRefresher(NewTokenStore(kv, time.Hour), issuer, time.Second)

	token, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token != "T2" {
		t.Errorf("Expected new token T2, got %q", token)
	}
	if issuer.lastRefresh != "R1" {
		t.Errorf("Expected refresh token R1 to be presented, got %q", issuer.lastRefresh)
	}

	after, _ := kv.Get(ctx, domain.Keys...)
	if after[domain.KeyUser] != before[domain.KeyUser] {
		t.Errorf("User changed: %q -> %q", before[domain.KeyUser], after[domain.KeyUser])
	}
	if after[domain.KeyRefreshToken] != before[domain.KeyRefreshToken] {
		t.Errorf("Refresh token changed: %q -> %q", before[domain.KeyRefreshToken], after[domain.KeyRefreshToken])
	}
	if after[domain.KeyAccessToken] != "T2" {
		t.Errorf("Expected stored access token T2, got %q", after[domain.KeyAccessToken])
	}
	if after[domain.KeyAccessTokenExpiresAt] == before[domain.KeyAccessTokenExpiresAt] {
		t.Error("Expected the expiry to be recomputed")
	}
}

func TestRefresher_FailureClearsEverything(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) (string, error)
	}{
		{"issuer error", refreshFailing(errors.New("connection refused"))},
		{"issuer rejection", refreshFailing(domain.ErrRefreshRejected)},
		{"empty token", refreshReturning("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := memory.NewStore()
			seed(kv, testUser, "T1", "R1", time.Now().Add(time.Hour))
			store := NewTokenStore(kv, time.Hour)
			r := NewRefresher(store, &mockIssuer{refreshFn: tt.fn}, time.Second)

			_, err := r.Refresh(ctx)
			if !errors.Is(err, domain.ErrRefreshRejected) {
				t.Errorf("Expected ErrRefreshRejected, got %v", err)
			}
			snap, err := store.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if snap.User != nil || snap.AccessToken != "" || snap.RefreshToken != "" {
				t.Errorf("Expected nothing left after failed refresh, got %+v", snap)
			}
		})
	}
}

func TestRefresher_Timeout(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Hour))
	issuer := &mockIssuer{refreshFn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	r := NewRefresher(NewTokenStore(kv, time.Hour), issuer, 20*time.Millisecond)

	start := time.Now()
	_, err := r.Refresh(ctx)
	if !errors.Is(err, domain.ErrRefreshRejected) {
		t.Errorf("Expected ErrRefreshRejected, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected refresh to give up quickly, took %v", elapsed)
	}
	if kv.Len() != 0 {
		t.Errorf("Expected store to be cleared after timeout, %d keys remain", kv.Len())
	}
}

func TestRefresher_ConcurrentCallersShareOneCall(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Minute))

	release := make(chan struct{})
	issuer := &mockIssuer{refreshFn: func(ctx context.Context, _ string) (string, error) {
		<-release
		return "T2", nil
	}}
	r := NewRefresher(NewTokenStore(kv, time.Hour), issuer, 5*time.Second)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = r.Refresh(ctx)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls := issuer.refreshCalls.Load(); calls != 1 {
		t.Errorf("Expected one issuer call, got %d", calls)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil || tokens[i] != "T2" {
			t.Errorf("caller %d: expected T2, got %q (%v)", i, tokens[i], errs[i])
		}
	}
}

func TestRefresher_CallerCancellation(t *testing.T) {
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Minute))

	release := make(chan struct{})
	defer close(release)
	issuer := &mockIssuer{refreshFn: func(ctx context.Context, _ string) (string, error) {
		<-release
		return "T2", nil
	}}
	r := NewRefresher(NewTokenStore(kv, time.Hour), issuer, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Refresh(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestRefresher_LogoutDuringExchangeLeavesStoreEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Minute))
	store := NewTokenStore(kv, time.Hour)

	issuer := &mockIssuer{refreshFn: func(context.Context, string) (string, error) {
		store.Clear(ctx)
		return "T2", nil
	}}
	r := NewRefresher(store, issuer, time.Second)

	if _, err := r.Refresh(ctx); !errors.Is(err, domain.ErrRefreshRejected) {
		t.Errorf("Expected ErrRefreshRejected, got %v", err)
	}
	if kv.Len() != 0 {
		t.Errorf("Expected no partial session, %d keys remain", kv.Len())
	}
	if _, ok := store.AccessToken(ctx); ok {
		t.Error("Expected no access token after logout")
	}
}

func TestRefresher_NewLoginDuringExchangeWins(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	seed(kv, testUser, "T1", "R1", time.Now().Add(time.Minute))
	store := NewTokenStore(kv, time.Hour)

	issuer := &mockIssuer{refreshFn: func(context.Context, string) (string, error) {
		store.Save(ctx, testUser, "T9", "R9")
		return "T2", nil
	}}
	r := NewRefresher(store, issuer, time.Second)

	if _, err := r.Refresh(ctx); err == nil {
		t.Error("Expected the stale refresh to be discarded")
	}
	snap, err := store.Read(ctx)
	if err != nil || !snap.Complete() {
		t.Fatalf("Expected the new session to stay complete, got %+v (%v)", snap, err)
	}
	if snap.AccessToken != "T9" || snap.RefreshToken != "R9" {
		t.Errorf("Expected T9/R9, got %s/%s", snap.AccessToken, snap.RefreshToken)
	}
}
