package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dokan", "session.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := s.SetMany(ctx, map[string]string{"accessToken": "T1", "refreshToken": "R1"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	got, err := s.Get(ctx, "accessToken", "refreshToken", "user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 || got["accessToken"] != "T1" || got["refreshToken"] != "R1" {
		t.Errorf("Unexpected values %v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	if err := s.Delete(ctx, "accessToken", "refreshToken"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file removed once empty, stat err %v", err)
	}
	if err := s.Delete(ctx, "accessToken"); err != nil {
		t.Errorf("Expected delete on missing file to succeed, got %v", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	first, _ := NewStore(path)
	_ = first.SetMany(ctx, map[string]string{"user": `{"id":"1","name":"A"}`})

	second, _ := NewStore(path)
	got, err := second.Get(ctx, "user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["user"] != `{"id":"1","name":"A"}` {
		t.Errorf("Expected user to survive reopen, got %v", got)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, _ := NewStore(path)

	if _, err := s.Get(ctx, "user"); err == nil {
		t.Error("Expected error reading corrupt file")
	}
	if err := s.SetMany(ctx, map[string]string{"accessToken": "T1"}); err != nil {
		t.Fatalf("Expected write to replace corrupt file, got %v", err)
	}
	got, err := s.Get(ctx, "accessToken")
	if err != nil || got["accessToken"] != "T1" {
		t.Errorf("Expected T1 after rewrite, got %v (%v)", got, err)
	}
}
