package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"academy-quiz-service/internal/auth"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestAuthStoreAccessLogTrimmed(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAuthStore(newClient(mr))
	for i := 0; i < 5; i++ {
		if err := store.AppendAccessLog(ctx, auth.AccessLogEntry{Username: fmt.Sprintf("u%d", i)}, 3); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	log, err := store.AccessLog(ctx)
	if err != nil {
		t.Fatalf("access log: %v", err)
	}
	if len(log) != 3 || log[0].Username != "u2" || log[2].Username != "u4" {
		t.Fatalf("unexpected access log: %+v", log)
	}
}

func TestAuthStoreSessionExpiresWithKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAuthStore(newClient(mr))

	if _, err := store.LoadCredential(ctx); !errors.Is(err, auth.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
	if lock, err := store.LoadLockout(ctx); err != nil || lock.FailedAttempts != 0 {
		t.Fatalf("expected zero lockout, got %+v %v", lock, err)
	}

	session := auth.Session{Token: "tok", Username: "admin", ExpiresAt: time.Now().Add(30 * time.Minute)}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if _, err := store.LoadSession(ctx, "tok"); err != nil {
		t.Fatalf("load session: %v", err)
	}
	mr.FastForward(31 * time.Minute)
	if _, err := store.LoadSession(ctx, "tok"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after expiry, got %v", err)
	}
}
