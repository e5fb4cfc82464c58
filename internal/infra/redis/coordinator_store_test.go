package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"academy-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestCoordinatorStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewCoordinatorStore(newClient(mr), time.Hour)

	p := domain.Participant{ID: "p1", DisciplineID: "agc", Name: "Alice"}
	if _, added, err := store.AddParticipant(ctx, p); err != nil || !added {
		t.Fatalf("add participant: added=%v err=%v", added, err)
	}
	dup, added, err := store.AddParticipant(ctx, domain.Participant{ID: "p2", DisciplineID: "agc", Name: "Alice"})
	if err != nil {
		t.Fatalf("add duplicate: %v", err)
	}
	if added || dup.ID != "p1" {
		t.Fatalf("expected existing participant, got %+v added=%v", dup, added)
	}
	if !mr.Exists("quiz:session:participant:p1") || mr.Exists("quiz:session:participant:p2") {
		t.Fatalf("expected only first participant stored")
	}

	started := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := store.SetActive(ctx, "agc", started); err != nil {
		t.Fatalf("set active: %v", err)
	}
	active, at, err := store.Active(ctx, "agc")
	if err != nil || !active || !at.Equal(started) {
		t.Fatalf("expected active since %v, got %v %v %v", started, active, at, err)
	}

	if err := store.ResetSession(ctx, "agc"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists("quiz:session:active:agc") || mr.Exists("quiz:session:participants:agc") {
		t.Fatalf("expected session keys removed")
	}
	if list, _ := store.Participants(ctx, "agc"); len(list) != 0 {
		t.Fatalf("expected empty waiting list, got %d", len(list))
	}
	if _, err := store.Participant(ctx, "p1"); err != nil {
		t.Fatalf("expected participant record kept: %v", err)
	}
	if _, err := store.Participant(ctx, "missing"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestCoordinatorStorePIN(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewCoordinatorStore(newClient(mr), 0)

	if pin, err := store.LoadPIN(ctx); err != nil || pin.Code != "" {
		t.Fatalf("expected no pin, got %+v %v", pin, err)
	}
	want := domain.SessionPIN{Code: "123456", ExpiresAt: time.Now().Add(4 * time.Hour).UTC()}
	if err := store.SavePIN(ctx, want); err != nil {
		t.Fatalf("save pin: %v", err)
	}
	got, err := store.LoadPIN(ctx)
	if err != nil {
		t.Fatalf("load pin: %v", err)
	}
	if got.Code != want.Code || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if ttl := mr.TTL("quiz:session:pin"); ttl <= 0 {
		t.Fatalf("expected pin key expiry, got %v", ttl)
	}
}
