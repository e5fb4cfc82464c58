package app_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/memory"
)

func TestGeneratePINFormat(t *testing.T) {
	c := app.NewCoordinator(memory.NewCoordinatorStore(), app.CoordinatorConfig{}, nil)
	for i := 0; i < 50; i++ {
		pin, err := c.GeneratePIN(context.Background())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		n, err := strconv.Atoi(pin.Code)
		if err != nil || len(pin.Code) != 6 || n < 100000 || n > 999999 {
			t.Fatalf("expected 6-digit pin, got %q", pin.Code)
		}
	}
}

func TestJoinValidatesPIN(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := memory.NewCoordinatorStore()
	c := app.NewCoordinatorWithClock(store, app.CoordinatorConfig{}, nil, clock.Now)

	pin, err := c.GeneratePIN(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := c.Join(ctx, "agc", "", domain.Participant{Name: "Alice"}); !errors.Is(err, domain.ErrPINRequired) {
		t.Fatalf("expected ErrPINRequired, got %v", err)
	}
	if _, err := c.Join(ctx, "agc", wrongPIN(pin.Code), domain.Participant{Name: "Alice"}); !errors.Is(err, domain.ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if _, err := c.Join(ctx, "agc", pin.Code, domain.Participant{Name: " "}); !errors.Is(err, domain.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if waiting, _ := store.Participants(ctx, "agc"); len(waiting) != 0 {
		t.Fatalf("expected no participant after rejected joins, got %d", len(waiting))
	}

	p, err := c.Join(ctx, "agc", pin.Code, domain.Participant{Name: "Alice", Class: "3B"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.ID == "" || p.DisciplineID != "agc" || !p.JoinedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected participant %+v", p)
	}
	again, err := c.Join(ctx, "agc", pin.Code, domain.Participant{Name: "Alice"})
	if err != nil || again.ID != p.ID {
		t.Fatalf("expected re-entry to return %s, got %+v %v", p.ID, again, err)
	}

	clock.Advance(4*time.Hour + time.Second)
	if ok, _ := c.ValidatePIN(ctx, pin.Code); ok {
		t.Fatalf("expected pin expired")
	}
	if _, err := c.Join(ctx, "agc", pin.Code, domain.Participant{Name: "Bob"}); !errors.Is(err, domain.ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN after expiry, got %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := app.NewCoordinatorWithClock(memory.NewCoordinatorStore(), app.CoordinatorConfig{StaleAfter: time.Hour}, nil, clock.Now)
	pin, _ := c.GeneratePIN(ctx)
	_, _ = c.Join(ctx, "agc", pin.Code, domain.Participant{Name: "Alice"})

	status, err := c.Status(ctx, "agc")
	if err != nil || status.Active || len(status.Waiting) != 1 {
		t.Fatalf("expected inactive with one waiting, got %+v %v", status, err)
	}
	if status, _ = c.StartSessionForAll(ctx, "agc"); !status.Active || !status.StartedAt.Equal(clock.Now()) {
		t.Fatalf("expected active, got %+v", status)
	}

	clock.Advance(2 * time.Hour)
	if status, _ = c.Status(ctx, "agc"); status.Active {
		t.Fatalf("expected stale flag reported inactive")
	}

	if status, _ = c.StopSession(ctx, "agc"); status.Active || len(status.Waiting) != 0 {
		t.Fatalf("expected stopped session cleared, got %+v", status)
	}
}

func TestSubscribeReceivesStart(t *testing.T) {
	ctx := context.Background()
	c := app.NewCoordinator(memory.NewCoordinatorStore(), app.CoordinatorConfig{PollInterval: 10 * time.Millisecond}, nil)

	updates, cancel, err := c.Subscribe(ctx, "agc")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if first := <-updates; first.Active {
		t.Fatalf("expected inactive initial status")
	}

	if _, err := c.StartSessionForAll(ctx, "agc"); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case status := <-updates:
		if !status.Active {
			t.Fatalf("expected active update, got %+v", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for start")
	}
}

func TestSubscribeObservesOtherInstance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCoordinatorStore()
	cfg := app.CoordinatorConfig{PollInterval: 10 * time.Millisecond}
	watcher := app.NewCoordinator(store, cfg, nil)
	writer := app.NewCoordinator(store, cfg, nil)

	updates, cancel, err := watcher.Subscribe(ctx, "munitions")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-updates

	if _, err := writer.StartSessionForAll(ctx, "munitions"); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case status := <-updates:
		if !status.Active {
			t.Fatalf("expected active update, got %+v", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("poller did not observe the flip")
	}

	cancel()
	if _, ok := <-updates; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	cancel()
}

func wrongPIN(code string) string {
	if code == "100000" {
		return "100001"
	}
	return "100000"
}
