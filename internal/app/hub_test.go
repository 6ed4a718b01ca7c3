package app_test

import (
	"context"
	"testing"

	"study-vault/internal/app"
	"study-vault/internal/domain"
)

func TestHubFansOutToEverySession(t *testing.T) {
	hub := app.NewHub()
	first, leaveFirst := hub.Join("u1")
	second, leaveSecond := hub.Join("u1")
	other, leaveOther := hub.Join("u2")
	defer leaveOther()
	if n := hub.Sessions("u1"); n != 2 {
		t.Fatalf("expected 2 sessions, got %d", n)
	}

	if err := hub.Publish(context.Background(), "u1", domain.NotificationEvent{Message: "hi"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if msg := (<-first).Message; msg != "hi" {
		t.Fatalf("first session got %q", msg)
	}
	if msg := (<-second).Message; msg != "hi" {
		t.Fatalf("second session got %q", msg)
	}
	if len(other) != 0 {
		t.Fatalf("event leaked to another user")
	}

	leaveFirst()
	leaveFirst()
	if _, open := <-first; open {
		t.Fatalf("channel still open after leave")
	}
	if n := hub.Sessions("u1"); n != 1 {
		t.Fatalf("expected 1 session, got %d", n)
	}
	leaveSecond()
	if n := hub.Sessions("u1"); n != 0 {
		t.Fatalf("expected no sessions, got %d", n)
	}
}

func TestHubDropsOldestForSlowSession(t *testing.T) {
	hub := app.NewHub()
	events, leave := hub.Join("u1")
	defer leave()

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := hub.Publish(ctx, "u1", domain.NotificationEvent{ID: string(rune('a' + i))}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var got []string
	for len(events) > 0 {
		got = append(got, (<-events).ID)
	}
	if len(got) == 0 || len(got) >= 20 {
		t.Fatalf("expected a bounded backlog, got %d events", len(got))
	}
	if last := got[len(got)-1]; last != string(rune('a'+19)) {
		t.Fatalf("newest event lost, last is %q", last)
	}
}

func TestHubPublishWithoutSessions(t *testing.T) {
	hub := app.NewHub()
	if err := hub.Publish(context.Background(), "nobody", domain.NotificationEvent{Message: "lost"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
