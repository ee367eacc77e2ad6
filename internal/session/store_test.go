package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type nopValidator struct{}

func (nopValidator) ValidateKey(context.Context, string) error { return nil }

type nopProvider struct{}

func (nopProvider) RefinePrompt(context.Context, string, []string, string) (string, error) {
	return "", nil
}

func (nopProvider) GenerateImage(context.Context, string, string) (string, error) {
	return "", nil
}

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(nopValidator{}, nopProvider{}, ttl, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	sess := s.Create()
	if sess.ID == "" || sess.Gate == nil || sess.Workspace == nil {
		t.Fatalf("incomplete session: %+v", sess)
	}
	got, ok := s.Get(sess.ID)
	if !ok || got != sess {
		t.Fatalf("Get(%q) = %v, %v", sess.ID, got, ok)
	}
	if _, ok := s.Get(""); ok {
		t.Fatalf("empty id resolved")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("unknown id resolved")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	a, b := s.Create(), s.Create()
	if a.ID == b.ID {
		t.Fatalf("duplicate session id %q", a.ID)
	}
	if _, err := a.Workspace.SetPrompt("only in a"); err != nil {
		t.Fatalf("SetPrompt error: %v", err)
	}
	if b.Workspace.Snapshot().Prompt != "" {
		t.Fatalf("workspace state leaked between sessions")
	}
}

func TestGetExpiresIdleSession(t *testing.T) {
	s, now := newTestStore(10 * time.Minute)
	sess := s.Create()

	*now = now.Add(9 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatalf("session expired early")
	}
	*now = now.Add(9 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatalf("Get did not refresh idle timer")
	}
	*now = now.Add(11 * time.Minute)
	if _, ok := s.Get(sess.ID); ok {
		t.Fatalf("idle session still resolvable")
	}
	if s.Len() != 0 {
		t.Fatalf("expired session kept in table")
	}
}

func TestSweep(t *testing.T) {
	s, now := newTestStore(time.Minute)
	old := s.Create()
	*now = now.Add(45 * time.Second)
	fresh := s.Create()
	*now = now.Add(30 * time.Second)

	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.Get(old.ID); ok {
		t.Fatalf("stale session survived sweep")
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Fatalf("fresh session swept")
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	sess := s.Create()
	s.Delete(sess.ID)
	if _, ok := s.Get(sess.ID); ok {
		t.Fatalf("deleted session resolvable")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
