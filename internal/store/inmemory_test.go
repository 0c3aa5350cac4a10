package store

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryStoreSessionLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	sc, err := s.CreateScenario(ctx, Scenario{
		ID:              "forgotten_birthday",
		Title:           "The Forgotten Birthday",
		CharacterName:   "Priya",
		CharacterGender: "female",
		InitialDialogue: "So... did you remember what day it is today?",
	})
	if err != nil {
		t.Fatalf("CreateScenario() error = %v", err)
	}

	sess, err := s.CreateSession(ctx, "user123", sc)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.Status != SessionActive {
		t.Fatalf("Status = %q, want %q", sess.Status, SessionActive)
	}
	if len(sess.History) != 1 || sess.History[0].Role != RoleAI {
		t.Fatalf("seeded history = %+v, want one ai entry", sess.History)
	}
	if sess.History[0].Message != sc.InitialDialogue {
		t.Fatalf("seeded message = %q, want opening line", sess.History[0].Message)
	}

	if err := s.FinishSession(ctx, sess.ID, 7, "Handled it with empathy."); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Status != SessionFinished {
		t.Fatalf("Status = %q, want %q", got.Status, SessionFinished)
	}
	if got.FinalScore == nil || *got.FinalScore != 7 {
		t.Fatalf("FinalScore = %v, want 7", got.FinalScore)
	}
	if got.EndedAt == nil {
		t.Fatalf("EndedAt not set by FinishSession")
	}
}

func TestInMemoryStoreNotFound(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.GetSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetScenario(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetScenario() error = %v, want ErrNotFound", err)
	}
	if err := s.FinishSession(ctx, "nope", 1, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FinishSession() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStoreSessionCloneIsolation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	sc, _ := s.CreateScenario(ctx, Scenario{ID: "s", InitialDialogue: "Hi"})
	sess, _ := s.CreateSession(ctx, "u", sc)

	sess.History = append(sess.History, ConversationEntry{Role: RoleUser, Message: "local only"})

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.History) != 1 {
		t.Fatalf("stored history length = %d, want 1 (caller mutation leaked)", len(got.History))
	}
}
