package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
	sessions  map[string]Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		scenarios: make(map[string]Scenario),
		sessions:  make(map[string]Session),
	}
}

func (s *InMemoryStore) CreateScenario(_ context.Context, sc Scenario) (*Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	s.scenarios[sc.ID] = sc
	out := sc
	return &out, nil
}

func (s *InMemoryStore) GetScenario(_ context.Context, id string) (*Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := sc
	return &out, nil
}

func (s *InMemoryStore) ListScenarios(_ context.Context) ([]Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		out = append(out, sc)
	}
	return out, nil
}

func (s *InMemoryStore) CreateSession(_ context.Context, userID string, sc *Scenario) (*Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		ScenarioID: sc.ID,
		Status:     SessionActive,
		History: []ConversationEntry{
			{Role: RoleAI, Message: sc.InitialDialogue, Timestamp: now},
		},
		CreatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return cloneSession(sess), nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *InMemoryStore) FinishSession(_ context.Context, id string, score int, justification string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	sess.Status = SessionFinished
	sess.FinalScore = &score
	sess.FinalJustification = &justification
	sess.EndedAt = &now
	s.sessions[id] = sess
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

func cloneSession(sess Session) *Session {
	out := sess
	out.History = append([]ConversationEntry(nil), sess.History...)
	return &out
}
