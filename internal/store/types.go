package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// ConversationEntry is a single message in a session's history. Immutable
// once appended; slice order is conversation order.
type ConversationEntry struct {
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Scenario describes one roleplay setup. Immutable for the lifetime of a
// session that references it.
type Scenario struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	CharacterName     string    `json:"character_name"`
	CharacterGender   string    `json:"character_gender"`
	PersonalityPrompt string    `json:"personality_prompt"`
	InitialDialogue   string    `json:"initial_dialogue"`
	IsCustom          bool      `json:"is_custom"`
	CreatedAt         time.Time `json:"created_at"`
}

type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
)

// Session is one play-through of a scenario by one user.
type Session struct {
	ID                 string              `json:"session_id"`
	UserID             string              `json:"user_id"`
	ScenarioID         string              `json:"scenario_id"`
	Status             SessionStatus       `json:"status"`
	History            []ConversationEntry `json:"conversation_history"`
	FinalScore         *int                `json:"final_score,omitempty"`
	FinalJustification *string             `json:"final_justification,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	EndedAt            *time.Time          `json:"ended_at,omitempty"`
}

// Store persists scenarios and game sessions.
//
// Conversation history is written once at session creation (the scenario's
// seeded opening line); entries appended during play live only in the
// orchestrator's memory until the final score lands via FinishSession.
type Store interface {
	CreateScenario(ctx context.Context, sc Scenario) (*Scenario, error)
	GetScenario(ctx context.Context, id string) (*Scenario, error)
	ListScenarios(ctx context.Context) ([]Scenario, error)

	CreateSession(ctx context.Context, userID string, sc *Scenario) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	FinishSession(ctx context.Context, id string, score int, justification string) error

	Close() error
}
