package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action identifies a client control frame.
type Action string

const (
	ActionStartSpeaking Action = "start_speaking"
	ActionStopSpeaking  Action = "stop_speaking"
	ActionEndGame       Action = "end_game"
)

var ErrUnknownAction = errors.New("unknown action")

// ClientControl is the only structured client-to-server frame; everything
// else the client sends is raw binary audio.
type ClientControl struct {
	Action Action `json:"action"`
}

// ParseClientControl decodes and validates one client control frame.
func ParseClientControl(raw []byte) (ClientControl, error) {
	var msg ClientControl
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientControl{}, fmt.Errorf("invalid control frame: %w", err)
	}
	switch msg.Action {
	case ActionStartSpeaking, ActionStopSpeaking, ActionEndGame:
		return msg, nil
	default:
		return ClientControl{}, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
}

// Status identifies server-to-client frames.
type Status string

const (
	StatusAISpeaking         Status = "ai_speaking"
	StatusAIFinishedSpeaking Status = "ai_finished_speaking"
	StatusAIThinking         Status = "ai_thinking"
	StatusUserResponseText   Status = "user_response_text"
	StatusAIResponseText     Status = "ai_response_text"
	StatusAngrySpamStreak    Status = "angry_spam_streak"
	StatusSpamMessage        Status = "spam_message"
	StatusSpamStreakComplete Status = "spam_streak_complete"
	StatusEvaluating         Status = "evaluating"
	StatusGameOver           Status = "game_over"
	StatusError              Status = "error"
)

// StatusEvent is a bare status signal with no payload.
type StatusEvent struct {
	Status Status `json:"status"`
}

// TextEvent carries recognized user text or the character's raw reply text.
type TextEvent struct {
	Status Status `json:"status"`
	Text   string `json:"text"`
}

// SpamStreak announces an escalation burst of MessageCount segments.
type SpamStreak struct {
	Status       Status `json:"status"`
	MessageCount int    `json:"message_count"`
}

// SpamMessage is one escalation segment; Index is 0-based.
type SpamMessage struct {
	Status Status `json:"status"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Text   string `json:"text"`
}

// GameOver is the single terminal frame of a session.
type GameOver struct {
	Status        Status `json:"status"`
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

type ErrorEvent struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// StatusOf reports the status discriminator of an outbound frame.
func StatusOf(v any) (Status, bool) {
	switch m := v.(type) {
	case StatusEvent:
		return m.Status, true
	case TextEvent:
		return m.Status, true
	case SpamStreak:
		return m.Status, true
	case SpamMessage:
		return m.Status, true
	case GameOver:
		return m.Status, true
	case ErrorEvent:
		return m.Status, true
	default:
		return "", false
	}
}
