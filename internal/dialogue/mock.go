package dialogue

import (
	"context"
	"strings"
)

// MockModel is a local fallback model used when no Gemini key is configured.
// It echoes a canned reply and a fixed middling evaluation.
type MockModel struct{}

func NewMockModel() *MockModel { return &MockModel{} }

func (m *MockModel) NextTurn(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "ANGER LEVEL: 5/5") {
		return "Are you serious right now? " + Delimiter + " I cannot believe you. " + Delimiter + " Unbelievable!", nil
	}
	return "I hear you. Tell me more about that.", nil
}

func (m *MockModel) Evaluate(_ context.Context, _ string) (Evaluation, error) {
	return Evaluation{Score: 5, Justification: "Simulated evaluation with no model configured."}, nil
}
