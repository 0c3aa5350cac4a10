package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/antoniostano/crux/internal/store"
)

type scriptedModel struct {
	turnText   string
	turnErr    error
	eval       Evaluation
	evalErr    error
	lastPrompt string
}

func (m *scriptedModel) NextTurn(_ context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	return m.turnText, m.turnErr
}

func (m *scriptedModel) Evaluate(_ context.Context, prompt string) (Evaluation, error) {
	m.lastPrompt = prompt
	return m.eval, m.evalErr
}

func entry(role store.Role, msg string) store.ConversationEntry {
	return store.ConversationEntry{Role: role, Message: msg}
}

func testScenario() *store.Scenario {
	return &store.Scenario{
		ID:                "forgotten_birthday",
		Title:             "The Forgotten Birthday",
		CharacterName:     "Priya",
		CharacterGender:   "female",
		PersonalityPrompt: "You are Priya, a 22-year-old girlfriend whose birthday was forgotten.",
		InitialDialogue:   "So... did you remember what day it is today?",
	}
}

func TestAngerLevelCountsUserLinesOnly(t *testing.T) {
	history := []store.ConversationEntry{
		entry(store.RoleAI, "whatever, shut up"), // ai lines never count
		entry(store.RoleUser, "I don't care, WHATEVER"),
		entry(store.RoleUser, "just stop"),
	}
	if got := angerLevel(history); got != 3 {
		t.Fatalf("angerLevel() = %d, want 3", got)
	}
}

func TestAngerLevelSaturatesAtFive(t *testing.T) {
	history := []store.ConversationEntry{
		entry(store.RoleUser, "stop stop stop stop stop stop stop"),
	}
	if got := angerLevel(history); got != 5 {
		t.Fatalf("angerLevel() = %d, want saturation at 5", got)
	}
}

func TestFormatHistoryAlternatingLines(t *testing.T) {
	history := []store.ConversationEntry{
		entry(store.RoleAI, "Hi"),
		entry(store.RoleUser, "sorry"),
	}
	want := "AI: Hi\nUser: sorry"
	if got := formatHistory(history); got != want {
		t.Fatalf("formatHistory() = %q, want %q", got, want)
	}
}

func TestNextTurnPromptCarriesContext(t *testing.T) {
	model := &scriptedModel{turnText: "It's ok"}
	engine := NewEngine(model)

	history := []store.ConversationEntry{
		entry(store.RoleAI, "Hi"),
		entry(store.RoleUser, "shut up, whatever"),
	}
	reply, err := engine.NextTurn(context.Background(), history, testScenario())
	if err != nil {
		t.Fatalf("NextTurn() error = %v", err)
	}
	if reply != "It's ok" {
		t.Fatalf("reply = %q, want %q", reply, "It's ok")
	}
	if !strings.Contains(model.lastPrompt, "User: shut up, whatever") {
		t.Fatalf("prompt missing transcript line:\n%s", model.lastPrompt)
	}
	if !strings.Contains(model.lastPrompt, "ANGER LEVEL: 2/5") {
		t.Fatalf("prompt missing anger level:\n%s", model.lastPrompt)
	}
	if !strings.Contains(model.lastPrompt, testScenario().PersonalityPrompt) {
		t.Fatalf("prompt missing personality prompt:\n%s", model.lastPrompt)
	}
}

func TestNextTurnRejectsEmptyModelOutput(t *testing.T) {
	engine := NewEngine(&scriptedModel{turnText: "   "})
	_, err := engine.NextTurn(context.Background(), nil, testScenario())
	if err == nil {
		t.Fatalf("NextTurn() accepted empty model output")
	}
}

func TestEvaluateValidRange(t *testing.T) {
	engine := NewEngine(&scriptedModel{eval: Evaluation{Score: 7, Justification: " Good empathy. "}})
	got, err := engine.Evaluate(context.Background(), nil, testScenario())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.Score != 7 || got.Justification != "Good empathy." {
		t.Fatalf("Evaluate() = %+v, want trimmed justification and score 7", got)
	}
}

func TestEvaluateRejectsOutOfRangeScore(t *testing.T) {
	engine := NewEngine(&scriptedModel{eval: Evaluation{Score: 11, Justification: "x"}})
	_, err := engine.Evaluate(context.Background(), nil, testScenario())
	if !errors.Is(err, ErrMalformedEvaluation) {
		t.Fatalf("error = %v, want ErrMalformedEvaluation", err)
	}
}

func TestEvaluateRejectsEmptyJustification(t *testing.T) {
	engine := NewEngine(&scriptedModel{eval: Evaluation{Score: 4, Justification: "  "}})
	_, err := engine.Evaluate(context.Background(), nil, testScenario())
	if !errors.Is(err, ErrMalformedEvaluation) {
		t.Fatalf("error = %v, want ErrMalformedEvaluation", err)
	}
}

func TestEvaluatePropagatesModelMalformedError(t *testing.T) {
	engine := NewEngine(&scriptedModel{evalErr: ErrMalformedEvaluation})
	_, err := engine.Evaluate(context.Background(), nil, testScenario())
	if !errors.Is(err, ErrMalformedEvaluation) {
		t.Fatalf("error = %v, want ErrMalformedEvaluation", err)
	}
}

func TestStripJSONFences(t *testing.T) {
	raw := "```json\n{\"score\": 6, \"justification\": \"ok\"}\n```"
	want := `{"score": 6, "justification": "ok"}`
	if got := stripJSONFences(raw); got != want {
		t.Fatalf("stripJSONFences() = %q, want %q", got, want)
	}
}
