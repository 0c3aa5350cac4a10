package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/crux/internal/store"
)

// Delimiter is the literal token the model emits to request escalation
// delivery; segments between occurrences become separate burst messages.
const Delimiter = "BREAK"

// ErrMalformedEvaluation is returned when the model's evaluation output
// cannot be coerced into a score plus one-sentence justification.
var ErrMalformedEvaluation = errors.New("malformed evaluation response")

const maxAngerLevel = 5

// angerTriggers is the fixed hostility/dismissiveness vocabulary counted
// across user-authored lines, case-insensitive.
var angerTriggers = []string{
	"fuck", "don't care", "break up", "grow up", "stop", "child", "whatever", "shut up",
}

// Evaluation is the structured end-of-game verdict.
type Evaluation struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Model is the language-model provider behind the engine. Both calls are
// one-shot and stateless; all context travels in the prompt.
type Model interface {
	NextTurn(ctx context.Context, prompt string) (string, error)
	Evaluate(ctx context.Context, prompt string) (Evaluation, error)
}

// Engine turns conversation history plus a scenario into the character's
// next line, and into a final evaluation on request.
type Engine struct {
	model Model
}

func NewEngine(model Model) *Engine {
	return &Engine{model: model}
}

// NextTurn produces the character's next line. The returned text is opaque
// to the caller except for the escalation Delimiter.
func (e *Engine) NextTurn(ctx context.Context, history []store.ConversationEntry, sc *store.Scenario) (string, error) {
	prompt := buildTurnPrompt(history, sc)
	text, err := e.model.NextTurn(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate next turn: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("generate next turn: empty response")
	}
	return text, nil
}

// Evaluate scores the user's performance over the whole conversation.
func (e *Engine) Evaluate(ctx context.Context, history []store.ConversationEntry, sc *store.Scenario) (Evaluation, error) {
	prompt := buildEvaluationPrompt(history, sc)
	result, err := e.model.Evaluate(ctx, prompt)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate conversation: %w", err)
	}
	result.Justification = strings.TrimSpace(result.Justification)
	if result.Score < 0 || result.Score > 10 || result.Justification == "" {
		return Evaluation{}, fmt.Errorf("%w: score=%d justification=%q", ErrMalformedEvaluation, result.Score, result.Justification)
	}
	return result, nil
}

// angerLevel counts hostility-marker occurrences across user lines,
// saturating at maxAngerLevel.
func angerLevel(history []store.ConversationEntry) int {
	level := 0
	for _, entry := range history {
		if entry.Role != store.RoleUser {
			continue
		}
		msg := strings.ToLower(entry.Message)
		for _, trigger := range angerTriggers {
			level += strings.Count(msg, trigger)
		}
	}
	if level > maxAngerLevel {
		level = maxAngerLevel
	}
	return level
}

// formatHistory renders the conversation as alternating AI:/User: lines.
func formatHistory(history []store.ConversationEntry) string {
	var b strings.Builder
	for _, entry := range history {
		switch entry.Role {
		case store.RoleAI:
			b.WriteString("AI: ")
		case store.RoleUser:
			b.WriteString("User: ")
		default:
			continue
		}
		b.WriteString(entry.Message)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func buildTurnPrompt(history []store.ConversationEntry, sc *store.Scenario) string {
	anger := angerLevel(history)
	return fmt.Sprintf(`You are a character in a high-stakes conversation.
YOUR SECRET PROMPT: %q
CONVERSATION HISTORY:
%s

CURRENT ANGER LEVEL: %d/%d

IMPORTANT INSTRUCTIONS:
1. You are the AI. It is your turn to speak.
2. Based on your secret prompt and the history, generate your next response.
3. Do not add 'AI:' or any other prefix. Just say your line.

4. ANGRY SPAM MECHANIC:
   - If the user is being extremely dismissive, rude, or hurtful (especially with profanity or breakup threats)
   - AND your anger level is 2 or higher
   - You can use %q to split your response into rapid-fire emotional bursts
   - Each segment between %s will be delivered as a separate angry message
   - Use 2-5 segments maximum
   - Each segment should be SHORT (5-15 words) and emotionally charged

EXAMPLE OF ANGRY SPAM MODE:
"Are you SERIOUS right now? %s After everything I've done for you? %s Unbelievable!"

NORMAL RESPONSE (if not very angry):
"That really hurts. I can't believe you would say that..."

Current situation: The user has triggered %d anger points. Respond accordingly.`,
		sc.PersonalityPrompt, formatHistory(history), anger, maxAngerLevel,
		Delimiter, Delimiter, Delimiter, Delimiter, anger)
}

func buildEvaluationPrompt(history []store.ConversationEntry, sc *store.Scenario) string {
	summary := sc.PersonalityPrompt
	if len(summary) > 200 {
		summary = summary[:200] + "..."
	}
	return fmt.Sprintf(`You are a conversation evaluator. Your task is to rate the user's performance.
SCENARIO: %q
CHARACTER CONTEXT: %q

FULL CONVERSATION TRANSCRIPT:
%s

INSTRUCTIONS:
Rate how well the user handled this difficult conversation from 0-10.
Consider: empathy, de-escalation, acknowledgment, resolution attempts.
Provide a one-sentence justification.
You must return ONLY a valid JSON object with keys "score" (int) and "justification" (string).`,
		sc.Title, summary, formatHistory(history))
}
