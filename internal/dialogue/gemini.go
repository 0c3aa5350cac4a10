package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const turnTemperature = 0.9

type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiModel implements Model using the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: cfg.Model}, nil
}

func (m *GeminiModel) NextTurn(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](turnTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini generate: empty candidate")
	}
	return text, nil
}

func (m *GeminiModel) Evaluate(ctx context.Context, prompt string) (Evaluation, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score":         {Type: genai.TypeInteger},
				"justification": {Type: genai.TypeString},
			},
			Required: []string{"score", "justification"},
		},
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("gemini evaluate: %w", err)
	}

	raw := stripJSONFences(resp.Text())
	var result Evaluation
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrMalformedEvaluation, err)
	}
	return result, nil
}

// stripJSONFences removes markdown code fences some models wrap around JSON
// output despite the response MIME type.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
