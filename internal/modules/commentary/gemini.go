package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/aristath/fundpulse/internal/modules/diagnosis"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const systemPrompt = `You are a senior fund analyst. Given the metrics of one fund as JSON, write
a short markdown report with four numbered sections: Performance, Risk,
Suggestion (hold, add, wait or reduce, with one reason) and Suitable for.
Use only the numbers provided. Percentages in the payload are fractions.`

// contentGenerator is the part of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates commentary with a Gemini model.
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini generator for the API key.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model}
}

type promptPayload struct {
	Name        string                 `json:"name"`
	Score       float64                `json:"score"`
	Conclusion  string                 `json:"conclusion"`
	Metrics     diagnosis.Metrics      `json:"metrics"`
	Adjustments []diagnosis.Adjustment `json:"adjustments"`
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, name string, d diagnosis.Diagnosis) (string, error) {
	payload, err := json.Marshal(promptPayload{
		Name:        name,
		Score:       d.Score,
		Conclusion:  d.Conclusion,
		Metrics:     d.Metrics,
		Adjustments: d.Adjustments,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt payload: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(string(payload)), config)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini %s: empty response", g.model)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini %s: empty response", g.model)
	}
	return text, nil
}
