// Package coach produces wellness-coach chat replies and personalized
// challenge suggestions via the Gemini API. It never mutates the
// gamification Profile; its output is consumed by presentation code.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// Suggestion is one structured daily challenge produced by the model.
type Suggestion struct {
	Action string `json:"action"`
	Points int    `json:"points"`
	Motto  string `json:"motto"`
}

// Generator abstracts the text-completion collaborator so handlers can
// be tested without network access.
type Generator interface {
	// Generate returns model output for the prompt. When structured is
	// true the model is constrained to the challenge JSON schema.
	Generate(ctx context.Context, prompt string, structured bool) (string, error)
}

// GeminiGenerator implements Generator on top of the Gemini SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator constructs a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// challengeSchema constrains structured output to an array of
// {action, points, motto} objects.
var challengeSchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "An array of 3 personalized daily challenges.",
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action": {Type: genai.TypeString, Description: "A clear, actionable daily task, e.g., 'Take a 15-minute walk.'"},
			"points": {Type: genai.TypeInteger, Description: "Dynamic points awarded (5-50). Harder tasks should have more points."},
			"motto":  {Type: genai.TypeString, Description: "A short, encouraging, and motivational message."},
		},
		Required: []string{"action", "points", "motto"},
	},
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, structured bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 200,
	}
	if structured {
		cfg.MaxOutputTokens = 500
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = challengeSchema
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// Service builds prompts from accumulated wellness logs and parses the
// model's replies.
type Service struct {
	generator Generator

	mu   sync.RWMutex
	logs map[string][]string
}

// NewService constructs a Service.
func NewService(generator Generator) *Service {
	return &Service{
		generator: generator,
		logs:      make(map[string][]string),
	}
}

func logKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// AddLog stores a wellness log line used as context for suggestions.
func (s *Service) AddLog(tenantID, userID, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := logKey(tenantID, userID)
	s.logs[key] = append(s.logs[key], text)
	return len(s.logs[key])
}

// SuggestChallenges asks the model for 3 personalized daily challenges
// grounded in the user's stored logs.
func (s *Service) SuggestChallenges(ctx context.Context, tenantID, userID string) ([]Suggestion, error) {
	s.mu.RLock()
	stored := s.logs[logKey(tenantID, userID)]
	s.mu.RUnlock()

	retrieved := "No previous logs."
	if len(stored) > 0 {
		retrieved = strings.Join(stored, "\n")
	}

	prompt := fmt.Sprintf(`You are a gamified wellness coach.
Based on the following user logs, generate 3 personalized daily challenges.
The output MUST be a strict JSON array following the provided schema.

User logs:
%s

Task: Generate today's challenges.`, retrieved)

	raw, err := s.generator.Generate(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(raw)
}

// ParseSuggestions decodes the structured model output.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &suggestions); err != nil {
		return nil, fmt.Errorf("parse challenge suggestions: %w", err)
	}
	return suggestions, nil
}

// Chat produces a short coach reply with the wellness-coach persona.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message is required")
	}

	prompt := fmt.Sprintf(`You are the YouMatter Wellness Coach, a friendly, motivating, and specialized AI assistant for a comprehensive mobile wellness platform focused on Health, Wealth, and Financial Wellness.

Your goal is to drive user engagement, encourage feature discovery, and reinforce healthy habits by giving short, actionable, and positive advice related to the user's overall wellness.

Instructions for generating a reply:
1. Persona: be friendly, encouraging, and highly positive.
2. Actionable advice: every piece of advice must be simple, clear, and immediately actionable.
3. Contextual hint: whenever possible, subtly hint at a related challenge, reward, or tracking feature. Do not invent features.
4. Length: keep the response brief and direct (3-4 sentences max).

User message:
%s`, message)

	reply, err := s.generator.Generate(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
