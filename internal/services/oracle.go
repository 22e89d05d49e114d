package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"gatekeeper-backend/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TextProvider is the contract for one text-generation backend. Output is
// untrusted; callers only ever scan it for the win sentinel.
type TextProvider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt string, history []*models.Message, userMessage string) (string, error)
}

// GroqProvider speaks the OpenAI-compatible chat completions API.
type GroqProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGroqProvider(apiKey string) *GroqProvider {
	return &GroqProvider{
		apiKey: apiKey,
		model:  "llama-3.3-70b-versatile",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *GroqProvider) Name() string {
	return "groq"
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *GroqProvider) Complete(ctx context.Context, systemPrompt string, history []*models.Message, userMessage string) (string, error) {
	messages := []groqMessage{{Role: "system", Content: systemPrompt}}
	for _, msg := range history {
		role := "user"
		if msg.Role == models.RoleAI {
			role = "assistant"
		}
		messages = append(messages, groqMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, groqMessage{Role: "user", Content: userMessage})

	body, err := json.Marshal(groqRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0.9,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal groq request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.groq.com/openai/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build groq request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("groq returned status %d: %s", resp.StatusCode, payload)
	}

	var parsed groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode groq response: %v", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// GeminiProvider uses the Google generative AI client.
type GeminiProvider struct {
	apiKey    string
	modelName string
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:    apiKey,
		modelName: "gemini-2.0-flash",
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Complete(ctx context.Context, systemPrompt string, history []*models.Message, userMessage string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %v", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.modelName)
	model.SetTemperature(0.9)
	model.SetMaxOutputTokens(200)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	chat := model.StartChat()
	for _, msg := range history {
		role := "user"
		if msg.Role == models.RoleAI {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %v", err)
	}

	return geminiText(resp), nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				out += string(txt)
			}
		}
	}
	return out
}

// ProviderChain tries providers in preference order, remembering which one
// last succeeded. The sticky slot is a routing hint only: a stale or reset
// value just falls back to the configured default order.
type ProviderChain struct {
	mu        sync.Mutex
	providers []TextProvider
	lastGood  string
}

func NewProviderChain(providers ...TextProvider) *ProviderChain {
	return &ProviderChain{providers: providers}
}

func (c *ProviderChain) order() []TextProvider {
	c.mu.Lock()
	lastGood := c.lastGood
	c.mu.Unlock()

	if lastGood == "" {
		return c.providers
	}

	ordered := make([]TextProvider, 0, len(c.providers))
	for _, p := range c.providers {
		if p.Name() == lastGood {
			ordered = append(ordered, p)
		}
	}
	for _, p := range c.providers {
		if p.Name() != lastGood {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func (c *ProviderChain) markGood(name string) {
	c.mu.Lock()
	c.lastGood = name
	c.mu.Unlock()
}

// Complete runs the chain once through. Each provider gets a single try;
// exhausting them all is terminal for this attempt.
func (c *ProviderChain) Complete(ctx context.Context, systemPrompt string, history []*models.Message, userMessage string) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrOracleUnavailable
	}

	var lastErr error
	for _, provider := range c.order() {
		text, err := provider.Complete(ctx, systemPrompt, history, userMessage)
		if err != nil {
			log.Printf("Provider %s failed: %v", provider.Name(), err)
			lastErr = err
			continue
		}

		c.markGood(provider.Name())
		return text, nil
	}

	return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, lastErr)
}
