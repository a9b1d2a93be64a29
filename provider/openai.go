package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ZaguanLabs/sitetrans"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is the default translation model endpoint.
	DefaultBaseURL = "http://127.0.0.1:8845/v1"
	// DefaultModel is the default translation model name.
	DefaultModel = "nllb-200-distilled-600M"
	// DefaultMaxTokens bounds the length of one generated translation.
	DefaultMaxTokens = 256
)

var errUnloaded = errors.New("model handle unloaded")

// OpenAIConfig holds configuration for a model served behind an
// OpenAI-compatible API.
type OpenAIConfig struct {
	APIKey     string // API key (optional for local servers)
	BaseURL    string // Endpoint base URL (default: "http://127.0.0.1:8845/v1")
	Model      string // Model to use (default: "nllb-200-distilled-600M")
	MaxTokens  int    // Generation length limit (default: 256)
	SkipVerify bool   // Don't check that the endpoint serves Model on load
}

// OpenAIModel is a translation model reached through an OpenAI-compatible
// chat completions endpoint. Loading creates a client and checks that the
// endpoint serves the model; unloading drops the client.
type OpenAIModel struct {
	cfg OpenAIConfig
}

// NewOpenAIModel creates a new OpenAI-compatible model.
func NewOpenAIModel(cfg OpenAIConfig) *OpenAIModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &OpenAIModel{cfg: cfg}
}

// Name returns the configured model name.
func (m *OpenAIModel) Name() string {
	return m.cfg.Model
}

// Load connects to the endpoint.
func (m *OpenAIModel) Load(ctx context.Context) (sitetrans.Handle, error) {
	config := openai.DefaultConfig(m.cfg.APIKey)
	config.BaseURL = m.cfg.BaseURL
	client := openai.NewClientWithConfig(config)

	if !m.cfg.SkipVerify {
		if _, err := client.GetModel(ctx, m.cfg.Model); err != nil {
			return nil, fmt.Errorf("model %s not available at %s: %w", m.cfg.Model, m.cfg.BaseURL, err)
		}
	}

	return &openAIHandle{
		client:    client,
		model:     m.cfg.Model,
		maxTokens: m.cfg.MaxTokens,
	}, nil
}

type openAIHandle struct {
	mu        sync.Mutex
	client    *openai.Client
	model     string
	maxTokens int
}

// Generate translates one text. Decoding is greedy.
func (h *openAIHandle) Generate(ctx context.Context, text, sourceTag, targetTag string) (string, error) {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	if client == nil {
		return "", errUnloaded
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: h.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(sourceTag, targetTag)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   h.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	return parseResponse(resp)
}

func (h *openAIHandle) Unload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return errUnloaded
	}
	h.client = nil
	return nil
}

// buildSystemPrompt forces the target language the way a seq2seq model's
// forced first token would.
func buildSystemPrompt(sourceTag, targetTag string) string {
	return fmt.Sprintf(`Translate the user's text from %s to %s.
Reply with the translation only, in %s. Keep numbers, URLs, and placeholders unchanged.
Do not add quotes, notes, or explanations.`, sourceTag, targetTag, targetTag)
}

func parseResponse(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" && resp.Choices[0].FinishReason == openai.FinishReasonLength {
		return "", errors.New("generation hit the token limit before producing output")
	}
	return out, nil
}

// Verify OpenAIModel implements Model
var _ Model = (*OpenAIModel)(nil)
