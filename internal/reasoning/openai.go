package reasoning

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/utils"
)

// OpenAIConfig describes one OpenAI-compatible endpoint (OpenAI itself or Together).
type OpenAIConfig struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIProvider calls the chat-completions API via go-openai.
type OpenAIProvider struct {
	name   string
	model  string
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAIProvider returns NotConfigured when the API key is empty.
func NewOpenAIProvider(cfg OpenAIConfig, logger *slog.Logger) Provider {
	if cfg.APIKey == "" {
		return NotConfigured{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	logger.Info("reasoning provider initialised", "provider", name, "model", cfg.Model)
	return &OpenAIProvider{
		name:   name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Name identifies the provider.
func (p *OpenAIProvider) Name() string { return p.name }

// Complete sends one system+user exchange and returns the first choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPayload string, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPayload},
		},
		Temperature: opts.Temperature,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", utils.NewAppError("reasoning.Complete", p.name+" request timed out", utils.ErrProviderTimeout)
		}
		p.logger.Debug("chat completion failed", "provider", p.name, "error", err)
		return "", utils.NewAppError("reasoning.Complete", p.name+" request failed", errors.Join(utils.ErrProviderError, err))
	}
	if len(resp.Choices) == 0 {
		return "", utils.NewAppError("reasoning.Complete", p.name+" returned no choices", utils.ErrProviderError)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", utils.NewAppError("reasoning.Complete", p.name+" returned empty content", utils.ErrProviderError)
	}
	return content, nil
}

// FromConfig builds the provider selected by llm.provider.
func FromConfig(cfg *config.Config, logger *slog.Logger) Provider {
	active := cfg.ActiveLLM()
	return NewOpenAIProvider(OpenAIConfig{
		Name:    strings.ToLower(cfg.LLM.Provider),
		APIKey:  active.APIKey,
		Model:   active.Model,
		BaseURL: active.BaseURL,
	}, logger)
}
