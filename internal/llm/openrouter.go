package llm

import (
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter ranks and attributes traffic by these headers.
const (
	openRouterReferer = "https://github.com/abhisek/mcqforge"
	openRouterTitle   = "mcqforge"
)

// openRouterModels lets the short names used for the direct providers
// select the same models through OpenRouter.
var openRouterModels = map[string]string{
	"claude-sonnet": "anthropic/claude-sonnet-4.5",
	"claude-haiku":  "anthropic/claude-haiku-4.5",
	"gpt-4o":        "openai/gpt-4o",
	"gpt-4.1":       "openai/gpt-4.1",
	"gemini-flash":  "google/gemini-2.5-flash",
	"gemini-pro":    "google/gemini-2.5-pro",
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API,
// which speaks the OpenAI protocol.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenRouterBaseURL
	}
	config.HTTPClient = &http.Client{
		Transport: headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": openRouterReferer,
				"X-Title":      openRouterTitle,
			},
		},
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  resolveModel(cfg.Model, openRouterModels),
		name:   "openrouter",
	}, nil
}
