package llm

import (
	"context"
	"strings"
)

// DefaultOllamaURL is where a local Ollama daemon serves its
// OpenAI-compatible API.
const DefaultOllamaURL = "http://localhost:11434/v1"

// OllamaClient talks to a local Ollama daemon through its OpenAI-compatible
// endpoint. Only the default URL differs.
type OllamaClient struct {
	openai *OpenAIClient
}

func NewOllamaClient(cfg Config) *OllamaClient {
	cfgCopy := cfg
	if strings.TrimSpace(cfgCopy.APIURL) == "" {
		cfgCopy.APIURL = DefaultOllamaURL
	}
	return &OllamaClient{
		openai: NewOpenAIClient(cfgCopy),
	}
}

func (c *OllamaClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return c.openai.Complete(ctx, req)
}
