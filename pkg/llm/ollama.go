package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type OllamaConfig struct {
	// BaseURL of the Ollama server. Empty means OLLAMA_HOST or the default local address.
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
}

// Ollama uses the native Ollama API of a locally hosted model.
type Ollama struct {
	Cli            *api.Client
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
}

func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	var cli *api.Client
	if cfg.BaseURL == "" {
		var err error
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	} else {
		// Accept the OpenAI-style base URL people tend to copy around.
		base, err := url.Parse(strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/v1"))
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base url: %w", err)
		}
		cli = api.NewClient(base, http.DefaultClient)
	}
	return &Ollama{
		Cli:            cli,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Temperature:    cfg.Temperature,
	}, nil
}

func (c *Ollama) Name() string {
	return "ollama:" + c.ChatModel
}

func (c *Ollama) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.ChatModel,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": c.Temperature,
		},
	}

	var b strings.Builder
	err := c.Cli.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func (c *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.Cli.Embed(ctx, &api.EmbedRequest{
		Model: c.EmbeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Embeddings[0], nil
}
