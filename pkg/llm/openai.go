package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int64
	Temperature    float64
	Options        []option.RequestOption
}

// OpenAI talks to the OpenAI API or any server speaking the same protocol (llama.cpp, vLLM,
// LM Studio, Ollama's /v1 endpoint) when BaseURL is set.
type OpenAI struct {
	Cli            *openai.Client
	ChatModel      string
	EmbeddingModel string
	Dimensions     int64
	Temperature    float64
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, cfg.Options...)
	return &OpenAI{
		Cli:            openai.NewClient(opts...),
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Dimensions:     cfg.Dimensions,
		Temperature:    cfg.Temperature,
	}
}

func (c *OpenAI) Name() string {
	return "openai:" + c.ChatModel
}

func (c *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	completion, err := c.Cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    openai.F(msgs),
		Model:       openai.String(c.ChatModel),
		Temperature: openai.Float(c.Temperature),
		Seed:        openai.Int(1),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty chat completion choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input:          openai.F[openai.EmbeddingNewParamsInputUnion](shared.UnionString(text)),
		Model:          openai.String(c.EmbeddingModel),
		EncodingFormat: openai.F(openai.EmbeddingNewParamsEncodingFormatFloat),
	}
	// Only the text-embedding-3 family accepts a dimensions override.
	if c.Dimensions > 0 && strings.HasPrefix(c.EmbeddingModel, "text-embedding-3") {
		params.Dimensions = openai.Int(c.Dimensions)
	}
	resp, err := c.Cli.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
