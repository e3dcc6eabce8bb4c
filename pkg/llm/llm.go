package llm

import (
	"context"
	"fmt"

	"github.com/doubletabai/tabsql/pkg/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Client is a generation model that can also embed text.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

func New(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAI(OpenAIConfig{
			BaseURL:        cfg.LLMBaseURL,
			APIKey:         cfg.OpenAIAPIKey,
			ChatModel:      cfg.LLMChatModel,
			EmbeddingModel: cfg.LLMEmbeddingModel,
			Dimensions:     cfg.LLMEmbeddingDimensions,
			Temperature:    cfg.LLMTemperature,
		}), nil
	case "ollama":
		return NewOllama(OllamaConfig{
			BaseURL:        cfg.LLMBaseURL,
			ChatModel:      cfg.LLMChatModel,
			EmbeddingModel: cfg.LLMEmbeddingModel,
			Temperature:    cfg.LLMTemperature,
		})
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
}
