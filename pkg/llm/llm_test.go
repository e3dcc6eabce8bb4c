package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/doubletabai/tabsql/pkg/config"
)

func TestOpenAIChat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"local",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"SELECT 1"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{
		BaseURL:   srv.URL,
		APIKey:    "test",
		ChatModel: "local",
		Options:   []option.RequestOption{option.WithMaxRetries(0)},
	})
	reply, err := c.Chat(context.Background(), []Message{
		SystemMessage("you write sql"),
		UserMessage("q"),
		AssistantMessage("SELECT 0"),
		UserMessage("again"),
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "SELECT 1" {
		t.Fatalf("reply = %q", reply)
	}
	if got.Model != "local" {
		t.Fatalf("model = %q", got.Model)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("messages = %+v", got.Messages)
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Fatalf("messages[%d].role = %q, want %q", i, got.Messages[i].Role, role)
		}
	}
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"emb","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],
"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{
		BaseURL:        srv.URL + "/",
		APIKey:         "test",
		EmbeddingModel: "emb",
		Options:        []option.RequestOption{option.WithMaxRetries(0)},
	})
	emb, err := c.Embed(context.Background(), "users table")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(emb) != 2 || emb[0] != 0.5 || emb[1] != 0.25 {
		t.Fatalf("embedding = %v", emb)
	}
}

func TestOllamaChatAndEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req struct {
				Model  string `json:"model"`
				Stream *bool  `json:"stream"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "llama3.1:8b" {
				t.Errorf("model = %q", req.Model)
			}
			if req.Stream == nil || *req.Stream {
				t.Errorf("stream should be false")
			}
			_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"SELECT 2"},"done":true}` + "\n"))
		case "/api/embed":
			_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[1,0,0]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewOllama(OllamaConfig{BaseURL: srv.URL + "/v1/", ChatModel: "llama3.1:8b", EmbeddingModel: "nomic-embed-text"})
	if err != nil {
		t.Fatalf("NewOllama() error = %v", err)
	}
	reply, err := c.Chat(context.Background(), []Message{UserMessage("count users")})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "SELECT 2" {
		t.Fatalf("reply = %q", reply)
	}
	emb, err := c.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(emb) != 3 || emb[0] != 1 {
		t.Fatalf("embedding = %v", emb)
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	if _, err := New(&config.Config{LLMProvider: "bard"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
