package tooling

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/doubletabai/tabsql/pkg/agent"
	"github.com/doubletabai/tabsql/pkg/database"
	"github.com/doubletabai/tabsql/pkg/llm"
	"github.com/doubletabai/tabsql/pkg/training"
	"github.com/doubletabai/tabsql/pkg/vector"
)

type stubLLM struct {
	reply string
}

func (s *stubLLM) Chat(context.Context, []llm.Message) (string, error) { return s.reply, nil }

func (s *stubLLM) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)%7) + 1, 1}, nil
}

func (s *stubLLM) Name() string { return "stub" }

func newTestService(t *testing.T, reply string) *Service {
	t.Helper()
	ctx := context.Background()

	store, err := vector.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	db, err := database.Connect(ctx, database.Config{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.X.ExecContext(ctx, "CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.X.ExecContext(ctx, "INSERT INTO orders (total) VALUES (10.5), (4)"); err != nil {
		t.Fatal(err)
	}

	cli := &stubLLM{reply: reply}
	a := agent.New(vector.New(store, cli), cli, db, agent.Options{Dialect: "SQLite"})
	return New(a, "test")
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestAskWithoutTrainingData(t *testing.T) {
	s := newTestService(t, "```sql\nSELECT 1\n```")

	result, err := s.Ask(context.Background(), callRequest(AskToolName, map[string]any{"question": "total revenue?"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if text := toolText(t, result); !strings.Contains(text, "insufficient context") {
		t.Fatalf("text = %q", text)
	}
}

func TestTrainThenAsk(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, "```sql\nSELECT SUM(total) AS revenue FROM orders\n```")

	result, err := s.Train(ctx, callRequest(TrainToolName, map[string]any{
		"kind":    "ddl",
		"content": "CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL)",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("train failed: %s", toolText(t, result))
	}
	if text := toolText(t, result); !strings.HasSuffix(text, "-ddl") {
		t.Fatalf("text = %q", text)
	}

	result, err = s.Ask(ctx, callRequest(AskToolName, map[string]any{"question": "What is the total revenue?"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("ask failed: %s", toolText(t, result))
	}
	var out struct {
		SQL    string           `json:"sql"`
		Result *database.Result `json:"result"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SQL != "SELECT SUM(total) AS revenue FROM orders" {
		t.Fatalf("sql = %q", out.SQL)
	}
	if out.Result == nil || len(out.Result.Rows) != 1 || out.Result.Rows[0][0] != 14.5 {
		t.Fatalf("result = %+v", out.Result)
	}
}

func TestTrainValidation(t *testing.T) {
	s := newTestService(t, "")
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing kind", map[string]any{"content": "x"}},
		{"unknown kind", map[string]any{"kind": "table", "content": "x"}},
		{"missing content", map[string]any{"kind": "ddl"}},
		{"blank content", map[string]any{"kind": "documentation", "content": "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Train(context.Background(), callRequest(TrainToolName, tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected tool error, got %q", toolText(t, result))
			}
		})
	}
}

func TestListAndRemoveTrainingData(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, "")

	item, err := s.Agent.TrainDocumentation(ctx, "Revenue is the sum of order totals", training.SourceCLI)
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.ListTrainingData(ctx, callRequest(ListTrainingDataToolName, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []training.Item
	if err := json.Unmarshal([]byte(toolText(t, result)), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("items = %+v", items)
	}

	result, err = s.RemoveTrainingData(ctx, callRequest(RemoveTrainingDataToolName, map[string]any{"id": item.ID}))
	if err != nil || result.IsError {
		t.Fatalf("remove failed: %v %s", err, toolText(t, result))
	}
	result, err = s.RemoveTrainingData(ctx, callRequest(RemoveTrainingDataToolName, map[string]any{"id": item.ID}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error removing a missing item")
	}
}

func TestListTables(t *testing.T) {
	s := newTestService(t, "")
	result, err := s.ListTables(context.Background(), callRequest(ListTablesToolName, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := toolText(t, result); !strings.Contains(text, `"orders"`) {
		t.Fatalf("text = %q", text)
	}
}

func TestServerRegistersTools(t *testing.T) {
	s := newTestService(t, "")
	tools := s.Server().ListTools()
	for _, name := range []string{AskToolName, GenerateSQLToolName, TrainToolName, ListTrainingDataToolName, RemoveTrainingDataToolName, ListTablesToolName} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}
