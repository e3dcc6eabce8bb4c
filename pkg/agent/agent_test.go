package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doubletabai/tabsql/pkg/database"
	"github.com/doubletabai/tabsql/pkg/llm"
	"github.com/doubletabai/tabsql/pkg/prompt"
	"github.com/doubletabai/tabsql/pkg/training"
	"github.com/doubletabai/tabsql/pkg/vector"
)

// fakeLLM replies with the queued replies, then with reply, and embeds text on a keyword basis.
type fakeLLM struct {
	reply   string
	replies []string
	calls   int
	last    []llm.Message
	systems []string
}

func (f *fakeLLM) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	f.calls++
	f.last = msgs
	f.systems = append(f.systems, msgs[0].Content)
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r, nil
	}
	return f.reply, nil
}

func (f *fakeLLM) Embed(_ context.Context, text string) ([]float32, error) {
	t := strings.ToLower(text)
	v := []float32{0.01, 0.01}
	if strings.Contains(t, "user") {
		v[0] = 1
	}
	if strings.Contains(t, "order") {
		v[1] = 1
	}
	return v, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func newTestAgent(t *testing.T, reply string, opts Options) (*Agent, *fakeLLM) {
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
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)",
		"INSERT INTO users (email) VALUES ('a@example.com'), ('b@example.com'), ('c@example.com')",
	} {
		if _, err := db.X.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	fake := &fakeLLM{reply: reply}
	opts.Dialect = "SQLite"
	return New(vector.New(store, fake), fake, db, opts), fake
}

func TestGenerateSQLWithEmptyStore(t *testing.T) {
	a, fake := newTestAgent(t, "```sql\nSELECT 1\n```", Options{})

	_, _, err := a.GenerateSQL(context.Background(), "How many users are there?")
	if !errors.Is(err, ErrInsufficientContext) {
		t.Fatalf("GenerateSQL() error = %v, want %v", err, ErrInsufficientContext)
	}
	if fake.calls != 0 {
		t.Fatalf("model called %d times, want 0", fake.calls)
	}
}

func TestGenerateSQLEmptyQuestion(t *testing.T) {
	a, _ := newTestAgent(t, "", Options{})
	if _, _, err := a.GenerateSQL(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("GenerateSQL() error = %v, want %v", err, ErrEmptyQuestion)
	}
}

func TestAskRunsGeneratedSQL(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestAgent(t, "Here you go:\n```sql\nSELECT COUNT(*) AS n FROM users;\n```", Options{AutoTrain: true})

	if _, err := a.TrainDDL(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)", training.SourceCLI); err != nil {
		t.Fatalf("TrainDDL() error = %v", err)
	}

	ans, err := a.Ask(ctx, "How many users are there?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if ans.SQL != "SELECT COUNT(*) AS n FROM users;" {
		t.Fatalf("SQL = %q", ans.SQL)
	}
	if len(ans.Context.DDL) != 1 {
		t.Fatalf("context DDL = %d, want 1", len(ans.Context.DDL))
	}
	if ans.Result == nil || len(ans.Result.Rows) != 1 || ans.Result.Rows[0][0] != int64(3) {
		t.Fatalf("Result = %+v", ans.Result)
	}
	if fake.calls != 1 {
		t.Fatalf("model called %d times, want 1", fake.calls)
	}
	if !strings.Contains(fake.last[0].Content, "CREATE TABLE users") {
		t.Fatalf("system prompt lacks DDL: %q", fake.last[0].Content)
	}

	items, err := a.TrainingData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var auto *training.Item
	for i := range items {
		if items[i].Source == training.SourceAutoTrain {
			auto = &items[i]
		}
	}
	if auto == nil || auto.Kind != training.KindSQL || auto.Question != "How many users are there?" {
		t.Fatalf("auto-trained item missing: %+v", items)
	}
}

func TestAskRefusesWrites(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAgent(t, "```sql\nDELETE FROM users\n```", Options{})
	if _, err := a.TrainDDL(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY)", training.SourceCLI); err != nil {
		t.Fatal(err)
	}

	ans, err := a.Ask(ctx, "Remove all users")
	if !errors.Is(err, database.ErrWriteNotAllowed) {
		t.Fatalf("Ask() error = %v, want %v", err, database.ErrWriteNotAllowed)
	}
	if ans == nil || ans.SQL != "DELETE FROM users" {
		t.Fatalf("answer = %+v", ans)
	}
	n, err := a.Vectors.Store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("Count() = %d, want 1", n)
	}
}

func TestGenerateSQLNoStatement(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAgent(t, "The context does not describe any orders table.", Options{})
	if _, err := a.TrainDocumentation(ctx, "Users are customers who signed up", training.SourceCLI); err != nil {
		t.Fatal(err)
	}

	_, _, err := a.GenerateSQL(ctx, "What was the largest order?")
	if !errors.Is(err, prompt.ErrNoSQL) {
		t.Fatalf("GenerateSQL() error = %v, want %v", err, prompt.ErrNoSQL)
	}
	if !strings.Contains(err.Error(), "orders table") {
		t.Fatalf("error should carry the model explanation: %v", err)
	}
}

func TestTrainSQLGeneratesQuestion(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestAgent(t, "  How many users signed up?\n", Options{})

	item, err := a.TrainSQL(ctx, "", "SELECT COUNT(*) FROM users", training.SourceCLI)
	if err != nil {
		t.Fatalf("TrainSQL() error = %v", err)
	}
	if item.Question != "How many users signed up?" {
		t.Fatalf("Question = %q", item.Question)
	}
	if fake.calls != 1 {
		t.Fatalf("model called %d times, want 1", fake.calls)
	}
	if !strings.HasSuffix(item.ID, "-sql") {
		t.Fatalf("ID = %q", item.ID)
	}
}

func TestTrainRejectsEmptyContent(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestAgent(t, "", Options{})

	if _, err := a.TrainDDL(ctx, "  ", training.SourceCLI); !errors.Is(err, training.ErrEmptyContent) {
		t.Fatalf("TrainDDL() error = %v", err)
	}
	if _, err := a.TrainSQL(ctx, "", "", training.SourceCLI); !errors.Is(err, training.ErrEmptyContent) {
		t.Fatalf("TrainSQL() error = %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("model called %d times, want 0", fake.calls)
	}
}

func TestTrainPlanAndRemove(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAgent(t, "", Options{})

	items, err := a.TrainPlan(ctx, training.SourcePlan)
	if err != nil {
		t.Fatalf("TrainPlan() error = %v", err)
	}
	if len(items) != 1 || items[0].Kind != training.KindDocumentation || !strings.Contains(items[0].Content, "email") {
		t.Fatalf("TrainPlan() = %+v", items)
	}

	if err := a.RemoveTrainingData(ctx, items[0].ID); err != nil {
		t.Fatalf("RemoveTrainingData() error = %v", err)
	}
	if err := a.RemoveTrainingData(ctx, items[0].ID); !errors.Is(err, vector.ErrNotFound) {
		t.Fatalf("RemoveTrainingData() error = %v, want %v", err, vector.ErrNotFound)
	}
}

func TestAskWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAgent(t, "```sql\nSELECT 1\n```", Options{})
	a.DB = nil
	if _, err := a.TrainDocumentation(ctx, "users table holds customers", training.SourceCLI); err != nil {
		t.Fatal(err)
	}

	ans, err := a.Ask(ctx, "list users")
	if !errors.Is(err, database.ErrNotConnected) {
		t.Fatalf("Ask() error = %v", err)
	}
	if ans == nil || ans.SQL != "SELECT 1" {
		t.Fatalf("answer = %+v", ans)
	}
}

func TestAskRunsIntermediateQueryFirst(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestAgent(t, "", Options{AutoTrain: true})
	fake.replies = []string{
		"-- intermediate_sql\nSELECT DISTINCT email FROM users",
		"```sql\nSELECT COUNT(*) AS n FROM users WHERE email LIKE '%@example.com'\n```",
	}
	if _, err := a.TrainDDL(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)", training.SourceCLI); err != nil {
		t.Fatal(err)
	}

	ans, err := a.Ask(ctx, "How many users have an example.com address?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if ans.SQL != "SELECT COUNT(*) AS n FROM users WHERE email LIKE '%@example.com'" {
		t.Fatalf("SQL = %q", ans.SQL)
	}
	if ans.Result == nil || len(ans.Result.Rows) != 1 || ans.Result.Rows[0][0] != int64(3) {
		t.Fatalf("Result = %+v", ans.Result)
	}
	if fake.calls != 2 {
		t.Fatalf("model called %d times, want 2", fake.calls)
	}
	if !strings.Contains(fake.systems[0], prompt.IntermediateMarker) {
		t.Fatal("first prompt should offer a lookup query")
	}
	if strings.Contains(fake.systems[1], prompt.IntermediateMarker) || !strings.Contains(fake.systems[1], "b@example.com") {
		t.Fatalf("second prompt should carry the lookup rows without offering another lookup:\n%s", fake.systems[1])
	}

	items, err := a.TrainingData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var auto []training.Item
	for _, it := range items {
		if it.Source == training.SourceAutoTrain {
			auto = append(auto, it)
		}
	}
	if len(auto) != 1 || auto[0].Content != ans.SQL {
		t.Fatalf("auto-trained items = %+v", auto)
	}
}

func TestAskRejectsRepeatedIntermediateQuery(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestAgent(t, "-- intermediate_sql\nSELECT DISTINCT email FROM users", Options{AutoTrain: true})
	if _, err := a.TrainDDL(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)", training.SourceCLI); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Ask(ctx, "How many users have a gmail address?"); !errors.Is(err, prompt.ErrNoSQL) {
		t.Fatalf("Ask() error = %v, want %v", err, prompt.ErrNoSQL)
	}
	if fake.calls != 2 {
		t.Fatalf("model called %d times, want 2", fake.calls)
	}
	if n, _ := a.Vectors.Store.Count(ctx); n != 1 {
		t.Fatalf("stored items = %d, want 1", n)
	}
}

func TestGenerateSQLWithoutDatabaseOmitsLookupQueries(t *testing.T) {
	ctx := context.Background()
	a, fake := newTestAgent(t, "SELECT 1", Options{})
	a.DB = nil
	if _, err := a.TrainDDL(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY)", training.SourceCLI); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.GenerateSQL(ctx, "How many users are there?"); err != nil {
		t.Fatalf("GenerateSQL() error = %v", err)
	}
	if strings.Contains(fake.systems[0], prompt.IntermediateMarker) {
		t.Fatal("lookup queries offered without a database")
	}
}
