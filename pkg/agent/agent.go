package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/doubletabai/tabsql/pkg/config"
	"github.com/doubletabai/tabsql/pkg/database"
	"github.com/doubletabai/tabsql/pkg/llm"
	"github.com/doubletabai/tabsql/pkg/metrics"
	"github.com/doubletabai/tabsql/pkg/prompt"
	"github.com/doubletabai/tabsql/pkg/training"
	"github.com/doubletabai/tabsql/pkg/vector"
)

var (
	// ErrInsufficientContext means nothing relevant is trained yet, so no SQL is generated.
	ErrInsufficientContext = errors.New("insufficient context: the knowledge store has no relevant training data")
	ErrEmptyQuestion       = errors.New("question is empty")
)

type Options struct {
	TopK            int
	MaxPromptTokens int
	Dialect         string
	MaxRows         int
	AutoTrain       bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:            cfg.TopK,
		MaxPromptTokens: cfg.MaxPromptTokens,
		Dialect:         cfg.Dialect(),
		MaxRows:         cfg.MaxRows,
		AutoTrain:       cfg.AutoTrain,
	}
}

// Agent answers questions by retrieving training data, prompting the model and running the SQL it
// produces.
type Agent struct {
	Vectors *vector.Service
	LLM     llm.Client
	DB      *database.DB
	Opts    Options
}

func New(vs *vector.Service, cli llm.Client, db *database.DB, opts Options) *Agent {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &Agent{Vectors: vs, LLM: cli, DB: db, Opts: opts}
}

type Answer struct {
	Question string           `json:"question"`
	SQL      string           `json:"sql"`
	Result   *database.Result `json:"result,omitempty"`
	Context  vector.Context   `json:"context"`
}

// Train stores one item and returns it.
func (a *Agent) Train(ctx context.Context, kind training.Kind, question, content, source string) (training.Item, error) {
	item, err := training.NewItem(kind, question, content, source)
	if err != nil {
		return training.Item{}, err
	}
	start := time.Now()
	if err := a.Vectors.Train(ctx, item); err != nil {
		return training.Item{}, err
	}
	metrics.ObserveStage(metrics.StageTrain, start)
	metrics.ObserveTrainingItem(string(item.Kind))
	return item, nil
}

func (a *Agent) TrainDDL(ctx context.Context, ddl, source string) (training.Item, error) {
	return a.Train(ctx, training.KindDDL, "", ddl, source)
}

func (a *Agent) TrainDocumentation(ctx context.Context, doc, source string) (training.Item, error) {
	return a.Train(ctx, training.KindDocumentation, "", doc, source)
}

// TrainSQL stores an example query. When question is empty the model is asked which question the
// query answers.
func (a *Agent) TrainSQL(ctx context.Context, question, sql, source string) (training.Item, error) {
	if strings.TrimSpace(sql) == "" {
		return training.Item{}, training.ErrEmptyContent
	}
	if strings.TrimSpace(question) == "" {
		q, err := a.LLM.Chat(ctx, prompt.QuestionFromSQL(sql))
		if err != nil {
			return training.Item{}, fmt.Errorf("failed to generate question for sql: %w", err)
		}
		question = strings.TrimSpace(q)
		log.Debug().Str("question", question).Msg("Generated question for example query")
	}
	return a.Train(ctx, training.KindSQL, question, sql, source)
}

// TrainPlan documents every table of the connected database from its information schema.
func (a *Agent) TrainPlan(ctx context.Context, source string) ([]training.Item, error) {
	if a.DB == nil {
		return nil, database.ErrNotConnected
	}
	cols, err := a.DB.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read information schema: %w", err)
	}
	plan, err := training.Plan(cols, source)
	if err != nil {
		return nil, err
	}
	trained := make([]training.Item, 0, len(plan))
	for _, item := range plan {
		start := time.Now()
		if err := a.Vectors.Train(ctx, item); err != nil {
			return trained, err
		}
		metrics.ObserveStage(metrics.StageTrain, start)
		metrics.ObserveTrainingItem(string(item.Kind))
		trained = append(trained, item)
	}
	return trained, nil
}

func (a *Agent) TrainingData(ctx context.Context) ([]training.Item, error) {
	return a.Vectors.Store.List(ctx)
}

func (a *Agent) RemoveTrainingData(ctx context.Context, id string) error {
	return a.Vectors.Store.Remove(ctx, id)
}

// GenerateSQL retrieves context for the question and asks the model for a statement. It returns
// ErrInsufficientContext without calling the model when nothing relevant is stored. With a database
// connected the model may first ask for a lookup query; its rows are added to the context and the
// model is asked once more.
func (a *Agent) GenerateSQL(ctx context.Context, question string) (string, vector.Context, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", vector.Context{}, ErrEmptyQuestion
	}

	n, err := a.Vectors.Store.Count(ctx)
	if err != nil {
		return "", vector.Context{}, fmt.Errorf("failed to count training data: %w", err)
	}
	if n == 0 {
		metrics.ObserveQuestion(metrics.OutcomeInsufficientContext)
		return "", vector.Context{}, ErrInsufficientContext
	}

	start := time.Now()
	rc, err := a.Vectors.Retrieve(ctx, question, a.Opts.TopK)
	if err != nil {
		metrics.ObserveQuestion(metrics.OutcomeError)
		return "", vector.Context{}, err
	}
	metrics.ObserveStage(metrics.StageRetrieve, start)
	if rc.Empty() {
		metrics.ObserveQuestion(metrics.OutcomeInsufficientContext)
		return "", rc, ErrInsufficientContext
	}
	log.Debug().Int("items", rc.Len()).Int("ddl", len(rc.DDL)).Int("documentation", len(rc.Documentation)).
		Msg("Retrieved context")

	allowIntermediate := a.DB != nil
	sql, reply, err := a.complete(ctx, question, rc, allowIntermediate)
	if err != nil {
		return "", rc, err
	}
	if allowIntermediate && prompt.IsIntermediate(reply) {
		if rc, err = a.withIntermediateResult(ctx, rc, sql); err != nil {
			return "", rc, err
		}
		if sql, reply, err = a.complete(ctx, question, rc, false); err != nil {
			return "", rc, err
		}
		if prompt.IsIntermediate(reply) {
			metrics.ObserveQuestion(metrics.OutcomeNoSQL)
			return "", rc, fmt.Errorf("%w: model asked for a second intermediate query", prompt.ErrNoSQL)
		}
	}
	log.Debug().Str("sql", sql).Msg("Generated SQL")
	return sql, rc, nil
}

// complete runs one prompt round and returns the extracted statement with the raw reply.
func (a *Agent) complete(ctx context.Context, question string, rc vector.Context, intermediate bool) (string, string, error) {
	msgs := prompt.Build(question, rc, prompt.Options{
		Dialect:           a.Opts.Dialect,
		MaxTokens:         a.Opts.MaxPromptTokens,
		AllowIntermediate: intermediate,
	})
	start := time.Now()
	reply, err := a.LLM.Chat(ctx, msgs)
	if err != nil {
		metrics.ObserveQuestion(metrics.OutcomeError)
		return "", "", fmt.Errorf("failed to generate sql: %w", err)
	}
	metrics.ObserveStage(metrics.StageGenerate, start)

	sql, err := prompt.ExtractSQL(reply)
	if err != nil {
		metrics.ObserveQuestion(metrics.OutcomeNoSQL)
		return "", reply, fmt.Errorf("%w: %s", err, strings.TrimSpace(reply))
	}
	return sql, reply, nil
}

// withIntermediateResult runs the lookup query and returns rc with its rows added as documentation.
// The rows only feed the next prompt and are never stored.
func (a *Agent) withIntermediateResult(ctx context.Context, rc vector.Context, sql string) (vector.Context, error) {
	log.Debug().Str("sql", sql).Msg("Running intermediate SQL")
	start := time.Now()
	res, err := a.DB.Run(ctx, sql, a.Opts.MaxRows)
	if err != nil {
		if errors.Is(err, database.ErrWriteNotAllowed) {
			metrics.ObserveQuestion(metrics.OutcomeRejected)
		} else {
			metrics.ObserveQuestion(metrics.OutcomeError)
		}
		return rc, fmt.Errorf("failed to run intermediate sql: %w", err)
	}
	metrics.ObserveStage(metrics.StageExecute, start)

	docs := make([]training.Item, 0, len(rc.Documentation)+1)
	docs = append(docs, rc.Documentation...)
	rc.Documentation = append(docs, training.Item{
		Kind:    training.KindDocumentation,
		Content: prompt.IntermediateResult(sql, res.Columns, res.Rows),
		Source:  training.SourceIntermediate,
	})
	return rc, nil
}

// Ask generates SQL for the question and runs it. On execution failure the returned answer still
// carries the generated SQL.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	sql, rc, err := a.GenerateSQL(ctx, question)
	if err != nil {
		return nil, err
	}
	ans := &Answer{Question: strings.TrimSpace(question), SQL: sql, Context: rc}

	if a.DB == nil {
		metrics.ObserveQuestion(metrics.OutcomeError)
		return ans, database.ErrNotConnected
	}

	start := time.Now()
	res, err := a.DB.Run(ctx, sql, a.Opts.MaxRows)
	if err != nil {
		if errors.Is(err, database.ErrWriteNotAllowed) {
			metrics.ObserveQuestion(metrics.OutcomeRejected)
		} else {
			metrics.ObserveQuestion(metrics.OutcomeError)
		}
		return ans, fmt.Errorf("failed to run sql: %w", err)
	}
	metrics.ObserveStage(metrics.StageExecute, start)
	metrics.ObserveQuestion(metrics.OutcomeOK)
	ans.Result = res

	if a.Opts.AutoTrain {
		if _, err := a.Train(ctx, training.KindSQL, ans.Question, sql, training.SourceAutoTrain); err != nil {
			log.Warn().Err(err).Str("question", ans.Question).Msg("Failed to auto-train question")
		}
	}
	return ans, nil
}

// Tables lists the tables of the connected database.
func (a *Agent) Tables(ctx context.Context) ([]string, error) {
	if a.DB == nil {
		return nil, database.ErrNotConnected
	}
	return a.DB.Tables(ctx)
}
