package training

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindDDL           Kind = "ddl"
	KindDocumentation Kind = "documentation"
	KindSQL           Kind = "sql"
)

// Kinds lists every kind in retrieval order.
var Kinds = []Kind{KindDDL, KindDocumentation, KindSQL}

var (
	ErrEmptyContent  = errors.New("training item content is empty")
	ErrMissingSource = errors.New("training item source is empty")
	ErrUnknownKind   = errors.New("unknown training item kind")
)

const (
	SourceCLI          = "cli"
	SourceAPI          = "api"
	SourceMCP          = "mcp"
	SourceAutoTrain    = "auto-train"
	SourcePlan         = "plan:information_schema"
	// SourceIntermediate labels lookup results that feed a prompt but are never stored.
	SourceIntermediate = "intermediate"
	SourceFilePrefix   = "file:"
)

// Item is a single piece of knowledge: a schema definition, a documentation snippet or an example
// query. Items are immutable once stored.
type Item struct {
	ID        string    `json:"id" db:"id"`
	Kind      Kind      `json:"kind" db:"kind"`
	Question  string    `json:"question,omitempty" db:"question"`
	Content   string    `json:"content" db:"content"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ddl", "schema":
		return KindDDL, nil
	case "documentation", "doc", "docs":
		return KindDocumentation, nil
	case "sql", "query", "example":
		return KindSQL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) suffix() string {
	switch k {
	case KindDDL:
		return "ddl"
	case KindDocumentation:
		return "doc"
	case KindSQL:
		return "sql"
	}
	return string(k)
}

// NewItem builds a validated item with a fresh ID of the form <uuid>-<suffix>.
func NewItem(kind Kind, question, content, source string) (Item, error) {
	it := Item{
		ID:        uuid.NewString() + "-" + kind.suffix(),
		Kind:      kind,
		Question:  strings.TrimSpace(question),
		Content:   strings.TrimSpace(content),
		Source:    strings.TrimSpace(source),
		CreatedAt: time.Now().UTC(),
	}
	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (it Item) Validate() error {
	switch it.Kind {
	case KindDDL, KindDocumentation, KindSQL:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, it.Kind)
	}
	if strings.TrimSpace(it.Content) == "" {
		return ErrEmptyContent
	}
	if strings.TrimSpace(it.Source) == "" {
		return ErrMissingSource
	}
	return nil
}

// EmbeddingText is the text that gets embedded for the item. Example queries are embedded together
// with their question so that similar questions find them.
func (it Item) EmbeddingText() string {
	if it.Kind == KindSQL && it.Question != "" {
		return it.Question + "\n" + it.Content
	}
	return it.Content
}
