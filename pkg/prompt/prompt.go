package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/doubletabai/tabsql/pkg/llm"
	"github.com/doubletabai/tabsql/pkg/sqltext"
	"github.com/doubletabai/tabsql/pkg/vector"
)

const (
	initialPrompt = `You are a %s expert. Please help to generate a SQL query to answer the question. Your response
should ONLY be based on the given context and follow the response guidelines and format instructions.`

	guidelineSufficient   = "If the provided context is sufficient, please generate a valid SQL query without any explanations for the question."
	guidelineIntermediate = "If the provided context is almost sufficient but requires knowledge of a specific string in a particular column, please generate an intermediate SQL query to find the distinct strings in that column. Prepend the query with a comment saying " + IntermediateMarker + "."
	guidelineInsufficient = "If the provided context is insufficient, please explain why it can't be generated."
	guidelineRelevant     = "Please use the most relevant table(s)."
	guidelineRepeat       = "If the question has been asked and answered before, please repeat the answer exactly as it was given before."
	guidelineDialect      = "Ensure that the output SQL is %s-compliant and executable, and free of syntax errors."

	questionFromSQLPrompt = `The user will give you SQL and you will try to guess what the business question this query
is answering. Return just the question without any additional explanation. Do not reference the table name in the
question.`
)

// IntermediateMarker tags a lookup query the model wants run before it writes the final answer.
const IntermediateMarker = "intermediate_sql"

var ErrNoSQL = errors.New("model response contains no SQL statement")

type Options struct {
	// Dialect is named in the instructions, e.g. "MySQL".
	Dialect string
	// MaxTokens bounds the retrieved context. Tokens are estimated at four characters each.
	MaxTokens int
	// AllowIntermediate lets the model answer with a lookup query tagged with IntermediateMarker.
	AllowIntermediate bool
}

// EstimateTokens is a rough token count good enough for budgeting.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// Build assembles the chat messages for one question: a system message holding the instructions
// and as much DDL and documentation as fits the budget, then the example question/SQL pairs as
// few-shot turns, then the question itself.
func Build(question string, rc vector.Context, opts Options) []llm.Message {
	dialect := opts.Dialect
	if dialect == "" {
		dialect = "SQL"
	}
	budget := opts.MaxTokens
	if budget <= 0 {
		budget = 14000
	}

	var b strings.Builder
	fmt.Fprintf(&b, initialPrompt, dialect)
	b.WriteString("\n\n")
	used := EstimateTokens(b.String()) + EstimateTokens(question)

	used = appendSection(&b, "===Tables\n", ddlTexts(rc), budget, used)
	used = appendSection(&b, "===Additional Context\n\n", docTexts(rc), budget, used)
	writeGuidelines(&b, dialect, opts.AllowIntermediate)

	messages := []llm.Message{llm.SystemMessage(b.String())}
	for _, ex := range rc.SQL {
		if ex.Question == "" {
			continue
		}
		cost := EstimateTokens(ex.Question) + EstimateTokens(ex.Content)
		if used+cost > budget {
			break
		}
		used += cost
		messages = append(messages, llm.UserMessage(ex.Question), llm.AssistantMessage(ex.Content))
	}
	return append(messages, llm.UserMessage(question))
}

func appendSection(b *strings.Builder, header string, texts []string, budget, used int) int {
	if len(texts) == 0 {
		return used
	}
	headerCost := EstimateTokens(header)
	if used+headerCost > budget {
		return used
	}
	b.WriteString(header)
	used += headerCost
	for _, t := range texts {
		cost := EstimateTokens(t)
		if used+cost > budget {
			break
		}
		b.WriteString(t)
		b.WriteString("\n\n")
		used += cost
	}
	return used
}

func writeGuidelines(b *strings.Builder, dialect string, intermediate bool) {
	lines := []string{guidelineSufficient}
	if intermediate {
		lines = append(lines, guidelineIntermediate)
	}
	lines = append(lines, guidelineInsufficient, guidelineRelevant, guidelineRepeat, fmt.Sprintf(guidelineDialect, dialect))

	b.WriteString("===Response Guidelines\n")
	for i, l := range lines {
		fmt.Fprintf(b, "%d. %s\n", i+1, l)
	}
}

func ddlTexts(rc vector.Context) []string {
	out := make([]string, len(rc.DDL))
	for i, it := range rc.DDL {
		out[i] = it.Content
	}
	return out
}

func docTexts(rc vector.Context) []string {
	out := make([]string, len(rc.Documentation))
	for i, it := range rc.Documentation {
		out[i] = it.Content
	}
	return out
}

// QuestionFromSQL asks the model which question an example query answers.
func QuestionFromSQL(sql string) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(questionFromSQLPrompt),
		llm.UserMessage(sql),
	}
}

var (
	fencedSQL   = regexp.MustCompile("(?s)```(?:sqlite|postgresql|mysql|sql|SQL)?\\s*\\n?(.*?)```")
	// Keywords are matched upper-case, plus lower-case select and "with x as", so prose such as
	// "With the given tables..." is not mistaken for SQL.
	statementRe = regexp.MustCompile(`(?ms)^[ \t]*(?:WITH|SELECT|SHOW|DESCRIBE|EXPLAIN|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|select|with\s+\w+\s+as)\b.*`)
)

// ExtractSQL pulls the SQL statement out of a model reply. Fenced code blocks win; otherwise the
// reply is scanned for the first line starting with a statement keyword and the statement from there
// up to its terminating semicolon is kept.
func ExtractSQL(reply string) (string, error) {
	if m := fencedSQL.FindStringSubmatch(reply); m != nil {
		if sql := strings.TrimSpace(m[1]); sql != "" {
			return sql, nil
		}
	}
	trimmed := strings.TrimSpace(reply)
	if m := statementRe.FindString(trimmed); m != "" {
		return sqltext.First(m), nil
	}
	return "", ErrNoSQL
}

// IsIntermediate reports whether the reply is a lookup query tagged with IntermediateMarker.
func IsIntermediate(reply string) bool {
	return strings.Contains(strings.ToLower(reply), IntermediateMarker)
}

// IntermediateResult renders the rows of a lookup query as extra context for the next attempt.
func IntermediateResult(sql string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following are the results of the intermediate SQL query %s:\n\n", strings.TrimSpace(sql))
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(columns)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			switch v := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(v)
			default:
				cells[i] = fmt.Sprint(v)
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}
