package knowledgebase

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/doubletabai/tabsql/pkg/sqltext"
	"github.com/doubletabai/tabsql/pkg/training"
)

// Trainer stores training data. *agent.Agent implements it.
type Trainer interface {
	TrainDDL(ctx context.Context, ddl, source string) (training.Item, error)
	TrainDocumentation(ctx context.Context, doc, source string) (training.Item, error)
	TrainSQL(ctx context.Context, question, sql, source string) (training.Item, error)
}

// Populate trains every supported file under paths and returns the stored items. Directories are
// walked recursively; files with other extensions are skipped.
func Populate(ctx context.Context, t Trainer, paths []string) ([]training.Item, error) {
	var items []training.Item
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			trained, err := PopulateFile(ctx, t, path)
			if err != nil {
				return err
			}
			items = append(items, trained...)
			return nil
		})
		if err != nil {
			return items, err
		}
	}
	return items, nil
}

func PopulateFile(ctx context.Context, t Trainer, path string) ([]training.Item, error) {
	source := training.SourceFilePrefix + path
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return trainStatements(ctx, t, string(b), source)
	case ".md", ".txt":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return trainDocument(ctx, t, string(b), source)
	case ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return trainDocument(ctx, t, text, source)
	}
	log.Debug().Str("path", path).Msg("Skipping unsupported file")
	return nil, nil
}

func trainDocument(ctx context.Context, t Trainer, text, source string) ([]training.Item, error) {
	if strings.TrimSpace(text) == "" {
		log.Debug().Str("source", source).Msg("Skipping empty document")
		return nil, nil
	}
	item, err := t.TrainDocumentation(ctx, text, source)
	if err != nil {
		return nil, err
	}
	return []training.Item{item}, nil
}

// trainStatements trains each statement of a SQL script. CREATE statements are DDL, the rest are
// example queries. A comment directly above a query is taken as its question.
func trainStatements(ctx context.Context, t Trainer, script, source string) ([]training.Item, error) {
	var items []training.Item
	for _, stmt := range sqltext.Split(script) {
		question, body := leadingComment(stmt)
		if body == "" {
			continue
		}
		var (
			item training.Item
			err  error
		)
		if strings.HasPrefix(strings.ToUpper(body), "CREATE") {
			item, err = t.TrainDDL(ctx, body, source)
		} else {
			item, err = t.TrainSQL(ctx, question, body, source)
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func leadingComment(stmt string) (string, string) {
	var comments []string
	lines := strings.Split(stmt, "\n")
	i := 0
	for ; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(l, "--") {
			break
		}
		if c := strings.TrimSpace(strings.TrimPrefix(l, "--")); c != "" {
			comments = append(comments, c)
		}
	}
	return strings.Join(comments, " "), strings.TrimSpace(strings.Join(lines[i:], "\n"))
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	return buf.String(), nil
}
