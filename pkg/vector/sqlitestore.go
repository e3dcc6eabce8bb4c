package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/doubletabai/tabsql/pkg/training"
)

// SQLiteStore keeps training items in a local SQLite file. Similarity is computed in process, which
// is fine for the few thousand items a typical schema produces.
type SQLiteStore struct {
	DB *sqlx.DB
}

// OpenSQLite opens (or creates) the store at path. Pass ":memory:" for an in-memory store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}
	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteTrainingSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create training schema: %w", err)
	}
	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, item training.Item, embedding []float32) error {
	if err := item.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, sqliteStoreTrainingSQL,
		item.ID, string(item.Kind), item.Question, item.Content, item.Source, item.CreatedAt, string(raw))
	return err
}

type sqliteRow struct {
	training.Item
	Embedding string `db:"embedding"`
}

func (s *SQLiteStore) Similar(ctx context.Context, kind training.Kind, embedding []float32, k int) ([]training.Item, error) {
	var rows []sqliteRow
	if err := s.DB.SelectContext(ctx, &rows, sqliteKindTrainingSQL, string(kind)); err != nil {
		return nil, err
	}

	type scored struct {
		item  training.Item
		score float64
	}
	candidates := make([]scored, 0, len(rows))
	for _, r := range rows {
		var emb []float32
		if err := json.Unmarshal([]byte(r.Embedding), &emb); err != nil {
			return nil, fmt.Errorf("decoding embedding of %s: %w", r.ID, err)
		}
		candidates = append(candidates, scored{item: r.Item, score: cosine(embedding, emb)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	items := make([]training.Item, len(candidates))
	for i, c := range candidates {
		items[i] = c.item
	}
	return items, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]training.Item, error) {
	items := make([]training.Item, 0)
	if err := s.DB.SelectContext(ctx, &items, sqliteListTrainingSQL); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].CreatedAt = items[i].CreatedAt.In(time.UTC)
	}
	return items, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, sqliteRemoveTrainingSQL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, countTrainingSQL); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

// cosine returns the cosine similarity of a and b, or -1 when they cannot be compared.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
