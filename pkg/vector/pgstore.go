package vector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/doubletabai/tabsql/pkg/training"
)

// PGStore keeps training items in PostgreSQL with the pgvector extension.
type PGStore struct {
	DB *sqlx.DB
}

func OpenPG(ctx context.Context, conn string, dimensions int64) (*PGStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to knowledge store: %w", err)
	}
	s, err := NewPGStore(ctx, db, dimensions)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewPGStore(ctx context.Context, db *sqlx.DB, dimensions int64) (*PGStore, error) {
	if _, err := db.ExecContext(ctx, createExtensionSQL); err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(trainingSchemaSQL, dimensions)); err != nil {
		return nil, fmt.Errorf("failed to create training schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, trainingKindIndexSQL); err != nil {
		return nil, fmt.Errorf("failed to create training index: %w", err)
	}
	return &PGStore{DB: db}, nil
}

func (s *PGStore) Add(ctx context.Context, item training.Item, embedding []float32) error {
	if err := item.Validate(); err != nil {
		return err
	}
	args := map[string]interface{}{
		"id":         item.ID,
		"kind":       string(item.Kind),
		"question":   item.Question,
		"content":    item.Content,
		"source":     item.Source,
		"created_at": item.CreatedAt,
		"embedding":  pgvector.NewVector(embedding),
	}
	_, err := s.DB.NamedExecContext(ctx, storeTrainingSQL, args)
	return err
}

func (s *PGStore) Similar(ctx context.Context, kind training.Kind, embedding []float32, k int) ([]training.Item, error) {
	items := make([]training.Item, 0)
	err := s.DB.SelectContext(ctx, &items, similarTrainingSQL, string(kind), pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PGStore) List(ctx context.Context) ([]training.Item, error) {
	items := make([]training.Item, 0)
	if err := s.DB.SelectContext(ctx, &items, listTrainingSQL); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PGStore) Remove(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, removeTrainingSQL, id)
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

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, countTrainingSQL); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PGStore) Close() error {
	return s.DB.Close()
}
