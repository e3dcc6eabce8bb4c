package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/doubletabai/tabsql/pkg/config"
	"github.com/doubletabai/tabsql/pkg/training"
)

var ErrNotFound = errors.New("training item not found")

// Store persists training items with their embeddings and answers nearest-neighbour queries.
type Store interface {
	Add(ctx context.Context, item training.Item, embedding []float32) error
	Similar(ctx context.Context, kind training.Kind, embedding []float32, k int) ([]training.Item, error)
	List(ctx context.Context) ([]training.Item, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Open connects to the knowledge store selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "pgvector":
		conn := fmt.Sprintf("host='%s' port='%d' dbname='%s' user='%s' password='%s' sslmode='%s'",
			cfg.StorePGHost, cfg.StorePGPort, cfg.StorePGDatabase, cfg.StorePGUser, cfg.StorePGPassword, cfg.StorePGSSLMode)
		return OpenPG(ctx, conn, cfg.LLMEmbeddingDimensions)
	case "sqlite":
		return OpenSQLite(ctx, cfg.StorePath)
	}
	return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
}

// Context is what retrieval found for one question, grouped by kind and ordered by similarity.
type Context struct {
	DDL           []training.Item `json:"ddl"`
	Documentation []training.Item `json:"documentation"`
	SQL           []training.Item `json:"sql"`
}

func (c Context) Empty() bool {
	return len(c.DDL) == 0 && len(c.Documentation) == 0 && len(c.SQL) == 0
}

func (c Context) Len() int {
	return len(c.DDL) + len(c.Documentation) + len(c.SQL)
}

func (c *Context) slot(kind training.Kind) *[]training.Item {
	switch kind {
	case training.KindDDL:
		return &c.DDL
	case training.KindDocumentation:
		return &c.Documentation
	}
	return &c.SQL
}

type Service struct {
	Store    Store
	Embedder Embedder
}

func New(store Store, embedder Embedder) *Service {
	return &Service{Store: store, Embedder: embedder}
}

func (s *Service) Close() error {
	return s.Store.Close()
}

// Train validates, embeds and stores a single item.
func (s *Service) Train(ctx context.Context, item training.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	embedding, err := s.Embedder.Embed(ctx, item.EmbeddingText())
	if err != nil {
		return fmt.Errorf("failed to embed training item: %w", err)
	}
	if err := s.Store.Add(ctx, item, embedding); err != nil {
		return fmt.Errorf("failed to store training item: %w", err)
	}
	log.Debug().Str("id", item.ID).Str("kind", string(item.Kind)).Str("source", item.Source).Msg("Stored training item")
	return nil
}

// Retrieve embeds the question once and fetches the k nearest items of every kind in parallel.
func (s *Service) Retrieve(ctx context.Context, question string, k int) (Context, error) {
	embedding, err := s.Embedder.Embed(ctx, question)
	if err != nil {
		return Context{}, fmt.Errorf("failed to embed question: %w", err)
	}

	var rc Context
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range training.Kinds {
		dst := rc.slot(kind)
		g.Go(func() error {
			items, err := s.Store.Similar(gctx, kind, embedding, k)
			if err != nil {
				return fmt.Errorf("failed to query %s items: %w", kind, err)
			}
			*dst = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Context{}, err
	}
	return rc, nil
}
