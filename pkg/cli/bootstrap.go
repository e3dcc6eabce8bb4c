package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/doubletabai/tabsql/pkg/agent"
	"github.com/doubletabai/tabsql/pkg/config"
	"github.com/doubletabai/tabsql/pkg/database"
	"github.com/doubletabai/tabsql/pkg/llm"
	"github.com/doubletabai/tabsql/pkg/vector"
)

type app struct {
	cfg   *config.Config
	agent *agent.Agent
	vs    *vector.Service
	db    *database.DB
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	if a.vs != nil {
		if err := a.vs.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close knowledge store")
		}
	}
}

// bootstrap loads the config and wires the knowledge store, the model and, when withDB is set, the
// target database into an agent.
func bootstrap(ctx context.Context, cmd *cobra.Command, withDB bool) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel)

	if withDB {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateKnowledge()
	}
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cli, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	store, err := vector.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}
	a := &app{cfg: cfg, vs: vector.New(store, cli)}

	if withDB {
		db, err := database.Connect(ctx, database.FromConfig(cfg))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
	}
	a.agent = agent.New(a.vs, cli, a.db, agent.OptionsFromConfig(cfg))
	log.Debug().Str("llm", cli.Name()).Str("store", cfg.StoreBackend).Bool("database", withDB).Msg("Initialized agent")
	return a, nil
}

// setupLogging writes human readable logs to stderr so stdout stays free for results and the MCP
// transport.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}
