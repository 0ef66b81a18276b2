// Package app wires the pipeline together: schema extraction, relationship
// inference, graph construction, and the interactive question loop.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/theprismdata/llm-sql-maker/internal/config"
	"github.com/theprismdata/llm-sql-maker/internal/dbexec"
	"github.com/theprismdata/llm-sql-maker/internal/graph"
	"github.com/theprismdata/llm-sql-maker/internal/llm"
	"github.com/theprismdata/llm-sql-maker/internal/logging"
	"github.com/theprismdata/llm-sql-maker/internal/planner"
	"github.com/theprismdata/llm-sql-maker/internal/relation"
	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// App owns runtime resources for one tool session.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	databaseName string

	db       *sql.DB
	executor dbexec.QueryExecutor

	snapshot      *schema.Schema
	relationships []relation.Relationship
	junctions     relation.JunctionMap

	store   *graph.Store
	planner *planner.Planner

	llmClient *llm.Client
	selector  *llm.Selector
}

// New creates an App from validated configuration.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	databaseName, err := cfg.Database.EffectiveDatabaseName()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve effective database configuration: %w", err)
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		databaseName: databaseName,
	}, nil
}

// Init connects to the database and graph backend, extracts the schema,
// infers relationships, and builds the graph. After Init returns the app is
// ready to answer questions.
func (a *App) Init(ctx context.Context) error {
	db, err := connectDB(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	a.executor = dbexec.NewReadOnlyExecutor(db, a.databaseName)

	a.llmClient = llm.NewClient(llm.Config{
		Provider: a.cfg.LLM.Provider,
		BaseURL:  a.cfg.LLM.BaseURL,
		APIKey:   a.cfg.LLM.APIKey,
		Model:    a.cfg.LLM.Model,
		Timeout:  a.cfg.LLM.Timeout,
	})
	a.selector = llm.NewSelector(a.llmClient, a.logger.Logger)

	backend, err := a.openBackend(ctx)
	if err != nil {
		_ = a.db.Close()
		return err
	}
	a.store = graph.NewStore(backend, graph.WithQueryTimeout(a.cfg.Graph.QueryTimeout))
	a.planner = planner.New(a.store,
		planner.WithMaxHops(a.cfg.Graph.MaxHops),
		planner.WithLogger(a.logger.Logger),
	)

	if err := a.Refresh(ctx); err != nil {
		_ = a.store.Close(ctx)
		_ = a.db.Close()
		return err
	}
	return nil
}

// Refresh re-extracts the schema, re-runs relationship inference, and
// rebuilds the graph. Used at startup and by the /refresh command after
// schema changes.
func (a *App) Refresh(ctx context.Context) error {
	snapshot, err := schema.Extract(ctx, a.db, a.databaseName)
	if err != nil {
		return fmt.Errorf("failed to extract schema: %w", err)
	}
	if len(snapshot.Tables) == 0 {
		a.logger.Warn("database has no tables", slog.String("database", a.databaseName))
	}

	inferrer := relation.NewInferrer(a.semanticOracle(), a.logger.Logger)
	relationships := inferrer.Infer(ctx, snapshot)

	if err := a.store.Rebuild(ctx, snapshot, relationships); err != nil {
		return fmt.Errorf("failed to rebuild relationship graph: %w", err)
	}

	a.snapshot = snapshot
	a.relationships = relationships
	a.junctions = relation.ClassifyJunctions(snapshot)
	a.logger.Info("relationship graph built",
		slog.String("database", a.databaseName),
		slog.Int("tables", len(snapshot.Tables)),
		slog.Int("relationships", len(relationships)),
	)
	return nil
}

func (a *App) semanticOracle() relation.SemanticOracle {
	if !a.cfg.LLM.SemanticJudge {
		return nil
	}
	if !a.llmClient.Configured() {
		a.logger.Warn("semantic judge enabled but llm client is not configured, skipping semantic pass")
		return nil
	}
	return llm.NewJudge(a.llmClient, a.logger.Logger)
}

func (a *App) openBackend(ctx context.Context) (graph.Backend, error) {
	switch a.cfg.Graph.Backend {
	case "neo4j":
		backend, err := graph.NewBoltBackend(ctx, graph.BoltConfig{
			URI:      a.cfg.Graph.Neo4j.URI,
			Username: a.cfg.Graph.Neo4j.Username,
			Password: a.cfg.Graph.Neo4j.Password,
			Database: a.cfg.Graph.Neo4j.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open neo4j backend: %w", err)
		}
		return backend, nil
	default:
		return graph.NewMemoryBackend(), nil
	}
}

// Close releases the graph backend and database handle.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
