package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/supplychain/internal/agent"
	"github.com/agenthands/supplychain/internal/auth"
	"github.com/agenthands/supplychain/internal/catalog"
	"github.com/agenthands/supplychain/internal/config"
	"github.com/agenthands/supplychain/internal/driver"
	"github.com/agenthands/supplychain/internal/llm"
	"github.com/agenthands/supplychain/internal/logger"
	"github.com/agenthands/supplychain/internal/tools"
)

// App holds the wired components shared by the CLI and the HTTP server.
type App struct {
	Config  *config.Config
	Driver  driver.GraphDriver
	Loader  *catalog.Loader
	Toolbox *tools.Toolbox
	Agent   *agent.Agent
	Log     *logger.Logger
}

// New wires token caches, the graph driver, the model clients, the tools and
// the agent. Nothing is dialed until the first query or model call.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokenURL := cfg.Azure.TokenURL()
	graphTokens := auth.NewTokenCache(
		auth.NewClientCredentials(cfg.Azure.ClientID, cfg.Azure.ClientSecret, tokenURL, cfg.Neo4j.Scope),
		log.With("scope", cfg.Neo4j.Scope),
	)
	d := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.Database, graphTokens, log)

	var modelTokens llm.TokenSource
	if cfg.LLM.APIKey == "" {
		modelTokens = auth.NewTokenCache(
			auth.NewClientCredentials(cfg.Azure.ClientID, cfg.Azure.ClientSecret, tokenURL, cfg.LLM.Scope),
			log.With("scope", cfg.LLM.Scope),
		)
	}
	chat, embedder, err := llm.NewClient(ctx, cfg.LLM, modelTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	loader := catalog.NewLoader(d, embedder, log)
	loader.RelationTypes = cfg.Catalog.RelationTypes
	loader.VectorIndex = cfg.Catalog.VectorIndex
	loader.Dimensions = cfg.Catalog.EmbeddingDimensions

	box := tools.NewToolbox(tools.NewSuppliers(d, embedder, cfg.Catalog.VectorIndex, log))

	return &App{
		Config:  cfg,
		Driver:  d,
		Loader:  loader,
		Toolbox: box,
		Agent:   agent.New(chat, box, cfg.Agent.SystemPrompt, cfg.Agent.MaxTurns, log),
		Log:     log,
	}, nil
}

// LoadCatalog creates the constraints and loads both CSV files. nodesPath and
// relationshipsPath override the configured files when non-empty.
func (a *App) LoadCatalog(ctx context.Context, nodesPath, relationshipsPath string) (entities, relations int, err error) {
	if nodesPath == "" {
		nodesPath = a.Config.Catalog.NodesCSV
	}
	if relationshipsPath == "" {
		relationshipsPath = a.Config.Catalog.RelationshipsCSV
	}
	if nodesPath == "" && relationshipsPath == "" {
		return 0, 0, errors.New("no catalog files configured")
	}

	if err := a.Loader.CreateConstraints(ctx); err != nil {
		return 0, 0, err
	}

	if nodesPath != "" {
		rows, err := catalog.ReadEntitiesFile(nodesPath, catalog.RandomCapacity(a.Config.Catalog.CapacityMin, a.Config.Catalog.CapacityMax))
		if err != nil {
			return 0, 0, err
		}
		if entities, err = a.Loader.LoadEntities(ctx, rows); err != nil {
			return entities, 0, err
		}
	}

	if relationshipsPath != "" {
		rows, err := catalog.ReadRelationsFile(relationshipsPath)
		if err != nil {
			return entities, 0, err
		}
		if relations, err = a.Loader.LoadRelations(ctx, rows); err != nil {
			return entities, relations, err
		}
	}

	a.Log.Info("Catalog loaded", "entities", entities, "relations", relations)
	return entities, relations, nil
}

// EnsureEmbeddings embeds supplier descriptions unless some already exist.
func (a *App) EnsureEmbeddings(ctx context.Context, force bool) (int, error) {
	if !force {
		exist, err := a.Loader.EmbeddingsExist(ctx)
		if err != nil {
			return 0, err
		}
		if exist {
			a.Log.Info("Embeddings already exist, skipping")
			return 0, nil
		}
	}
	return a.Loader.EmbedSuppliers(ctx)
}

func (a *App) Close(ctx context.Context) error {
	return a.Driver.Close(ctx)
}
