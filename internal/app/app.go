// Package app wires configuration into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"pokequest/internal/artwork"
	"pokequest/internal/catch"
	"pokequest/internal/config"
	"pokequest/internal/knowledge"
	"pokequest/internal/pokeapi"
	"pokequest/internal/service"
	"pokequest/internal/store"
)

type App struct {
	Service *service.Service
	Store   store.Store

	logger *zap.Logger
}

// Open builds the store, the item provider and the optional artwork mirror
// from cfg. Close releases all of them.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	questions, err := knowledge.LoadQuestions(cfg.QuestionsFile)
	if err != nil {
		return nil, err
	}
	catalog, err := knowledge.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	provider, err := pokeapi.NewClient(pokeapi.Config{
		BaseURL: cfg.PokeAPIBaseURL,
		Timeout: cfg.PokeAPITimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init item provider: %w", err)
	}

	var mirror service.ArtworkMirror
	m, err := artwork.New(artwork.Config{
		SecretID:     cfg.COS.SecretID,
		SecretKey:    cfg.COS.SecretKey,
		Region:       cfg.COS.Region,
		Bucket:       cfg.COS.Bucket,
		PublicDomain: cfg.COS.PublicDomain,
	})
	switch {
	case err == nil:
		mirror = m
		logger.Info("artwork mirroring enabled", zap.String("bucket", cfg.COS.Bucket))
	case errors.Is(err, artwork.ErrMirrorUnavailable):
		logger.Info("artwork mirroring disabled, keeping upstream image urls")
	default:
		return nil, fmt.Errorf("init artwork mirror: %w", err)
	}

	st, err := store.NewByEngine(ctx, cfg.Store, cfg.StoreTarget())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info("store ready", zap.String("engine", cfg.Store))

	svc, err := service.New(st, service.Options{
		Provider:  provider,
		Questions: questions,
		Catalog:   catalog,
		Catch: catch.Config{
			MaxItemID:    cfg.MaxItemID,
			SuccessDecay: cfg.SuccessDecay,
			FailureDecay: cfg.FailureDecay,
		},
		SessionSweep: cfg.SessionSweep,
		Location:     loc,
		Mirror:       mirror,
		Logger:       logger,
	})
	if err != nil {
		closeStore(st, logger)
		return nil, err
	}
	return &App{Service: svc, Store: st, logger: logger}, nil
}

// Close stops the service before closing the store it writes to.
func (a *App) Close() {
	a.Service.Close()
	closeStore(a.Store, a.logger)
}

func closeStore(st store.Store, logger *zap.Logger) {
	if closer, ok := st.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
}
