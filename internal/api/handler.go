package api

import (
	"context"

	"go.uber.org/zap"

	"voe-monitor-backend/internal/fetch"
	"voe-monitor-backend/internal/schedule"
	"voe-monitor-backend/internal/store"
	"voe-monitor-backend/internal/worker"
)

// VOEClient is the subset of the fetcher used by the API handlers.
type VOEClient interface {
	Cities(ctx context.Context, query string) ([]fetch.AutocompleteItem, error)
	Streets(ctx context.Context, cityID int64, query string) ([]fetch.AutocompleteItem, error)
	Houses(ctx context.Context, streetID int64, query string) ([]fetch.AutocompleteItem, error)
	Schedule(ctx context.Context, cityID, streetID, houseID int64) (string, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	voe      VOEClient
	parser   *schedule.Parser
	settings *worker.Settings
	maxDays  int
	logger   *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(st store.Store, voe VOEClient, parser *schedule.Parser, settings *worker.Settings, maxDays int, logger *zap.Logger) *Handler {
	return &Handler{
		store:    st,
		voe:      voe,
		parser:   parser,
		settings: settings,
		maxDays:  maxDays,
		logger:   logger.Named("api"),
	}
}
