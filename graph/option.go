package graph

import (
	"log/slog"
)

// GraphOption configures graph construction behavior.
type GraphOption func(*graphConfig)

// graphConfig holds internal configuration for a Graph.
type graphConfig struct {
	logger *slog.Logger
}

// WithLogger enables debug logging for graph operations.
//
// When set, the graph logs each UpdateFile operation (uri, forward edge
// count). Parent resolution is not logged.
//
// Pass nil to disable logging (the default).
func WithLogger(logger *slog.Logger) GraphOption {
	return func(cfg *graphConfig) {
		cfg.logger = logger
	}
}
