//go:build wireinject
// +build wireinject

package di

import (
	"TradeWatch/pkg/config"
	"TradeWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideNeo4jClient,
		ProvideGraphStore,
		ProvideAlertPublisher,
		ProvideDedupeCache,

		// Use cases
		ProvideSchemaDiscovery,
		ProvideDetector,
		ProvideMonitor,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
