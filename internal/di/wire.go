//go:build wireinject
// +build wireinject

package di

import (
	"OptionWatch/pkg/config"
	"OptionWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,

		// Classification engine
		ProvidePhaseGate,
		ProvideStructureGate,
		ProvideRadar,

		// Market data and decisions
		ProvideBytesCache,
		ProvideCacheService,
		ProvideMarketData,
		ProvideDecisionProvider,

		// Observation sink
		ProvideClickHouseClient,
		ProvideStorage,
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvideKafkaConsumer,
		ProvideObservationsHandler,
		ProvideProcessor,
		ProvidePipeline,

		// Use cases
		ProvideEvaluator,
		ProvideScanner,

		// HTTP surface
		ProvideHub,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
