//go:build wireinject
// +build wireinject

package di

import (
	"FinSim/pkg/config"
	"FinSim/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideScoreCache,

		// Repositories
		ProvideBarStore,
		ProvideTrialSinks,

		// Use cases
		ProvideSignalerRegistry,
		ProvideBacktestUseCase,
		ProvideOptimizeUseCase,
		ProvideJobManager,
		ProvideKafkaJobsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
