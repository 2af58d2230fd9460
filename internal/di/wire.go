//go:build wireinject
// +build wireinject

package di

import (
	"PriceSignal/pkg/config"
	"PriceSignal/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideRedisCache,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideObservationStore,
	ProvideHistorySource,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideMessageHandlers,
	ProvideArtifactStore,
	ProvideQueue,
)

var signalSet = wire.NewSet(
	ProvideTrainerOptions,
	ProvidePredictor,
	ProvideHTTPClient,
	ProvidePriceProvider,
	ProvideTokenCatalog,
	ProvideSignalService,
	ProvideHub,
	ProvideSignalPublishers,
	ProvideSignalLoop,
	ProvideRetrainJob,
	ProvideRetrainDispatcher,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		signalSet,

		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
