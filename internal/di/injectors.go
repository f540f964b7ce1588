//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"gmd/internal"
	"gmd/internal/controllers"
	"gmd/internal/poller"
	"gmd/internal/providers"
	"gmd/internal/services"
	"gmd/internal/structures"
	"gmd/internal/webhook"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewGhostClient,

		services.NewCoordinatorService,
		ProvideMetricsSource,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		poller.NewZstdCompressor,
		poller.NewFileManager,
		poller.NewScheduler,

		webhook.NewRegistrar,

		controllers.NewApiController,
		controllers.NewWebhookController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
