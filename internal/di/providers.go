package di

import (
	"gmd/internal/providers"
	"gmd/internal/services"
)

// ProvideMetricsSource narrows the coordinator to the read-only slice the
// metrics provider consumes.
func ProvideMetricsSource(coordinator services.CoordinatorServiceInterface) providers.MetricsSourceInterface {
	return coordinator
}
