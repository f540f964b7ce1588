package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gmd/internal/controllers"
	"gmd/internal/ghost"
	"gmd/internal/poller/interfaces"
	"gmd/internal/providers"
	"gmd/internal/services"
	"gmd/internal/structures"
	"gmd/internal/webhook"
)

type App struct {
	WebServer *http.Server
}

func NewApp(healthController *controllers.HealthController, scheduler interfaces.SchedulerInterface, registrar webhook.RegistrarInterface, coordinator services.CoordinatorServiceInterface, client ghost.ClientInterface, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) (*App, error) {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s for %s", conf.AppName, conf.Ghost.URL)
	if err := scheduler.Restore(); err != nil {
		logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	// First fetch and webhook registration run off the startup path so a
	// slow or unreachable Ghost instance never blocks the listener.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if site, err := client.GetSite(ctx); err != nil {
			var authErr *ghost.AuthError
			if errors.As(err, &authErr) {
				logger.Errorf(providers.TypeApp, "Admin key rejected by %s, fix credentials and restart", conf.Ghost.URL)
			} else {
				logger.Warnf(providers.TypeApp, "Could not reach Ghost instance yet: %s", err)
			}
		} else {
			coordinator.SetSite(site.Title)
			logger.Infof(providers.TypeApp, "Connected to %s (Ghost %s)", site.Title, site.Version)
		}

		scheduler.RunPoll(ctx)

		if err := registrar.Register(ctx); err != nil {
			logger.Warnf(providers.TypeWebhook, "Webhook registration incomplete: %s", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		return nil, fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()
	coordinator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := registrar.Unregister(ctx); err != nil {
		logger.Warnf(providers.TypeWebhook, "Webhook deregistration incomplete: %s", err)
	}

	if err := app.WebServer.Shutdown(ctx); err != nil {
		return nil, err
	}
	if err := scheduler.Persist(); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
