package internal

import (
	"net/http"

	"gmd/internal/controllers"
	"gmd/internal/providers"
	"gmd/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, webhookController *controllers.WebhookController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/snapshot", http.HandlerFunc(apiController.GetSnapshot))
	routers.Get("/newsletters", http.HandlerFunc(apiController.GetNewsletters))
	routers.Get("/status", http.HandlerFunc(apiController.GetStatus))
	if conf.Webhook.Enabled {
		routers.Post("/webhook/ghost", http.HandlerFunc(webhookController.Receive))
	}
	return routers
}
