package controllers

import (
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"gmd/internal/providers"
	"gmd/internal/services"
	"gmd/internal/webhook"
)

type ApiController struct {
	logger      providers.Logger
	coordinator services.CoordinatorServiceInterface
	registrar   webhook.RegistrarInterface
	cache       providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, coordinator services.CoordinatorServiceInterface, registrar webhook.RegistrarInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:      logger,
		coordinator: coordinator,
		registrar:   registrar,
		cache:       cache,
	}
}

type unavailableResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.logger.Errorf(providers.TypeApi, "Failed to build response for %s: %s", cacheKey, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.logger.Errorf(providers.TypeApi, "Failed to encode response for %s: %s", cacheKey, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) serveUnavailable(w http.ResponseWriter) {
	st := ac.coordinator.Status()
	reason := "no data fetched yet"
	if st.HasSnapshot {
		reason = "too many consecutive poll failures"
	}
	if st.ReauthRequired {
		reason = "reauthentication required"
	}

	gson, _ := json.Marshal(unavailableResponse{Available: false, Reason: reason})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write(gson)
}

// GetSnapshot serves the full current snapshot. The cache key carries the
// capture timestamp so a webhook patch invalidates cached bodies instantly.
func (ac *ApiController) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := ac.coordinator.Current()
	if !ok {
		ac.serveUnavailable(w)
		return
	}
	key := "snapshot:" + strconv.FormatInt(snap.CapturedAt.UnixNano(), 10)
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		return snap, nil
	})
}

func (ac *ApiController) GetNewsletters(w http.ResponseWriter, r *http.Request) {
	snap, ok := ac.coordinator.Current()
	if !ok {
		ac.serveUnavailable(w)
		return
	}
	key := "newsletters:" + strconv.FormatInt(snap.CapturedAt.UnixNano(), 10)
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		counts := snap.NewsletterMembers
		if counts == nil {
			counts = map[string]int{}
		}
		return counts, nil
	})
}

type statusResponse struct {
	services.Status
	WebhookState webhook.State `json:"webhook_state"`
}

func (ac *ApiController) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:       ac.coordinator.Status(),
		WebhookState: ac.registrar.State(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		ac.logger.Errorf(providers.TypeApi, "Failed to encode status response: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}
