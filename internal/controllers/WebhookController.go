package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"gmd/internal/models"
	"gmd/internal/providers"
	"gmd/internal/services"
	"gmd/internal/structures"
)

const maxWebhookBodySize = 1 << 20 // 1 MB

// WebhookController is the transport side of the merge layer: it checks the
// Ghost signature, classifies the payload into a WebhookEvent and hands it
// to the coordinator. The handler stays fast; anything heavier than an HMAC
// and one JSON decode does not belong here, a slow response delays the next
// delivery.
type WebhookController struct {
	logger      providers.Logger
	coordinator services.CoordinatorServiceInterface
	metrics     providers.MetricsProviderInterface
	secret      string
	now         func() time.Time
}

func NewWebhookController(conf *structures.Config, logger providers.Logger, coordinator services.CoordinatorServiceInterface, metrics providers.MetricsProviderInterface) *WebhookController {
	return &WebhookController{
		logger:      logger,
		coordinator: coordinator,
		metrics:     metrics,
		secret:      conf.Webhook.Secret,
		now:         time.Now,
	}
}

type contentHalf struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	URL         string    `json:"url"`
	Email       string    `json:"email"`
	PublishedAt time.Time `json:"published_at"`
}

func (h contentHalf) empty() bool {
	return h.ID == "" && h.Status == "" && h.Email == ""
}

type webhookPayload struct {
	Member *struct {
		Current  contentHalf `json:"current"`
		Previous contentHalf `json:"previous"`
	} `json:"member"`
	Post *struct {
		Current  contentHalf `json:"current"`
		Previous contentHalf `json:"previous"`
	} `json:"post"`
}

func (wc *WebhookController) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	deliveredAt, ok := wc.verifySignature(body, r.Header.Get("X-Ghost-Signature"))
	if !ok {
		wc.logger.Warnf(providers.TypeWebhook, "Rejected webhook with bad signature from %s", r.RemoteAddr)
		wc.metrics.IncWebhookEvents("unknown", "rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		wc.logger.Warnf(providers.TypeWebhook, "Unparseable webhook payload: %s", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	event := wc.classify(&payload, deliveredAt)
	if event == nil {
		// member.edited, post.updated and anything we do not track.
		wc.metrics.IncWebhookEvents("unknown", "ignored")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ignored"))
		return
	}

	if wc.coordinator.ApplyEvent(event) {
		wc.metrics.IncWebhookEvents(string(event.Kind), "applied")
	} else {
		wc.metrics.IncWebhookEvents(string(event.Kind), "stale")
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// verifySignature checks Ghost's `X-Ghost-Signature: sha256=<hex>, t=<ms>`
// header: HMAC-SHA256 over the raw body followed by the millisecond
// timestamp. Returns the delivery time from the header. With no secret
// configured verification is off and delivery time falls back to now.
func (wc *WebhookController) verifySignature(body []byte, header string) (time.Time, bool) {
	if wc.secret == "" {
		return wc.now(), true
	}
	if header == "" {
		return time.Time{}, false
	}

	var digest, ts string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "sha256="); ok {
			digest = v
		} else if v, ok := strings.CutPrefix(part, "t="); ok {
			ts = v
		}
	}
	if digest == "" || ts == "" {
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	mac := hmac.New(sha256.New, []byte(wc.secret))
	mac.Write(body)
	mac.Write([]byte(ts))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return time.Time{}, false
	}

	return time.UnixMilli(millis), true
}

// classify maps Ghost's current/previous payload halves onto an event the
// merge layer understands:
//
//	member: previous empty -> added, current empty -> deleted, both -> edited
//	post: became published -> published, left published -> unpublished
func (wc *WebhookController) classify(payload *webhookPayload, deliveredAt time.Time) *models.WebhookEvent {
	if payload.Member != nil {
		curr, prev := payload.Member.Current, payload.Member.Previous
		switch {
		case curr.empty() && !prev.empty():
			return &models.WebhookEvent{
				Kind:         models.MemberDeleted,
				EntityID:     prev.ID,
				MemberStatus: prev.Status,
				OccurredAt:   deliveredAt,
			}
		case prev.empty() && !curr.empty():
			return &models.WebhookEvent{
				Kind:         models.MemberAdded,
				EntityID:     curr.ID,
				MemberStatus: curr.Status,
				OccurredAt:   deliveredAt,
			}
		default:
			return nil
		}
	}

	if payload.Post != nil {
		curr, prev := payload.Post.Current, payload.Post.Previous
		switch {
		case curr.Status == "published" && prev.Status != "published":
			return &models.WebhookEvent{
				Kind:       models.PostPublished,
				EntityID:   curr.ID,
				PostTitle:  curr.Title,
				PostURL:    curr.URL,
				PrevStatus: prev.Status,
				OccurredAt: deliveredAt,
			}
		case prev.Status == "published" && curr.Status != "published":
			return &models.WebhookEvent{
				Kind:       models.PostUnpublished,
				EntityID:   firstNonEmpty(curr.ID, prev.ID),
				OccurredAt: deliveredAt,
			}
		default:
			return nil
		}
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
