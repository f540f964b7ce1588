package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gmd/internal/models"
	"gmd/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncPollsTotal(result string)
	ObservePollDuration(duration time.Duration)
	IncWebhookEvents(event string, outcome string)
}

// MetricsSourceInterface is the slice of the coordinator the metrics
// provider needs: read the snapshot and get pinged when it changes.
type MetricsSourceInterface interface {
	Current() (*models.MetricsSnapshot, bool)
	Subscribe(fn func()) int
}

type MetricsProvider struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	pollsTotal        *prometheus.CounterVec
	pollDuration      prometheus.Histogram
	webhookEvents     *prometheus.CounterVec
	members           *prometheus.GaugeVec
	posts             *prometheus.GaugeVec
	revenue           *prometheus.GaugeVec
	newsletter        *prometheus.GaugeVec
	newsletterMembers *prometheus.GaugeVec
	activityPub       *prometheus.GaugeVec
	comments          prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits()   { m.cacheHits.Inc() }
func (m *MetricsProvider) IncCacheMisses() { m.cacheMisses.Inc() }

func (m *MetricsProvider) IncPollsTotal(result string) {
	m.pollsTotal.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) ObservePollDuration(duration time.Duration) {
	m.pollDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncWebhookEvents(event string, outcome string) {
	m.webhookEvents.WithLabelValues(event, outcome).Inc()
}

// publish mirrors the current snapshot into the gauge families. The
// per-newsletter vec is reset first so a deleted newsletter id disappears
// instead of freezing at its last count.
func (m *MetricsProvider) publish(source MetricsSourceInterface) {
	snap, ok := source.Current()
	if !ok || snap == nil {
		return
	}

	m.members.WithLabelValues("total").Set(float64(snap.Members.Total))
	m.members.WithLabelValues("paid").Set(float64(snap.Members.Paid))
	m.members.WithLabelValues("free").Set(float64(snap.Members.Free))
	m.members.WithLabelValues("comped").Set(float64(snap.Members.Comped))

	m.posts.WithLabelValues("published").Set(float64(snap.Posts.Published))
	m.posts.WithLabelValues("draft").Set(float64(snap.Posts.Drafts))
	m.posts.WithLabelValues("scheduled").Set(float64(snap.Posts.Scheduled))

	m.revenue.WithLabelValues("mrr").Set(float64(snap.Revenue.MRR))
	m.revenue.WithLabelValues("arr").Set(float64(snap.Revenue.ARR))

	m.newsletter.WithLabelValues("sent").Set(float64(snap.Newsletter.Sent))
	m.newsletter.WithLabelValues("opened").Set(float64(snap.Newsletter.Opened))
	m.newsletter.WithLabelValues("clicked").Set(float64(snap.Newsletter.Clicked))
	m.newsletter.WithLabelValues("open_rate").Set(snap.Newsletter.OpenRate)
	m.newsletter.WithLabelValues("click_rate").Set(snap.Newsletter.ClickRate)

	m.newsletterMembers.Reset()
	for id, count := range snap.NewsletterMembers {
		m.newsletterMembers.WithLabelValues(id).Set(float64(count))
	}

	m.activityPub.WithLabelValues("followers").Set(float64(snap.ActivityPub.Followers))
	m.activityPub.WithLabelValues("following").Set(float64(snap.ActivityPub.Following))

	m.comments.Set(float64(snap.Comments))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, source MetricsSourceInterface) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gmd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gmd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmd_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmd_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		pollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gmd_polls_total",
			Help: "Total number of poll cycles by result",
		}, []string{"result"}),

		pollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gmd_poll_duration_seconds",
			Help:    "Duration of poll cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		webhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gmd_webhook_events_total",
			Help: "Total number of webhook events by type and outcome",
		}, []string{"event", "outcome"}),

		members: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmd_members",
			Help: "Ghost member counts by kind",
		}, []string{"kind"}),

		posts: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmd_posts",
			Help: "Ghost post counts by status",
		}, []string{"status"}),

		revenue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmd_revenue",
			Help: "Ghost revenue figures in whole currency units",
		}, []string{"kind"}),

		newsletter: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmd_newsletter",
			Help: "Latest newsletter performance",
		}, []string{"field"}),

		newsletterMembers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmd_newsletter_members",
			Help: "Subscriber count per newsletter",
		}, []string{"newsletter_id"}),

		activityPub: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmd_activitypub",
			Help: "ActivityPub follower and following counts",
		}, []string{"kind"}),

		comments: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gmd_comments",
			Help: "Total number of comments on the instance",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gmd_snapshot_available",
		Help: "1 when a usable snapshot is being served",
	}, func() float64 {
		if _, ok := source.Current(); ok {
			return 1
		}
		return 0
	})

	source.Subscribe(func() { m.publish(source) })

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                  {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                     {}
func (n *noopMetrics) IncCacheMisses()                                   {}
func (n *noopMetrics) IncPollsTotal(_ string)                            {}
func (n *noopMetrics) ObservePollDuration(_ time.Duration)               {}
func (n *noopMetrics) IncWebhookEvents(_ string, _ string)               {}
