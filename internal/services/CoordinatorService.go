package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gmd/internal/ghost"
	"gmd/internal/models"
	"gmd/internal/providers"
	"gmd/internal/structures"
)

const DefaultFailureThreshold = 3

// Status is the diagnostics view of the coordinator.
type Status struct {
	SiteTitle           string    `json:"site_title"`
	HasSnapshot         bool      `json:"has_snapshot"`
	Available           bool      `json:"available"`
	LastSuccess         time.Time `json:"last_success"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ReauthRequired      bool      `json:"reauth_required"`
	LastError           string    `json:"last_error,omitempty"`
}

type CoordinatorServiceInterface interface {
	Refresh(ctx context.Context) error
	Current() (*models.MetricsSnapshot, bool)
	ApplyEvent(ev *models.WebhookEvent) bool
	Subscribe(fn func()) int
	Unsubscribe(id int)
	ReauthRequired() bool
	ResetAuth()
	SetSite(title string)
	Status() Status
	RestoreSnapshot(snap *models.MetricsSnapshot)
	SnapshotForPersist() *models.MetricsSnapshot
	Close()
}

// CoordinatorService owns the cached MetricsSnapshot. Exactly one mutator
// holds mu at a time: a completed poll swaps the snapshot wholesale, a
// webhook event patches it through models.ApplyEvent. Remote fetches happen
// entirely outside the lock; mu is only taken for the swap.
type CoordinatorService struct {
	client    ghost.ClientInterface
	logger    providers.Logger
	threshold int

	group singleflight.Group

	mu          sync.RWMutex
	snapshot    *models.MetricsSnapshot
	lastErr     error
	failures    int
	reauth      bool
	closed      bool
	siteTitle   string
	lastSuccess time.Time

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int

	now func() time.Time
}

func NewCoordinatorService(conf *structures.Config, client ghost.ClientInterface, logger providers.Logger) CoordinatorServiceInterface {
	threshold := conf.Poll.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &CoordinatorService{
		client:    client,
		logger:    logger,
		threshold: threshold,
		listeners: make(map[int]func()),
		now:       time.Now,
	}
}

// Refresh fetches every metrics category and commits a new snapshot.
// Concurrent calls while a fetch is outstanding coalesce onto it: exactly
// one set of remote requests is issued and every caller gets its result.
func (cs *CoordinatorService) Refresh(ctx context.Context) error {
	_, err, _ := cs.group.Do("refresh", func() (any, error) {
		return nil, cs.refresh(ctx)
	})
	return err
}

// categoryFetch binds one metrics category to the snapshot field it fills.
type categoryFetch struct {
	name  string
	fetch func(ctx context.Context, next, prev *models.MetricsSnapshot) error
}

func (cs *CoordinatorService) categories() []categoryFetch {
	return []categoryFetch{
		{"members", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			counts, err := cs.client.MembersSummary(ctx)
			if err != nil {
				next.Members = prev.Members
				return err
			}
			next.Members = counts
			return nil
		}},
		{"posts", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			counts, err := cs.client.PostsSummary(ctx)
			if err != nil {
				next.Posts = prev.Posts
				return err
			}
			next.Posts = counts
			return nil
		}},
		{"latest_post", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			post, err := cs.client.LatestPost(ctx)
			if err != nil {
				next.LatestPost = prev.LatestPost
				return err
			}
			if post != nil {
				next.LatestPost = *post
			}
			return nil
		}},
		{"revenue", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			rev, err := cs.client.RevenueSummary(ctx)
			if err != nil {
				next.Revenue = prev.Revenue
				return err
			}
			next.Revenue = rev
			return nil
		}},
		{"newsletter", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			stats, err := cs.client.NewsletterSummary(ctx)
			if err != nil {
				next.Newsletter = prev.Newsletter
				return err
			}
			if stats != nil {
				next.Newsletter = *stats
			}
			return nil
		}},
		{"newsletter_members", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			counts, err := cs.client.NewsletterMembers(ctx)
			if err != nil {
				next.NewsletterMembers = prev.NewsletterMembers
				return err
			}
			next.NewsletterMembers = counts
			return nil
		}},
		{"activitypub", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			ap, err := cs.client.ActivityPubSummary(ctx)
			if err != nil {
				next.ActivityPub = prev.ActivityPub
				return err
			}
			next.ActivityPub = ap
			return nil
		}},
		{"comments", func(ctx context.Context, next, prev *models.MetricsSnapshot) error {
			total, err := cs.client.CommentsSummary(ctx)
			if err != nil {
				next.Comments = prev.Comments
				return err
			}
			next.Comments = total
			return nil
		}},
	}
}

func (cs *CoordinatorService) refresh(ctx context.Context) error {
	started := cs.now()

	cs.mu.RLock()
	prev := cs.snapshot
	cs.mu.RUnlock()
	if prev == nil {
		prev = &models.MetricsSnapshot{}
	}

	next := &models.MetricsSnapshot{CapturedAt: started}

	var (
		failed    []error
		succeeded int
	)
	for _, cat := range cs.categories() {
		err := cat.fetch(ctx, next, prev)
		if err == nil {
			succeeded++
			continue
		}

		var authErr *ghost.AuthError
		if errors.As(err, &authErr) {
			return cs.recordAuthFailure(err)
		}

		var notFound *ghost.NotFoundError
		if errors.As(err, &notFound) {
			// Feature not enabled on this instance (ActivityPub, stats
			// endpoints on older Ghost). Not a failure.
			cs.logger.Debugf(providers.TypePoll, "Category %s not available: %s", cat.name, err)
			succeeded++
			continue
		}

		var malformed *ghost.MalformedResponseError
		if errors.As(err, &malformed) {
			cs.logger.Errorf(providers.TypePoll, "Category %s returned garbage: %s", cat.name, malformed)
		} else {
			cs.logger.Warnf(providers.TypePoll, "Category %s fetch failed: %s", cat.name, err)
		}
		failed = append(failed, fmt.Errorf("%s: %w", cat.name, err))
	}

	if succeeded == 0 {
		return cs.recordFailure(errors.Join(failed...))
	}

	cs.commit(next, failed)
	return nil
}

func (cs *CoordinatorService) commit(next *models.MetricsSnapshot, partial []error) {
	cs.mu.Lock()
	if cs.closed {
		// Shutdown raced the fetch; the result is discarded, never applied.
		cs.mu.Unlock()
		return
	}
	cs.snapshot = next
	cs.failures = 0
	cs.lastErr = errors.Join(partial...)
	cs.lastSuccess = next.CapturedAt
	cs.mu.Unlock()

	if len(partial) > 0 {
		cs.logger.Warnf(providers.TypePoll, "Committed partial snapshot, %d categories stale", len(partial))
	} else {
		cs.logger.Debugf(providers.TypePoll, "Committed snapshot captured at %s", next.CapturedAt.Format(time.RFC3339))
	}
	cs.notify()
}

func (cs *CoordinatorService) recordFailure(err error) error {
	cs.mu.Lock()
	cs.failures++
	cs.lastErr = err
	crossed := cs.failures == cs.threshold
	cs.mu.Unlock()

	cs.logger.Warnf(providers.TypePoll, "Refresh failed (%d consecutive): %s", cs.failureCount(), err)
	if crossed {
		cs.logger.Errorf(providers.TypePoll, "Failure threshold reached, reporting unavailable")
		cs.notify()
	}
	return err
}

func (cs *CoordinatorService) recordAuthFailure(err error) error {
	cs.mu.Lock()
	cs.failures++
	cs.lastErr = err
	alreadyFlagged := cs.reauth
	cs.reauth = true
	cs.mu.Unlock()

	if !alreadyFlagged {
		cs.logger.Errorf(providers.TypePoll, "Admin key rejected, polling suspended until credentials are refreshed")
		cs.notify()
	}
	return err
}

// Current returns the latest snapshot. ok is false when nothing was ever
// fetched or the consecutive-failure threshold was reached: at that point a
// stale value is more misleading than no value.
func (cs *CoordinatorService) Current() (*models.MetricsSnapshot, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.snapshot == nil {
		return nil, false
	}
	return cs.snapshot, cs.failures < cs.threshold
}

// ApplyEvent merges a webhook event into the cached snapshot. Events that
// predate the snapshot capture time are already reflected by a poll and are
// dropped as no-ops.
func (cs *CoordinatorService) ApplyEvent(ev *models.WebhookEvent) bool {
	cs.mu.Lock()
	if cs.closed || cs.snapshot == nil {
		cs.mu.Unlock()
		cs.logger.Debugf(providers.TypeWebhook, "No snapshot to patch, dropping %s", ev.Kind)
		return false
	}
	patched, applied := models.ApplyEvent(cs.snapshot, ev)
	if applied {
		cs.snapshot = patched
	}
	cs.mu.Unlock()

	if !applied {
		cs.logger.Debugf(providers.TypeWebhook, "Stale %s event (ts %s), superseded by poll", ev.Kind, ev.OccurredAt.Format(time.RFC3339))
		return false
	}
	cs.logger.Infof(providers.TypeWebhook, "Applied %s event", ev.Kind)
	cs.notify()
	return true
}

// Subscribe registers fn to run after each committed update and on each
// transition into a failure or reauth state. The returned id feeds
// Unsubscribe; listener lifetime stays with the caller.
func (cs *CoordinatorService) Subscribe(fn func()) int {
	cs.listenerMu.Lock()
	defer cs.listenerMu.Unlock()
	cs.nextID++
	cs.listeners[cs.nextID] = fn
	return cs.nextID
}

func (cs *CoordinatorService) Unsubscribe(id int) {
	cs.listenerMu.Lock()
	defer cs.listenerMu.Unlock()
	delete(cs.listeners, id)
}

func (cs *CoordinatorService) notify() {
	cs.listenerMu.Lock()
	fns := make([]func(), 0, len(cs.listeners))
	for _, fn := range cs.listeners {
		fns = append(fns, fn)
	}
	cs.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (cs *CoordinatorService) ReauthRequired() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.reauth
}

// ResetAuth is called by the credential layer once a fresh key is in place.
func (cs *CoordinatorService) ResetAuth() {
	cs.mu.Lock()
	cs.reauth = false
	cs.failures = 0
	cs.mu.Unlock()
	cs.logger.Infof(providers.TypePoll, "Credentials refreshed, polling resumed")
}

func (cs *CoordinatorService) SetSite(title string) {
	cs.mu.Lock()
	cs.siteTitle = title
	cs.mu.Unlock()
}

func (cs *CoordinatorService) Status() Status {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	st := Status{
		SiteTitle:           cs.siteTitle,
		HasSnapshot:         cs.snapshot != nil,
		Available:           cs.snapshot != nil && cs.failures < cs.threshold,
		LastSuccess:         cs.lastSuccess,
		ConsecutiveFailures: cs.failures,
		ReauthRequired:      cs.reauth,
	}
	if cs.lastErr != nil {
		st.LastError = cs.lastErr.Error()
	}
	return st
}

// RestoreSnapshot seeds the cache from persistence at boot. A snapshot
// fetched live always wins, so the seed is ignored once one exists.
func (cs *CoordinatorService) RestoreSnapshot(snap *models.MetricsSnapshot) {
	if snap == nil {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.snapshot != nil {
		return
	}
	cs.snapshot = snap
	cs.lastSuccess = snap.CapturedAt
}

func (cs *CoordinatorService) SnapshotForPersist() *models.MetricsSnapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshot
}

// Close marks the coordinator torn down. A refresh still in flight will run
// to completion but its result is discarded rather than applied.
func (cs *CoordinatorService) Close() {
	cs.mu.Lock()
	cs.closed = true
	cs.mu.Unlock()
}

func (cs *CoordinatorService) failureCount() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.failures
}
