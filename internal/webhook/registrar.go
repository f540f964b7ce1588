package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gmd/internal/ghost"
	"gmd/internal/providers"
	"gmd/internal/structures"
)

type State string

const (
	StateUnregistered  State = "unregistered"
	StateRegistering   State = "registering"
	StateActive        State = "active"
	StateUnregistering State = "unregistering"
)

// remoteEvents are the Ghost-side event subscriptions the merge layer
// understands.
var remoteEvents = []string{
	"member.added",
	"member.deleted",
	"post.published",
	"post.unpublished",
}

const receiverPath = "/webhook/ghost"

type RegistrarInterface interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	State() State
	RemoteIDs() []string
}

// Registrar manages webhook subscriptions on the Ghost instance. It only
// attempts registration when a public HTTPS URL is configured; without one
// Ghost could never reach us and the integration degrades to poll-only.
// Remote ids are tracked per event, so retries in either direction only
// touch the subscriptions that are still missing or still present.
type Registrar struct {
	client ghost.ClientInterface
	logger providers.Logger
	config *structures.Config

	mu    sync.Mutex
	state State
	ids   map[string]string
}

func NewRegistrar(config *structures.Config, client ghost.ClientInterface, logger providers.Logger) RegistrarInterface {
	return &Registrar{
		client: client,
		logger: logger,
		config: config,
		state:  StateUnregistered,
		ids:    make(map[string]string),
	}
}

func (r *Registrar) Register(ctx context.Context) error {
	if !r.config.Webhook.Enabled || r.config.Webhook.PublicURL == "" {
		r.logger.Debugf(providers.TypeWebhook, "No public HTTPS endpoint, webhooks stay disabled")
		return nil
	}

	r.mu.Lock()
	if r.state == StateRegistering || r.state == StateUnregistering {
		r.mu.Unlock()
		return nil
	}
	var missing []string
	for _, event := range remoteEvents {
		if _, ok := r.ids[event]; !ok {
			missing = append(missing, event)
		}
	}
	if len(missing) == 0 {
		r.mu.Unlock()
		return nil
	}
	r.state = StateRegistering
	r.mu.Unlock()

	target := strings.TrimRight(r.config.Webhook.PublicURL, "/") + receiverPath
	r.logger.Infof(providers.TypeWebhook, "Registering Ghost webhooks to %s", target)

	created := make(map[string]string, len(missing))
	var failed []error
	for _, event := range missing {
		id, err := r.client.CreateWebhook(ctx, event, target)
		if err != nil {
			r.logger.Warnf(providers.TypeWebhook, "Failed to create webhook for %s: %s", event, err)
			failed = append(failed, fmt.Errorf("%s: %w", event, err))
			continue
		}
		r.logger.Debugf(providers.TypeWebhook, "Created Ghost webhook for %s: %s", event, id)
		created[event] = id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for event, id := range created {
		r.ids[event] = id
	}
	if len(r.ids) == 0 {
		// Nothing stuck; next Register call retries from scratch.
		r.state = StateUnregistered
		return errors.Join(failed...)
	}
	// Events that failed stay absent from ids; the next Register call
	// creates only those.
	r.state = StateActive
	r.logger.Infof(providers.TypeWebhook, "Registered %d of %d Ghost webhooks", len(r.ids), len(remoteEvents))
	return nil
}

func (r *Registrar) Unregister(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return nil
	}
	r.state = StateUnregistering
	ids := make(map[string]string, len(r.ids))
	for event, id := range r.ids {
		ids[event] = id
	}
	r.mu.Unlock()

	var failed []error
	remaining := make(map[string]string)
	for event, id := range ids {
		err := r.client.DeleteWebhook(ctx, id)
		var notFound *ghost.NotFoundError
		if err != nil && !errors.As(err, &notFound) {
			r.logger.Warnf(providers.TypeWebhook, "Failed to delete Ghost webhook %s: %s", id, err)
			failed = append(failed, err)
			remaining[event] = id
			continue
		}
		r.logger.Debugf(providers.TypeWebhook, "Deleted Ghost webhook %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = remaining
	if len(remaining) > 0 {
		// Keep the leftovers so a retry can finish the job.
		r.state = StateActive
		return errors.Join(failed...)
	}
	r.state = StateUnregistered
	return nil
}

func (r *Registrar) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RemoteIDs reports the known Ghost-side webhook ids in remoteEvents order.
func (r *Registrar) RemoteIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ids))
	for _, event := range remoteEvents {
		if id, ok := r.ids[event]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
