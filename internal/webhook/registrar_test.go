package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmd/internal/ghost"
	"gmd/internal/structures"
	"gmd/internal/testutil"
)

func registrarConfig(enabled bool, publicURL string) *structures.Config {
	conf := &structures.Config{}
	conf.Webhook.Enabled = enabled
	conf.Webhook.PublicURL = publicURL
	conf.Webhook.Secret = "whsec_test"
	return conf
}

func TestRegister_CreatesAllSubscriptions(t *testing.T) {
	client := testutil.NewMockGhostClient()
	var targets []string
	client.CreateWebhookFn = func(_ context.Context, event, targetURL string) (string, error) {
		targets = append(targets, targetURL)
		return "wh_" + event, nil
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, StateActive, r.State())
	assert.Len(t, r.RemoteIDs(), 4)
	for _, target := range targets {
		assert.Equal(t, "https://daemon.example/webhook/ghost", target)
	}
}

func TestRegister_DisabledIsNoOp(t *testing.T) {
	client := testutil.NewMockGhostClient()
	r := NewRegistrar(registrarConfig(false, "https://daemon.example"), client, &testutil.MockLogger{})

	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, StateUnregistered, r.State())
	assert.Zero(t, client.CallCount("CreateWebhook"))
}

func TestRegister_NoPublicURLIsNoOp(t *testing.T) {
	client := testutil.NewMockGhostClient()
	r := NewRegistrar(registrarConfig(true, ""), client, &testutil.MockLogger{})

	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, StateUnregistered, r.State())
	assert.Zero(t, client.CallCount("CreateWebhook"))
}

func TestRegister_Idempotent(t *testing.T) {
	client := testutil.NewMockGhostClient()
	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})

	require.NoError(t, r.Register(context.Background()))
	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, 4, client.CallCount("CreateWebhook"))
}

func TestRegister_PartialFailureStillActivates(t *testing.T) {
	client := testutil.NewMockGhostClient()
	client.CreateWebhookFn = func(_ context.Context, event, _ string) (string, error) {
		if event == "post.published" {
			return "", &ghost.TransientError{Endpoint: "/webhooks", Err: errors.New("boom")}
		}
		return "wh_" + event, nil
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, StateActive, r.State())
	assert.Len(t, r.RemoteIDs(), 3)
}

func TestRegister_RetriesOnlyMissingSubscriptions(t *testing.T) {
	client := testutil.NewMockGhostClient()
	client.CreateWebhookFn = func(_ context.Context, event, _ string) (string, error) {
		if event == "post.published" {
			return "", &ghost.TransientError{Endpoint: "/webhooks", Err: errors.New("boom")}
		}
		return "wh_" + event, nil
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.NoError(t, r.Register(context.Background()))
	require.Equal(t, StateActive, r.State())
	require.Len(t, r.RemoteIDs(), 3)

	// Ghost recovers; only the missing subscription is created.
	var retried []string
	client.CreateWebhookFn = func(_ context.Context, event, _ string) (string, error) {
		retried = append(retried, event)
		return "wh_" + event, nil
	}
	require.NoError(t, r.Register(context.Background()))

	assert.Equal(t, []string{"post.published"}, retried)
	assert.Len(t, r.RemoteIDs(), 4)
	assert.Equal(t, 5, client.CallCount("CreateWebhook"))
}

func TestRegister_TotalFailureRetriesFromScratch(t *testing.T) {
	client := testutil.NewMockGhostClient()
	client.CreateWebhookFn = func(_ context.Context, _, _ string) (string, error) {
		return "", &ghost.TransientError{Endpoint: "/webhooks", Err: errors.New("boom")}
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.Error(t, r.Register(context.Background()))
	assert.Equal(t, StateUnregistered, r.State())

	// Next attempt succeeds once Ghost recovers.
	client.CreateWebhookFn = nil
	require.NoError(t, r.Register(context.Background()))
	assert.Equal(t, StateActive, r.State())
}

func TestUnregister_RemovesAll(t *testing.T) {
	client := testutil.NewMockGhostClient()
	var deleted []string
	client.DeleteWebhookFn = func(_ context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.NoError(t, r.Register(context.Background()))
	require.NoError(t, r.Unregister(context.Background()))

	assert.Equal(t, StateUnregistered, r.State())
	assert.Len(t, deleted, 4)
	assert.Empty(t, r.RemoteIDs())
}

func TestUnregister_WhenInactiveIsNoOp(t *testing.T) {
	client := testutil.NewMockGhostClient()
	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})

	require.NoError(t, r.Unregister(context.Background()))
	assert.Zero(t, client.CallCount("DeleteWebhook"))
}

func TestUnregister_ToleratesAlreadyDeleted(t *testing.T) {
	client := testutil.NewMockGhostClient()
	client.DeleteWebhookFn = func(_ context.Context, _ string) error {
		return &ghost.NotFoundError{Endpoint: "/webhooks"}
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.NoError(t, r.Register(context.Background()))
	require.NoError(t, r.Unregister(context.Background()))

	assert.Equal(t, StateUnregistered, r.State())
}

func TestUnregister_KeepsFailedIDsForRetry(t *testing.T) {
	client := testutil.NewMockGhostClient()
	client.DeleteWebhookFn = func(_ context.Context, id string) error {
		if id == "wh_member.added" {
			return &ghost.TransientError{Endpoint: "/webhooks", Err: errors.New("boom")}
		}
		return nil
	}

	r := NewRegistrar(registrarConfig(true, "https://daemon.example"), client, &testutil.MockLogger{})
	require.NoError(t, r.Register(context.Background()))
	require.Error(t, r.Unregister(context.Background()))

	assert.Equal(t, StateActive, r.State())
	assert.Equal(t, []string{"wh_member.added"}, r.RemoteIDs())

	// Retry finishes the job.
	client.DeleteWebhookFn = nil
	require.NoError(t, r.Unregister(context.Background()))
	assert.Equal(t, StateUnregistered, r.State())
}
