package ghost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "keyid123:6162636465666768"

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, testKey, 0), srv
}

func TestDo_SetsGhostHeaders(t *testing.T) {
	var gotAuth, gotVersion string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Accept-Version")
		_, _ = w.Write([]byte(`{"site":{"title":"Blog"}}`))
	}))
	defer srv.Close()

	site, err := client.GetSite(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Blog", site.Title)
	assert.True(t, strings.HasPrefix(gotAuth, "Ghost "))
	assert.Len(t, strings.Split(strings.TrimPrefix(gotAuth, "Ghost "), "."), 3)
	assert.Equal(t, "v5.0", gotVersion)
}

func TestDo_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"401 is auth", http.StatusUnauthorized, func(t *testing.T, err error) {
			var e *AuthError
			require.ErrorAs(t, err, &e)
			assert.Equal(t, http.StatusUnauthorized, e.Status)
		}},
		{"403 is auth", http.StatusForbidden, func(t *testing.T, err error) {
			var e *AuthError
			assert.ErrorAs(t, err, &e)
		}},
		{"404 is not found", http.StatusNotFound, func(t *testing.T, err error) {
			var e *NotFoundError
			assert.ErrorAs(t, err, &e)
		}},
		{"429 is rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			var e *RateLimitedError
			assert.ErrorAs(t, err, &e)
		}},
		{"500 is transient", http.StatusInternalServerError, func(t *testing.T, err error) {
			var e *TransientError
			assert.ErrorAs(t, err, &e)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()
			_, err := client.GetSite(context.Background())
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestDo_MalformedBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := client.GetSite(context.Background())
	var e *MalformedResponseError
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Payload, "not json")
}

func TestDo_NetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, testKey, 0)
	_, err := client.GetSite(context.Background())
	var e *TransientError
	assert.ErrorAs(t, err, &e)
}

func TestDo_BadKeyIsAuthError(t *testing.T) {
	client := NewClient("http://unused.invalid", "no-separator", 0)
	_, err := client.GetSite(context.Background())
	var e *AuthError
	assert.ErrorAs(t, err, &e)
}

func TestMembersSummary_FilterCounts(t *testing.T) {
	totals := map[string]string{
		"":              `{"meta":{"pagination":{"total":125}}}`,
		"status:paid":   `{"meta":{"pagination":{"total":20}}}`,
		"status:free":   `{"meta":{"pagination":{"total":100}}}`,
		"status:comped": `{"meta":{"pagination":{"total":5}}}`,
	}
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(totals[r.URL.Query().Get("filter")]))
	}))
	defer srv.Close()

	counts, err := client.MembersSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 125, counts.Total)
	assert.Equal(t, 20, counts.Paid)
	assert.Equal(t, 100, counts.Free)
	assert.Equal(t, 5, counts.Comped)
}

func TestPostsSummary_FilterCounts(t *testing.T) {
	totals := map[string]string{
		"status:published": `{"meta":{"pagination":{"total":40}}}`,
		"status:draft":     `{"meta":{"pagination":{"total":3}}}`,
		"status:scheduled": `{"meta":{"pagination":{"total":2}}}`,
	}
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(totals[r.URL.Query().Get("filter")]))
	}))
	defer srv.Close()

	counts, err := client.PostsSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, counts.Published)
	assert.Equal(t, 3, counts.Drafts)
	assert.Equal(t, 2, counts.Scheduled)
}

func TestCommentsSummary(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ghost/api/admin/comments/", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"meta":{"pagination":{"total":156}}}`))
	}))
	defer srv.Close()

	total, err := client.CommentsSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 156, total)
}

func TestLatestPost(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "published_at desc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`{"posts":[{"id":"p1","title":"Hello","url":"https://blog/hello/","published_at":"2025-06-01T12:00:00Z"}]}`))
	}))
	defer srv.Close()

	post, err := client.LatestPost(context.Background())
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, 2025, post.PublishedAt.Year())
}

func TestLatestPost_NoneYet(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"posts":[]}`))
	}))
	defer srv.Close()

	post, err := client.LatestPost(context.Background())
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestNewsletterSummary_RatesRounded(t *testing.T) {
	// First post never went out as email; second one did. Counters come back
	// as strings on some Ghost versions.
	body := `{"posts":[
		{"id":"p2","title":"Web Only","email":null},
		{"id":"p1","title":"Issue 12","email":{"email_count":"300","opened_count":"123","clicked_count":"37"}}
	]}`
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	stats, err := client.NewsletterSummary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, "Issue 12", stats.Title)
	assert.Equal(t, 300, stats.Sent)
	assert.Equal(t, 41.0, stats.OpenRate)
	assert.Equal(t, 12.3, stats.ClickRate)
}

func TestNewsletterSummary_ZeroSent(t *testing.T) {
	body := `{"posts":[{"id":"p1","title":"Issue 1","email":{"email_count":0,"opened_count":0,"clicked_count":0}}]}`
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	stats, err := client.NewsletterSummary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Zero(t, stats.OpenRate)
	assert.Zero(t, stats.ClickRate)
}

func TestNewsletterMembers(t *testing.T) {
	body := `{"newsletters":[
		{"id":"nl1","count":{"members":80}},
		{"id":"nl2","count":{"members":45}}
	]}`
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count.members", r.URL.Query().Get("include"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	counts, err := client.NewsletterMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"nl1": 80, "nl2": 45}, counts)
}

func TestRevenueSummary_CentsToUnits(t *testing.T) {
	body := `{"stats":[{"mrr":50000,"currency":"usd"},{"mrr":900,"currency":"eur"}]}`
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	rev, err := client.RevenueSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, rev.MRR)
	assert.Equal(t, 6000, rev.ARR)
	assert.Equal(t, "USD", rev.Currency)
}

func TestRevenueSummary_NoStripe(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stats":[]}`))
	}))
	defer srv.Close()

	rev, err := client.RevenueSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rev.MRR)
	assert.Zero(t, rev.ARR)
}

func TestCreateWebhook(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"webhooks":[{"id":"wh_123"}]}`))
	}))
	defer srv.Close()

	id, err := client.CreateWebhook(context.Background(), "member.added", "https://daemon.example/webhook/ghost")
	require.NoError(t, err)
	assert.Equal(t, "wh_123", id)
}

func TestCreateWebhook_EmptyResponse(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"webhooks":[]}`))
	}))
	defer srv.Close()

	_, err := client.CreateWebhook(context.Background(), "member.added", "https://daemon.example/webhook/ghost")
	var e *MalformedResponseError
	assert.ErrorAs(t, err, &e)
}

func TestDeleteWebhook(t *testing.T) {
	var gotPath string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, client.DeleteWebhook(context.Background(), "wh_123"))
	assert.Equal(t, "/ghost/api/admin/webhooks/wh_123/", gotPath)
}
