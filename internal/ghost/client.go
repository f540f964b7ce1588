package ghost

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"gmd/internal/models"
)

const (
	endpointSite        = "/ghost/api/admin/site/"
	endpointPosts       = "/ghost/api/admin/posts/"
	endpointMembers     = "/ghost/api/admin/members/"
	endpointComments    = "/ghost/api/admin/comments/"
	endpointNewsletters = "/ghost/api/admin/newsletters/"
	endpointMRR         = "/ghost/api/admin/stats/mrr/"
	endpointActivityPub = "/ghost/api/admin/activitypub/stats/"
	endpointWebhooks    = "/ghost/api/admin/webhooks/"

	acceptVersion = "v5.0"

	defaultTimeout = 15 * time.Second
)

type Site struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Version string `json:"version"`
}

// ClientInterface is the typed Admin API surface the coordinator polls.
// Every method maps onto one metrics category so categories fail
// independently.
type ClientInterface interface {
	GetSite(ctx context.Context) (*Site, error)
	MembersSummary(ctx context.Context) (models.MemberCounts, error)
	PostsSummary(ctx context.Context) (models.PostCounts, error)
	LatestPost(ctx context.Context) (*models.LatestPost, error)
	RevenueSummary(ctx context.Context) (models.Revenue, error)
	NewsletterSummary(ctx context.Context) (*models.NewsletterStats, error)
	NewsletterMembers(ctx context.Context) (map[string]int, error)
	ActivityPubSummary(ctx context.Context) (models.ActivityPub, error)
	CommentsSummary(ctx context.Context) (int, error)
	CreateWebhook(ctx context.Context, event, targetURL string) (string, error)
	DeleteWebhook(ctx context.Context, id string) error
}

type Client struct {
	baseURL     string
	adminAPIKey string
	httpClient  *http.Client
	now         func() time.Time
}

func NewClient(baseURL, adminAPIKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		adminAPIKey: adminAPIKey,
		httpClient:  &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any, out any) error {
	token, err := adminToken(c.adminAPIKey, c.now())
	if err != nil {
		return &AuthError{Endpoint: endpoint}
	}

	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Accept-Version", acceptVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransientError{Endpoint: endpoint, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Endpoint: endpoint, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Endpoint: endpoint}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{Endpoint: endpoint}
	case resp.StatusCode >= 400:
		return &TransientError{Endpoint: endpoint, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedResponseError{Endpoint: endpoint, Payload: string(raw), Err: err}
	}
	return nil
}

// paginated matches the meta block every Ghost collection endpoint carries.
type paginated struct {
	Meta struct {
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

func (c *Client) countWhere(ctx context.Context, endpoint, filter string) (int, error) {
	params := url.Values{"limit": {"1"}}
	if filter != "" {
		params.Set("filter", filter)
	}
	var page paginated
	if err := c.do(ctx, http.MethodGet, endpoint, params, nil, &page); err != nil {
		return 0, err
	}
	return page.Meta.Pagination.Total, nil
}

func (c *Client) GetSite(ctx context.Context) (*Site, error) {
	var out struct {
		Site Site `json:"site"`
	}
	if err := c.do(ctx, http.MethodGet, endpointSite, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Site, nil
}

func (c *Client) MembersSummary(ctx context.Context) (models.MemberCounts, error) {
	var counts models.MemberCounts
	var err error
	if counts.Total, err = c.countWhere(ctx, endpointMembers, ""); err != nil {
		return counts, err
	}
	if counts.Paid, err = c.countWhere(ctx, endpointMembers, "status:paid"); err != nil {
		return counts, err
	}
	if counts.Free, err = c.countWhere(ctx, endpointMembers, "status:free"); err != nil {
		return counts, err
	}
	if counts.Comped, err = c.countWhere(ctx, endpointMembers, "status:comped"); err != nil {
		return counts, err
	}
	return counts, nil
}

func (c *Client) PostsSummary(ctx context.Context) (models.PostCounts, error) {
	var counts models.PostCounts
	var err error
	if counts.Published, err = c.countWhere(ctx, endpointPosts, "status:published"); err != nil {
		return counts, err
	}
	if counts.Drafts, err = c.countWhere(ctx, endpointPosts, "status:draft"); err != nil {
		return counts, err
	}
	if counts.Scheduled, err = c.countWhere(ctx, endpointPosts, "status:scheduled"); err != nil {
		return counts, err
	}
	return counts, nil
}

type apiPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Email       *apiemail `json:"email"`
}

type apiemail struct {
	EmailCount   any `json:"email_count"`
	OpenedCount  any `json:"opened_count"`
	ClickedCount any `json:"clicked_count"`
}

func (c *Client) LatestPost(ctx context.Context) (*models.LatestPost, error) {
	params := url.Values{
		"limit":  {"1"},
		"order":  {"published_at desc"},
		"filter": {"status:published"},
	}
	var out struct {
		Posts []apiPost `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, endpointPosts, params, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Posts) == 0 {
		return nil, nil
	}
	p := out.Posts[0]
	return &models.LatestPost{
		ID:          p.ID,
		Title:       p.Title,
		URL:         p.URL,
		PublishedAt: p.PublishedAt,
	}, nil
}

// NewsletterSummary finds the newest published post that went out as an
// email and derives open/click rates from its counters, rounded to one
// decimal the way the Ghost dashboard shows them.
func (c *Client) NewsletterSummary(ctx context.Context) (*models.NewsletterStats, error) {
	params := url.Values{
		"limit":  {"10"},
		"order":  {"published_at desc"},
		"filter": {"status:published"},
	}
	var out struct {
		Posts []apiPost `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, endpointPosts, params, nil, &out); err != nil {
		return nil, err
	}
	for _, p := range out.Posts {
		if p.Email == nil {
			continue
		}
		sent := cast.ToInt(p.Email.EmailCount)
		opened := cast.ToInt(p.Email.OpenedCount)
		clicked := cast.ToInt(p.Email.ClickedCount)
		stats := &models.NewsletterStats{
			Title:   p.Title,
			Sent:    sent,
			Opened:  opened,
			Clicked: clicked,
		}
		if sent > 0 {
			stats.OpenRate = math.Round(float64(opened)/float64(sent)*1000) / 10
			stats.ClickRate = math.Round(float64(clicked)/float64(sent)*1000) / 10
		}
		return stats, nil
	}
	return nil, nil
}

func (c *Client) NewsletterMembers(ctx context.Context) (map[string]int, error) {
	params := url.Values{"include": {"count.members"}, "limit": {"all"}}
	var out struct {
		Newsletters []struct {
			ID    string `json:"id"`
			Count struct {
				Members int `json:"members"`
			} `json:"count"`
		} `json:"newsletters"`
	}
	if err := c.do(ctx, http.MethodGet, endpointNewsletters, params, nil, &out); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(out.Newsletters))
	for _, n := range out.Newsletters {
		counts[n.ID] = n.Count.Members
	}
	return counts, nil
}

// RevenueSummary reads MRR in cents from the stats endpoint and derives ARR.
// Only the first currency is reported, matching the dashboard.
func (c *Client) RevenueSummary(ctx context.Context) (models.Revenue, error) {
	var out struct {
		Stats []map[string]any `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, endpointMRR, nil, nil, &out); err != nil {
		return models.Revenue{}, err
	}
	if len(out.Stats) == 0 {
		return models.Revenue{}, nil
	}
	first := out.Stats[0]
	mrr := int(math.Round(cast.ToFloat64(first["mrr"]) / 100))
	return models.Revenue{
		MRR:      mrr,
		ARR:      mrr * 12,
		Currency: strings.ToUpper(cast.ToString(first["currency"])),
	}, nil
}

func (c *Client) ActivityPubSummary(ctx context.Context) (models.ActivityPub, error) {
	var out struct {
		Followers int `json:"followers"`
		Following int `json:"following"`
	}
	if err := c.do(ctx, http.MethodGet, endpointActivityPub, nil, nil, &out); err != nil {
		return models.ActivityPub{}, err
	}
	return models.ActivityPub{Followers: out.Followers, Following: out.Following}, nil
}

// CommentsSummary counts all comments on the instance from the collection
// meta, the same way the member counts are derived.
func (c *Client) CommentsSummary(ctx context.Context) (int, error) {
	return c.countWhere(ctx, endpointComments, "")
}

func (c *Client) CreateWebhook(ctx context.Context, event, targetURL string) (string, error) {
	body := map[string][]map[string]string{
		"webhooks": {{
			"event":      event,
			"target_url": targetURL,
		}},
	}
	var out struct {
		Webhooks []struct {
			ID string `json:"id"`
		} `json:"webhooks"`
	}
	if err := c.do(ctx, http.MethodPost, endpointWebhooks, nil, body, &out); err != nil {
		return "", err
	}
	if len(out.Webhooks) == 0 {
		return "", &MalformedResponseError{Endpoint: endpointWebhooks, Err: fmt.Errorf("empty webhooks array")}
	}
	return out.Webhooks[0].ID, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, endpointWebhooks+url.PathEscape(id)+"/", nil, nil, nil)
}
