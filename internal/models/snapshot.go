package models

import "time"

type MemberCounts struct {
	Total  int `json:"total"`
	Paid   int `json:"paid"`
	Free   int `json:"free"`
	Comped int `json:"comped"`
}

type PostCounts struct {
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
	Scheduled int `json:"scheduled"`
}

type Revenue struct {
	// MRR and ARR are whole currency units, not cents.
	MRR      int    `json:"mrr"`
	ARR      int    `json:"arr"`
	Currency string `json:"currency"`
}

type LatestPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

type NewsletterStats struct {
	Title     string  `json:"title"`
	Sent      int     `json:"sent"`
	Opened    int     `json:"opened"`
	OpenRate  float64 `json:"open_rate"`
	Clicked   int     `json:"clicked"`
	ClickRate float64 `json:"click_rate"`
}

type ActivityPub struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// MetricsSnapshot is a complete capture of all tracked Ghost metrics at one
// point in time. A poll produces it wholesale; webhook patches go through
// ApplyEvent, which returns a new value and never mutates the receiver.
type MetricsSnapshot struct {
	Members           MemberCounts    `json:"members"`
	Revenue           Revenue         `json:"revenue"`
	Posts             PostCounts      `json:"posts"`
	LatestPost        LatestPost      `json:"latest_post"`
	Newsletter        NewsletterStats `json:"newsletter"`
	NewsletterMembers map[string]int  `json:"newsletter_members"`
	ActivityPub       ActivityPub     `json:"activitypub"`
	Comments          int             `json:"comments"`
	CapturedAt        time.Time       `json:"captured_at"`
}

func (s *MetricsSnapshot) Clone() *MetricsSnapshot {
	cp := *s
	if s.NewsletterMembers != nil {
		cp.NewsletterMembers = make(map[string]int, len(s.NewsletterMembers))
		for k, v := range s.NewsletterMembers {
			cp.NewsletterMembers[k] = v
		}
	}
	return &cp
}
