package models

import "time"

type EventKind string

const (
	MemberAdded     EventKind = "member.added"
	MemberDeleted   EventKind = "member.deleted"
	PostPublished   EventKind = "post.published"
	PostUnpublished EventKind = "post.unpublished"
)

// WebhookEvent is a single push-delivered state change on the Ghost instance.
// Consumed once; the transport has already verified its origin.
type WebhookEvent struct {
	Kind         EventKind
	EntityID     string
	MemberStatus string // paid, free or comped; empty when unknown
	PostTitle    string
	PostURL      string
	PrevStatus   string // draft or scheduled for post.published transitions
	OccurredAt   time.Time
}

// ApplyEvent patches snap with ev and returns the patched copy. The second
// return is false when the event is stale: anything not strictly newer than
// the snapshot capture time is already reflected by a poll (poll wins ties).
// Counts never go below zero.
func ApplyEvent(snap *MetricsSnapshot, ev *WebhookEvent) (*MetricsSnapshot, bool) {
	if snap == nil || ev == nil {
		return snap, false
	}
	if !ev.OccurredAt.After(snap.CapturedAt) {
		return snap, false
	}

	cp := snap.Clone()
	switch ev.Kind {
	case MemberAdded:
		cp.Members.Total++
		switch ev.MemberStatus {
		case "paid":
			cp.Members.Paid++
		case "comped":
			cp.Members.Comped++
		default:
			cp.Members.Free++
		}
	case MemberDeleted:
		cp.Members.Total = floorDec(cp.Members.Total)
		switch ev.MemberStatus {
		case "paid":
			cp.Members.Paid = floorDec(cp.Members.Paid)
		case "comped":
			cp.Members.Comped = floorDec(cp.Members.Comped)
		default:
			cp.Members.Free = floorDec(cp.Members.Free)
		}
	case PostPublished:
		cp.Posts.Published++
		switch ev.PrevStatus {
		case "draft":
			cp.Posts.Drafts = floorDec(cp.Posts.Drafts)
		case "scheduled":
			cp.Posts.Scheduled = floorDec(cp.Posts.Scheduled)
		}
		if ev.PostTitle != "" {
			cp.LatestPost = LatestPost{
				ID:          ev.EntityID,
				Title:       ev.PostTitle,
				URL:         ev.PostURL,
				PublishedAt: ev.OccurredAt,
			}
		}
	case PostUnpublished:
		cp.Posts.Published = floorDec(cp.Posts.Published)
	default:
		return snap, false
	}

	// Advancing the capture time keeps the staleness guard monotonic and
	// makes a re-delivered event a no-op.
	cp.CapturedAt = ev.OccurredAt
	return cp, true
}

func floorDec(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
