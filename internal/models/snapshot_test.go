package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClone_DeepCopiesNewsletterMembers(t *testing.T) {
	snap := &MetricsSnapshot{
		NewsletterMembers: map[string]int{"nl1": 10},
		CapturedAt:        time.Now(),
	}

	cp := snap.Clone()
	cp.NewsletterMembers["nl1"] = 99
	cp.NewsletterMembers["nl2"] = 1

	assert.Equal(t, 10, snap.NewsletterMembers["nl1"])
	_, ok := snap.NewsletterMembers["nl2"]
	assert.False(t, ok)
}

func TestClone_NilMapStaysNil(t *testing.T) {
	snap := &MetricsSnapshot{}
	cp := snap.Clone()
	assert.Nil(t, cp.NewsletterMembers)
}
