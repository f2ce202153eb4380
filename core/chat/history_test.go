package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistory_expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHistory()
	h.now = func() time.Time { return now }

	hello := Entry{Role: RoleUser, Content: "hello"}
	h.SetExpiry("expiring", now.Add(time.Hour))
	h.Append("expiring", hello)
	h.Append("forever", hello)
	assert.Len(t, h.Recent("expiring", MaxHistory), 1)

	// expired sessions are hidden right away
	now = now.Add(time.Hour)
	assert.Empty(t, h.Recent("expiring", MaxHistory))
	assert.Len(t, h.Recent("forever", MaxHistory), 1)

	// and dropped by the next sweep
	h.Append("other", hello)
	assert.Equal(t, 2, h.Len())
	assert.Len(t, h.Recent("forever", MaxHistory), 1)

	// a reused expired session starts over, even before it is swept
	h.SetExpiry("stale", now.Add(10*time.Second))
	h.Append("stale", hello, hello)
	now = now.Add(20 * time.Second)
	h.Append("stale", hello)
	assert.Len(t, h.Recent("stale", MaxHistory), 1)
}
