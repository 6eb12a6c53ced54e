package consultation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeetingLink(t *testing.T) {
	link := NewMeetingLink("client-1", "lawyer-1")

	assert.True(t, strings.HasPrefix(link, "https://meet.jit.si/consult-"), "link: %s", link)

	t.Run("unique per call", func(t *testing.T) {
		other := NewMeetingLink("client-1", "lawyer-1")
		assert.NotEqual(t, link, other, "repeat bookings must get fresh rooms")
	})

	t.Run("pair hash is stable", func(t *testing.T) {
		// room format: consult-<pairhash>-<uuid>
		pairOf := func(l string) string {
			rest := strings.TrimPrefix(l, "https://meet.jit.si/consult-")
			require.NotEqual(t, l, rest, "unexpected link format: %s", l)
			return strings.SplitN(rest, "-", 2)[0]
		}

		same := NewMeetingLink("client-1", "lawyer-1")
		assert.Equal(t, pairOf(link), pairOf(same), "same pair must share the hash prefix")

		different := NewMeetingLink("client-2", "lawyer-1")
		assert.NotEqual(t, pairOf(link), pairOf(different), "different pairs must differ")
	})
}
