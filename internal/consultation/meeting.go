package consultation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const meetingBaseURL = "https://meet.jit.si"

// NewMeetingLink derives the video room URL for a consultation.
//
// The room name carries a short hash of the participant pair, so an operator can
// tell from the link alone which client/lawyer pair it belongs to, followed by a
// random UUID that makes the room unique across the lifetime of the system.
// Links are never reused, even for repeat bookings between the same pair:
// stale clients may still hold old ones.
func NewMeetingLink(clientID, lawyerID string) string {
	sum := sha256.Sum256([]byte(clientID + ":" + lawyerID))
	pair := hex.EncodeToString(sum[:4])
	return fmt.Sprintf("%s/consult-%s-%s", meetingBaseURL, pair, uuid.NewString())
}
