package consultation

import (
	"net/http"
	"time"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "consultation not found")
	ErrTimeConflict      = apperror.New(http.StatusConflict, "time slot already booked")
	ErrIllegalTransition = apperror.New(http.StatusConflict, "illegal status transition")
	ErrAccessDenied      = apperror.New(http.StatusForbidden, "access denied")
	ErrMeetingLinkFixed  = apperror.New(http.StatusBadRequest, "meeting link cannot be changed")
	ErrTerminalStatus    = apperror.New(http.StatusConflict, "consultation is in a terminal status")
)

// Duration limits for a consultation, in minutes.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 480
)

// MaxNotesLength caps the free-text notes field.
const MaxNotesLength = 2000

// Status is the lifecycle state of a consultation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// validTransitions defines the state machine for consultation status changes.
// Terminal statuses have no successors.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusCompleted, StatusNoShow, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// IsValid returns true if the status is a recognized consultation status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// IsActive reports whether the status counts toward the no-overlap invariant.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusScheduled
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// LawyerOnlyTarget reports whether only the lawyer may transition into the target.
// Completion and no-show are the lawyer's call; confirmation and cancellation
// can come from either participant.
func LawyerOnlyTarget(target Status) bool {
	return target == StatusCompleted || target == StatusNoShow
}

// Consultation is a booked (or requested) time slot between a client and a lawyer.
type Consultation struct {
	ID            string
	ClientID      string
	LawyerID      string
	ApplicationID *string // optional link to an immigration application
	ScheduledTime time.Time
	Duration      int // minutes
	Status        Status
	Notes         *string
	MeetingLink   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EndTime returns the exclusive end of the consultation's time window.
func (c *Consultation) EndTime() time.Time {
	return c.ScheduledTime.Add(time.Duration(c.Duration) * time.Minute)
}

// IsParticipant reports whether the given user is the client or the lawyer.
func (c *Consultation) IsParticipant(userID string) bool {
	return userID == c.ClientID || userID == c.LawyerID
}

// OtherParty returns the participant that is not the given user.
func (c *Consultation) OtherParty(userID string) string {
	if userID == c.LawyerID {
		return c.ClientID
	}
	return c.LawyerID
}

// Overlaps is the half-open interval test: [aStart, aEnd) and [bStart, bEnd)
// overlap iff aStart < bEnd and aEnd > bStart. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Filter defines parameters for listing consultations.
type Filter struct {
	ClientID string
	LawyerID string
	Status   string
	From     *time.Time // scheduled_time >= From
	To       *time.Time // scheduled_time < To

	SortOrder string // scheduled_time ordering, "asc" or "desc" (default)

	Page     int
	PageSize int
}
