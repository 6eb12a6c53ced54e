package consultation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/notification"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/apperror"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

// followUpDueOffset is how long after completion the auto-created task is due.
const followUpDueOffset = 48 * time.Hour

// Directory resolves participant ids to accounts. Satisfied by user.Service.
type Directory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Notifier is the enqueue side of the notification outbox. Satisfied by
// notification.Service.
type Notifier interface {
	Enqueue(ctx context.Context, recipientID, template string, payload map[string]any) error
}

type CreateRequest struct {
	ClientID      string
	LawyerID      string
	ApplicationID *string
	ScheduledTime time.Time
	Duration      int // minutes
	Notes         *string
}

type UpdateRequest struct {
	Status      *string
	Notes       *string
	MeetingLink *string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Consultation, error)
	GetByID(ctx context.Context, id, callerID, callerRole string) (*Consultation, error)
	List(ctx context.Context, filter Filter) ([]*Consultation, int, error)

	// Update drives the status lifecycle and patches mutable fields. Status
	// changes go through the transition table; notes-only patches bypass it
	// but still require the caller to be a participant.
	Update(ctx context.Context, id string, req UpdateRequest, callerID string) (*Consultation, error)

	// Cancel removes the consultation and tells the other party. Idempotent
	// from the caller's point of view: a repeat call gets ErrNotFound.
	Cancel(ctx context.Context, id, callerID string) error
}

type service struct {
	repo     Repository
	users    Directory
	notifier Notifier
	logger   *zap.Logger

	now func() time.Time
}

func NewService(repo Repository, users Directory, notifier Notifier, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Consultation, error) {
	// Collect every violation before failing, so the client sees the full list.
	fields := map[string]string{}

	now := s.now().UTC()
	if req.ScheduledTime.IsZero() {
		fields["scheduled_time"] = "scheduled time is required"
	} else if !req.ScheduledTime.After(now) {
		fields["scheduled_time"] = "scheduled time must be in the future"
	}

	if req.Duration < MinDurationMinutes || req.Duration > MaxDurationMinutes {
		fields["duration"] = fmt.Sprintf("duration must be between %d and %d minutes",
			MinDurationMinutes, MaxDurationMinutes)
	}

	if req.Notes != nil && len(*req.Notes) > MaxNotesLength {
		fields["notes"] = "notes must be at most " + strconv.Itoa(MaxNotesLength) + " characters"
	}

	if req.LawyerID == "" {
		fields["lawyer_id"] = "lawyer id is required"
	} else {
		lawyer, err := s.users.GetByID(ctx, req.LawyerID)
		switch {
		case errors.Is(err, user.ErrNotFound):
			fields["lawyer_id"] = "lawyer not found"
		case err != nil:
			return nil, fmt.Errorf("resolve lawyer failed: %w", err)
		case !lawyer.IsLawyer() || !lawyer.IsActive:
			fields["lawyer_id"] = "lawyer is not available for booking"
		}
	}

	if len(fields) > 0 {
		return nil, apperror.NewValidation(fields)
	}

	c := &Consultation{
		ClientID:      req.ClientID,
		LawyerID:      req.LawyerID,
		ApplicationID: req.ApplicationID,
		ScheduledTime: req.ScheduledTime.UTC(),
		Duration:      req.Duration,
		Status:        StatusPending,
		Notes:         req.Notes,
		MeetingLink:   NewMeetingLink(req.ClientID, req.LawyerID),
	}

	if err := s.repo.CreateIfFree(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("consultation created",
		zap.String("consultation_id", c.ID),
		zap.String("lawyer_id", c.LawyerID),
		zap.Time("scheduled_time", c.ScheduledTime))

	// Best-effort from here: the booking already committed.
	s.enqueue(ctx, c.LawyerID, notification.TemplateConsultationRequested, map[string]any{
		"consultation_id": c.ID,
		"scheduled_time":  c.ScheduledTime,
		"end_time":        c.EndTime(),
		"meeting_link":    c.MeetingLink,
	})
	s.enqueue(ctx, c.ClientID, notification.TemplateConsultationSubmitted, map[string]any{
		"consultation_id": c.ID,
		"scheduled_time":  c.ScheduledTime,
		"end_time":        c.EndTime(),
		"meeting_link":    c.MeetingLink,
	})

	return c, nil
}

func (s *service) GetByID(ctx context.Context, id, callerID, callerRole string) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !c.IsParticipant(callerID) && callerRole != string(user.RoleAdmin) {
		return nil, ErrAccessDenied
	}

	return c, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Consultation, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, callerID string) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !c.IsParticipant(callerID) {
		return nil, ErrAccessDenied
	}

	// The link is assigned at creation and never changes; stale clients may
	// still hold the old one. A no-op resubmission of the same value is fine.
	if req.MeetingLink != nil && *req.MeetingLink != c.MeetingLink {
		return nil, ErrMeetingLinkFixed
	}

	oldStatus := c.Status

	if req.Status != nil {
		target := Status(*req.Status)
		if !target.IsValid() {
			return nil, apperror.NewValidation(map[string]string{"status": "unknown status"})
		}
		if target != oldStatus {
			if !oldStatus.CanTransitionTo(target) {
				return nil, ErrIllegalTransition
			}
			// Completion and no-show are the lawyer's call.
			if LawyerOnlyTarget(target) && callerID != c.LawyerID {
				return nil, ErrIllegalTransition
			}
			c.Status = target
		}
	}

	if req.Notes != nil {
		if oldStatus.IsTerminal() && c.Status == oldStatus {
			return nil, ErrTerminalStatus
		}
		if len(*req.Notes) > MaxNotesLength {
			return nil, apperror.NewValidation(map[string]string{
				"notes": "notes must be at most " + strconv.Itoa(MaxNotesLength) + " characters",
			})
		}
		c.Notes = req.Notes
	}

	// The follow-up embeds the notes as of completion, including a patch made
	// in the same request.
	var followUp *task.Task
	if c.Status == StatusCompleted && oldStatus != StatusCompleted {
		followUp = s.buildFollowUp(c)
	}

	if err := s.repo.Update(ctx, c, oldStatus, followUp); err != nil {
		return nil, err
	}

	if c.Status != oldStatus {
		s.logger.Info("consultation status changed",
			zap.String("consultation_id", c.ID),
			zap.String("old_status", string(oldStatus)),
			zap.String("new_status", string(c.Status)))

		s.enqueue(ctx, c.OtherParty(callerID), notification.TemplateStatusChanged, map[string]any{
			"consultation_id": c.ID,
			"old_status":      string(oldStatus),
			"new_status":      string(c.Status),
			"scheduled_time":  c.ScheduledTime,
			"meeting_link":    c.MeetingLink,
		})
	}

	return c, nil
}

func (s *service) Cancel(ctx context.Context, id, callerID string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !c.IsParticipant(callerID) {
		return ErrAccessDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("consultation cancelled",
		zap.String("consultation_id", c.ID),
		zap.String("cancelled_by", callerID))

	s.enqueue(ctx, c.OtherParty(callerID), notification.TemplateConsultationCancelled, map[string]any{
		"consultation_id": c.ID,
		"scheduled_time":  c.ScheduledTime,
	})

	return nil
}

// buildFollowUp prepares the task a lawyer owes after a completed consultation.
// It is inserted in the same transaction as the completion transition.
func (s *service) buildFollowUp(c *Consultation) *task.Task {
	due := s.now().UTC().Add(followUpDueOffset)

	desc := "Review the consultation outcome and send the client next steps."
	if c.Notes != nil && *c.Notes != "" {
		desc += "\n\nConsultation notes:\n" + *c.Notes
	}

	return &task.Task{
		LawyerID:      c.LawyerID,
		ApplicationID: c.ApplicationID,
		Title:         "Follow up on consultation " + c.ID,
		Description:   &desc,
		Status:        task.StatusPending,
		Priority:      task.PriorityMedium,
		DueDate:       &due,
	}
}

// enqueue hands a notification to the outbox. Failures are logged only:
// delivery is best-effort and must never fail the booking operation.
func (s *service) enqueue(ctx context.Context, recipientID, template string, payload map[string]any) {
	if err := s.notifier.Enqueue(ctx, recipientID, template, payload); err != nil {
		s.logger.Error("failed to enqueue notification",
			zap.String("recipient_id", recipientID),
			zap.String("template", template),
			zap.Error(err))
	}
}
