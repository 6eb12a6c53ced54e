package consultation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/apperror"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

// fakeRepo keeps consultations in memory and mirrors the transactional
// guarantees of the real repository: overlap-checked insert and
// compare-and-set updates with the follow-up task captured alongside.
type fakeRepo struct {
	items     map[string]*Consultation
	nextID    int
	followUps []*task.Task
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[string]*Consultation{}}
}

func (r *fakeRepo) CreateIfFree(_ context.Context, c *Consultation) error {
	for _, other := range r.items {
		if other.LawyerID == c.LawyerID && other.Status.IsActive() &&
			Overlaps(c.ScheduledTime, c.EndTime(), other.ScheduledTime, other.EndTime()) {
			return ErrTimeConflict
		}
	}
	r.nextID++
	c.ID = "consult-" + strconv.Itoa(r.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.items[c.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Consultation, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRepo) List(_ context.Context, _ Filter) ([]*Consultation, int, error) {
	out := make([]*Consultation, 0, len(r.items))
	for _, c := range r.items {
		copied := *c
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Update(_ context.Context, c *Consultation, expected Status, followUp *task.Task) error {
	current, ok := r.items[c.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrIllegalTransition
	}
	stored := *c
	r.items[c.ID] = &stored
	if followUp != nil {
		r.followUps = append(r.followUps, followUp)
	}
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) HasOverlap(_ context.Context, lawyerID string, start, end time.Time, excludeID string) (bool, error) {
	for _, c := range r.items {
		if c.ID == excludeID || c.LawyerID != lawyerID || !c.Status.IsActive() {
			continue
		}
		if Overlaps(start, end, c.ScheduledTime, c.EndTime()) {
			return true, nil
		}
	}
	return false, nil
}

type fakeDirectory struct {
	users map[string]*user.User
}

func (d *fakeDirectory) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type sentNotification struct {
	RecipientID string
	Template    string
	Payload     map[string]any
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Enqueue(_ context.Context, recipientID, template string, payload map[string]any) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{recipientID, template, payload})
	return nil
}

const (
	clientID = "client-1"
	lawyerID = "lawyer-1"
)

type fixture struct {
	repo     *fakeRepo
	notifier *fakeNotifier
	svc      *service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := &fakeDirectory{users: map[string]*user.User{
		clientID: {ID: clientID, Role: user.RoleApplicant, IsActive: true},
		lawyerID: {ID: lawyerID, Role: user.RoleLawyer, IsActive: true},
		"inactive-lawyer": {ID: "inactive-lawyer", Role: user.RoleLawyer, IsActive: false},
		"not-a-lawyer":    {ID: "not-a-lawyer", Role: user.RoleApplicant, IsActive: true},
	}}

	f := &fixture{
		repo:     newFakeRepo(),
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, dir, f.notifier, zap.NewNop()).(*service)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) createRequest() CreateRequest {
	return CreateRequest{
		ClientID:      clientID,
		LawyerID:      lawyerID,
		ScheduledTime: f.now.Add(24 * time.Hour),
		Duration:      60,
	}
}

func TestCreateConsultation(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)

		c, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)

		assert.NotEmpty(t, c.ID)
		assert.Equal(t, StatusPending, c.Status)
		assert.True(t, strings.HasPrefix(c.MeetingLink, "https://meet.jit.si/"), "meeting link assigned at creation")

		// Both parties get told.
		require.Len(t, f.notifier.sent, 2)
		assert.Equal(t, lawyerID, f.notifier.sent[0].RecipientID)
		assert.Equal(t, "consultation_requested", f.notifier.sent[0].Template)
		assert.Equal(t, clientID, f.notifier.sent[1].RecipientID)
		assert.Equal(t, "consultation_submitted", f.notifier.sent[1].Template)
	})

	t.Run("collects all validation failures", func(t *testing.T) {
		f := newFixture(t)
		longNotes := strings.Repeat("x", MaxNotesLength+1)

		_, err := f.svc.Create(ctx, CreateRequest{
			ClientID:      clientID,
			LawyerID:      "not-a-lawyer",
			ScheduledTime: f.now.Add(-time.Hour),
			Duration:      5,
			Notes:         &longNotes,
		})

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.Code)
		assert.Contains(t, appErr.Fields, "scheduled_time")
		assert.Contains(t, appErr.Fields, "duration")
		assert.Contains(t, appErr.Fields, "notes")
		assert.Contains(t, appErr.Fields, "lawyer_id")
	})

	t.Run("inactive lawyer rejected", func(t *testing.T) {
		f := newFixture(t)
		req := f.createRequest()
		req.LawyerID = "inactive-lawyer"

		_, err := f.svc.Create(ctx, req)

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Fields, "lawyer_id")
	})

	t.Run("overlap rejected without side effects", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)
		sentBefore := len(f.notifier.sent)

		req := f.createRequest()
		req.ScheduledTime = req.ScheduledTime.Add(30 * time.Minute)
		_, err = f.svc.Create(ctx, req)

		assert.ErrorIs(t, err, ErrTimeConflict)
		assert.Len(t, f.repo.items, 1, "conflicting booking must not persist")
		assert.Len(t, f.notifier.sent, sentBefore, "conflicting booking must not notify")
	})

	t.Run("back to back slot succeeds", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)

		req := f.createRequest()
		req.ScheduledTime = first.EndTime()
		_, err = f.svc.Create(ctx, req)

		assert.NoError(t, err, "adjacent slots do not overlap")
	})

	t.Run("notifier failure does not fail the booking", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errors.New("outbox down")

		c, err := f.svc.Create(ctx, f.createRequest())

		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
	})
}

func TestUpdateConsultation(t *testing.T) {
	ctx := context.Background()

	str := func(s string) *string { return &s }

	create := func(t *testing.T, f *fixture) *Consultation {
		t.Helper()
		c, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)
		f.notifier.sent = nil
		return c
	}

	t.Run("either participant may confirm", func(t *testing.T) {
		for _, caller := range []string{clientID, lawyerID} {
			f := newFixture(t)
			c := create(t, f)

			updated, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("scheduled")}, caller)

			require.NoError(t, err, "caller %s", caller)
			assert.Equal(t, StatusScheduled, updated.Status)

			require.Len(t, f.notifier.sent, 1)
			assert.Equal(t, c.OtherParty(caller), f.notifier.sent[0].RecipientID)
			assert.Equal(t, "consultation_status_changed", f.notifier.sent[0].Template)
		}
	})

	t.Run("client cannot complete", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)
		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("scheduled")}, clientID)
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("completed")}, clientID)
		assert.ErrorIs(t, err, ErrIllegalTransition)

		_, err = f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("no_show")}, clientID)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("pending cannot jump to completed", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)

		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("completed")}, lawyerID)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)

		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("postponed")}, lawyerID)

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.Code)
	})

	t.Run("non participant denied", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)

		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("scheduled")}, "stranger")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("meeting link is immutable", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)

		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{MeetingLink: str("https://evil.example/room")}, clientID)
		assert.ErrorIs(t, err, ErrMeetingLinkFixed)

		// Resubmitting the value already stored is a no-op, not an error.
		_, err = f.svc.Update(ctx, c.ID, UpdateRequest{MeetingLink: &c.MeetingLink}, clientID)
		assert.NoError(t, err)
	})

	t.Run("completion creates exactly one follow-up with fresh notes", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)
		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("scheduled")}, lawyerID)
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, c.ID, UpdateRequest{
			Status: str("completed"),
			Notes:  str("client needs form I-130"),
		}, lawyerID)
		require.NoError(t, err)

		require.Len(t, f.repo.followUps, 1, "completion must create its follow-up")
		followUp := f.repo.followUps[0]
		assert.Equal(t, lawyerID, followUp.LawyerID)
		assert.Equal(t, "Follow up on consultation "+c.ID, followUp.Title)
		require.NotNil(t, followUp.Description)
		assert.Contains(t, *followUp.Description, "client needs form I-130",
			"follow-up must embed the notes patched in the same request")
		require.NotNil(t, followUp.DueDate)
		assert.Equal(t, f.now.Add(48*time.Hour), *followUp.DueDate)
		assert.Equal(t, task.PriorityMedium, followUp.Priority)
	})

	t.Run("notes patch on terminal consultation rejected", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)
		_, err := f.svc.Update(ctx, c.ID, UpdateRequest{Status: str("cancelled")}, clientID)
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, c.ID, UpdateRequest{Notes: str("too late")}, clientID)
		assert.ErrorIs(t, err, ErrTerminalStatus)
	})

	t.Run("notes patch alone does not touch status", func(t *testing.T) {
		f := newFixture(t)
		c := create(t, f)

		updated, err := f.svc.Update(ctx, c.ID, UpdateRequest{Notes: str("prefers mornings")}, clientID)

		require.NoError(t, err)
		assert.Equal(t, StatusPending, updated.Status)
		require.NotNil(t, updated.Notes)
		assert.Equal(t, "prefers mornings", *updated.Notes)
		assert.Empty(t, f.notifier.sent, "no status change, no notification")
	})
}

func TestCancelConsultation(t *testing.T) {
	ctx := context.Background()

	t.Run("participant cancels, other party notified", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)
		f.notifier.sent = nil

		err = f.svc.Cancel(ctx, c.ID, clientID)
		require.NoError(t, err)

		_, err = f.repo.GetByID(ctx, c.ID)
		assert.ErrorIs(t, err, ErrNotFound, "cancelled consultation is gone")

		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, lawyerID, f.notifier.sent[0].RecipientID)
		assert.Equal(t, "consultation_cancelled", f.notifier.sent[0].Template)
	})

	t.Run("repeat cancel reports not found", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.Cancel(ctx, c.ID, clientID))
		err = f.svc.Cancel(ctx, c.ID, clientID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)

		err = f.svc.Cancel(ctx, c.ID, "stranger")
		assert.ErrorIs(t, err, ErrAccessDenied)

		_, err = f.repo.GetByID(ctx, c.ID)
		assert.NoError(t, err, "booking must survive a denied cancel")
	})

	t.Run("cancelled slot frees the window", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.Create(ctx, f.createRequest())
		require.NoError(t, err)
		require.NoError(t, f.svc.Cancel(ctx, c.ID, clientID))

		_, err = f.svc.Create(ctx, f.createRequest())
		assert.NoError(t, err, "the window must be reusable after cancellation")
	})
}
