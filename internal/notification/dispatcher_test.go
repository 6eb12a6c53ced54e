package notification

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRepo is an in-memory outbox with the same claim semantics as the real
// repository: a claim bumps the attempt counter before delivery is tried.
type memRepo struct {
	rows   map[string]*Notification
	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]*Notification{}}
}

func (r *memRepo) Enqueue(_ context.Context, n *Notification) error {
	r.nextID++
	n.ID = "notif-" + strconv.Itoa(r.nextID)
	n.Status = StatusPending
	n.CreatedAt = time.Now()
	stored := *n
	r.rows[n.ID] = &stored
	return nil
}

func (r *memRepo) ClaimPending(_ context.Context, limit int) ([]*Notification, error) {
	var claimed []*Notification
	for _, n := range r.rows {
		if n.Status != StatusPending || len(claimed) >= limit {
			continue
		}
		n.Attempts++
		copied := *n
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (r *memRepo) MarkSent(_ context.Context, id string) error {
	n, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	n.Status = StatusSent
	n.SentAt = &now
	return nil
}

func (r *memRepo) MarkFailed(_ context.Context, id string, lastError string, terminal bool) error {
	n, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	n.LastError = &lastError
	if terminal {
		n.Status = StatusFailed
	}
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string // recipient ids in delivery order
	err  error
}

func (s *recordingSender) Send(_ context.Context, recipientID, _ string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, recipientID)
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func enqueue(t *testing.T, repo *memRepo, recipientID string) *Notification {
	t.Helper()
	n := &Notification{
		RecipientID: recipientID,
		Template:    TemplateConsultationRequested,
		Payload:     []byte(`{"consultation_id":"c-1"}`),
	}
	require.NoError(t, repo.Enqueue(context.Background(), n))
	return n
}

func TestDispatchOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers pending and marks sent", func(t *testing.T) {
		repo := newMemRepo()
		sender := &recordingSender{}
		d := NewDispatcher(repo, sender, zap.NewNop(), time.Minute)

		a := enqueue(t, repo, "user-a")
		b := enqueue(t, repo, "user-b")

		sent := d.DispatchOnce(ctx)

		assert.Equal(t, 2, sent)
		assert.ElementsMatch(t, []string{"user-a", "user-b"}, sender.sent)
		assert.Equal(t, StatusSent, repo.rows[a.ID].Status)
		assert.NotNil(t, repo.rows[a.ID].SentAt)
		assert.Equal(t, StatusSent, repo.rows[b.ID].Status)
	})

	t.Run("failed delivery stays pending for retry", func(t *testing.T) {
		repo := newMemRepo()
		sender := &recordingSender{err: errors.New("smtp down")}
		d := NewDispatcher(repo, sender, zap.NewNop(), time.Minute)

		n := enqueue(t, repo, "user-a")

		sent := d.DispatchOnce(ctx)

		assert.Equal(t, 0, sent)
		row := repo.rows[n.ID]
		assert.Equal(t, StatusPending, row.Status, "should retry on next cycle")
		assert.Equal(t, 1, row.Attempts)
		require.NotNil(t, row.LastError)
		assert.Equal(t, "smtp down", *row.LastError)
	})

	t.Run("parked as failed after max attempts", func(t *testing.T) {
		repo := newMemRepo()
		sender := &recordingSender{err: errors.New("smtp down")}
		d := NewDispatcher(repo, sender, zap.NewNop(), time.Minute)

		n := enqueue(t, repo, "user-a")

		for range d.maxAttempts {
			d.DispatchOnce(ctx)
		}

		row := repo.rows[n.ID]
		assert.Equal(t, StatusFailed, row.Status)
		assert.Equal(t, d.maxAttempts, row.Attempts)

		// A parked row is never picked up again.
		sender.err = nil
		assert.Equal(t, 0, d.DispatchOnce(ctx))
		assert.Empty(t, sender.sent)
	})

	t.Run("recovered transport delivers on retry", func(t *testing.T) {
		repo := newMemRepo()
		sender := &recordingSender{err: errors.New("smtp down")}
		d := NewDispatcher(repo, sender, zap.NewNop(), time.Minute)

		n := enqueue(t, repo, "user-a")

		d.DispatchOnce(ctx)
		sender.err = nil
		sent := d.DispatchOnce(ctx)

		assert.Equal(t, 1, sent)
		assert.Equal(t, StatusSent, repo.rows[n.ID].Status)
		assert.Equal(t, 2, repo.rows[n.ID].Attempts)
	})

	t.Run("corrupt payload parked immediately", func(t *testing.T) {
		repo := newMemRepo()
		sender := &recordingSender{}
		d := NewDispatcher(repo, sender, zap.NewNop(), time.Minute)

		n := &Notification{RecipientID: "user-a", Template: TemplateStatusChanged, Payload: []byte("{broken")}
		require.NoError(t, repo.Enqueue(ctx, n))

		sent := d.DispatchOnce(ctx)

		assert.Equal(t, 0, sent)
		assert.Empty(t, sender.sent)
		assert.Equal(t, StatusFailed, repo.rows[n.ID].Status)
	})
}

func TestDispatcherStartStop(t *testing.T) {
	repo := newMemRepo()
	sender := &recordingSender{}
	d := NewDispatcher(repo, sender, zap.NewNop(), time.Hour)

	enqueue(t, repo, "user-a")

	// The first pass runs immediately, no need to wait for a tick.
	d.Start(context.Background())

	require.Eventually(t, func() bool {
		return sender.sentCount() == 1
	}, time.Second, 10*time.Millisecond, "initial pass should drain the outbox")

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
