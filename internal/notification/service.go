package notification

import (
	"context"
	"encoding/json"
	"fmt"
)

// Service is the enqueue side of the outbox. Callers that treat delivery as
// best-effort should log the returned error rather than propagate it.
type Service interface {
	Enqueue(ctx context.Context, recipientID, template string, payload map[string]any) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Enqueue(ctx context.Context, recipientID, template string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	n := &Notification{
		RecipientID: recipientID,
		Template:    template,
		Payload:     body,
	}

	return s.repo.Enqueue(ctx, n)
}
