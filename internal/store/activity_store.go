package store

import (
	"context"

	"settleup/internal/models"
)

type ActivityStore struct {
	db DB
}

func NewActivityStore(db DB) *ActivityStore {
	return &ActivityStore{db: db}
}

type ActivityInput struct {
	ID            string
	GroupID       string
	Type          string
	UserID        string
	Username      string
	TransactionID *string
	Description   string
	Balance       *int64
}

func (s *ActivityStore) Append(ctx context.Context, tx Execer, input ActivityInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO group_logs (id, group_id, type, user_id, username, transaction_id, description, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.GroupID, input.Type, input.UserID, input.Username,
		input.TransactionID, input.Description, input.Balance)
	return err
}

func (s *ActivityStore) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]models.ActivityEntry, error) {
	var rows []models.ActivityEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, group_id, type, user_id, username, transaction_id, description, balance, created_at
		FROM group_logs
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, groupID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
