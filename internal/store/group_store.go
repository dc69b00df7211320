package store

import (
	"context"
	"time"

	"settleup/internal/models"
)

type GroupStore struct {
	db DB
}

func NewGroupStore(db DB) *GroupStore {
	return &GroupStore{db: db}
}

type GroupInput struct {
	ID        string
	Name      string
	Picture   string
	CreatedBy string
}

func (s *GroupStore) Create(ctx context.Context, tx Execer, input GroupInput) error {
	query := `
		INSERT INTO groups (id, name, picture, created_by)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, input.ID, input.Name, input.Picture, input.CreatedBy)
	return err
}

func (s *GroupStore) GetByID(ctx context.Context, groupID string) (models.Group, error) {
	var row models.Group
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, picture, created_by, join_code, join_code_expiry, created_at
		FROM groups
		WHERE id = $1
	`, groupID)
	if err != nil {
		return models.Group{}, err
	}
	return row, nil
}

// GetForUpdate locks the group row. Every balance-affecting operation on a
// group takes this lock first, so concurrent mutations on the same group
// serialize instead of racing on stale member balances.
func (s *GroupStore) GetForUpdate(ctx context.Context, tx Getter, groupID string) (models.Group, error) {
	var row models.Group
	err := tx.GetContext(ctx, &row, `
		SELECT id, name, picture, created_by, join_code, join_code_expiry, created_at
		FROM groups
		WHERE id = $1
		FOR UPDATE
	`, groupID)
	if err != nil {
		return models.Group{}, err
	}
	return row, nil
}

func (s *GroupStore) GetByJoinCode(ctx context.Context, tx Getter, joinCode string) (models.Group, error) {
	var row models.Group
	err := tx.GetContext(ctx, &row, `
		SELECT id, name, picture, created_by, join_code, join_code_expiry, created_at
		FROM groups
		WHERE join_code = $1
		FOR UPDATE
	`, joinCode)
	if err != nil {
		return models.Group{}, err
	}
	return row, nil
}

func (s *GroupStore) ListByUser(ctx context.Context, userID string) ([]models.Group, error) {
	var rows []models.Group
	err := s.db.SelectContext(ctx, &rows, `
		SELECT g.id, g.name, g.picture, g.created_by, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GroupStore) SetJoinCode(ctx context.Context, tx Execer, groupID, code string, expiry time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE groups
		SET join_code = $1, join_code_expiry = $2, updated_at = NOW()
		WHERE id = $3
	`, code, expiry, groupID)
	return err
}

func (s *GroupStore) AddMember(ctx context.Context, tx Execer, groupID, userID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, role, balance)
		VALUES ($1, $2, $3, 0)
	`, groupID, userID, role)
	return err
}

func (s *GroupStore) GetMember(ctx context.Context, groupID, userID string) (models.Member, error) {
	var row models.Member
	err := s.db.GetContext(ctx, &row, `
		SELECT m.group_id, m.user_id, u.username, m.role, m.balance, m.joined_at
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1 AND m.user_id = $2
	`, groupID, userID)
	if err != nil {
		return models.Member{}, err
	}
	return row, nil
}

// ListMembers reads the member list through the given Selecter so callers
// inside a transaction see the locked state; a nil Selecter falls back to the
// pool.
func (s *GroupStore) ListMembers(ctx context.Context, db Selecter, groupID string) ([]models.Member, error) {
	if db == nil {
		db = s.db
	}
	var rows []models.Member
	err := db.SelectContext(ctx, &rows, `
		SELECT m.group_id, m.user_id, u.username, m.role, m.balance, m.joined_at
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GroupStore) UpdateMemberBalance(ctx context.Context, tx Execer, groupID, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE group_members
		SET balance = $1
		WHERE group_id = $2 AND user_id = $3
	`, balance, groupID, userID)
	return err
}

func (s *GroupStore) RemoveMember(ctx context.Context, tx Execer, groupID, userID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM group_members
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	return err
}

func (s *GroupStore) InsertPastMember(ctx context.Context, tx Execer, id, groupID, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO past_members (id, group_id, user_id, balance)
		VALUES ($1, $2, $3, $4)
	`, id, groupID, userID, balance)
	return err
}

func (s *GroupStore) ListPastMembers(ctx context.Context, groupID string) ([]models.PastMember, error) {
	var rows []models.PastMember
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, group_id, user_id, balance, left_at
		FROM past_members
		WHERE group_id = $1
		ORDER BY left_at DESC
	`, groupID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
