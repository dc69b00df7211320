package store

import (
	"context"
	"encoding/json"
	"time"

	"settleup/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// transactionRow mirrors the group_transactions table. The member-ref sets,
// amount maps and update history are JSON text columns; they round-trip
// unchanged because they are the audit trail.
type transactionRow struct {
	ID            string    `db:"id"`
	GroupID       string    `db:"group_id"`
	Amount        int64     `db:"amount"`
	Description   string    `db:"description"`
	PaidBy        string    `db:"paid_by"`
	SplitsTo      string    `db:"splits_to"`
	TransPerson   string    `db:"trans_person"`
	PaidAmounts   string    `db:"paid_amounts"`
	SplitAmounts  string    `db:"split_amounts"`
	PaidWay       string    `db:"paid_way"`
	SplitsWay     string    `db:"splits_way"`
	CreatedBy     string    `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
	Deleted       bool      `db:"deleted"`
	DeletedBy     *string   `db:"deleted_by"`
	UpdateHistory string    `db:"update_history"`
	UpdateCount   int       `db:"update_count"`
}

func (r transactionRow) toModel() (models.Transaction, error) {
	tx := models.Transaction{
		ID:          r.ID,
		GroupID:     r.GroupID,
		Amount:      r.Amount,
		Description: r.Description,
		TransPerson: r.TransPerson,
		PaidWay:     r.PaidWay,
		SplitsWay:   r.SplitsWay,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		Deleted:     r.Deleted,
		UpdateCount: r.UpdateCount,
	}
	if r.DeletedBy != nil {
		tx.DeletedBy = *r.DeletedBy
	}
	if err := json.Unmarshal([]byte(r.PaidBy), &tx.PaidBy); err != nil {
		return models.Transaction{}, err
	}
	if err := json.Unmarshal([]byte(r.SplitsTo), &tx.SplitsTo); err != nil {
		return models.Transaction{}, err
	}
	if err := json.Unmarshal([]byte(r.PaidAmounts), &tx.PaidAmounts); err != nil {
		return models.Transaction{}, err
	}
	if err := json.Unmarshal([]byte(r.SplitAmounts), &tx.SplitAmounts); err != nil {
		return models.Transaction{}, err
	}
	if err := json.Unmarshal([]byte(r.UpdateHistory), &tx.UpdateHistory); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func marshalTransaction(tx models.Transaction) (paidBy, splitsTo, paidAmounts, splitAmounts, history string, err error) {
	fields := []struct {
		value any
		out   *string
	}{
		{tx.PaidBy, &paidBy},
		{tx.SplitsTo, &splitsTo},
		{tx.PaidAmounts, &paidAmounts},
		{tx.SplitAmounts, &splitAmounts},
		{tx.UpdateHistory, &history},
	}
	for _, field := range fields {
		var raw []byte
		raw, err = json.Marshal(field.value)
		if err != nil {
			return
		}
		*field.out = string(raw)
	}
	return
}

func (s *TransactionStore) Insert(ctx context.Context, tx Execer, record models.Transaction) error {
	paidBy, splitsTo, paidAmounts, splitAmounts, history, err := marshalTransaction(record)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO group_transactions
			(id, group_id, amount, description, paid_by, splits_to, trans_person,
			 paid_amounts, split_amounts, paid_way, splits_way, created_by,
			 created_at, deleted, update_history, update_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE, $14, 0)
	`
	_, err = tx.ExecContext(ctx, query,
		record.ID, record.GroupID, record.Amount, record.Description,
		paidBy, splitsTo, record.TransPerson,
		paidAmounts, splitAmounts, record.PaidWay, record.SplitsWay, record.CreatedBy,
		record.CreatedAt, history,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, groupID, transactionID string) (models.Transaction, error) {
	var row transactionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, group_id, amount, description, paid_by, splits_to, trans_person,
		       paid_amounts, split_amounts, paid_way, splits_way, created_by,
		       created_at, deleted, deleted_by, update_history, update_count
		FROM group_transactions
		WHERE group_id = $1 AND id = $2
	`, groupID, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row.toModel()
}

// GetForUpdate locks the transaction row inside the caller's DB transaction.
// Update and delete read the old amounts through this so the revert works
// against exactly the state that was committed.
func (s *TransactionStore) GetForUpdate(ctx context.Context, tx Getter, groupID, transactionID string) (models.Transaction, error) {
	var row transactionRow
	err := tx.GetContext(ctx, &row, `
		SELECT id, group_id, amount, description, paid_by, splits_to, trans_person,
		       paid_amounts, split_amounts, paid_way, splits_way, created_by,
		       created_at, deleted, deleted_by, update_history, update_count
		FROM group_transactions
		WHERE group_id = $1 AND id = $2
		FOR UPDATE
	`, groupID, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row.toModel()
}

func (s *TransactionStore) Update(ctx context.Context, tx Execer, record models.Transaction) error {
	paidBy, splitsTo, paidAmounts, splitAmounts, history, err := marshalTransaction(record)
	if err != nil {
		return err
	}
	query := `
		UPDATE group_transactions
		SET amount = $1, description = $2, paid_by = $3, splits_to = $4,
		    trans_person = $5, paid_amounts = $6, split_amounts = $7,
		    paid_way = $8, splits_way = $9, update_history = $10, update_count = $11
		WHERE group_id = $12 AND id = $13
	`
	_, err = tx.ExecContext(ctx, query,
		record.Amount, record.Description, paidBy, splitsTo,
		record.TransPerson, paidAmounts, splitAmounts,
		record.PaidWay, record.SplitsWay, history, record.UpdateCount,
		record.GroupID, record.ID,
	)
	return err
}

func (s *TransactionStore) MarkDeleted(ctx context.Context, tx Execer, groupID, transactionID, deletedBy string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE group_transactions
		SET deleted = TRUE, deleted_by = $1
		WHERE group_id = $2 AND id = $3
	`, deletedBy, groupID, transactionID)
	return err
}

func (s *TransactionStore) ListByGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, group_id, amount, description, paid_by, splits_to, trans_person,
		       paid_amounts, split_amounts, paid_way, splits_way, created_by,
		       created_at, deleted, deleted_by, update_history, update_count
		FROM group_transactions
		WHERE group_id = $1
		ORDER BY created_at DESC
	`, groupID)
	if err != nil {
		return nil, err
	}
	records := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		record, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// TransactionEventInput is one tagged entry of a transaction's append-only
// event log: created, updated or deleted.
type TransactionEventInput struct {
	ID            string
	TransactionID string
	GroupID       string
	Type          string
	Actor         string
	Data          string
}

func (s *TransactionStore) AppendEvent(ctx context.Context, tx Execer, input TransactionEventInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transaction_events (id, transaction_id, group_id, type, actor, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.TransactionID, input.GroupID, input.Type, input.Actor, input.Data)
	return err
}

type TransactionEvent struct {
	ID            string    `db:"id" json:"id"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	GroupID       string    `db:"group_id" json:"group_id"`
	Type          string    `db:"type" json:"type"`
	Actor         string    `db:"actor" json:"actor"`
	Data          string    `db:"data" json:"data"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (s *TransactionStore) ListEvents(ctx context.Context, groupID, transactionID string) ([]TransactionEvent, error) {
	var rows []TransactionEvent
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, transaction_id, group_id, type, actor, data, created_at
		FROM transaction_events
		WHERE group_id = $1 AND transaction_id = $2
		ORDER BY created_at
	`, groupID, transactionID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
