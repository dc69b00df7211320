package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settleup/internal/db"
	"settleup/internal/ledger"
	"settleup/internal/models"
	"settleup/internal/store"
	"settleup/internal/ws"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type GroupStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, groupID string) (models.Group, error)
	ListMembers(ctx context.Context, db store.Selecter, groupID string) ([]models.Member, error)
	GetMember(ctx context.Context, groupID, userID string) (models.Member, error)
	UpdateMemberBalance(ctx context.Context, tx store.Execer, groupID, userID string, balance int64) error
}

type TransactionStore interface {
	Insert(ctx context.Context, tx store.Execer, record models.Transaction) error
	GetByID(ctx context.Context, groupID, transactionID string) (models.Transaction, error)
	GetForUpdate(ctx context.Context, tx store.Getter, groupID, transactionID string) (models.Transaction, error)
	Update(ctx context.Context, tx store.Execer, record models.Transaction) error
	MarkDeleted(ctx context.Context, tx store.Execer, groupID, transactionID, deletedBy string) error
	ListByGroup(ctx context.Context, groupID string) ([]models.Transaction, error)
	AppendEvent(ctx context.Context, tx store.Execer, input store.TransactionEventInput) error
	ListEvents(ctx context.Context, groupID, transactionID string) ([]store.TransactionEvent, error)
}

type ActivityStore interface {
	Append(ctx context.Context, tx store.Execer, input store.ActivityInput) error
	ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]models.ActivityEntry, error)
}

// Publisher is the notification sink. Publishing happens strictly after
// commit and is best-effort.
type Publisher interface {
	Publish(groupID, event string, payload any)
}

// TransactionService mutates group transactions and keeps the denormalized
// member balances consistent with them. Every mutation runs as a single
// serialized read-modify-write: group row lock, balance reconciliation in
// memory via the ledger engine, then one atomic commit.
type TransactionService struct {
	txRunner     db.TxRunner
	groups       GroupStore
	transactions TransactionStore
	logs         ActivityStore
	hub          Publisher
}

func NewTransactionService(txRunner db.TxRunner, groups GroupStore, transactions TransactionStore, logs ActivityStore, hub Publisher) *TransactionService {
	return &TransactionService{
		txRunner:     txRunner,
		groups:       groups,
		transactions: transactions,
		logs:         logs,
		hub:          hub,
	}
}

// TransactionRequest carries the fields of a create or update. Explicit
// amount maps are authoritative; for Equal and ByPercentage modes the maps
// may be omitted and are derived from the member sets or the percent maps.
type TransactionRequest struct {
	Amount        int64
	Description   string
	PaidBy        []string
	SplitsTo      []string
	TransPerson   string
	PaidAmounts   map[string]int64
	SplitAmounts  map[string]int64
	PaidPercents  map[string]string
	SplitPercents map[string]string
	PaidWay       string
	SplitsWay     string
}

func (r TransactionRequest) resolveAmounts() (ledger.Amounts, error) {
	if !ledger.ValidWay(r.PaidWay) || !ledger.ValidWay(r.SplitsWay) {
		return ledger.Amounts{}, fmt.Errorf("%w: unknown paid or split method", ledger.ErrInvalidTransaction)
	}
	paid, err := resolveSide(r.Amount, r.PaidWay, r.PaidBy, r.PaidAmounts, r.PaidPercents)
	if err != nil {
		return ledger.Amounts{}, err
	}
	split, err := resolveSide(r.Amount, r.SplitsWay, r.SplitsTo, r.SplitAmounts, r.SplitPercents)
	if err != nil {
		return ledger.Amounts{}, err
	}
	return ledger.Amounts{Paid: paid, Split: split}, nil
}

func resolveSide(amount int64, way string, refs []string, amounts map[string]int64, percents map[string]string) (map[string]int64, error) {
	if len(amounts) > 0 {
		return amounts, nil
	}
	switch way {
	case ledger.WayEqual:
		return ledger.EqualShares(amount, refs)
	case ledger.WayByPercentage:
		return ledger.PercentageShares(amount, percents)
	}
	return nil, fmt.Errorf("%w: explicit amounts required for %s", ledger.ErrInvalidTransaction, way)
}

func balanceMap(members []models.Member) map[string]int64 {
	balances := make(map[string]int64, len(members))
	for _, member := range members {
		balances[member.UserID] = member.Balance
	}
	return balances
}

// writeBalances persists the new balance of every member touched by the
// given amount maps.
func (s *TransactionService) writeBalances(ctx context.Context, tx store.Execer, groupID string, balances map[string]int64, sides ...ledger.Amounts) error {
	touched := make(map[string]struct{})
	for _, side := range sides {
		for member := range side.Paid {
			touched[member] = struct{}{}
		}
		for member := range side.Split {
			touched[member] = struct{}{}
		}
	}
	for member := range touched {
		if err := s.groups.UpdateMemberBalance(ctx, tx, groupID, member, balances[member]); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransactionService) appendEvent(ctx context.Context, tx store.Execer, record models.Transaction, eventType, actor string) error {
	data, _ := json.Marshal(map[string]any{
		"amount":        record.Amount,
		"paid_amounts":  record.PaidAmounts,
		"split_amounts": record.SplitAmounts,
	})
	return s.transactions.AppendEvent(ctx, tx, store.TransactionEventInput{
		ID:            uuid.NewString(),
		TransactionID: record.ID,
		GroupID:       record.GroupID,
		Type:          eventType,
		Actor:         actor,
		Data:          string(data),
	})
}

func (s *TransactionService) Create(ctx context.Context, groupID string, caller Caller, req TransactionRequest) (models.Transaction, error) {
	var record models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.groups.GetForUpdate(ctx, tx, groupID); err != nil {
			return err
		}
		members, err := s.groups.ListMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		balances := balanceMap(members)
		if _, ok := balances[caller.ID]; !ok {
			return ErrUnauthorized
		}
		amounts, err := req.resolveAmounts()
		if err != nil {
			return err
		}
		if err := ledger.Apply(balances, req.Amount, amounts); err != nil {
			return err
		}
		record = models.Transaction{
			ID:            uuid.NewString(),
			GroupID:       groupID,
			Amount:        req.Amount,
			Description:   req.Description,
			PaidBy:        req.PaidBy,
			SplitsTo:      req.SplitsTo,
			TransPerson:   req.TransPerson,
			PaidAmounts:   amounts.Paid,
			SplitAmounts:  amounts.Split,
			PaidWay:       req.PaidWay,
			SplitsWay:     req.SplitsWay,
			CreatedBy:     caller.ID,
			CreatedAt:     time.Now().UTC(),
			UpdateHistory: []models.UpdateRecord{},
		}
		if err := s.writeBalances(ctx, tx, groupID, balances, amounts); err != nil {
			return err
		}
		if err := s.transactions.Insert(ctx, tx, record); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, record, "created", caller.Username)
	})
	if err != nil {
		return models.Transaction{}, translateTxErr(err)
	}
	s.hub.Publish(groupID, ws.EventNewTransaction, record)
	return record, nil
}

func (s *TransactionService) Update(ctx context.Context, groupID, transactionID string, caller Caller, req TransactionRequest) (models.Transaction, error) {
	var record models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.groups.GetForUpdate(ctx, tx, groupID); err != nil {
			return err
		}
		old, err := s.transactions.GetForUpdate(ctx, tx, groupID, transactionID)
		if err != nil {
			return err
		}
		if old.Deleted {
			return ErrAlreadyDeleted
		}
		members, err := s.groups.ListMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		balances := balanceMap(members)
		if _, ok := balances[caller.ID]; !ok {
			return ErrUnauthorized
		}
		oldAmounts := ledger.Amounts{Paid: old.PaidAmounts, Split: old.SplitAmounts}
		newAmounts, err := req.resolveAmounts()
		if err != nil {
			return err
		}
		// Revert the old amounts before applying the new ones; the other
		// order double-counts. Both run against the same in-memory balances
		// and commit together, so a failed apply rolls the revert back too.
		if err := ledger.Revert(balances, old.Amount, oldAmounts); err != nil {
			return err
		}
		if err := ledger.Apply(balances, req.Amount, newAmounts); err != nil {
			return err
		}
		record = old
		record.Amount = req.Amount
		record.Description = req.Description
		record.PaidBy = req.PaidBy
		record.SplitsTo = req.SplitsTo
		record.TransPerson = req.TransPerson
		record.PaidAmounts = newAmounts.Paid
		record.SplitAmounts = newAmounts.Split
		record.PaidWay = req.PaidWay
		record.SplitsWay = req.SplitsWay
		record.UpdateHistory = append(record.UpdateHistory, models.UpdateRecord{
			Username:  caller.Username,
			UpdatedAt: time.Now().UTC(),
		})
		record.UpdateCount++
		if err := s.writeBalances(ctx, tx, groupID, balances, oldAmounts, newAmounts); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, record); err != nil {
			return err
		}
		if err := s.appendEvent(ctx, tx, record, "updated", caller.Username); err != nil {
			return err
		}
		return s.logs.Append(ctx, tx, store.ActivityInput{
			ID:            uuid.NewString(),
			GroupID:       groupID,
			Type:          "transaction_updated",
			UserID:        caller.ID,
			Username:      caller.Username,
			TransactionID: &record.ID,
			Description:   fmt.Sprintf("%s updated the transaction %q.", caller.Username, record.Description),
		})
	})
	if err != nil {
		return models.Transaction{}, translateTxErr(err)
	}
	s.hub.Publish(groupID, ws.EventTransactionUpdated, record)
	return record, nil
}

func (s *TransactionService) Delete(ctx context.Context, groupID, transactionID string, caller Caller) (models.Transaction, error) {
	var record models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.groups.GetForUpdate(ctx, tx, groupID); err != nil {
			return err
		}
		old, err := s.transactions.GetForUpdate(ctx, tx, groupID, transactionID)
		if err != nil {
			return err
		}
		if old.Deleted {
			return ErrAlreadyDeleted
		}
		members, err := s.groups.ListMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		balances := balanceMap(members)
		if _, ok := balances[caller.ID]; !ok {
			return ErrUnauthorized
		}
		amounts := ledger.Amounts{Paid: old.PaidAmounts, Split: old.SplitAmounts}
		if err := ledger.Revert(balances, old.Amount, amounts); err != nil {
			return err
		}
		if err := s.writeBalances(ctx, tx, groupID, balances, amounts); err != nil {
			return err
		}
		if err := s.transactions.MarkDeleted(ctx, tx, groupID, transactionID, caller.Username); err != nil {
			return err
		}
		record = old
		record.Deleted = true
		record.DeletedBy = caller.Username
		if err := s.appendEvent(ctx, tx, record, "deleted", caller.Username); err != nil {
			return err
		}
		return s.logs.Append(ctx, tx, store.ActivityInput{
			ID:            uuid.NewString(),
			GroupID:       groupID,
			Type:          "transaction_deleted",
			UserID:        caller.ID,
			Username:      caller.Username,
			TransactionID: &record.ID,
			Description:   fmt.Sprintf("%s deleted the transaction %q.", caller.Username, record.Description),
		})
	})
	if err != nil {
		return models.Transaction{}, translateTxErr(err)
	}
	s.hub.Publish(groupID, ws.EventTransactionDeleted, record)
	return record, nil
}

// List returns all of a group's transactions newest first, soft-deleted ones
// included for audit display.
func (s *TransactionService) List(ctx context.Context, groupID string, caller Caller) ([]models.Transaction, error) {
	if _, err := s.groups.GetMember(ctx, groupID, caller.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.transactions.ListByGroup(ctx, groupID)
}

// Events returns the append-only event log of one transaction.
func (s *TransactionService) Events(ctx context.Context, groupID, transactionID string, caller Caller) ([]store.TransactionEvent, error) {
	if _, err := s.groups.GetMember(ctx, groupID, caller.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if _, err := s.transactions.GetByID(ctx, groupID, transactionID); err != nil {
		return nil, translateTxErr(err)
	}
	return s.transactions.ListEvents(ctx, groupID, transactionID)
}
