package services

import (
	"context"
	"database/sql"
	"time"

	"settleup/internal/models"
	"settleup/internal/store"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubGroupStore struct {
	getForUpdateFn        func(ctx context.Context, tx store.Getter, groupID string) (models.Group, error)
	listMembersFn         func(ctx context.Context, db store.Selecter, groupID string) ([]models.Member, error)
	getMemberFn           func(ctx context.Context, groupID, userID string) (models.Member, error)
	updateMemberBalanceFn func(ctx context.Context, tx store.Execer, groupID, userID string, balance int64) error
	createFn              func(ctx context.Context, tx store.Execer, input store.GroupInput) error
	getByIDFn             func(ctx context.Context, groupID string) (models.Group, error)
	getByJoinCodeFn       func(ctx context.Context, tx store.Getter, joinCode string) (models.Group, error)
	listByUserFn          func(ctx context.Context, userID string) ([]models.Group, error)
	setJoinCodeFn         func(ctx context.Context, tx store.Execer, groupID, code string, expiry time.Time) error
	addMemberFn           func(ctx context.Context, tx store.Execer, groupID, userID, role string) error
	removeMemberFn        func(ctx context.Context, tx store.Execer, groupID, userID string) error
	insertPastMemberFn    func(ctx context.Context, tx store.Execer, id, groupID, userID string, balance int64) error
	listPastMembersFn     func(ctx context.Context, groupID string) ([]models.PastMember, error)
}

func (s stubGroupStore) GetForUpdate(ctx context.Context, tx store.Getter, groupID string) (models.Group, error) {
	if s.getForUpdateFn == nil {
		return models.Group{ID: groupID}, nil
	}
	return s.getForUpdateFn(ctx, tx, groupID)
}

func (s stubGroupStore) ListMembers(ctx context.Context, db store.Selecter, groupID string) ([]models.Member, error) {
	if s.listMembersFn == nil {
		return nil, nil
	}
	return s.listMembersFn(ctx, db, groupID)
}

func (s stubGroupStore) GetMember(ctx context.Context, groupID, userID string) (models.Member, error) {
	if s.getMemberFn == nil {
		return models.Member{}, sql.ErrNoRows
	}
	return s.getMemberFn(ctx, groupID, userID)
}

func (s stubGroupStore) UpdateMemberBalance(ctx context.Context, tx store.Execer, groupID, userID string, balance int64) error {
	if s.updateMemberBalanceFn == nil {
		return nil
	}
	return s.updateMemberBalanceFn(ctx, tx, groupID, userID, balance)
}

func (s stubGroupStore) Create(ctx context.Context, tx store.Execer, input store.GroupInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubGroupStore) GetByID(ctx context.Context, groupID string) (models.Group, error) {
	if s.getByIDFn == nil {
		return models.Group{ID: groupID}, nil
	}
	return s.getByIDFn(ctx, groupID)
}

func (s stubGroupStore) GetByJoinCode(ctx context.Context, tx store.Getter, joinCode string) (models.Group, error) {
	if s.getByJoinCodeFn == nil {
		return models.Group{}, sql.ErrNoRows
	}
	return s.getByJoinCodeFn(ctx, tx, joinCode)
}

func (s stubGroupStore) ListByUser(ctx context.Context, userID string) ([]models.Group, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s stubGroupStore) SetJoinCode(ctx context.Context, tx store.Execer, groupID, code string, expiry time.Time) error {
	if s.setJoinCodeFn == nil {
		return nil
	}
	return s.setJoinCodeFn(ctx, tx, groupID, code, expiry)
}

func (s stubGroupStore) AddMember(ctx context.Context, tx store.Execer, groupID, userID, role string) error {
	if s.addMemberFn == nil {
		return nil
	}
	return s.addMemberFn(ctx, tx, groupID, userID, role)
}

func (s stubGroupStore) RemoveMember(ctx context.Context, tx store.Execer, groupID, userID string) error {
	if s.removeMemberFn == nil {
		return nil
	}
	return s.removeMemberFn(ctx, tx, groupID, userID)
}

func (s stubGroupStore) InsertPastMember(ctx context.Context, tx store.Execer, id, groupID, userID string, balance int64) error {
	if s.insertPastMemberFn == nil {
		return nil
	}
	return s.insertPastMemberFn(ctx, tx, id, groupID, userID, balance)
}

func (s stubGroupStore) ListPastMembers(ctx context.Context, groupID string) ([]models.PastMember, error) {
	if s.listPastMembersFn == nil {
		return nil, nil
	}
	return s.listPastMembersFn(ctx, groupID)
}

type stubTransactionStore struct {
	insertFn       func(ctx context.Context, tx store.Execer, record models.Transaction) error
	getByIDFn      func(ctx context.Context, groupID, transactionID string) (models.Transaction, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, groupID, transactionID string) (models.Transaction, error)
	updateFn       func(ctx context.Context, tx store.Execer, record models.Transaction) error
	markDeletedFn  func(ctx context.Context, tx store.Execer, groupID, transactionID, deletedBy string) error
	listByGroupFn  func(ctx context.Context, groupID string) ([]models.Transaction, error)
	appendEventFn  func(ctx context.Context, tx store.Execer, input store.TransactionEventInput) error
	listEventsFn   func(ctx context.Context, groupID, transactionID string) ([]store.TransactionEvent, error)
}

func (s stubTransactionStore) Insert(ctx context.Context, tx store.Execer, record models.Transaction) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, record)
}

func (s stubTransactionStore) GetByID(ctx context.Context, groupID, transactionID string) (models.Transaction, error) {
	if s.getByIDFn == nil {
		return models.Transaction{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, groupID, transactionID)
}

func (s stubTransactionStore) GetForUpdate(ctx context.Context, tx store.Getter, groupID, transactionID string) (models.Transaction, error) {
	if s.getForUpdateFn == nil {
		return models.Transaction{}, sql.ErrNoRows
	}
	return s.getForUpdateFn(ctx, tx, groupID, transactionID)
}

func (s stubTransactionStore) Update(ctx context.Context, tx store.Execer, record models.Transaction) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, record)
}

func (s stubTransactionStore) MarkDeleted(ctx context.Context, tx store.Execer, groupID, transactionID, deletedBy string) error {
	if s.markDeletedFn == nil {
		return nil
	}
	return s.markDeletedFn(ctx, tx, groupID, transactionID, deletedBy)
}

func (s stubTransactionStore) ListByGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	if s.listByGroupFn == nil {
		return nil, nil
	}
	return s.listByGroupFn(ctx, groupID)
}

func (s stubTransactionStore) AppendEvent(ctx context.Context, tx store.Execer, input store.TransactionEventInput) error {
	if s.appendEventFn == nil {
		return nil
	}
	return s.appendEventFn(ctx, tx, input)
}

func (s stubTransactionStore) ListEvents(ctx context.Context, groupID, transactionID string) ([]store.TransactionEvent, error) {
	if s.listEventsFn == nil {
		return nil, nil
	}
	return s.listEventsFn(ctx, groupID, transactionID)
}

type stubActivityStore struct {
	appendFn func(ctx context.Context, tx store.Execer, input store.ActivityInput) error
	listFn   func(ctx context.Context, groupID string, limit, offset int) ([]models.ActivityEntry, error)
}

func (s stubActivityStore) Append(ctx context.Context, tx store.Execer, input store.ActivityInput) error {
	if s.appendFn == nil {
		return nil
	}
	return s.appendFn(ctx, tx, input)
}

func (s stubActivityStore) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]models.ActivityEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, groupID, limit, offset)
}

type publishedEvent struct {
	groupID string
	event   string
	payload any
}

type stubHub struct {
	events []publishedEvent
}

func (s *stubHub) Publish(groupID, event string, payload any) {
	s.events = append(s.events, publishedEvent{groupID: groupID, event: event, payload: payload})
}

func groupOfThree() []models.Member {
	return []models.Member{
		{GroupID: "g1", UserID: "alice", Username: "alice", Role: RoleAdmin, Balance: 0},
		{GroupID: "g1", UserID: "bob", Username: "bob", Role: RoleMember, Balance: 0},
		{GroupID: "g1", UserID: "carol", Username: "carol", Role: RoleMember, Balance: 0},
	}
}
