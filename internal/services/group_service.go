package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"settleup/internal/db"
	"settleup/internal/ledger"
	"settleup/internal/models"
	"settleup/internal/store"
	"settleup/internal/ws"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"

	joinCodeTTL = time.Hour
)

type GroupAggregateStore interface {
	GroupStore
	Create(ctx context.Context, tx store.Execer, input store.GroupInput) error
	GetByID(ctx context.Context, groupID string) (models.Group, error)
	GetByJoinCode(ctx context.Context, tx store.Getter, joinCode string) (models.Group, error)
	ListByUser(ctx context.Context, userID string) ([]models.Group, error)
	SetJoinCode(ctx context.Context, tx store.Execer, groupID, code string, expiry time.Time) error
	AddMember(ctx context.Context, tx store.Execer, groupID, userID, role string) error
	RemoveMember(ctx context.Context, tx store.Execer, groupID, userID string) error
	InsertPastMember(ctx context.Context, tx store.Execer, id, groupID, userID string, balance int64) error
	ListPastMembers(ctx context.Context, groupID string) ([]models.PastMember, error)
}

type TransactionLister interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.Transaction, error)
}

// GroupService owns the group aggregate: membership, join codes and the
// activity log. Everything that can affect member balances goes through the
// same group-row lock the transaction service uses.
type GroupService struct {
	txRunner     db.TxRunner
	groups       GroupAggregateStore
	transactions TransactionLister
	logs         ActivityStore
	hub          Publisher
}

func NewGroupService(txRunner db.TxRunner, groups GroupAggregateStore, transactions TransactionLister, logs ActivityStore, hub Publisher) *GroupService {
	return &GroupService{
		txRunner:     txRunner,
		groups:       groups,
		transactions: transactions,
		logs:         logs,
		hub:          hub,
	}
}

// generateJoinCode produces a 6-character uppercase hex code.
func generateJoinCode() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

func (s *GroupService) Create(ctx context.Context, caller Caller, name, picture string) (models.Group, error) {
	code, err := generateJoinCode()
	if err != nil {
		return models.Group{}, err
	}
	expiry := time.Now().Add(joinCodeTTL).UTC()
	groupID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.groups.Create(ctx, tx, store.GroupInput{
			ID:        groupID,
			Name:      name,
			Picture:   picture,
			CreatedBy: caller.ID,
		}); err != nil {
			return err
		}
		if err := s.groups.AddMember(ctx, tx, groupID, caller.ID, RoleAdmin); err != nil {
			return err
		}
		return s.groups.SetJoinCode(ctx, tx, groupID, code, expiry)
	})
	if err != nil {
		return models.Group{}, translateTxErr(err)
	}
	return s.Get(ctx, groupID, caller)
}

func (s *GroupService) Get(ctx context.Context, groupID string, caller Caller) (models.Group, error) {
	if _, err := s.groups.GetMember(ctx, groupID, caller.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Group{}, ErrUnauthorized
		}
		return models.Group{}, err
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return models.Group{}, translateTxErr(err)
	}
	members, err := s.groups.ListMembers(ctx, nil, groupID)
	if err != nil {
		return models.Group{}, err
	}
	group.Members = members
	return group, nil
}

func (s *GroupService) List(ctx context.Context, caller Caller) ([]models.Group, error) {
	return s.groups.ListByUser(ctx, caller.ID)
}

// GenerateJoinCode rotates the group's join code. Admin only, matching the
// original product behavior.
func (s *GroupService) GenerateJoinCode(ctx context.Context, groupID string, caller Caller) (string, time.Time, error) {
	code, err := generateJoinCode()
	if err != nil {
		return "", time.Time{}, err
	}
	expiry := time.Now().Add(joinCodeTTL).UTC()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.groups.GetForUpdate(ctx, tx, groupID); err != nil {
			return err
		}
		member, err := s.findMember(ctx, tx, groupID, caller.ID)
		if err != nil {
			return err
		}
		if member.Role != RoleAdmin {
			return ErrUnauthorized
		}
		return s.groups.SetJoinCode(ctx, tx, groupID, code, expiry)
	})
	if err != nil {
		return "", time.Time{}, translateTxErr(err)
	}
	return code, expiry, nil
}

// JoinByCode adds the caller to the group the code belongs to, with a zero
// starting balance.
func (s *GroupService) JoinByCode(ctx context.Context, code string, caller Caller) (models.Group, error) {
	var groupID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		group, err := s.groups.GetByJoinCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInvalidCode
			}
			return err
		}
		if group.JoinCodeExpiry == nil || time.Now().After(*group.JoinCodeExpiry) {
			return ErrCodeExpired
		}
		groupID = group.ID
		members, err := s.groups.ListMembers(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		for _, member := range members {
			if member.UserID == caller.ID {
				return ErrAlreadyMember
			}
		}
		if err := s.groups.AddMember(ctx, tx, group.ID, caller.ID, RoleMember); err != nil {
			return err
		}
		return s.logs.Append(ctx, tx, store.ActivityInput{
			ID:          uuid.NewString(),
			GroupID:     group.ID,
			Type:        "member_joined",
			UserID:      caller.ID,
			Username:    caller.Username,
			Description: fmt.Sprintf("%s joined the group.", caller.Username),
		})
	})
	if err != nil {
		return models.Group{}, translateTxErr(err)
	}
	s.hub.Publish(groupID, ws.EventNewLog, map[string]string{
		"type":     "member_joined",
		"username": caller.Username,
	})
	return s.Get(ctx, groupID, caller)
}

// RemoveMember takes a member out of the group. Members may remove
// themselves; removing someone else needs the Admin role. A member carrying a
// non-zero balance is refused unless an admin forces the removal, in which
// case the outstanding balance is snapshotted into past members and logged.
func (s *GroupService) RemoveMember(ctx context.Context, groupID string, caller Caller, targetUserID string, force bool) error {
	var exitBalance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.groups.GetForUpdate(ctx, tx, groupID); err != nil {
			return err
		}
		members, err := s.groups.ListMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		var callerMember, target *models.Member
		for i := range members {
			if members[i].UserID == caller.ID {
				callerMember = &members[i]
			}
			if members[i].UserID == targetUserID {
				target = &members[i]
			}
		}
		if callerMember == nil {
			return ErrUnauthorized
		}
		if target == nil {
			return ErrNotFound
		}
		selfExit := caller.ID == targetUserID
		if !selfExit && callerMember.Role != RoleAdmin {
			return ErrUnauthorized
		}
		if target.Balance != 0 && (selfExit || !force) {
			return ErrBalanceOutstanding
		}
		exitBalance = target.Balance
		if err := s.groups.InsertPastMember(ctx, tx, uuid.NewString(), groupID, targetUserID, target.Balance); err != nil {
			return err
		}
		if err := s.groups.RemoveMember(ctx, tx, groupID, targetUserID); err != nil {
			return err
		}
		description := fmt.Sprintf("%s left the group.", target.Username)
		if !selfExit {
			description = fmt.Sprintf("%s removed %s from the group.", caller.Username, target.Username)
		}
		balance := target.Balance
		return s.logs.Append(ctx, tx, store.ActivityInput{
			ID:          uuid.NewString(),
			GroupID:     groupID,
			Type:        "member_left",
			UserID:      targetUserID,
			Username:    target.Username,
			Description: description,
			Balance:     &balance,
		})
	})
	if err != nil {
		return translateTxErr(err)
	}
	s.hub.Publish(groupID, ws.EventNewLog, map[string]any{
		"type":    "member_left",
		"user_id": targetUserID,
		"balance": exitBalance,
	})
	return nil
}

// Exit is self-removal; it never forces out an unsettled balance.
func (s *GroupService) Exit(ctx context.Context, groupID string, caller Caller) error {
	return s.RemoveMember(ctx, groupID, caller, caller.ID, false)
}

func (s *GroupService) Logs(ctx context.Context, groupID string, caller Caller, limit, offset int) ([]models.ActivityEntry, error) {
	if _, err := s.groups.GetMember(ctx, groupID, caller.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.logs.ListByGroup(ctx, groupID, limit, offset)
}

func (s *GroupService) PastMembers(ctx context.Context, groupID string, caller Caller) ([]models.PastMember, error) {
	if _, err := s.groups.GetMember(ctx, groupID, caller.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.groups.ListPastMembers(ctx, groupID)
}

// BalanceCheck is one member's stored balance next to the balance derived by
// replaying every active transaction.
type BalanceCheck struct {
	UserID  string `json:"user_id"`
	Stored  int64  `json:"stored"`
	Derived int64  `json:"derived"`
	Diff    int64  `json:"diff"`
}

// SelfCheck recomputes member balances from the active transaction history
// and reports any drift from the stored running balances. Past members are
// included in the replay (their transactions are still on file) but only
// current members are reported.
func (s *GroupService) SelfCheck(ctx context.Context, groupID string, caller Caller) ([]BalanceCheck, error) {
	members, err := s.groups.ListMembers(ctx, nil, groupID)
	if err != nil {
		return nil, err
	}
	var isMember bool
	for _, member := range members {
		if member.UserID == caller.ID {
			isMember = true
		}
	}
	if !isMember {
		return nil, ErrUnauthorized
	}
	past, err := s.groups.ListPastMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	derived := make(map[string]int64, len(members)+len(past))
	for _, member := range members {
		derived[member.UserID] = 0
	}
	for _, member := range past {
		derived[member.UserID] = 0
	}
	transactions, err := s.transactions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, record := range transactions {
		if record.Deleted {
			continue
		}
		amounts := ledger.Amounts{Paid: record.PaidAmounts, Split: record.SplitAmounts}
		if err := ledger.Apply(derived, record.Amount, amounts); err != nil {
			return nil, fmt.Errorf("replaying transaction %s: %w", record.ID, err)
		}
	}
	checks := make([]BalanceCheck, 0, len(members))
	for _, member := range members {
		checks = append(checks, BalanceCheck{
			UserID:  member.UserID,
			Stored:  member.Balance,
			Derived: derived[member.UserID],
			Diff:    member.Balance - derived[member.UserID],
		})
	}
	return checks, nil
}

// findMember loads one member through the members listing inside the
// caller's transaction, so role checks see the locked state.
func (s *GroupService) findMember(ctx context.Context, tx store.Selecter, groupID, userID string) (models.Member, error) {
	members, err := s.groups.ListMembers(ctx, tx, groupID)
	if err != nil {
		return models.Member{}, err
	}
	for _, member := range members {
		if member.UserID == userID {
			return member, nil
		}
	}
	return models.Member{}, ErrUnauthorized
}
