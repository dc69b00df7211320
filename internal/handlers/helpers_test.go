package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settleup/internal/auth"
	"settleup/internal/config"
	"settleup/internal/models"
	"settleup/internal/services"
	"settleup/internal/store"
	"settleup/internal/ws"

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

type stubUserStore struct {
	createFn           func(ctx context.Context, tx store.Execer, id, username, email, phone, passwordHash string) error
	getByEmailFn       func(ctx context.Context, email string) (models.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (models.User, error)
	getByIDFn          func(ctx context.Context, userID string) (models.User, error)
	searchByUsernameFn func(ctx context.Context, fragment string, limit int) ([]models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, phone, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, phone, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) SearchByUsername(ctx context.Context, fragment string, limit int) ([]models.User, error) {
	if s.searchByUsernameFn == nil {
		return nil, nil
	}
	return s.searchByUsernameFn(ctx, fragment, limit)
}

type stubMembership struct {
	getMemberFn func(ctx context.Context, groupID, userID string) (models.Member, error)
}

func (s stubMembership) GetMember(ctx context.Context, groupID, userID string) (models.Member, error) {
	if s.getMemberFn == nil {
		return models.Member{}, sql.ErrNoRows
	}
	return s.getMemberFn(ctx, groupID, userID)
}

type stubGroupService struct {
	createFn           func(ctx context.Context, caller services.Caller, name, picture string) (models.Group, error)
	getFn              func(ctx context.Context, groupID string, caller services.Caller) (models.Group, error)
	listFn             func(ctx context.Context, caller services.Caller) ([]models.Group, error)
	generateJoinCodeFn func(ctx context.Context, groupID string, caller services.Caller) (string, time.Time, error)
	joinByCodeFn       func(ctx context.Context, code string, caller services.Caller) (models.Group, error)
	removeMemberFn     func(ctx context.Context, groupID string, caller services.Caller, targetUserID string, force bool) error
	exitFn             func(ctx context.Context, groupID string, caller services.Caller) error
	logsFn             func(ctx context.Context, groupID string, caller services.Caller, limit, offset int) ([]models.ActivityEntry, error)
	pastMembersFn      func(ctx context.Context, groupID string, caller services.Caller) ([]models.PastMember, error)
	selfCheckFn        func(ctx context.Context, groupID string, caller services.Caller) ([]services.BalanceCheck, error)
}

func (s stubGroupService) Create(ctx context.Context, caller services.Caller, name, picture string) (models.Group, error) {
	if s.createFn == nil {
		return models.Group{}, nil
	}
	return s.createFn(ctx, caller, name, picture)
}

func (s stubGroupService) Get(ctx context.Context, groupID string, caller services.Caller) (models.Group, error) {
	if s.getFn == nil {
		return models.Group{ID: groupID}, nil
	}
	return s.getFn(ctx, groupID, caller)
}

func (s stubGroupService) List(ctx context.Context, caller services.Caller) ([]models.Group, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, caller)
}

func (s stubGroupService) GenerateJoinCode(ctx context.Context, groupID string, caller services.Caller) (string, time.Time, error) {
	if s.generateJoinCodeFn == nil {
		return "ABC123", time.Now().Add(time.Hour), nil
	}
	return s.generateJoinCodeFn(ctx, groupID, caller)
}

func (s stubGroupService) JoinByCode(ctx context.Context, code string, caller services.Caller) (models.Group, error) {
	if s.joinByCodeFn == nil {
		return models.Group{}, nil
	}
	return s.joinByCodeFn(ctx, code, caller)
}

func (s stubGroupService) RemoveMember(ctx context.Context, groupID string, caller services.Caller, targetUserID string, force bool) error {
	if s.removeMemberFn == nil {
		return nil
	}
	return s.removeMemberFn(ctx, groupID, caller, targetUserID, force)
}

func (s stubGroupService) Exit(ctx context.Context, groupID string, caller services.Caller) error {
	if s.exitFn == nil {
		return nil
	}
	return s.exitFn(ctx, groupID, caller)
}

func (s stubGroupService) Logs(ctx context.Context, groupID string, caller services.Caller, limit, offset int) ([]models.ActivityEntry, error) {
	if s.logsFn == nil {
		return nil, nil
	}
	return s.logsFn(ctx, groupID, caller, limit, offset)
}

func (s stubGroupService) PastMembers(ctx context.Context, groupID string, caller services.Caller) ([]models.PastMember, error) {
	if s.pastMembersFn == nil {
		return nil, nil
	}
	return s.pastMembersFn(ctx, groupID, caller)
}

func (s stubGroupService) SelfCheck(ctx context.Context, groupID string, caller services.Caller) ([]services.BalanceCheck, error) {
	if s.selfCheckFn == nil {
		return nil, nil
	}
	return s.selfCheckFn(ctx, groupID, caller)
}

type stubTransactionService struct {
	createFn func(ctx context.Context, groupID string, caller services.Caller, req services.TransactionRequest) (models.Transaction, error)
	updateFn func(ctx context.Context, groupID, transactionID string, caller services.Caller, req services.TransactionRequest) (models.Transaction, error)
	deleteFn func(ctx context.Context, groupID, transactionID string, caller services.Caller) (models.Transaction, error)
	listFn   func(ctx context.Context, groupID string, caller services.Caller) ([]models.Transaction, error)
	eventsFn func(ctx context.Context, groupID, transactionID string, caller services.Caller) ([]store.TransactionEvent, error)
}

func (s stubTransactionService) Create(ctx context.Context, groupID string, caller services.Caller, req services.TransactionRequest) (models.Transaction, error) {
	if s.createFn == nil {
		return models.Transaction{}, nil
	}
	return s.createFn(ctx, groupID, caller, req)
}

func (s stubTransactionService) Update(ctx context.Context, groupID, transactionID string, caller services.Caller, req services.TransactionRequest) (models.Transaction, error) {
	if s.updateFn == nil {
		return models.Transaction{}, nil
	}
	return s.updateFn(ctx, groupID, transactionID, caller, req)
}

func (s stubTransactionService) Delete(ctx context.Context, groupID, transactionID string, caller services.Caller) (models.Transaction, error) {
	if s.deleteFn == nil {
		return models.Transaction{}, nil
	}
	return s.deleteFn(ctx, groupID, transactionID, caller)
}

func (s stubTransactionService) List(ctx context.Context, groupID string, caller services.Caller) ([]models.Transaction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, groupID, caller)
}

func (s stubTransactionService) Events(ctx context.Context, groupID, transactionID string, caller services.Caller) ([]store.TransactionEvent, error) {
	if s.eventsFn == nil {
		return nil, nil
	}
	return s.eventsFn(ctx, groupID, transactionID, caller)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
}

func newTestHandler(users UserStore, memberships MembershipChecker, groups GroupService, transactions TransactionService) *Handler {
	return New(fakeTxRunner{}, testConfig(), users, memberships, groups, transactions, ws.NewHub())
}

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	token, err := auth.GenerateToken("secret", "user-1", "alice", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
