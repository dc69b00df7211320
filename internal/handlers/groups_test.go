package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settleup/internal/models"
	"settleup/internal/services"
)

func TestCreateGroupSuccess(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		createFn: func(_ context.Context, caller services.Caller, name, _ string) (models.Group, error) {
			if caller.ID != "user-1" || name != "trip" {
				t.Fatalf("unexpected create: caller=%q name=%q", caller.ID, name)
			}
			return models.Group{ID: "g1", Name: name}, nil
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodPost, "/groups/", []byte(`{"name":"trip"}`))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateGroupRejectsEmptyName(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{}, stubTransactionService{})

	req := authedRequest(t, http.MethodPost, "/groups/", []byte(`{"name":""}`))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestJoinGroupRejectsMalformedCode(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		joinByCodeFn: func(context.Context, string, services.Caller) (models.Group, error) {
			t.Fatalf("service must not be called for a malformed code")
			return models.Group{}, nil
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodPost, "/groups/join", []byte(`{"join_code":"nope"}`))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestJoinGroupExpiredCode(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		joinByCodeFn: func(context.Context, string, services.Caller) (models.Group, error) {
			return models.Group{}, services.ErrCodeExpired
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodPost, "/groups/join", []byte(`{"join_code":"ABC123"}`))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestExitGroupWithOutstandingBalance(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		exitFn: func(context.Context, string, services.Caller) error {
			return services.ErrBalanceOutstanding
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodPost, "/groups/g1/exit", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestRemoveMemberPassesForceFlag(t *testing.T) {
	var gotForce bool
	var gotTarget string
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		removeMemberFn: func(_ context.Context, _ string, _ services.Caller, targetUserID string, force bool) error {
			gotForce = force
			gotTarget = targetUserID
			return nil
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodDelete, "/groups/g1/members/bob?force=true", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !gotForce || gotTarget != "bob" {
		t.Fatalf("expected forced removal of bob, got force=%v target=%q", gotForce, gotTarget)
	}
}

func TestGenerateJoinCodeForbiddenForMembers(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		generateJoinCodeFn: func(context.Context, string, services.Caller) (string, time.Time, error) {
			return "", time.Time{}, services.ErrUnauthorized
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodPost, "/groups/g1/join-code", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestSelfCheckReportsBalances(t *testing.T) {
	handler := newTestHandler(stubUserStore{}, stubMembership{}, stubGroupService{
		selfCheckFn: func(context.Context, string, services.Caller) ([]services.BalanceCheck, error) {
			return []services.BalanceCheck{{UserID: "alice", Stored: 6000, Derived: 6000}}, nil
		},
	}, stubTransactionService{})

	req := authedRequest(t, http.MethodGet, "/groups/g1/self-check", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}
