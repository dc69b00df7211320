package handlers

import (
	"context"
	"time"

	"settleup/internal/models"
	"settleup/internal/services"
	"settleup/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, phone, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	SearchByUsername(ctx context.Context, fragment string, limit int) ([]models.User, error)
}

type GroupService interface {
	Create(ctx context.Context, caller services.Caller, name, picture string) (models.Group, error)
	Get(ctx context.Context, groupID string, caller services.Caller) (models.Group, error)
	List(ctx context.Context, caller services.Caller) ([]models.Group, error)
	GenerateJoinCode(ctx context.Context, groupID string, caller services.Caller) (string, time.Time, error)
	JoinByCode(ctx context.Context, code string, caller services.Caller) (models.Group, error)
	RemoveMember(ctx context.Context, groupID string, caller services.Caller, targetUserID string, force bool) error
	Exit(ctx context.Context, groupID string, caller services.Caller) error
	Logs(ctx context.Context, groupID string, caller services.Caller, limit, offset int) ([]models.ActivityEntry, error)
	PastMembers(ctx context.Context, groupID string, caller services.Caller) ([]models.PastMember, error)
	SelfCheck(ctx context.Context, groupID string, caller services.Caller) ([]services.BalanceCheck, error)
}

type TransactionService interface {
	Create(ctx context.Context, groupID string, caller services.Caller, req services.TransactionRequest) (models.Transaction, error)
	Update(ctx context.Context, groupID, transactionID string, caller services.Caller, req services.TransactionRequest) (models.Transaction, error)
	Delete(ctx context.Context, groupID, transactionID string, caller services.Caller) (models.Transaction, error)
	List(ctx context.Context, groupID string, caller services.Caller) ([]models.Transaction, error)
	Events(ctx context.Context, groupID, transactionID string, caller services.Caller) ([]store.TransactionEvent, error)
}

type MembershipChecker interface {
	GetMember(ctx context.Context, groupID, userID string) (models.Member, error)
}
