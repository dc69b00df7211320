package models

import "time"

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Member is one user's membership in a group. Balance is the running net
// amount in minor units: positive means the group owes the member, negative
// means the member owes the group.
type Member struct {
	GroupID  string    `db:"group_id" json:"group_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	Role     string    `db:"role" json:"role"`
	Balance  int64     `db:"balance" json:"balance"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

type Group struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Picture        string     `db:"picture" json:"picture,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	JoinCode       string     `db:"join_code" json:"join_code,omitempty"`
	JoinCodeExpiry *time.Time `db:"join_code_expiry" json:"join_code_expiry,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	Members        []Member   `db:"-" json:"members,omitempty"`
}

// UpdateRecord is one entry in a transaction's edit history.
type UpdateRecord struct {
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is one expense recorded against a group. PaidAmounts and
// SplitAmounts are parallel maps keyed by member user ID, in minor units.
// Deleted transactions stay in the store for audit; their amounts are stale
// and must never be applied or reverted again.
type Transaction struct {
	ID            string           `json:"id"`
	GroupID       string           `json:"group_id"`
	Amount        int64            `json:"amount"`
	Description   string           `json:"description"`
	PaidBy        []string         `json:"paid_by"`
	SplitsTo      []string         `json:"splits_to"`
	TransPerson   string           `json:"trans_person"`
	PaidAmounts   map[string]int64 `json:"paid_amounts"`
	SplitAmounts  map[string]int64 `json:"split_amounts"`
	PaidWay       string           `json:"paid_way"`
	SplitsWay     string           `json:"splits_way"`
	CreatedBy     string           `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	Deleted       bool             `json:"deleted"`
	DeletedBy     string           `json:"deleted_by,omitempty"`
	UpdateHistory []UpdateRecord   `json:"update_history"`
	UpdateCount   int              `json:"update_count"`
}

// ActivityEntry is one row of a group's activity log.
type ActivityEntry struct {
	ID            string    `db:"id" json:"id"`
	GroupID       string    `db:"group_id" json:"group_id"`
	Type          string    `db:"type" json:"type"`
	UserID        string    `db:"user_id" json:"user_id"`
	Username      string    `db:"username" json:"username"`
	TransactionID *string   `db:"transaction_id" json:"transaction_id,omitempty"`
	Description   string    `db:"description" json:"description"`
	Balance       *int64    `db:"balance" json:"balance,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PastMember records a member who left, with the balance they carried out.
type PastMember struct {
	ID      string    `db:"id" json:"id"`
	GroupID string    `db:"group_id" json:"group_id"`
	UserID  string    `db:"user_id" json:"user_id"`
	Balance int64     `db:"balance" json:"balance"`
	LeftAt  time.Time `db:"left_at" json:"left_at"`
}
