// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the ID client-side. Keeping UUID generation out of
// column defaults means the same schema migrates on postgres and the
// sqlite test driver.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Enums
type UserRole string

const (
	UserRoleBuyer    UserRole = "buyer"
	UserRoleProducer UserRole = "producer"
	UserRoleAdmin    UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type BeatStatus string

const (
	BeatStatusEnabled     BeatStatus = "enabled"
	BeatStatusDisabled    BeatStatus = "disabled"
	BeatStatusUnderReview BeatStatus = "under_review"
	BeatStatusBanned      BeatStatus = "banned"
)

type PayoutStatus string

const (
	PayoutStatusUnpaid PayoutStatus = "unpaid"
	PayoutStatusPaid   PayoutStatus = "paid"
)

type RefundStatus string

const (
	RefundStatusNone     RefundStatus = "none"
	RefundStatusDisputed RefundStatus = "disputed"
	RefundStatusRefunded RefundStatus = "refunded"
)

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

type WithdrawalStatus string

const (
	WithdrawalStatusUnpaid    WithdrawalStatus = "unpaid"
	WithdrawalStatusPaid      WithdrawalStatus = "paid"
	WithdrawalStatusBlocked   WithdrawalStatus = "blocked"
	WithdrawalStatusCancelled WithdrawalStatus = "cancelled"
)

type WalletTransactionType string

const (
	WalletTransactionTypeCredit WalletTransactionType = "credit"
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
)

// License template names seeded at startup. Exclusivity hangs off the name:
// once a beat sells under LicenseNameExclusive it is delisted for good.
const (
	LicenseNameBasic     = "Basic"
	LicenseNamePremium   = "Premium"
	LicenseNameExclusive = "Exclusive"
)
