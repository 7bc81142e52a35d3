// internal/models/wallet.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletTransaction is an append-only audit record. BalanceAfter is a
// point-in-time snapshot taken inside the same database transaction as
// the balance write, never recomputed.
type WalletTransaction struct {
	BaseModel
	UserID        uuid.UUID             `json:"user_id" gorm:"type:uuid;not null;index"`
	Type          WalletTransactionType `json:"type" gorm:"type:varchar(10);not null;index"`
	Amount        float64               `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency      string                `json:"currency" gorm:"size:3;not null;default:'USD'"`
	USDAmount     float64               `json:"usd_amount" gorm:"type:decimal(12,2);not null"`
	BalanceAfter  float64               `json:"balance_after" gorm:"type:decimal(12,2);not null"`
	Description   string                `json:"description" gorm:"size:255"`
	ReferenceType string                `json:"reference_type,omitempty" gorm:"size:30;index"`
	ReferenceID   *uuid.UUID            `json:"reference_id" gorm:"type:uuid;index"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type Withdrawal struct {
	BaseModel
	ProducerID  uuid.UUID        `json:"producer_id" gorm:"type:uuid;not null;index"`
	Amount      float64          `json:"amount" gorm:"type:decimal(12,2);not null"`
	PayPalEmail string           `json:"paypal_email" gorm:"size:255;not null"`
	Status      WithdrawalStatus `json:"status" gorm:"type:varchar(10);default:'unpaid';index"`
	Note        string           `json:"note,omitempty" gorm:"size:255"`
	ProcessedAt *time.Time       `json:"processed_at"`

	// Relationships
	Producer User `json:"producer,omitempty" gorm:"foreignKey:ProducerID"`
}

// Notification is an in-app notification intent. Delivery (email, push)
// is out of scope; workflows only emit these rows.
type Notification struct {
	BaseModel
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Type          string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title         string     `json:"title" gorm:"size:255;not null"`
	Message       string     `json:"message" gorm:"type:text;not null"`
	ReferenceType string     `json:"reference_type,omitempty" gorm:"size:30"`
	ReferenceID   *uuid.UUID `json:"reference_id" gorm:"type:uuid"`
	ReadAt        *time.Time `json:"read_at"`
}

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
}
