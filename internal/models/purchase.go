// internal/models/purchase.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Purchase struct {
	BaseModel
	BuyerID   uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;uniqueIndex:idx_purchase_buyer_beat_license;index"`
	BeatID    uuid.UUID `json:"beat_id" gorm:"type:uuid;not null;uniqueIndex:idx_purchase_buyer_beat_license;index"`
	LicenseID uuid.UUID `json:"license_id" gorm:"type:uuid;not null;uniqueIndex:idx_purchase_buyer_beat_license"`

	// Price splits. Invariant: Commission + SellerEarnings == Price, and
	// WalletAmount + CardAmount == Price, all rounded to cents.
	Price          float64 `json:"price" gorm:"type:decimal(10,2);not null"`
	Commission     float64 `json:"commission" gorm:"type:decimal(10,2);not null"`
	SellerEarnings float64 `json:"seller_earnings" gorm:"type:decimal(10,2);not null"`
	WalletAmount   float64 `json:"wallet_amount" gorm:"type:decimal(10,2);not null;default:0"`
	CardAmount     float64 `json:"card_amount" gorm:"type:decimal(10,2);not null;default:0"`

	Currency         string `json:"currency" gorm:"size:3;default:'USD'"`
	Gateway          string `json:"gateway,omitempty" gorm:"size:30"`
	PaymentReference string `json:"payment_reference,omitempty" gorm:"size:255"`

	PayoutStatus PayoutStatus `json:"payout_status" gorm:"type:varchar(10);default:'unpaid';index"`
	RefundStatus RefundStatus `json:"refund_status" gorm:"type:varchar(10);default:'none';index"`
	FlagReason   string       `json:"flag_reason,omitempty" gorm:"size:255"`

	HoldUntil    time.Time  `json:"hold_until" gorm:"not null;index"`
	ReleasedAt   *time.Time `json:"released_at"`
	RefundedAt   *time.Time `json:"refunded_at"`
	WithdrawalID *uuid.UUID `json:"withdrawal_id" gorm:"type:uuid;index"`

	// Relationships
	Buyer      User        `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Beat       Beat        `json:"beat,omitempty" gorm:"foreignKey:BeatID"`
	License    License     `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
	Withdrawal *Withdrawal `json:"withdrawal,omitempty" gorm:"foreignKey:WithdrawalID"`
}

type Dispute struct {
	BaseModel
	PurchaseID       uuid.UUID     `json:"purchase_id" gorm:"type:uuid;not null;index"`
	RaisedBy         uuid.UUID     `json:"raised_by" gorm:"type:uuid;not null;index"`
	Reason           string        `json:"reason" gorm:"type:text;not null"`
	Status           DisputeStatus `json:"status" gorm:"type:varchar(20);default:'open';index"`
	AdminResponse    string        `json:"admin_response,omitempty" gorm:"type:text"`
	ProducerResponse string        `json:"producer_response,omitempty" gorm:"type:text"`
	Resolution       string        `json:"resolution,omitempty" gorm:"type:text"`
	ResolvedBy       *uuid.UUID    `json:"resolved_by" gorm:"type:uuid"`
	ResolvedAt       *time.Time    `json:"resolved_at"`

	// Relationships
	Purchase Purchase `json:"purchase,omitempty" gorm:"foreignKey:PurchaseID"`
	Raiser   User     `json:"raiser,omitempty" gorm:"foreignKey:RaisedBy"`
	Resolver *User    `json:"resolver,omitempty" gorm:"foreignKey:ResolvedBy"`
}
