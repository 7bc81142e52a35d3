// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);not null;index"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`

	// WalletBalance is the authoritative USD balance. Only the wallet
	// service writes this column; every mutation appends exactly one
	// WalletTransaction row.
	WalletBalance float64 `json:"wallet_balance" gorm:"type:decimal(12,2);not null;default:0"`

	PayPalEmail string     `json:"paypal_email,omitempty" gorm:"size:255"`
	LastLoginAt *time.Time `json:"last_login_at"`

	// Relationships
	Beats              []Beat              `json:"beats,omitempty" gorm:"foreignKey:ProducerID"`
	Purchases          []Purchase          `json:"purchases,omitempty" gorm:"foreignKey:BuyerID"`
	WalletTransactions []WalletTransaction `json:"wallet_transactions,omitempty" gorm:"foreignKey:UserID"`
	Withdrawals        []Withdrawal        `json:"withdrawals,omitempty" gorm:"foreignKey:ProducerID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
