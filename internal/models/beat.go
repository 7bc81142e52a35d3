// internal/models/beat.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Beat struct {
	BaseModel
	ProducerID  uuid.UUID      `json:"producer_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Genre       string         `json:"genre" gorm:"size:50;index"`
	BPM         int            `json:"bpm"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	AudioURL    string         `json:"audio_url" gorm:"size:512"`
	Status      BeatStatus     `json:"status" gorm:"type:varchar(20);default:'enabled';index"`

	// IsActive mirrors Status == enabled; the purchase path checks both
	// and an exclusive sale clears both permanently.
	IsActive   bool   `json:"is_active" gorm:"default:true;index"`
	FlagReason string `json:"flag_reason,omitempty" gorm:"size:255"`
	PlayCount  int    `json:"play_count" gorm:"default:0"`
	SalesCount int    `json:"sales_count" gorm:"default:0"`

	// Relationships
	Producer User          `json:"producer,omitempty" gorm:"foreignKey:ProducerID"`
	Licenses []BeatLicense `json:"licenses,omitempty" gorm:"foreignKey:BeatID"`
}

// License is a global template (usage rights + default price), independent
// of any beat. Pricing per beat lives on BeatLicense.
type License struct {
	BaseModel
	Name         string  `json:"name" gorm:"uniqueIndex;size:50;not null"`
	UsageRights  string  `json:"usage_rights" gorm:"type:text"`
	DefaultPrice float64 `json:"default_price" gorm:"type:decimal(10,2);not null"`
	IsActive     bool    `json:"is_active" gorm:"default:true"`
}

func (l *License) IsExclusive() bool {
	return l.Name == LicenseNameExclusive
}

// BeatLicense attaches a license template to a beat at a price.
type BeatLicense struct {
	BaseModel
	BeatID    uuid.UUID `json:"beat_id" gorm:"type:uuid;not null;uniqueIndex:idx_beat_license"`
	LicenseID uuid.UUID `json:"license_id" gorm:"type:uuid;not null;uniqueIndex:idx_beat_license"`
	Price     float64   `json:"price" gorm:"type:decimal(10,2);not null"`

	// Relationships
	Beat    Beat    `json:"beat,omitempty" gorm:"foreignKey:BeatID"`
	License License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
}
