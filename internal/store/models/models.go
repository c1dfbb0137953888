// internal/store/models/models.go
package models

import "time"

// BaseModel replaces gorm.Model for finer control over timestamps.
type BaseModel struct {
	ID        uint       `gorm:"primarykey"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	DeletedAt *time.Time `gorm:"index"`
}

// Transfer statuses.
const (
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Transfer is one submitted remittance flow, kept for support and
// reconciliation. Hash is the network transaction hash; failed submissions
// have no hash and are keyed by row id only.
type Transfer struct {
	BaseModel
	Hash            string  `gorm:"index;type:varchar(64)"`
	Account         string  `gorm:"index;not null;type:varchar(56)"`
	Recipient       string  `gorm:"type:varchar(56)"`
	Flow            string  `gorm:"not null;type:varchar(20)"`
	SourceAsset     string  `gorm:"not null;type:varchar(70)"`
	DestAsset       string  `gorm:"not null;type:varchar(70)"`
	SourceAmount    string  `gorm:"not null;type:varchar(30)"`
	MinDelivered    string  `gorm:"type:varchar(30)"`
	Status          string  `gorm:"not null;type:varchar(20)"`
	FailureCategory string  `gorm:"type:varchar(40)"`
	ErrorMessage    string  `gorm:"type:text"`
	ExecutionTime   float64 `gorm:"type:decimal(10,3)"`
}
