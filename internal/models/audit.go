package models

import (
	"time"
)

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

const (
	EntityUser            = "user"
	EntityHousehold       = "household"
	EntityHouseholdMember = "household_member"
)

// AuditEntry is append-only history. UserID becomes NULL when the acting user
// is deleted; the entry itself is kept.
type AuditEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     *uint     `json:"user_id" gorm:"index"`
	Action     string    `json:"action" gorm:"type:varchar(20);not null"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(50);not null"`
	EntityID   uint      `json:"entity_id"`
	Details    JSONMap   `json:"details" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	User       *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}

func (AuditEntry) TableName() string {
	return "audit_log"
}
