package models

import (
	"time"
)

const DefaultColorTheme = "#3b82f6"

type Household struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null;index"`
	AddressLine1 string    `json:"address_line1" gorm:"type:varchar(255)"`
	AddressLine2 string    `json:"address_line2" gorm:"type:varchar(255)"`
	City         string    `json:"city" gorm:"type:varchar(100)"`
	State        string    `json:"state" gorm:"type:varchar(100)"`
	PostalCode   string    `json:"postal_code" gorm:"type:varchar(20)"`
	Country      string    `json:"country" gorm:"type:varchar(100)"`
	Notes        string    `json:"notes" gorm:"type:text"`
	ColorTheme   string    `json:"color_theme" gorm:"type:varchar(20);default:'#3b82f6'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member is a person belonging to exactly one household
type Member struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	HouseholdID uint       `json:"household_id" gorm:"not null;index"`
	FirstName   string     `json:"first_name" gorm:"type:varchar(255);not null;index:idx_member_name,priority:1"`
	LastName    string     `json:"last_name" gorm:"type:varchar(255);index:idx_member_name,priority:2"`
	Role        string     `json:"role" gorm:"type:varchar(100)"` // free text, e.g. parent, child
	Birthday    string     `json:"birthday" gorm:"type:varchar(10)"` // YYYY-MM-DD
	Email       string     `json:"email" gorm:"type:varchar(255)"`
	Phone       string     `json:"phone" gorm:"type:varchar(50)"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Household   *Household `json:"-" gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE"`
}

func (Member) TableName() string {
	return "household_members"
}
