package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

const DefaultPeopleLimit = 50

// sortable columns for the people listing
var peopleSortFields = map[string]string{
	"first_name": "hm.first_name",
	"last_name":  "hm.last_name",
}

// Person is a member row joined with the household it belongs to
type Person struct {
	ID            uint      `json:"id"`
	HouseholdID   uint      `json:"household_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Role          string    `json:"role"`
	Birthday      string    `json:"birthday"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	HouseholdName string    `json:"household_name"`
	ColorTheme    string    `json:"color_theme"`
	City          string    `json:"city"`
	State         string    `json:"state"`
}

type PeoplePage struct {
	People     []Person   `json:"people"`
	Pagination Pagination `json:"pagination"`
}

type PeopleService struct {
	db *gorm.DB
}

func NewPeopleService(db *gorm.DB) *PeopleService {
	return &PeopleService{db: db}
}

// ListPeople returns members across all households. Unknown sort fields fall
// back to first_name; ties are broken by last name.
func (s *PeopleService) ListPeople(ctx context.Context, page PageRequest, search, sortBy string) (*PeoplePage, error) {
	sortColumn, ok := peopleSortFields[sortBy]
	if !ok {
		sortColumn = peopleSortFields["first_name"]
	}

	query := s.db.WithContext(ctx).
		Table("household_members AS hm").
		Joins("JOIN households h ON hm.household_id = h.id")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		query = query.Where("hm.first_name LIKE ? OR hm.last_name LIKE ? OR h.name LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	people := make([]Person, 0, page.Limit)
	err := query.Session(&gorm.Session{}).
		Select("hm.id, hm.household_id, hm.first_name, hm.last_name, hm.role, hm.birthday, hm.email, hm.phone, hm.notes, " +
			"hm.created_at, hm.updated_at, h.name AS household_name, h.color_theme, h.city, h.state").
		Order(sortColumn + " ASC").
		Order("hm.last_name ASC").
		Order("hm.id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Scan(&people).Error
	if err != nil {
		return nil, err
	}

	return &PeoplePage{People: people, Pagination: NewPagination(page, total)}, nil
}
