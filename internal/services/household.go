package services

import (
	"context"
	"errors"
	"strings"

	"famli/internal/models"

	"gorm.io/gorm"
)

const DefaultHouseholdLimit = 20

type HouseholdService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewHouseholdService(db *gorm.DB, audit *AuditService) *HouseholdService {
	return &HouseholdService{db: db, audit: audit}
}

type HouseholdInput struct {
	Name         string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	Notes        string
	ColorTheme   string
}

// HouseholdSummary is a list row with its member count
type HouseholdSummary struct {
	models.Household
	MemberCount int64 `json:"member_count"`
}

type HouseholdPage struct {
	Households []HouseholdSummary `json:"households"`
	Pagination Pagination         `json:"pagination"`
}

// HouseholdDetail is a household together with its members
type HouseholdDetail struct {
	models.Household
	Members []models.Member `json:"members"`
}

// ListHouseholds returns households ordered by name. search matches name,
// city or postal code.
func (s *HouseholdService) ListHouseholds(ctx context.Context, page PageRequest, search string) (*HouseholdPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Household{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR city LIKE ? OR postal_code LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var households []models.Household
	err := query.Session(&gorm.Session{}).
		Order("name ASC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&households).Error
	if err != nil {
		return nil, err
	}

	counts, err := s.memberCounts(ctx, households)
	if err != nil {
		return nil, err
	}

	summaries := make([]HouseholdSummary, 0, len(households))
	for _, h := range households {
		summaries = append(summaries, HouseholdSummary{Household: h, MemberCount: counts[h.ID]})
	}

	return &HouseholdPage{Households: summaries, Pagination: NewPagination(page, total)}, nil
}

func (s *HouseholdService) memberCounts(ctx context.Context, households []models.Household) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(households))
	if len(households) == 0 {
		return counts, nil
	}

	ids := make([]uint, 0, len(households))
	for _, h := range households {
		ids = append(ids, h.ID)
	}

	var rows []struct {
		HouseholdID uint
		MemberCount int64
	}
	err := s.db.WithContext(ctx).Model(&models.Member{}).
		Select("household_id, COUNT(*) AS member_count").
		Where("household_id IN ?", ids).
		Group("household_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.HouseholdID] = r.MemberCount
	}
	return counts, nil
}

// GetHousehold returns a household with its members ordered by first name
func (s *HouseholdService) GetHousehold(ctx context.Context, id uint) (*HouseholdDetail, error) {
	household, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	members := []models.Member{}
	err = s.db.WithContext(ctx).
		Where("household_id = ?", id).
		Order("first_name ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return &HouseholdDetail{Household: *household, Members: members}, nil
}

func (s *HouseholdService) CreateHousehold(ctx context.Context, actorID uint, in HouseholdInput) (*models.Household, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("Household name is required")
	}

	household := &models.Household{}
	in.apply(household)
	if err := s.db.WithContext(ctx).Create(household).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, models.ActionCreate, models.EntityHousehold, household.ID, models.JSONMap{
		"name": household.Name,
	})
	return household, nil
}

// UpdateHousehold replaces every editable field of the household
func (s *HouseholdService) UpdateHousehold(ctx context.Context, actorID, id uint, in HouseholdInput) (*models.Household, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("Household name is required")
	}

	household, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(household)
	if err := s.db.WithContext(ctx).Save(household).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, models.ActionUpdate, models.EntityHousehold, household.ID, models.JSONMap{
		"name": household.Name,
	})
	return household, nil
}

// DeleteHousehold removes a household and all of its members
func (s *HouseholdService) DeleteHousehold(ctx context.Context, actorID, id uint) error {
	household, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("household_id = ?", id).Delete(&models.Member{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Household{}, id).Error
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, actorID, models.ActionDelete, models.EntityHousehold, id, models.JSONMap{
		"name": household.Name,
	})
	return nil
}

func (s *HouseholdService) find(ctx context.Context, id uint) (*models.Household, error) {
	var household models.Household
	if err := s.db.WithContext(ctx).First(&household, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHouseholdNotFound
		}
		return nil, err
	}
	return &household, nil
}

func (in HouseholdInput) apply(h *models.Household) {
	h.Name = strings.TrimSpace(in.Name)
	h.AddressLine1 = in.AddressLine1
	h.AddressLine2 = in.AddressLine2
	h.City = in.City
	h.State = in.State
	h.PostalCode = in.PostalCode
	h.Country = in.Country
	h.Notes = in.Notes
	h.ColorTheme = in.ColorTheme
	if h.ColorTheme == "" {
		h.ColorTheme = models.DefaultColorTheme
	}
}
