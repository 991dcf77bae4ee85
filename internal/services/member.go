package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"famli/internal/models"

	"gorm.io/gorm"
)

const birthdayLayout = "2006-01-02"

type MemberService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewMemberService(db *gorm.DB, audit *AuditService) *MemberService {
	return &MemberService{db: db, audit: audit}
}

type MemberInput struct {
	FirstName string
	LastName  string
	Role      string
	Birthday  string
	Email     string
	Phone     string
	Notes     string
}

func (in MemberInput) validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return invalid("First name is required")
	}
	if in.Birthday != "" {
		if _, err := time.Parse(birthdayLayout, in.Birthday); err != nil {
			return invalid("Birthday must be formatted as YYYY-MM-DD")
		}
	}
	return nil
}

func (in MemberInput) apply(m *models.Member) {
	m.FirstName = strings.TrimSpace(in.FirstName)
	m.LastName = strings.TrimSpace(in.LastName)
	m.Role = in.Role
	m.Birthday = in.Birthday
	m.Email = in.Email
	m.Phone = in.Phone
	m.Notes = in.Notes
}

// ListMembers returns the members of a household ordered by first name
func (s *MemberService) ListMembers(ctx context.Context, householdID uint) ([]models.Member, error) {
	if err := s.householdExists(ctx, householdID); err != nil {
		return nil, err
	}

	members := []models.Member{}
	err := s.db.WithContext(ctx).
		Where("household_id = ?", householdID).
		Order("first_name ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *MemberService) AddMember(ctx context.Context, actorID, householdID uint, in MemberInput) (*models.Member, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.householdExists(ctx, householdID); err != nil {
		return nil, err
	}

	member := &models.Member{HouseholdID: householdID}
	in.apply(member)
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, models.ActionCreate, models.EntityHouseholdMember, member.ID, memberDetails(member))
	return member, nil
}

// UpdateMember replaces the member's fields. The member must belong to
// householdID.
func (s *MemberService) UpdateMember(ctx context.Context, actorID, householdID, memberID uint, in MemberInput) (*models.Member, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	member, err := s.find(ctx, householdID, memberID)
	if err != nil {
		return nil, err
	}

	in.apply(member)
	if err := s.db.WithContext(ctx).Save(member).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, models.ActionUpdate, models.EntityHouseholdMember, member.ID, memberDetails(member))
	return member, nil
}

func (s *MemberService) DeleteMember(ctx context.Context, actorID, householdID, memberID uint) error {
	member, err := s.find(ctx, householdID, memberID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Member{}, member.ID).Error; err != nil {
		return err
	}

	s.audit.Record(ctx, actorID, models.ActionDelete, models.EntityHouseholdMember, member.ID, memberDetails(member))
	return nil
}

func (s *MemberService) find(ctx context.Context, householdID, memberID uint) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).
		Where("id = ? AND household_id = ?", memberID, householdID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (s *MemberService) householdExists(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Household{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrHouseholdNotFound
	}
	return nil
}

func memberDetails(m *models.Member) models.JSONMap {
	return models.JSONMap{
		"household_id": m.HouseholdID,
		"first_name":   m.FirstName,
		"last_name":    m.LastName,
	}
}
