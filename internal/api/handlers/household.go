package handlers

import (
	"famli/internal/logging"
	"famli/internal/services"

	"github.com/gin-gonic/gin"
)

type HouseholdHandler struct {
	householdService *services.HouseholdService
	memberService    *services.MemberService
	log              logging.Logger
}

func NewHouseholdHandler(householdService *services.HouseholdService, memberService *services.MemberService, log logging.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		householdService: householdService,
		memberService:    memberService,
		log:              log,
	}
}

type HouseholdRequest struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Notes        string `json:"notes"`
	ColorTheme   string `json:"color_theme"`
}

func (r HouseholdRequest) input() services.HouseholdInput {
	return services.HouseholdInput{
		Name:         r.Name,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
		Notes:        r.Notes,
		ColorTheme:   r.ColorTheme,
	}
}

type MemberRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Birthday  string `json:"birthday"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

func (r MemberRequest) input() services.MemberInput {
	return services.MemberInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      r.Role,
		Birthday:  r.Birthday,
		Email:     r.Email,
		Phone:     r.Phone,
		Notes:     r.Notes,
	}
}

// GetHouseholds returns a page of households with member counts
func (h *HouseholdHandler) GetHouseholds(c *gin.Context) {
	page := services.NewPageRequest(queryInt(c, "page"), queryInt(c, "limit"), services.DefaultHouseholdLimit)

	result, err := h.householdService.ListHouseholds(c.Request.Context(), page, c.Query("search"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, result)
}

// GetHousehold returns a household with its members
func (h *HouseholdHandler) GetHousehold(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	household, err := h.householdService.GetHousehold(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, household)
}

func (h *HouseholdHandler) CreateHousehold(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}

	var req HouseholdRequest
	_ = c.ShouldBindJSON(&req)

	household, err := h.householdService.CreateHousehold(c.Request.Context(), claims.UserID, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(201, household)
}

func (h *HouseholdHandler) UpdateHousehold(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req HouseholdRequest
	_ = c.ShouldBindJSON(&req)

	household, err := h.householdService.UpdateHousehold(c.Request.Context(), claims.UserID, id, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, household)
}

func (h *HouseholdHandler) DeleteHousehold(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.householdService.DeleteHousehold(c.Request.Context(), claims.UserID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, gin.H{"message": "Household deleted successfully"})
}

// GetMembers lists the members of one household
func (h *HouseholdHandler) GetMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, members)
}

func (h *HouseholdHandler) AddMember(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	householdID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req MemberRequest
	_ = c.ShouldBindJSON(&req)

	member, err := h.memberService.AddMember(c.Request.Context(), claims.UserID, householdID, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(201, member)
}

func (h *HouseholdHandler) UpdateMember(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	householdID, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, ok := parseID(c, "memberId")
	if !ok {
		return
	}

	var req MemberRequest
	_ = c.ShouldBindJSON(&req)

	member, err := h.memberService.UpdateMember(c.Request.Context(), claims.UserID, householdID, memberID, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, member)
}

func (h *HouseholdHandler) DeleteMember(c *gin.Context) {
	claims, ok := actor(c)
	if !ok {
		return
	}
	householdID, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, ok := parseID(c, "memberId")
	if !ok {
		return
	}

	if err := h.memberService.DeleteMember(c.Request.Context(), claims.UserID, householdID, memberID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, gin.H{"message": "Member deleted successfully"})
}
