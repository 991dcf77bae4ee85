package handlers

import (
	"famli/internal/logging"
	"famli/internal/services"

	"github.com/gin-gonic/gin"
)

type PeopleHandler struct {
	peopleService *services.PeopleService
	log           logging.Logger
}

func NewPeopleHandler(peopleService *services.PeopleService, log logging.Logger) *PeopleHandler {
	return &PeopleHandler{peopleService: peopleService, log: log}
}

// GetPeople returns members across all households
func (h *PeopleHandler) GetPeople(c *gin.Context) {
	page := services.NewPageRequest(queryInt(c, "page"), queryInt(c, "limit"), services.DefaultPeopleLimit)

	result, err := h.peopleService.ListPeople(c.Request.Context(), page, c.Query("search"), c.Query("sortBy"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(200, result)
}
