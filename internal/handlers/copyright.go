// internal/handlers/copyright.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/services"
	"github.com/soundbridge/backend/internal/utils"
)

type CopyrightHandler struct {
	caseService *services.CaseService
}

func NewCopyrightHandler(caseService *services.CaseService) *CopyrightHandler {
	return &CopyrightHandler{caseService: caseService}
}

// POST /copyright/reports
func (h *CopyrightHandler) SubmitReport(c *gin.Context) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	reporterID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var input services.ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	report, err := h.caseService.SubmitReport(c.Request.Context(), reporterID, input)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Track")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": "Report submitted successfully",
		"report":  report,
	})
}

// GET /copyright/reports
func (h *CopyrightHandler) ListReports(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var trackID *uuid.UUID
	if trackIDStr := c.Query("track_id"); trackIDStr != "" {
		parsed, err := uuid.Parse(trackIDStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid track ID", nil)
			return
		}
		trackID = &parsed
	}

	status := models.CaseStatus(params.Status)

	reports, total, err := h.caseService.ListReports(c.Request.Context(), status, trackID, params.Page, params.Limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(reports, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /copyright/dmca
func (h *CopyrightHandler) SubmitDMCA(c *gin.Context) {
	var input services.DMCAInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	request, err := h.caseService.SubmitDMCA(c.Request.Context(), input)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Track")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": "DMCA takedown request submitted successfully",
		"request": request,
	})
}

// GET /copyright/dmca
func (h *CopyrightHandler) ListDMCA(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.CaseStatus(params.Status)

	var trackID *uuid.UUID
	if trackIDStr := c.Query("track_id"); trackIDStr != "" {
		parsed, err := uuid.Parse(trackIDStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid track ID", nil)
			return
		}
		trackID = &parsed
	}

	requests, total, err := h.caseService.ListDMCA(c.Request.Context(), status, trackID, params.Page, params.Limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(requests, total, params)
	utils.PaginatedResponse(c, result)
}
