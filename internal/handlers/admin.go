// internal/handlers/admin.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/services"
	"github.com/soundbridge/backend/internal/utils"
)

type AdminHandler struct {
	db               *gorm.DB
	copyrightService *services.CopyrightService
	storage          *services.StorageService
}

func NewAdminHandler(db *gorm.DB, copyrightService *services.CopyrightService, storage *services.StorageService) *AdminHandler {
	return &AdminHandler{
		db:               db,
		copyrightService: copyrightService,
		storage:          storage,
	}
}

// GET /admin/copyright/records
func (h *AdminHandler) ListProtectionRecords(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.ProtectionStatus(params.Status)

	records, total, err := h.copyrightService.ListRecords(c.Request.Context(), status, params.Page, params.Limit)
	if err != nil {
		if strings.Contains(err.Error(), "invalid protection status") {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(records, total, params)
	utils.PaginatedResponse(c, result)
}

type updateStatusRequest struct {
	Status models.ProtectionStatus `json:"status" binding:"required"`
	Notes  string                  `json:"notes,omitempty"`
}

// PUT /admin/copyright/records/:trackId
func (h *AdminHandler) UpdateProtectionStatus(c *gin.Context) {
	trackID, err := uuid.Parse(c.Param("trackId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid track ID", nil)
		return
	}

	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	reviewerID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	record, err := h.copyrightService.UpdateStatus(c.Request.Context(), trackID, req.Status, reviewerID, req.Notes)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Protection record")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Protection status updated successfully",
		"record":  record,
	})
}

// GET /admin/copyright/records/:trackId/audio
//
// Reviewers need to hear the audio behind a flagged or blocked record;
// removed tracks stay reachable here.
func (h *AdminHandler) GetTrackAudioURL(c *gin.Context) {
	trackID, err := uuid.Parse(c.Param("trackId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid track ID", nil)
		return
	}

	var track models.AudioTrack
	if err := h.db.Unscoped().First(&track, "id = ?", trackID).Error; err != nil {
		utils.NotFoundResponse(c, "Track")
		return
	}

	url, err := h.storage.GeneratePresignedURL(track.FileKey, 15*time.Minute)
	if err != nil {
		// Local storage has no presigned URLs; hand back the stored one.
		url = track.FileURL
	}

	utils.SuccessResponse(c, gin.H{
		"track_id": track.ID,
		"url":      url,
	})
}

// GET /admin/copyright/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.copyrightService.Stats(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /admin/copyright/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.copyrightService.GetSettings(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, settings)
}

// PUT /admin/copyright/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var overrides models.JSONB
	if err := c.ShouldBindJSON(&overrides); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	settings, err := h.copyrightService.UpdateSettings(c.Request.Context(), overrides)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  "Settings updated successfully",
		"settings": settings,
	})
}

type allowlistRequest struct {
	FingerprintHash string `json:"fingerprint_hash" binding:"required"`
	TrackTitle      string `json:"track_title,omitempty"`
	ArtistName      string `json:"artist_name,omitempty"`
	RightsHolder    string `json:"rights_holder,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// POST /admin/copyright/allowlist
func (h *AdminHandler) AddAllowlistEntry(c *gin.Context) {
	var req allowlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	entry := &models.AllowlistEntry{
		FingerprintHash: req.FingerprintHash,
		TrackTitle:      req.TrackTitle,
		ArtistName:      req.ArtistName,
		RightsHolder:    req.RightsHolder,
		Notes:           req.Notes,
	}

	if err := h.copyrightService.AddAllowlistEntry(c.Request.Context(), entry); err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			utils.ConflictResponse(c, "Fingerprint is already allowlisted")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, entry)
}

// DELETE /admin/copyright/allowlist/:id
func (h *AdminHandler) RemoveAllowlistEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid entry ID", nil)
		return
	}

	if err := h.copyrightService.RemoveAllowlistEntry(c.Request.Context(), id); err != nil {
		utils.NotFoundResponse(c, "Allowlist entry")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Allowlist entry removed"})
}

type denylistRequest struct {
	FingerprintHash string `json:"fingerprint_hash" binding:"required"`
	TrackTitle      string `json:"track_title" binding:"required"`
	ArtistName      string `json:"artist_name" binding:"required"`
	RightsHolder    string `json:"rights_holder,omitempty"`
	ReleaseDate     string `json:"release_date,omitempty"`
}

// POST /admin/copyright/denylist
func (h *AdminHandler) AddDenylistEntry(c *gin.Context) {
	var req denylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	entry := &models.DenylistEntry{
		FingerprintHash: req.FingerprintHash,
		TrackTitle:      req.TrackTitle,
		ArtistName:      req.ArtistName,
		RightsHolder:    req.RightsHolder,
	}

	if req.ReleaseDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ReleaseDate)
		if err != nil {
			utils.BadRequestResponse(c, "release_date must be in YYYY-MM-DD format", nil)
			return
		}
		entry.ReleaseDate = &parsed
	}

	if err := h.copyrightService.AddDenylistEntry(c.Request.Context(), entry); err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			utils.ConflictResponse(c, "Fingerprint is already denylisted")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, entry)
}

// DELETE /admin/copyright/denylist/:id
func (h *AdminHandler) RemoveDenylistEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid entry ID", nil)
		return
	}

	if err := h.copyrightService.RemoveDenylistEntry(c.Request.Context(), id); err != nil {
		utils.NotFoundResponse(c, "Denylist entry")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Denylist entry removed"})
}
