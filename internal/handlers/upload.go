// internal/handlers/upload.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/rules"
	"github.com/soundbridge/backend/internal/services"
	"github.com/soundbridge/backend/internal/utils"
	"github.com/soundbridge/backend/internal/validation"
)

type UploadHandler struct {
	db            *gorm.DB
	catalog       *rules.Catalog
	uploadService *services.UploadService
	maxMemory     int64
}

func NewUploadHandler(db *gorm.DB, catalog *rules.Catalog, uploadService *services.UploadService, maxMemoryMB int64) *UploadHandler {
	return &UploadHandler{
		db:            db,
		catalog:       catalog,
		uploadService: uploadService,
		maxMemory:     maxMemoryMB << 20,
	}
}

type validateRequest struct {
	Size     int64                    `json:"size" binding:"required"`
	MimeType string                   `json:"mime_type" binding:"required"`
	Metadata validation.TrackMetadata `json:"metadata"`
	Config   *validation.Config       `json:"config,omitempty"`
}

// POST /uploads/validate
func (h *UploadHandler) ValidateUpload(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingErrorResponse(c, err)
		return
	}

	tier := utils.GetTierFromContext(c)

	cfg := validation.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	sub := validation.Submission{
		Size:     req.Size,
		MimeType: req.MimeType,
		Metadata: req.Metadata,
	}

	result := h.uploadService.Validate(sub, tier, nil, cfg)
	utils.SuccessResponse(c, gin.H{
		"validation":     result.Validation,
		"upgrade_prompt": result.UpgradePrompt,
		"stages":         services.PipelineStages(),
	})
}

// GET /uploads/rules
func (h *UploadHandler) GetRules(c *gin.Context) {
	tier := utils.GetTierFromContext(c)

	utils.SuccessResponse(c, gin.H{
		"version":   h.catalog.Version,
		"universal": h.catalog.Universal,
		"tier":      tier,
		"limits":    h.catalog.ForTier(tier),
	})
}

// POST /uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.UnauthorizedResponse(c, "User not found")
		return
	}

	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		utils.BadRequestResponse(c, "Invalid multipart form", err.Error())
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Audio file is required", nil)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to read uploaded file")
		return
	}

	metadata := parseMetadataForm(c)

	cfg := validation.DefaultConfig()
	if rawCfg := c.PostForm("config"); rawCfg != "" {
		if err := json.Unmarshal([]byte(rawCfg), &cfg); err != nil {
			utils.BadRequestResponse(c, "Invalid config", err.Error())
			return
		}
	}

	// Clients can ship a SHA-256 checksum with the payload; a mismatch
	// means the bytes were corrupted in transit.
	if checksum := c.PostForm("checksum"); checksum != "" && cfg.EnableFileIntegrityCheck {
		if !utils.ValidateFileHash(payload, checksum) {
			utils.ErrorResponse(c, http.StatusBadRequest, "FILE_INTEGRITY_FAILED",
				"File checksum does not match the uploaded payload", nil)
			return
		}
	}

	mimeType := header.Header.Get("Content-Type")
	if declared := c.PostForm("mime_type"); declared != "" {
		mimeType = declared
	}

	sub := validation.Submission{
		Size:     int64(len(payload)),
		MimeType: mimeType,
		Metadata: metadata,
	}

	result, err := h.uploadService.Upload(c.Request.Context(), &user, header.Filename, payload, sub, cfg)
	if err != nil {
		if errors.Is(err, services.ErrUploadCancelled) {
			utils.ConflictResponse(c, "Upload was cancelled")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	if !result.Validation.IsValid {
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "UPLOAD_REJECTED", "Upload failed validation", result)
		return
	}

	utils.CreatedResponse(c, result)
}

// GET /uploads/:id/progress
func (h *UploadHandler) GetProgress(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid upload ID", nil)
		return
	}

	progress, ok := h.uploadService.GetProgress(uploadID)
	if !ok {
		utils.NotFoundResponse(c, "Upload")
		return
	}

	utils.SuccessResponse(c, progress)
}

// DELETE /uploads/:id/progress
func (h *UploadHandler) CancelUpload(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid upload ID", nil)
		return
	}

	progress, err := h.uploadService.Cancel(uploadID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Upload")
			return
		}
		utils.ConflictResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, progress)
}

func parseMetadataForm(c *gin.Context) validation.TrackMetadata {
	metadata := validation.TrackMetadata{
		Title:       c.PostForm("title"),
		Genre:       c.PostForm("genre"),
		Description: c.PostForm("description"),
		Privacy:     c.PostForm("privacy"),
	}

	if tags := c.PostForm("tags"); tags != "" {
		parts := strings.Split(tags, ",")
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				metadata.Tags = append(metadata.Tags, trimmed)
			}
		}
	}

	// A full metadata JSON blob overrides the individual form fields.
	if raw := c.PostForm("metadata"); raw != "" {
		var parsed validation.TrackMetadata
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			metadata = parsed
		}
	}

	return metadata
}
