// internal/services/case_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CaseService handles the two manual escalation paths: community
// violation reports and formal DMCA takedown requests. Both are
// additive case records; neither mutates a track's protection record
// automatically.
type CaseService struct {
	db *gorm.DB
}

func NewCaseService(db *gorm.DB) *CaseService {
	return &CaseService{db: db}
}

type ReportInput struct {
	TrackID       uuid.UUID `json:"track_id" binding:"required" validate:"required"`
	ViolationType string    `json:"violation_type" binding:"required" validate:"required"`
	Description   string    `json:"description" binding:"required" validate:"required"`
	EvidenceURLs  []string  `json:"evidence_urls,omitempty" validate:"omitempty,dive,url"`
}

// SubmitReport validates and persists a community violation report.
// Validation runs entirely before any write. The struct check repeats
// the binding rules so callers that skip HTTP binding get them too.
func (s *CaseService) SubmitReport(ctx context.Context, reporterID uuid.UUID, input ReportInput) (*models.ViolationReport, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("invalid report: %v", err)
	}

	violationType := models.ViolationType(input.ViolationType)
	if !violationType.Valid() {
		return nil, fmt.Errorf("invalid violation type: %s", input.ViolationType)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("description is required")
	}

	var track models.AudioTrack
	if err := s.db.WithContext(ctx).First(&track, "id = ?", input.TrackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("track not found")
		}
		return nil, fmt.Errorf("failed to load track: %w", err)
	}

	report := &models.ViolationReport{
		TrackID:       input.TrackID,
		ReporterID:    reporterID,
		ViolationType: violationType,
		Description:   input.Description,
		EvidenceURLs:  pq.StringArray(input.EvidenceURLs),
		Status:        models.CaseStatusPending,
	}

	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create violation report: %w", err)
	}

	return report, nil
}

// ListReports returns reports newest first, optionally filtered by
// status and track.
func (s *CaseService) ListReports(ctx context.Context, status models.CaseStatus, trackID *uuid.UUID, page, limit int) ([]models.ViolationReport, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ViolationReport{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if trackID != nil {
		query = query.Where("track_id = ?", *trackID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reports []models.ViolationReport
	err := query.
		Preload("Reporter").
		Preload("Track").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, total, nil
}

type DMCAInput struct {
	TrackID                 uuid.UUID `json:"track_id" binding:"required"`
	RequesterName           string    `json:"requester_name" binding:"required"`
	RequesterEmail          string    `json:"requester_email" binding:"required"`
	RequesterPhone          string    `json:"requester_phone,omitempty"`
	RightsHolder            string    `json:"rights_holder" binding:"required"`
	InfringementDescription string    `json:"infringement_description" binding:"required"`
	OriginalWorkDescription string    `json:"original_work_description" binding:"required"`
	GoodFaithStatement      bool      `json:"good_faith_statement"`
	AccuracyStatement       bool      `json:"accuracy_statement"`
	AuthorityStatement      bool      `json:"authority_statement"`
	ContactAddress          string    `json:"contact_address,omitempty"`
}

// ValidateDMCA checks the formal takedown requirements. It is pure: no
// database access, so an invalid notice never reaches storage.
func ValidateDMCA(input DMCAInput) error {
	required := map[string]string{
		"requester_name":            input.RequesterName,
		"requester_email":           input.RequesterEmail,
		"rights_holder":             input.RightsHolder,
		"infringement_description":  input.InfringementDescription,
		"original_work_description": input.OriginalWorkDescription,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if !emailPattern.MatchString(input.RequesterEmail) {
		return fmt.Errorf("requester_email is not a valid email address")
	}

	// All three sworn statements must be affirmed for a notice to be
	// legally actionable.
	if !input.GoodFaithStatement || !input.AccuracyStatement || !input.AuthorityStatement {
		return fmt.Errorf("all sworn statements must be affirmed")
	}

	return nil
}

// SubmitDMCA validates and persists a formal takedown request.
func (s *CaseService) SubmitDMCA(ctx context.Context, input DMCAInput) (*models.DMCARequest, error) {
	if err := ValidateDMCA(input); err != nil {
		return nil, err
	}

	var track models.AudioTrack
	if err := s.db.WithContext(ctx).First(&track, "id = ?", input.TrackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("track not found")
		}
		return nil, fmt.Errorf("failed to load track: %w", err)
	}

	request := &models.DMCARequest{
		TrackID:                 input.TrackID,
		RequesterName:           input.RequesterName,
		RequesterEmail:          input.RequesterEmail,
		RequesterPhone:          input.RequesterPhone,
		RightsHolder:            input.RightsHolder,
		InfringementDescription: input.InfringementDescription,
		OriginalWorkDescription: input.OriginalWorkDescription,
		GoodFaithStatement:      input.GoodFaithStatement,
		AccuracyStatement:       input.AccuracyStatement,
		AuthorityStatement:      input.AuthorityStatement,
		ContactAddress:          input.ContactAddress,
		Status:                  models.CaseStatusPending,
	}

	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create DMCA request: %w", err)
	}

	return request, nil
}

// ListDMCA returns takedown requests newest first, optionally filtered
// by status and track.
func (s *CaseService) ListDMCA(ctx context.Context, status models.CaseStatus, trackID *uuid.UUID, page, limit int) ([]models.DMCARequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.DMCARequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if trackID != nil {
		query = query.Where("track_id = ?", *trackID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count DMCA requests: %w", err)
	}

	var requests []models.DMCARequest
	err := query.
		Preload("Track").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list DMCA requests: %w", err)
	}

	return requests, total, nil
}
