// internal/services/copyright_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/soundbridge/backend/internal/database"
	"github.com/soundbridge/backend/internal/events"
	"github.com/soundbridge/backend/internal/fingerprint"
	"github.com/soundbridge/backend/internal/models"
)

const settingsKey = "default_settings"

// CopyrightSettings is the decision policy for automated checks.
// Thresholds are compared in descending order of severity.
type CopyrightSettings struct {
	Enabled             bool    `json:"enabled"`
	AutoCheckOnUpload   bool    `json:"auto_check_on_upload"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	AutoFlagThreshold   float64 `json:"auto_flag_threshold"`
	AutoBlockThreshold  float64 `json:"auto_block_threshold"`
	RequireManualReview bool    `json:"require_manual_review"`
	WhitelistEnabled    bool    `json:"whitelist_enabled"`
	BlacklistEnabled    bool    `json:"blacklist_enabled"`
	CommunityReporting  bool    `json:"community_reporting"`
	DMCAIntegration     bool    `json:"dmca_integration"`
}

func DefaultCopyrightSettings() CopyrightSettings {
	return CopyrightSettings{
		Enabled:             true,
		AutoCheckOnUpload:   true,
		ConfidenceThreshold: 0.7,
		AutoFlagThreshold:   0.8,
		AutoBlockThreshold:  0.95,
		RequireManualReview: false,
		WhitelistEnabled:    true,
		BlacklistEnabled:    true,
		CommunityReporting:  true,
		DMCAIntegration:     true,
	}
}

// ResolveSettings merges persisted overrides onto the defaults. Unknown
// keys are ignored; a partial override leaves the other fields at their
// default values.
func ResolveSettings(defaults CopyrightSettings, overrides models.JSONB) CopyrightSettings {
	resolved := defaults
	if overrides == nil {
		return resolved
	}

	if v, ok := overrides["enabled"].(bool); ok {
		resolved.Enabled = v
	}
	if v, ok := overrides["auto_check_on_upload"].(bool); ok {
		resolved.AutoCheckOnUpload = v
	}
	if v, ok := overrides["confidence_threshold"].(float64); ok {
		resolved.ConfidenceThreshold = v
	}
	if v, ok := overrides["auto_flag_threshold"].(float64); ok {
		resolved.AutoFlagThreshold = v
	}
	if v, ok := overrides["auto_block_threshold"].(float64); ok {
		resolved.AutoBlockThreshold = v
	}
	if v, ok := overrides["require_manual_review"].(bool); ok {
		resolved.RequireManualReview = v
	}
	if v, ok := overrides["whitelist_enabled"].(bool); ok {
		resolved.WhitelistEnabled = v
	}
	if v, ok := overrides["blacklist_enabled"].(bool); ok {
		resolved.BlacklistEnabled = v
	}
	if v, ok := overrides["community_reporting"].(bool); ok {
		resolved.CommunityReporting = v
	}
	if v, ok := overrides["dmca_integration"].(bool); ok {
		resolved.DMCAIntegration = v
	}
	return resolved
}

// MatchedTrack describes the catalog entry a fingerprint matched
// against.
type MatchedTrack struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	RightsHolder string `json:"rights_holder,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"`
}

// CheckResult is the outcome of one automated copyright check.
type CheckResult struct {
	TrackID        uuid.UUID               `json:"track_id"`
	IsViolation    bool                    `json:"is_violation"`
	Confidence     float64                 `json:"confidence"`
	Status         models.ProtectionStatus `json:"status"`
	Recommendation models.Recommendation   `json:"recommendation"`
	MatchedTrack   *MatchedTrack           `json:"matched_track,omitempty"`
	ViolationType  models.ViolationType    `json:"violation_type,omitempty"`
	Fingerprint    string                  `json:"fingerprint"`
}

type CopyrightService struct {
	db        *gorm.DB
	generator *fingerprint.Generator
	publisher *events.Publisher
}

func NewCopyrightService(db *gorm.DB, generator *fingerprint.Generator, publisher *events.Publisher) *CopyrightService {
	return &CopyrightService{
		db:        db,
		generator: generator,
		publisher: publisher,
	}
}

// RecommendationForConfidence maps a confidence score onto an action
// under the given thresholds. Boundaries are inclusive on the more
// severe side.
func RecommendationForConfidence(confidence float64, settings CopyrightSettings) models.Recommendation {
	switch {
	case confidence >= settings.AutoBlockThreshold:
		return models.RecommendationBlock
	case confidence >= settings.AutoFlagThreshold:
		return models.RecommendationFlag
	case confidence >= settings.ConfidenceThreshold:
		return models.RecommendationManualReview
	default:
		return models.RecommendationApprove
	}
}

// RecommendationFromStatus maps an existing record's status and stored
// confidence onto the recommendation a repeat check should report. A
// flagged record escalates to a block once its confidence clears the
// block threshold; a pending record resolves to a flag above the flag
// threshold.
func RecommendationFromStatus(status models.ProtectionStatus, confidence float64, settings CopyrightSettings) models.Recommendation {
	switch status {
	case models.ProtectionStatusApproved:
		return models.RecommendationApprove
	case models.ProtectionStatusBlocked:
		return models.RecommendationBlock
	case models.ProtectionStatusFlagged:
		if confidence >= settings.AutoBlockThreshold {
			return models.RecommendationBlock
		}
		return models.RecommendationFlag
	default:
		if confidence >= settings.AutoFlagThreshold {
			return models.RecommendationFlag
		}
		return models.RecommendationManualReview
	}
}

func statusForRecommendation(rec models.Recommendation) models.ProtectionStatus {
	switch rec {
	case models.RecommendationApprove:
		return models.ProtectionStatusApproved
	case models.RecommendationBlock:
		return models.ProtectionStatusBlocked
	case models.RecommendationFlag:
		return models.ProtectionStatusFlagged
	default:
		return models.ProtectionStatusPending
	}
}

// classify applies the decision precedence to the looked-up facts:
// allowlist, then denylist, then an existing record, then threshold
// scoring of the fingerprint confidence. It is pure so the ordering can
// be exercised without a database.
func classify(trackID uuid.UUID, fp fingerprint.Fingerprint, allowed *models.AllowlistEntry, denied *models.DenylistEntry, existing *models.ProtectionRecord, settings CopyrightSettings) (CheckResult, *MatchedTrack) {
	if !settings.Enabled {
		return CheckResult{
			TrackID:        trackID,
			IsViolation:    false,
			Confidence:     0,
			Status:         models.ProtectionStatusApproved,
			Recommendation: models.RecommendationApprove,
			Fingerprint:    fp.Hash,
		}, nil
	}

	// Allowlist: pre-cleared content is approved with full confidence.
	if allowed != nil {
		return CheckResult{
			TrackID:        trackID,
			IsViolation:    false,
			Confidence:     1.0,
			Status:         models.ProtectionStatusApproved,
			Recommendation: models.RecommendationApprove,
			Fingerprint:    fp.Hash,
		}, nil
	}

	// Denylist: a known prohibited fingerprint is a high-confidence
	// violation carrying the matched catalog entry.
	if denied != nil {
		matched := &MatchedTrack{
			Title:        denied.TrackTitle,
			Artist:       denied.ArtistName,
			RightsHolder: denied.RightsHolder,
		}
		if denied.ReleaseDate != nil {
			matched.ReleaseDate = denied.ReleaseDate.Format("2006-01-02")
		}

		return CheckResult{
			TrackID:        trackID,
			IsViolation:    true,
			Confidence:     0.95,
			Status:         models.ProtectionStatusBlocked,
			Recommendation: models.RecommendationBlock,
			ViolationType:  models.ViolationCopyrightInfringement,
			Fingerprint:    fp.Hash,
		}, matched
	}

	// Repeat check: the existing record's status is authoritative,
	// including any reviewer override; the recommendation is re-derived
	// from its stored confidence.
	if existing != nil {
		return CheckResult{
			TrackID:        trackID,
			IsViolation:    existing.Status == models.ProtectionStatusBlocked || existing.Status == models.ProtectionStatusFlagged,
			Confidence:     existing.ConfidenceScore,
			Status:         existing.Status,
			Recommendation: RecommendationFromStatus(existing.Status, existing.ConfidenceScore, settings),
			Fingerprint:    existing.FingerprintHash,
		}, nil
	}

	// No list match and no history: score the algorithm's confidence
	// against the thresholds.
	rec := RecommendationForConfidence(fp.Confidence, settings)
	if settings.RequireManualReview && rec == models.RecommendationApprove {
		rec = models.RecommendationManualReview
	}

	result := CheckResult{
		TrackID:        trackID,
		IsViolation:    rec == models.RecommendationBlock || rec == models.RecommendationFlag,
		Confidence:     fp.Confidence,
		Status:         statusForRecommendation(rec),
		Recommendation: rec,
		Fingerprint:    fp.Hash,
	}
	if result.IsViolation {
		result.ViolationType = models.ViolationCopyrightInfringement
	}
	return result, nil
}

// CheckTrack fingerprints the decoded samples and classifies the track:
// allowlist short-circuits to approval, denylist to a block, a repeat
// check reuses the existing record, and anything else is scored against
// the confidence thresholds.
func (s *CopyrightService) CheckTrack(ctx context.Context, track *models.AudioTrack, samples []float64, sampleRate, channels int) (*CheckResult, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Falling back to default copyright settings")
		settings = DefaultCopyrightSettings()
	}

	fp := s.generator.Generate(samples, sampleRate, channels, track.MimeType)

	var allowed *models.AllowlistEntry
	var denied *models.DenylistEntry
	var existing *models.ProtectionRecord

	if settings.Enabled {
		if settings.WhitelistEnabled {
			if allowed, err = s.lookupAllowlist(ctx, fp.Hash); err != nil {
				return nil, fmt.Errorf("allowlist lookup failed: %w", err)
			}
		}
		if allowed == nil && settings.BlacklistEnabled {
			if denied, err = s.lookupDenylist(ctx, fp.Hash); err != nil {
				return nil, fmt.Errorf("denylist lookup failed: %w", err)
			}
		}
		if allowed == nil && denied == nil {
			var row models.ProtectionRecord
			err = s.db.WithContext(ctx).Where("track_id = ?", track.ID).First(&row).Error
			switch {
			case err == nil:
				existing = &row
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return nil, fmt.Errorf("protection record lookup failed: %w", err)
			}
		}
	}

	result, matched := classify(track.ID, fp, allowed, denied, existing, settings)
	if existing != nil {
		// The record already reflects this track; nothing to upsert.
		return &result, nil
	}
	return s.recordDecision(ctx, track, fp, result, matched)
}

// lookupAllowlist retries transient DB errors; missing rows are not an
// error.
func (s *CopyrightService) lookupAllowlist(ctx context.Context, hash string) (*models.AllowlistEntry, error) {
	var entry *models.AllowlistEntry

	operation := func() error {
		var row models.AllowlistEntry
		err := s.db.WithContext(ctx).Where("fingerprint_hash = ?", hash).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry = nil
			return nil
		}
		if err != nil {
			return err
		}
		entry = &row
		return nil
	}

	if err := backoff.Retry(operation, lookupBackoff(ctx)); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *CopyrightService) lookupDenylist(ctx context.Context, hash string) (*models.DenylistEntry, error) {
	var entry *models.DenylistEntry

	operation := func() error {
		var row models.DenylistEntry
		err := s.db.WithContext(ctx).Where("fingerprint_hash = ?", hash).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry = nil
			return nil
		}
		if err != nil {
			return err
		}
		entry = &row
		return nil
	}

	if err := backoff.Retry(operation, lookupBackoff(ctx)); err != nil {
		return nil, err
	}
	return entry, nil
}

func lookupBackoff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	return backoff.WithContext(bo, ctx)
}

// recordDecision upserts the protection record for the track and emits
// the decision event.
func (s *CopyrightService) recordDecision(ctx context.Context, track *models.AudioTrack, fp fingerprint.Fingerprint, result CheckResult, matched *MatchedTrack) (*CheckResult, error) {
	// Confidence is persisted clamped to [0,1].
	if result.Confidence < 0 {
		result.Confidence = 0
	} else if result.Confidence > 1 {
		result.Confidence = 1
	}

	record := models.ProtectionRecord{
		TrackID:         track.ID,
		CreatorID:       track.CreatorID,
		Status:          result.Status,
		CheckType:       models.CheckTypeAutomated,
		FingerprintHash: fp.Hash,
		ConfidenceScore: result.Confidence,
	}

	if matched != nil {
		record.MatchedTrackInfo = models.JSONB{
			"title":         matched.Title,
			"artist":        matched.Artist,
			"rights_holder": matched.RightsHolder,
			"release_date":  matched.ReleaseDate,
		}
		result.MatchedTrack = matched
	}

	err := s.db.WithContext(ctx).
		Where("track_id = ?", track.ID).
		Assign(map[string]interface{}{
			"status":             record.Status,
			"check_type":         record.CheckType,
			"fingerprint_hash":   record.FingerprintHash,
			"confidence_score":   record.ConfidenceScore,
			"matched_track_info": record.MatchedTrackInfo,
		}).
		FirstOrCreate(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save protection record: %w", err)
	}

	s.publisher.PublishDecision(ctx, events.DecisionEvent{
		TrackID:         track.ID.String(),
		CreatorID:       track.CreatorID.String(),
		Status:          string(result.Status),
		CheckType:       string(models.CheckTypeAutomated),
		ConfidenceScore: result.Confidence,
		Recommendation:  string(result.Recommendation),
		FingerprintHash: fp.Hash,
	})

	return &result, nil
}

// UpdateStatus applies a reviewer override to a track's protection
// record. The override always wins over the automated classification.
func (s *CopyrightService) UpdateStatus(ctx context.Context, trackID uuid.UUID, status models.ProtectionStatus, reviewerID uuid.UUID, notes string) (*models.ProtectionRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid protection status: %s", status)
	}

	var record models.ProtectionRecord
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", trackID).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("protection record not found for track %s", trackID)
			}
			return err
		}

		oldStatus := record.Status
		record.Status = status
		record.CheckType = models.CheckTypeManual
		record.ReviewerID = &reviewerID
		record.ReviewNotes = notes

		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("failed to update protection record: %w", err)
		}

		audit := models.AuditLog{
			UserID:       &reviewerID,
			Action:       "copyright.status_override",
			ResourceType: "protection_record",
			ResourceID:   &record.ID,
			OldValues:    models.JSONB{"status": string(oldStatus)},
			NewValues:    models.JSONB{"status": string(status), "notes": notes},
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}

	settings, serr := s.GetSettings(ctx)
	if serr != nil {
		settings = DefaultCopyrightSettings()
	}
	s.publisher.PublishDecision(ctx, events.DecisionEvent{
		TrackID:         trackID.String(),
		CreatorID:       record.CreatorID.String(),
		Status:          string(status),
		CheckType:       string(models.CheckTypeManual),
		ConfidenceScore: record.ConfidenceScore,
		Recommendation:  string(RecommendationFromStatus(status, record.ConfidenceScore, settings)),
		FingerprintHash: record.FingerprintHash,
	})

	return &record, nil
}

// ListRecords returns protection records filtered by status, newest
// first.
func (s *CopyrightService) ListRecords(ctx context.Context, status models.ProtectionStatus, page, limit int) ([]models.ProtectionRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ProtectionRecord{})
	if status != "" {
		if !status.Valid() {
			return nil, 0, fmt.Errorf("invalid protection status: %s", status)
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count protection records: %w", err)
	}

	var records []models.ProtectionRecord
	err := query.
		Preload("Track").
		Preload("Reviewer").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list protection records: %w", err)
	}

	return records, total, nil
}

// ProtectionStats is the admin dashboard aggregate.
type ProtectionStats struct {
	Total         int64   `json:"total"`
	Pending       int64   `json:"pending"`
	Approved      int64   `json:"approved"`
	Flagged       int64   `json:"flagged"`
	Blocked       int64   `json:"blocked"`
	AvgConfidence float64 `json:"avg_confidence"`
	ReportsOpen   int64   `json:"reports_open"`
	DMCAOpen      int64   `json:"dmca_open"`
}

func (s *CopyrightService) Stats(ctx context.Context) (*ProtectionStats, error) {
	stats := &ProtectionStats{}
	db := s.db.WithContext(ctx)

	type statusCount struct {
		Status models.ProtectionStatus
		Count  int64
	}
	var counts []statusCount
	err := db.Model(&models.ProtectionRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate protection records: %w", err)
	}

	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case models.ProtectionStatusPending:
			stats.Pending = c.Count
		case models.ProtectionStatusApproved:
			stats.Approved = c.Count
		case models.ProtectionStatusFlagged:
			stats.Flagged = c.Count
		case models.ProtectionStatusBlocked:
			stats.Blocked = c.Count
		}
	}

	var avg *float64
	if err := db.Model(&models.ProtectionRecord{}).
		Select("avg(confidence_score)").Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("failed to compute average confidence: %w", err)
	}
	if avg != nil {
		stats.AvgConfidence = *avg
	}

	db.Model(&models.ViolationReport{}).
		Where("status IN ?", []models.CaseStatus{models.CaseStatusPending, models.CaseStatusReviewing}).
		Count(&stats.ReportsOpen)
	db.Model(&models.DMCARequest{}).
		Where("status IN ?", []models.CaseStatus{models.CaseStatusPending, models.CaseStatusReviewing}).
		Count(&stats.DMCAOpen)

	return stats, nil
}

// GetSettings resolves the active policy: compiled defaults merged with
// the persisted overrides row.
func (s *CopyrightService) GetSettings(ctx context.Context) (CopyrightSettings, error) {
	defaults := DefaultCopyrightSettings()

	var setting models.CopyrightSetting
	err := s.db.WithContext(ctx).Where("key = ?", settingsKey).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("failed to load copyright settings: %w", err)
	}

	return ResolveSettings(defaults, setting.Value), nil
}

// AutoCheckEnabled reports whether a finished upload should trigger an
// automated check. Unreachable settings default to checking.
func (s *CopyrightService) AutoCheckEnabled(ctx context.Context) bool {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return true
	}
	return settings.AutoCheckOnUpload
}

// UpdateSettings persists overrides. Threshold keys must be in [0,1]
// and ordered confidence <= flag <= block.
func (s *CopyrightService) UpdateSettings(ctx context.Context, overrides models.JSONB) (CopyrightSettings, error) {
	resolved := ResolveSettings(DefaultCopyrightSettings(), overrides)
	if err := validateThresholds(resolved); err != nil {
		return CopyrightSettings{}, err
	}

	setting := models.CopyrightSetting{Key: settingsKey, Value: overrides}
	err := s.db.WithContext(ctx).
		Where("key = ?", settingsKey).
		Assign(map[string]interface{}{"value": overrides}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return CopyrightSettings{}, fmt.Errorf("failed to save copyright settings: %w", err)
	}

	return resolved, nil
}

func validateThresholds(s CopyrightSettings) error {
	for name, v := range map[string]float64{
		"confidence_threshold": s.ConfidenceThreshold,
		"auto_flag_threshold":  s.AutoFlagThreshold,
		"auto_block_threshold": s.AutoBlockThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if s.ConfidenceThreshold > s.AutoFlagThreshold || s.AutoFlagThreshold > s.AutoBlockThreshold {
		return fmt.Errorf("thresholds must be ordered: confidence <= flag <= block")
	}
	return nil
}

// AddAllowlistEntry registers a pre-cleared fingerprint.
func (s *CopyrightService) AddAllowlistEntry(ctx context.Context, entry *models.AllowlistEntry) error {
	if entry.FingerprintHash == "" {
		return fmt.Errorf("fingerprint_hash is required")
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create allowlist entry: %w", err)
	}
	return nil
}

func (s *CopyrightService) RemoveAllowlistEntry(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.AllowlistEntry{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete allowlist entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddDenylistEntry registers a known prohibited fingerprint. Title and
// artist are required so blocks can name the matched work.
func (s *CopyrightService) AddDenylistEntry(ctx context.Context, entry *models.DenylistEntry) error {
	if entry.FingerprintHash == "" {
		return fmt.Errorf("fingerprint_hash is required")
	}
	if entry.TrackTitle == "" || entry.ArtistName == "" {
		return fmt.Errorf("track_title and artist_name are required")
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create denylist entry: %w", err)
	}
	return nil
}

func (s *CopyrightService) RemoveDenylistEntry(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.DenylistEntry{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete denylist entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
