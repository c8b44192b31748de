// internal/services/upload_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/soundbridge/backend/internal/audio"
	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/validation"
)

// Upload pipeline stages in execution order. The protection check runs
// after the track record is written, so cancellation is only honored
// through the moderation stage.
const (
	StageValidation     = "validation"
	StageModeration     = "moderation"
	StageUpload         = "upload"
	StageCopyrightCheck = "copyright_check"
	StageProcessing     = "processing"
	StageComplete       = "complete"
)

type stageInfo struct {
	percent   int
	message   string
	canCancel bool
}

var stages = map[string]stageInfo{
	StageValidation:     {10, "Validating your upload", true},
	StageModeration:     {30, "Running content moderation", true},
	StageUpload:         {50, "Storing your audio", false},
	StageCopyrightCheck: {70, "Checking content protection", false},
	StageProcessing:     {90, "Processing your track", false},
	StageComplete:       {100, "Upload complete", false},
}

// StageDescriptor describes one pipeline stage for clients that render
// the upload flow ahead of time.
type StageDescriptor struct {
	Stage     string `json:"stage"`
	Percent   int    `json:"percent"`
	Message   string `json:"message"`
	CanCancel bool   `json:"can_cancel"`
}

// PipelineStages returns the ordered stage table.
func PipelineStages() []StageDescriptor {
	order := []string{StageValidation, StageModeration, StageUpload, StageCopyrightCheck, StageProcessing, StageComplete}
	out := make([]StageDescriptor, 0, len(order))
	for _, stage := range order {
		info := stages[stage]
		out = append(out, StageDescriptor{
			Stage:     stage,
			Percent:   info.percent,
			Message:   info.message,
			CanCancel: info.canCancel,
		})
	}
	return out
}

// Progress is the client-visible state of one upload.
type Progress struct {
	UploadID  uuid.UUID `json:"upload_id"`
	TrackID   uuid.UUID `json:"track_id,omitempty"`
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	CanCancel bool      `json:"can_cancel"`
	Cancelled bool      `json:"cancelled,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadResult is returned from a completed (or rejected) upload
// request.
type UploadResult struct {
	UploadID      uuid.UUID                 `json:"upload_id"`
	Track         *models.AudioTrack        `json:"track,omitempty"`
	Validation    validation.Result         `json:"validation"`
	UpgradePrompt *validation.UpgradePrompt `json:"upgrade_prompt,omitempty"`
}

type UploadService struct {
	db        *gorm.DB
	engine    *validation.Engine
	extractor *audio.Extractor
	storage   *StorageService
	copyright *CopyrightService
	limiter   *UploadLimiter

	mu       sync.Mutex
	progress map[uuid.UUID]*Progress
}

func NewUploadService(db *gorm.DB, engine *validation.Engine, extractor *audio.Extractor, storage *StorageService, copyright *CopyrightService, limiter *UploadLimiter) *UploadService {
	s := &UploadService{
		db:        db,
		engine:    engine,
		extractor: extractor,
		storage:   storage,
		copyright: copyright,
		limiter:   limiter,
		progress:  make(map[uuid.UUID]*Progress),
	}
	go s.pruneLoop()
	return s
}

func (s *UploadService) pruneLoop() {
	for {
		time.Sleep(15 * time.Minute)
		s.PruneProgress(time.Hour)
	}
}

var ErrUploadCancelled = errors.New("upload cancelled")

// Validate runs the rule engine against a descriptor without accepting
// a payload. Used by the preflight endpoint.
func (s *UploadService) Validate(sub validation.Submission, tier models.SubscriptionTier, payload []byte, cfg validation.Config) UploadResult {
	result := s.engine.Evaluate(sub, tier, payload, cfg)

	out := UploadResult{Validation: result}
	if prompt := validation.BuildUpgradePrompt(result); prompt.Show {
		out.UpgradePrompt = &prompt
	}
	return out
}

// Upload runs the full admission pipeline: limits, validation, storage,
// track creation, then an asynchronous copyright check. A validation
// failure rejects the upload before anything is written.
func (s *UploadService) Upload(ctx context.Context, user *models.User, filename string, payload []byte, sub validation.Submission, cfg validation.Config) (*UploadResult, error) {
	uploadID := uuid.New()

	if code, ok := s.limiter.Acquire(user.ID, user.Tier); !ok {
		result := validation.Result{
			IsValid: false,
			Errors:  []validation.Error{validation.NewError(validation.ErrorCode(code), "")},
			Tier:    user.Tier,
		}
		return &UploadResult{UploadID: uploadID, Validation: result}, nil
	}
	defer s.limiter.Release(user.ID)

	s.setProgress(uploadID, StageValidation, "")

	result := s.engine.Evaluate(sub, user.Tier, payload, cfg)
	if !result.IsValid {
		s.failProgress(uploadID, "validation failed")
		out := &UploadResult{UploadID: uploadID, Validation: result}
		if prompt := validation.BuildUpgradePrompt(result); prompt.Show {
			out.UpgradePrompt = &prompt
		}
		return out, nil
	}

	if s.isCancelled(uploadID) {
		return nil, ErrUploadCancelled
	}

	s.setProgress(uploadID, StageModeration, "")

	// Last cancellation window: once the file hits storage the upload
	// can no longer be cancelled.
	if s.isCancelled(uploadID) {
		return nil, ErrUploadCancelled
	}

	s.setProgress(uploadID, StageUpload, "")

	stored, err := s.storage.StoreAudio(user.ID, filename, sub.MimeType, payload)
	if err != nil {
		s.failProgress(uploadID, "storage failed")
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	track := &models.AudioTrack{
		CreatorID:   user.ID,
		Title:       sub.Metadata.Title,
		Genre:       sub.Metadata.Genre,
		Description: sub.Metadata.Description,
		Tags:        pq.StringArray(sub.Metadata.Tags),
		Privacy:     sub.Metadata.Privacy,
		PublishAt:   sub.Metadata.PublishAt,
		FileURL:     stored.URL,
		FileKey:     stored.Key,
		FileSize:    stored.Size,
		MimeType:    stored.MimeType,
		Status:      models.TrackStatusProcessing,
	}
	if result.Metadata != nil {
		track.Duration = result.Metadata.Duration
		track.SampleRate = result.Metadata.SampleRate
		track.Channels = result.Metadata.Channels
	}

	if err := s.db.WithContext(ctx).Create(track).Error; err != nil {
		s.failProgress(uploadID, "database error")
		if delErr := s.storage.DeleteFile(stored.Key); delErr != nil {
			logrus.WithError(delErr).WithField("key", stored.Key).
				Warn("Failed to clean up stored file after DB error")
		}
		return nil, fmt.Errorf("failed to create track record: %w", err)
	}

	s.setProgressTrack(uploadID, track.ID)
	s.setProgress(uploadID, StageCopyrightCheck, "")

	// Copyright check runs detached from the request: the upload result
	// is returned while classification completes in the background. A
	// panic or error there never fails the upload.
	if cfg.EnableCopyrightCheck {
		go s.runCopyrightCheck(uploadID, track, payload)
	} else {
		s.setProgress(uploadID, StageComplete, "")
		s.activateTrack(context.Background(), track)
	}

	return &UploadResult{
		UploadID:   uploadID,
		Track:      track,
		Validation: result,
	}, nil
}

func (s *UploadService) runCopyrightCheck(uploadID uuid.UUID, track *models.AudioTrack, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"track_id": track.ID,
				"panic":    r,
			}).Error("Copyright check panicked")
			s.setProgress(uploadID, StageComplete, "")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Policy can switch off automated checks on upload entirely; the
	// track still goes live and can be checked manually later.
	if !s.copyright.AutoCheckEnabled(ctx) {
		s.activateTrack(ctx, track)
		s.setProgress(uploadID, StageComplete, "")
		return
	}

	samples, sampleRate, err := s.extractor.DecodeSamples(payload)
	if err != nil {
		// Undecodable payloads still get a record via an empty-sample
		// fingerprint rather than skipping protection entirely.
		logrus.WithError(err).WithField("track_id", track.ID).
			Debug("Sample decode failed, fingerprinting degraded")
		samples = nil
		sampleRate = track.SampleRate
	}

	checkResult, err := s.copyright.CheckTrack(ctx, track, samples, sampleRate, track.Channels)
	if err != nil {
		logrus.WithError(err).WithField("track_id", track.ID).
			Error("Copyright check failed")
		s.setProgress(uploadID, StageComplete, "")
		return
	}

	s.setProgress(uploadID, StageProcessing, "")

	switch checkResult.Recommendation {
	case models.RecommendationBlock:
		s.removeTrack(ctx, track, "copyright violation")
	default:
		s.activateTrack(ctx, track)
	}

	s.setProgress(uploadID, StageComplete, "")
}

func (s *UploadService) activateTrack(ctx context.Context, track *models.AudioTrack) {
	err := s.db.WithContext(ctx).Model(track).
		Update("status", models.TrackStatusActive).Error
	if err != nil {
		logrus.WithError(err).WithField("track_id", track.ID).
			Error("Failed to activate track")
	}
}

func (s *UploadService) removeTrack(ctx context.Context, track *models.AudioTrack, reason string) {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(track).Updates(map[string]interface{}{
		"status":         models.TrackStatusRemoved,
		"removed_reason": reason,
		"removed_at":     &now,
	}).Error
	if err != nil {
		logrus.WithError(err).WithField("track_id", track.ID).
			Error("Failed to remove blocked track")
	}
}

// GetProgress returns the current progress for an upload ID.
func (s *UploadService) GetProgress(uploadID uuid.UUID) (*Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[uploadID]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// Cancel requests cancellation of an in-flight upload. It only takes
// effect while the current stage is cancellable; once the track record
// exists the upload runs to completion.
func (s *UploadService) Cancel(uploadID uuid.UUID) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[uploadID]
	if !ok {
		return nil, fmt.Errorf("upload not found")
	}
	if !p.CanCancel {
		return nil, fmt.Errorf("upload can no longer be cancelled at stage %s", p.Stage)
	}

	p.Cancelled = true
	p.UpdatedAt = time.Now()
	copied := *p
	return &copied, nil
}

func (s *UploadService) setProgress(uploadID uuid.UUID, stage, errMsg string) {
	info := stages[stage]

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[uploadID]
	if !ok {
		p = &Progress{UploadID: uploadID}
		s.progress[uploadID] = p
	}
	p.Stage = stage
	p.Percent = info.percent
	p.Message = info.message
	p.CanCancel = info.canCancel
	p.Error = errMsg
	p.UpdatedAt = time.Now()
}

func (s *UploadService) setProgressTrack(uploadID, trackID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[uploadID]; ok {
		p.TrackID = trackID
	}
}

func (s *UploadService) failProgress(uploadID uuid.UUID, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[uploadID]
	if !ok {
		p = &Progress{UploadID: uploadID, Stage: StageValidation}
		s.progress[uploadID] = p
	}
	p.Error = errMsg
	p.CanCancel = false
	p.UpdatedAt = time.Now()
}

func (s *UploadService) isCancelled(uploadID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[uploadID]; ok {
		return p.Cancelled
	}
	return false
}

// PruneProgress drops finished progress entries older than the cutoff.
func (s *UploadService) PruneProgress(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.progress {
		if (p.Stage == StageComplete || p.Error != "" || p.Cancelled) && p.UpdatedAt.Before(cutoff) {
			delete(s.progress, id)
		}
	}
}
