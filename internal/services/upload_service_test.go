// internal/services/upload_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProgressOnlyUploadService() *UploadService {
	// Bypasses the constructor so the prune goroutine stays off.
	return &UploadService{progress: make(map[uuid.UUID]*Progress)}
}

func TestPipelineStagesOrdered(t *testing.T) {
	stages := PipelineStages()
	require.NotEmpty(t, stages)

	assert.Equal(t, StageValidation, stages[0].Stage)
	assert.Equal(t, StageComplete, stages[len(stages)-1].Stage)
	assert.Equal(t, 100, stages[len(stages)-1].Percent)

	// Percentages rise monotonically and the cancellation window never
	// reopens once it closes.
	prevPercent := 0
	cancellable := true
	for _, st := range stages {
		assert.Greater(t, st.Percent, prevPercent, "stage %s", st.Stage)
		prevPercent = st.Percent
		if !cancellable {
			assert.False(t, st.CanCancel, "stage %s reopened cancellation", st.Stage)
		}
		cancellable = st.CanCancel
	}
}

func TestCancelDuringModeration(t *testing.T) {
	s := newProgressOnlyUploadService()
	uploadID := uuid.New()

	s.setProgress(uploadID, StageValidation, "")
	s.setProgress(uploadID, StageModeration, "")

	progress, err := s.Cancel(uploadID)
	require.NoError(t, err)
	assert.True(t, progress.Cancelled)
	assert.True(t, s.isCancelled(uploadID))
}

func TestCancelRejectedOnceStored(t *testing.T) {
	s := newProgressOnlyUploadService()
	uploadID := uuid.New()

	s.setProgress(uploadID, StageValidation, "")
	s.setProgress(uploadID, StageModeration, "")
	s.setProgress(uploadID, StageUpload, "")

	_, err := s.Cancel(uploadID)
	assert.Error(t, err)
	assert.False(t, s.isCancelled(uploadID))
}

func TestCancelUnknownUpload(t *testing.T) {
	s := newProgressOnlyUploadService()

	_, err := s.Cancel(uuid.New())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPruneProgressDropsFinishedEntries(t *testing.T) {
	s := newProgressOnlyUploadService()

	finished := uuid.New()
	s.setProgress(finished, StageComplete, "")
	inFlight := uuid.New()
	s.setProgress(inFlight, StageModeration, "")

	// Age the finished entry past the cutoff.
	s.mu.Lock()
	s.progress[finished].UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.progress[inFlight].UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	s.PruneProgress(time.Hour)

	_, ok := s.GetProgress(finished)
	assert.False(t, ok)
	// Unfinished uploads survive pruning regardless of age.
	_, ok = s.GetProgress(inFlight)
	assert.True(t, ok)
}
