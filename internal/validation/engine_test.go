// internal/validation/engine_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbridge/backend/internal/audio"
	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/rules"
)

func newTestEngine() *Engine {
	return NewEngine(rules.DefaultCatalog(), audio.NewExtractor())
}

func validSubmission() Submission {
	return Submission{
		Size:     50 * 1024 * 1024,
		MimeType: "audio/mpeg",
		Metadata: TrackMetadata{Title: "Midnight Drive", Genre: "electronic"},
	}
}

func hasError(result Result, code ErrorCode) bool {
	for _, e := range result.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestEvaluateValidSubmission(t *testing.T) {
	e := newTestEngine()

	result := e.Evaluate(validSubmission(), models.TierFree, nil, DefaultConfig())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, models.TierFree, result.Tier)
}

func TestEvaluateFileSizeExceededForFreeTier(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Size = 150 * 1024 * 1024

	result := e.Evaluate(sub, models.TierFree, nil, DefaultConfig())

	assert.False(t, result.IsValid)
	assert.True(t, hasError(result, CodeFileSizeExceeded))
	assert.Equal(t, int64(rules.FreeMaxFileSize), result.AppliedRules.FileSize.Limit)
	assert.Equal(t, sub.Size, result.AppliedRules.FileSize.Actual)
	assert.Equal(t, models.TierFree, result.AppliedRules.FileSize.Tier)
}

func TestEvaluateSameSizePassesForProTier(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Size = 150 * 1024 * 1024

	result := e.Evaluate(sub, models.TierPro, nil, DefaultConfig())

	assert.True(t, result.IsValid)
	assert.Equal(t, int64(rules.ProMaxFileSize), result.AppliedRules.FileSize.Limit)
}

func TestEvaluateFileTooSmall(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Size = 512 * 1024

	result := e.Evaluate(sub, models.TierEnterprise, nil, DefaultConfig())

	assert.False(t, result.IsValid)
	assert.True(t, hasError(result, CodeFileSizeTooSmall))
}

func TestEvaluateInvalidFormatRegardlessOfTier(t *testing.T) {
	e := newTestEngine()

	for _, tier := range []models.SubscriptionTier{models.TierFree, models.TierPro, models.TierEnterprise} {
		sub := validSubmission()
		sub.MimeType = "video/mp4"

		result := e.Evaluate(sub, tier, nil, DefaultConfig())

		assert.False(t, result.IsValid, string(tier))
		assert.True(t, hasError(result, CodeInvalidFileType), string(tier))
		assert.False(t, result.AppliedRules.Format.Valid)
	}
}

func TestEvaluateMissingMetadata(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Metadata = TrackMetadata{Title: "  ", Genre: ""}

	result := e.Evaluate(sub, models.TierFree, nil, DefaultConfig())

	assert.False(t, result.IsValid)
	assert.True(t, hasError(result, CodeMissingRequiredMetadata))
	assert.ElementsMatch(t, []string{"title", "genre"}, result.AppliedRules.Metadata.Missing)
}

func TestEvaluateMetadataValidationDisabled(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Metadata = TrackMetadata{}

	cfg := DefaultConfig()
	cfg.EnableMetadataValidation = false

	result := e.Evaluate(sub, models.TierFree, nil, cfg)

	assert.True(t, result.IsValid)
	// The applied-rules snapshot still reports the gap.
	assert.NotEmpty(t, result.AppliedRules.Metadata.Missing)
}

func TestEvaluateCollectsAllViolations(t *testing.T) {
	e := newTestEngine()
	sub := Submission{
		Size:     200 * 1024 * 1024,
		MimeType: "application/zip",
		Metadata: TrackMetadata{},
	}

	result := e.Evaluate(sub, models.TierFree, nil, DefaultConfig())

	assert.False(t, result.IsValid)
	assert.True(t, hasError(result, CodeFileSizeExceeded))
	assert.True(t, hasError(result, CodeInvalidFileType))
	assert.True(t, hasError(result, CodeMissingRequiredMetadata))
	assert.GreaterOrEqual(t, len(result.Errors), 4)
}

func TestEvaluateCorruptPayloadDegradesToWarning(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	payload := []byte("not a real audio payload at all")

	result := e.Evaluate(sub, models.TierFree, payload, DefaultConfig())

	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, CodeFileCorrupted, result.Warnings[0].Code)
	assert.Nil(t, result.AppliedRules.Duration)
}

func TestErrorEntriesCarryMessagesAndSuggestions(t *testing.T) {
	err := NewError(CodeFileSizeExceeded, "")

	assert.Equal(t, CodeFileSizeExceeded, err.Code)
	assert.NotEmpty(t, err.Message)
	assert.NotEmpty(t, err.Suggestion)
	assert.Equal(t, SeverityError, err.Severity)
}

func TestBuildUpgradePromptFreeTierSizeError(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Size = 150 * 1024 * 1024

	result := e.Evaluate(sub, models.TierFree, nil, DefaultConfig())
	prompt := BuildUpgradePrompt(result)

	assert.True(t, prompt.Show)
	assert.NotEmpty(t, prompt.Benefits)
	assert.NotEmpty(t, prompt.CTA)
}

func TestBuildUpgradePromptNotShownForPaidTier(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.Size = 600 * 1024 * 1024

	result := e.Evaluate(sub, models.TierPro, nil, DefaultConfig())
	prompt := BuildUpgradePrompt(result)

	assert.False(t, result.IsValid)
	assert.False(t, prompt.Show)
}

func TestBuildUpgradePromptNotShownForUnrelatedErrors(t *testing.T) {
	e := newTestEngine()
	sub := validSubmission()
	sub.MimeType = "image/png"

	result := e.Evaluate(sub, models.TierFree, nil, DefaultConfig())
	prompt := BuildUpgradePrompt(result)

	assert.False(t, prompt.Show)
}
