// internal/services/copyright_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbridge/backend/internal/fingerprint"
	"github.com/soundbridge/backend/internal/models"
)

func TestDefaultCopyrightSettings(t *testing.T) {
	s := DefaultCopyrightSettings()

	assert.True(t, s.Enabled)
	assert.True(t, s.AutoCheckOnUpload)
	assert.Equal(t, 0.7, s.ConfidenceThreshold)
	assert.Equal(t, 0.8, s.AutoFlagThreshold)
	assert.Equal(t, 0.95, s.AutoBlockThreshold)
	assert.False(t, s.RequireManualReview)
	assert.True(t, s.WhitelistEnabled)
	assert.True(t, s.BlacklistEnabled)
}

func TestResolveSettingsPartialOverride(t *testing.T) {
	overrides := models.JSONB{
		"auto_block_threshold":  0.99,
		"require_manual_review": true,
		"auto_check_on_upload":  false,
	}

	resolved := ResolveSettings(DefaultCopyrightSettings(), overrides)

	assert.Equal(t, 0.99, resolved.AutoBlockThreshold)
	assert.True(t, resolved.RequireManualReview)
	assert.False(t, resolved.AutoCheckOnUpload)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.7, resolved.ConfidenceThreshold)
	assert.Equal(t, 0.8, resolved.AutoFlagThreshold)
	assert.True(t, resolved.Enabled)
}

func TestResolveSettingsIgnoresUnknownAndMistypedKeys(t *testing.T) {
	overrides := models.JSONB{
		"confidence_threshold": "not a number",
		"nonexistent_key":      true,
	}

	resolved := ResolveSettings(DefaultCopyrightSettings(), overrides)

	assert.Equal(t, DefaultCopyrightSettings(), resolved)
}

func TestResolveSettingsNilOverrides(t *testing.T) {
	resolved := ResolveSettings(DefaultCopyrightSettings(), nil)
	assert.Equal(t, DefaultCopyrightSettings(), resolved)
}

func TestRecommendationForConfidence(t *testing.T) {
	settings := DefaultCopyrightSettings()

	cases := []struct {
		confidence float64
		expected   models.Recommendation
	}{
		{0.0, models.RecommendationApprove},
		{0.5, models.RecommendationApprove},
		{0.69, models.RecommendationApprove},
		{0.7, models.RecommendationManualReview},
		{0.79, models.RecommendationManualReview},
		{0.8, models.RecommendationFlag},
		{0.94, models.RecommendationFlag},
		{0.95, models.RecommendationBlock},
		{1.0, models.RecommendationBlock},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, RecommendationForConfidence(tc.confidence, settings), "confidence %v", tc.confidence)
	}
}

func TestRecommendationMonotonicInConfidence(t *testing.T) {
	settings := DefaultCopyrightSettings()
	severity := map[models.Recommendation]int{
		models.RecommendationApprove:      0,
		models.RecommendationManualReview: 1,
		models.RecommendationFlag:         2,
		models.RecommendationBlock:        3,
	}

	prev := -1
	for c := 0.0; c <= 1.0; c += 0.01 {
		rec := RecommendationForConfidence(c, settings)
		assert.GreaterOrEqual(t, severity[rec], prev, "severity must not decrease at confidence %v", c)
		prev = severity[rec]
	}
}

func TestRecommendationFromStatus(t *testing.T) {
	settings := DefaultCopyrightSettings()

	assert.Equal(t, models.RecommendationApprove, RecommendationFromStatus(models.ProtectionStatusApproved, 0.5, settings))
	assert.Equal(t, models.RecommendationBlock, RecommendationFromStatus(models.ProtectionStatusBlocked, 0.2, settings))

	// A flagged record escalates to a block once its stored confidence
	// clears the block threshold.
	assert.Equal(t, models.RecommendationFlag, RecommendationFromStatus(models.ProtectionStatusFlagged, 0.85, settings))
	assert.Equal(t, models.RecommendationBlock, RecommendationFromStatus(models.ProtectionStatusFlagged, 0.95, settings))
	assert.Equal(t, models.RecommendationBlock, RecommendationFromStatus(models.ProtectionStatusFlagged, 0.96, settings))

	// A pending record resolves to a flag above the flag threshold.
	assert.Equal(t, models.RecommendationManualReview, RecommendationFromStatus(models.ProtectionStatusPending, 0.5, settings))
	assert.Equal(t, models.RecommendationFlag, RecommendationFromStatus(models.ProtectionStatusPending, 0.8, settings))
	assert.Equal(t, models.RecommendationFlag, RecommendationFromStatus(models.ProtectionStatusPending, 0.85, settings))
}

func testFingerprint() fingerprint.Fingerprint {
	return fingerprint.Fingerprint{
		Hash:       "00c0ffee",
		Algorithm:  fingerprint.AlgorithmAmplitudeHashV1,
		Confidence: 0.8,
	}
}

func TestClassifyAllowlistShortCircuits(t *testing.T) {
	allowed := &models.AllowlistEntry{FingerprintHash: "00c0ffee"}
	denied := &models.DenylistEntry{
		FingerprintHash: "00c0ffee",
		TrackTitle:      "Stolen Anthem",
		ArtistName:      "The Originals",
	}

	// Even with a denylist hit present, the allowlist wins.
	result, matched := classify(uuid.New(), testFingerprint(), allowed, denied, nil, DefaultCopyrightSettings())

	assert.False(t, result.IsViolation)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, models.ProtectionStatusApproved, result.Status)
	assert.Equal(t, models.RecommendationApprove, result.Recommendation)
	assert.Nil(t, matched)
}

func TestClassifyDenylistMatch(t *testing.T) {
	released := time.Date(2019, 6, 21, 0, 0, 0, 0, time.UTC)
	denied := &models.DenylistEntry{
		FingerprintHash: "00c0ffee",
		TrackTitle:      "Stolen Anthem",
		ArtistName:      "The Originals",
		RightsHolder:    "Example Records LLC",
		ReleaseDate:     &released,
	}

	result, matched := classify(uuid.New(), testFingerprint(), nil, denied, nil, DefaultCopyrightSettings())

	assert.True(t, result.IsViolation)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, models.ProtectionStatusBlocked, result.Status)
	assert.Equal(t, models.RecommendationBlock, result.Recommendation)
	assert.Equal(t, models.ViolationCopyrightInfringement, result.ViolationType)

	require.NotNil(t, matched)
	assert.Equal(t, "Stolen Anthem", matched.Title)
	assert.Equal(t, "The Originals", matched.Artist)
	assert.Equal(t, "Example Records LLC", matched.RightsHolder)
	assert.Equal(t, "2019-06-21", matched.ReleaseDate)
}

func TestClassifyExistingRecordUsesStoredConfidence(t *testing.T) {
	existing := &models.ProtectionRecord{
		Status:          models.ProtectionStatusFlagged,
		ConfidenceScore: 0.96,
		FingerprintHash: "00c0ffee",
	}

	result, matched := classify(uuid.New(), testFingerprint(), nil, nil, existing, DefaultCopyrightSettings())

	assert.Nil(t, matched)
	assert.True(t, result.IsViolation)
	assert.Equal(t, models.ProtectionStatusFlagged, result.Status)
	assert.Equal(t, 0.96, result.Confidence)
	assert.Equal(t, "00c0ffee", result.Fingerprint)
	assert.Equal(t, models.RecommendationBlock, result.Recommendation)
}

func TestClassifyRequireManualReviewUpgradesApproval(t *testing.T) {
	settings := DefaultCopyrightSettings()
	settings.ConfidenceThreshold = 0.9
	settings.AutoFlagThreshold = 0.95
	settings.AutoBlockThreshold = 0.99
	settings.RequireManualReview = true

	// Algorithm confidence 0.8 lands below every threshold; the manual
	// review floor overrides the approval.
	result, matched := classify(uuid.New(), testFingerprint(), nil, nil, nil, settings)

	assert.Nil(t, matched)
	assert.Equal(t, models.RecommendationManualReview, result.Recommendation)
	assert.Equal(t, models.ProtectionStatusPending, result.Status)
	assert.False(t, result.IsViolation)
}

func TestClassifyDisabledApproves(t *testing.T) {
	settings := DefaultCopyrightSettings()
	settings.Enabled = false
	denied := &models.DenylistEntry{
		FingerprintHash: "00c0ffee",
		TrackTitle:      "Stolen Anthem",
		ArtistName:      "The Originals",
	}

	result, matched := classify(uuid.New(), testFingerprint(), nil, denied, nil, settings)

	assert.Nil(t, matched)
	assert.False(t, result.IsViolation)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, models.RecommendationApprove, result.Recommendation)
}

func TestStatusForRecommendation(t *testing.T) {
	assert.Equal(t, models.ProtectionStatusApproved, statusForRecommendation(models.RecommendationApprove))
	assert.Equal(t, models.ProtectionStatusBlocked, statusForRecommendation(models.RecommendationBlock))
	assert.Equal(t, models.ProtectionStatusFlagged, statusForRecommendation(models.RecommendationFlag))
	assert.Equal(t, models.ProtectionStatusPending, statusForRecommendation(models.RecommendationManualReview))
}

func TestValidateThresholds(t *testing.T) {
	valid := DefaultCopyrightSettings()
	assert.NoError(t, validateThresholds(valid))

	outOfRange := valid
	outOfRange.AutoBlockThreshold = 1.5
	assert.Error(t, validateThresholds(outOfRange))

	misordered := valid
	misordered.ConfidenceThreshold = 0.9
	misordered.AutoFlagThreshold = 0.8
	assert.Error(t, validateThresholds(misordered))
}
