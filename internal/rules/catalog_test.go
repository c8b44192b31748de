// internal/rules/catalog_test.go
package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundbridge/backend/internal/models"
)

func TestDefaultCatalogTierLimits(t *testing.T) {
	catalog := DefaultCatalog()

	free := catalog.ForTier(models.TierFree)
	assert.Equal(t, int64(FreeMaxFileSize), free.MaxFileSize)
	assert.Equal(t, 1, free.ConcurrentUploads)
	assert.NotNil(t, free.DailyUploadLimit)
	assert.Equal(t, 10, *free.DailyUploadLimit)

	pro := catalog.ForTier(models.TierPro)
	assert.Equal(t, int64(ProMaxFileSize), pro.MaxFileSize)
	assert.Equal(t, 3, pro.ConcurrentUploads)
	assert.NotNil(t, pro.DailyUploadLimit)
	assert.Equal(t, 100, *pro.DailyUploadLimit)

	enterprise := catalog.ForTier(models.TierEnterprise)
	assert.Equal(t, int64(EnterpriseMaxSize), enterprise.MaxFileSize)
	assert.Equal(t, 5, enterprise.ConcurrentUploads)
	assert.Nil(t, enterprise.DailyUploadLimit, "enterprise daily uploads are unlimited")
}

func TestForTierUnknownFallsBackToFree(t *testing.T) {
	catalog := DefaultCatalog()

	limits := catalog.ForTier(models.SubscriptionTier("platinum"))
	assert.Equal(t, int64(FreeMaxFileSize), limits.MaxFileSize)
	assert.Equal(t, 1, limits.ConcurrentUploads)
}

func TestFormatAllowed(t *testing.T) {
	catalog := DefaultCatalog()

	for _, mime := range []string{"audio/mpeg", "audio/wav", "audio/flac", "audio/ogg"} {
		assert.True(t, catalog.FormatAllowed(mime), mime)
	}

	for _, mime := range []string{"video/mp4", "image/png", "application/pdf", ""} {
		assert.False(t, catalog.FormatAllowed(mime), mime)
	}
}

func TestUniversalBounds(t *testing.T) {
	catalog := DefaultCatalog()

	assert.Equal(t, int64(MinFileSize), catalog.Universal.FileSize.Min)
	assert.Equal(t, 10.0, catalog.Universal.Duration.Min)
	assert.Equal(t, 10800.0, catalog.Universal.Duration.Max)
	assert.Equal(t, []string{"title", "genre"}, catalog.Universal.Metadata.Required)
}
