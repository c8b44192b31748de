// internal/rules/catalog.go

// Package rules holds the static, versioned upload validation policy:
// universal bounds plus per-tier overrides. Pure data, read-only at
// evaluation time.
package rules

import (
	"github.com/soundbridge/backend/internal/models"
)

const CatalogVersion = "2024.1"

// Size constants in bytes.
const (
	MinFileSize       = 1 * 1024 * 1024
	FreeMaxFileSize   = 100 * 1024 * 1024
	ProMaxFileSize    = 500 * 1024 * 1024
	EnterpriseMaxSize = 2 * 1024 * 1024 * 1024
)

// Duration bounds in seconds, tier-independent.
const (
	MinDuration = 10.0
	MaxDuration = 3 * 60 * 60.0
)

// AllowedFormats is the universal MIME allow-list for audio uploads.
var AllowedFormats = []string{
	"audio/mpeg",
	"audio/mp3",
	"audio/wav",
	"audio/x-wav",
	"audio/mp4",
	"audio/m4a",
	"audio/aac",
	"audio/ogg",
	"audio/flac",
}

var (
	RequiredMetadata = []string{"title", "genre"}
	OptionalMetadata = []string{"description", "tags", "privacy", "publish_at"}
)

type SizeBounds struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type DurationBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type MetadataRules struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

type UniversalRules struct {
	FileSize SizeBounds     `json:"file_size"`
	Formats  []string       `json:"formats"`
	Duration DurationBounds `json:"duration"`
	Metadata MetadataRules  `json:"metadata"`
}

// TierRules parameterize limits and processing classes by subscription
// tier. DailyUploadLimit nil means unlimited.
type TierRules struct {
	MaxFileSize       int64  `json:"max_file_size"`
	Processing        string `json:"processing"`
	CopyrightCheck    string `json:"copyright_check"`
	Moderation        string `json:"moderation"`
	Quality           string `json:"quality"`
	ConcurrentUploads int    `json:"concurrent_uploads"`
	DailyUploadLimit  *int   `json:"daily_upload_limit,omitempty"`
}

type Catalog struct {
	Version   string                                `json:"version"`
	Universal UniversalRules                        `json:"universal"`
	Tiers     map[models.SubscriptionTier]TierRules `json:"tiers"`
}

func intPtr(v int) *int { return &v }

// DefaultCatalog returns the compiled-in rule catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Version: CatalogVersion,
		Universal: UniversalRules{
			FileSize: SizeBounds{Min: MinFileSize, Max: FreeMaxFileSize},
			Formats:  AllowedFormats,
			Duration: DurationBounds{Min: MinDuration, Max: MaxDuration},
			Metadata: MetadataRules{
				Required: RequiredMetadata,
				Optional: OptionalMetadata,
			},
		},
		Tiers: map[models.SubscriptionTier]TierRules{
			models.TierFree: {
				MaxFileSize:       FreeMaxFileSize,
				Processing:        "standard",
				CopyrightCheck:    "basic",
				Moderation:        "automated",
				Quality:           "standard",
				ConcurrentUploads: 1,
				DailyUploadLimit:  intPtr(10),
			},
			models.TierPro: {
				MaxFileSize:       ProMaxFileSize,
				Processing:        "priority",
				CopyrightCheck:    "advanced",
				Moderation:        "priority",
				Quality:           "hd",
				ConcurrentUploads: 3,
				DailyUploadLimit:  intPtr(100),
			},
			models.TierEnterprise: {
				MaxFileSize:       EnterpriseMaxSize,
				Processing:        "instant",
				CopyrightCheck:    "ai-powered",
				Moderation:        "human-ai",
				Quality:           "lossless",
				ConcurrentUploads: 5,
			},
		},
	}
}

// ForTier returns the tier rules, falling back to free limits for an
// unknown tier so a bad claim never widens a caller's allowance.
func (c *Catalog) ForTier(tier models.SubscriptionTier) TierRules {
	if rules, ok := c.Tiers[tier]; ok {
		return rules
	}
	return c.Tiers[models.TierFree]
}

// FormatAllowed reports whether the declared MIME type is in the
// universal allow-list.
func (c *Catalog) FormatAllowed(mimeType string) bool {
	for _, f := range c.Universal.Formats {
		if f == mimeType {
			return true
		}
	}
	return false
}
