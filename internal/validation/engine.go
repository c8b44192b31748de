// internal/validation/engine.go

// Package validation evaluates upload submissions against the rule
// catalog for the caller's tier. Every check runs and every violation is
// collected so a client can present all problems at once.
package validation

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundbridge/backend/internal/audio"
	"github.com/soundbridge/backend/internal/models"
	"github.com/soundbridge/backend/internal/rules"
)

type ErrorCode string

const (
	CodeFileSizeExceeded        ErrorCode = "FILE_SIZE_EXCEEDED"
	CodeFileSizeTooSmall        ErrorCode = "FILE_SIZE_TOO_SMALL"
	CodeInvalidFileType         ErrorCode = "INVALID_FILE_TYPE"
	CodeDurationExceeded        ErrorCode = "DURATION_EXCEEDED"
	CodeDurationTooShort        ErrorCode = "DURATION_TOO_SHORT"
	CodeMissingRequiredMetadata ErrorCode = "MISSING_REQUIRED_METADATA"
	CodeFileCorrupted           ErrorCode = "FILE_CORRUPTED"
	CodeDailyLimitExceeded      ErrorCode = "DAILY_LIMIT_EXCEEDED"
	CodeConcurrentUploadLimit   ErrorCode = "CONCURRENT_UPLOAD_LIMIT"
	CodeAuthenticationRequired  ErrorCode = "AUTHENTICATION_REQUIRED"
	CodeServerError             ErrorCode = "SERVER_ERROR"
)

var errorMessages = map[ErrorCode]string{
	CodeFileSizeExceeded:        "File size exceeds the limit for your subscription tier",
	CodeFileSizeTooSmall:        "File size is too small (minimum 1MB required)",
	CodeInvalidFileType:         "File type is not supported",
	CodeDurationExceeded:        "Audio duration exceeds the maximum limit (3 hours)",
	CodeDurationTooShort:        "Audio duration is too short (minimum 10 seconds)",
	CodeMissingRequiredMetadata: "Required metadata fields are missing",
	CodeFileCorrupted:           "File appears to be corrupted or invalid",
	CodeDailyLimitExceeded:      "Daily upload limit exceeded",
	CodeConcurrentUploadLimit:   "Too many concurrent uploads",
	CodeAuthenticationRequired:  "Authentication required for upload",
	CodeServerError:             "Server error occurred during validation",
}

var suggestions = map[ErrorCode]string{
	CodeFileSizeExceeded:        "Consider upgrading to Pro or Enterprise for larger file uploads",
	CodeFileSizeTooSmall:        "Ensure your audio file is at least 1MB in size",
	CodeInvalidFileType:         "Convert your file to MP3, WAV, M4A, AAC, OGG, or FLAC format",
	CodeDurationExceeded:        "Split your audio into smaller segments",
	CodeDurationTooShort:        "Ensure your audio is at least 10 seconds long",
	CodeMissingRequiredMetadata: "Please provide a title and select a genre for your track",
	CodeFileCorrupted:           "Try re-exporting your audio file or use a different file",
	CodeDailyLimitExceeded:      "Wait until tomorrow or upgrade for more uploads",
	CodeConcurrentUploadLimit:   "Wait for current uploads to complete or upgrade for more concurrent uploads",
	CodeAuthenticationRequired:  "Please log in to upload content",
	CodeServerError:             "Please try again later or contact support",
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	Severity   Severity  `json:"severity"`
	Suggestion string    `json:"suggestion,omitempty"`
}

type Warning struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// NewError builds the error entry for a code with its canonical message
// and suggestion.
func NewError(code ErrorCode, field string) Error {
	return Error{
		Code:       code,
		Message:    errorMessages[code],
		Field:      field,
		Severity:   SeverityError,
		Suggestion: suggestions[code],
	}
}

// TrackMetadata is the declared (user-supplied) metadata of a
// submission.
type TrackMetadata struct {
	Title       string     `json:"title"`
	Genre       string     `json:"genre"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Privacy     string     `json:"privacy,omitempty"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
}

func (m TrackMetadata) fieldValue(name string) string {
	switch name {
	case "title":
		return m.Title
	case "genre":
		return m.Genre
	case "description":
		return m.Description
	case "privacy":
		return m.Privacy
	}
	return ""
}

func (m TrackMetadata) providedFields() []string {
	provided := make([]string, 0, 4)
	for _, f := range []string{"title", "genre", "description", "privacy"} {
		if strings.TrimSpace(m.fieldValue(f)) != "" {
			provided = append(provided, f)
		}
	}
	if len(m.Tags) > 0 {
		provided = append(provided, "tags")
	}
	return provided
}

// Submission is one upload attempt: a payload descriptor plus declared
// metadata. The binary payload itself is passed separately and may be
// absent for descriptor-only preflight validation.
type Submission struct {
	Size     int64         `json:"size"`
	MimeType string        `json:"mime_type"`
	Metadata TrackMetadata `json:"metadata"`
}

// Config is the closed set of validation toggles accepted per request.
type Config struct {
	EnableCopyrightCheck      bool `json:"enable_copyright_check"`
	EnableContentModeration   bool `json:"enable_content_moderation"`
	EnableCommunityGuidelines bool `json:"enable_community_guidelines"`
	EnableMetadataValidation  bool `json:"enable_metadata_validation"`
	EnableFileIntegrityCheck  bool `json:"enable_file_integrity_check"`
	StrictMode                bool `json:"strict_mode"`
}

func DefaultConfig() Config {
	return Config{
		EnableCopyrightCheck:      true,
		EnableContentModeration:   true,
		EnableCommunityGuidelines: true,
		EnableMetadataValidation:  true,
		EnableFileIntegrityCheck:  true,
	}
}

// AppliedRules snapshots the exact limits applied against the actual
// submitted values, so callers can show which rule produced a rejection.
type AppliedRules struct {
	FileSize FileSizeRule  `json:"file_size"`
	Format   FormatRule    `json:"format"`
	Duration *DurationRule `json:"duration,omitempty"`
	Metadata MetadataRule  `json:"metadata"`
}

type FileSizeRule struct {
	Limit  int64                   `json:"limit"`
	Actual int64                   `json:"actual"`
	Tier   models.SubscriptionTier `json:"tier"`
}

type FormatRule struct {
	Allowed []string `json:"allowed"`
	Actual  string   `json:"actual"`
	Valid   bool     `json:"valid"`
}

type DurationRule struct {
	Limit  float64 `json:"limit"`
	Actual float64 `json:"actual"`
	Valid  bool    `json:"valid"`
}

type MetadataRule struct {
	Required []string `json:"required"`
	Provided []string `json:"provided"`
	Missing  []string `json:"missing"`
}

// Result is the immutable outcome of one evaluation.
type Result struct {
	IsValid      bool                    `json:"is_valid"`
	Errors       []Error                 `json:"errors"`
	Warnings     []Warning               `json:"warnings"`
	Metadata     *audio.Metadata         `json:"metadata,omitempty"`
	Tier         models.SubscriptionTier `json:"tier"`
	AppliedRules AppliedRules            `json:"applied_rules"`
}

// UpgradePrompt is attached when a free-tier limit was the blocking
// error, so the client can surface the paid tiers.
type UpgradePrompt struct {
	Show     bool     `json:"show"`
	Reason   string   `json:"reason"`
	Benefits []string `json:"benefits,omitempty"`
	CTA      string   `json:"cta,omitempty"`
}

type Engine struct {
	catalog   *rules.Catalog
	extractor *audio.Extractor
}

func NewEngine(catalog *rules.Catalog, extractor *audio.Extractor) *Engine {
	return &Engine{
		catalog:   catalog,
		extractor: extractor,
	}
}

// Evaluate runs every check and collects all violations. It never
// panics out: an unexpected fault is converted to a single SERVER_ERROR
// entry rather than partial output.
func (e *Engine) Evaluate(sub Submission, tier models.SubscriptionTier, payload []byte, cfg Config) (result Result) {
	tierRules := e.catalog.ForTier(tier)

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Validation engine fault")
			result = Result{
				IsValid:      false,
				Errors:       []Error{NewError(CodeServerError, "")},
				Warnings:     []Warning{},
				Tier:         tier,
				AppliedRules: e.appliedRules(sub, tier, tierRules, nil),
			}
		}
	}()

	errs := make([]Error, 0, 4)
	warnings := make([]Warning, 0, 2)

	// Size
	if sub.Size > tierRules.MaxFileSize {
		errs = append(errs, NewError(CodeFileSizeExceeded, ""))
	}
	if sub.Size < e.catalog.Universal.FileSize.Min {
		errs = append(errs, NewError(CodeFileSizeTooSmall, ""))
	}

	// Format
	if !e.catalog.FormatAllowed(sub.MimeType) {
		errs = append(errs, NewError(CodeInvalidFileType, ""))
	}

	// Metadata extraction; failure degrades to unknown duration.
	var meta *audio.Metadata
	if len(payload) > 0 {
		extracted, err := e.extractor.Extract(payload, sub.MimeType)
		if err != nil {
			logrus.WithError(err).WithField("mime_type", sub.MimeType).
				Debug("Audio metadata extraction failed")
			warnings = append(warnings, Warning{
				Code:    CodeFileCorrupted,
				Message: "Audio duration could not be determined and was not validated",
			})
		}
		meta = extracted
	}

	// Duration, once known. Tier-independent bounds.
	if meta != nil && meta.Duration > 0 {
		if meta.Duration > e.catalog.Universal.Duration.Max {
			errs = append(errs, NewError(CodeDurationExceeded, ""))
		}
		if meta.Duration < e.catalog.Universal.Duration.Min {
			errs = append(errs, NewError(CodeDurationTooShort, ""))
		}
	}

	// Required metadata
	if cfg.EnableMetadataValidation {
		for _, field := range e.catalog.Universal.Metadata.Required {
			if strings.TrimSpace(sub.Metadata.fieldValue(field)) == "" {
				err := NewError(CodeMissingRequiredMetadata, field)
				err.Message = field + " is required"
				errs = append(errs, err)
			}
		}
	}

	return Result{
		IsValid:      len(errs) == 0,
		Errors:       errs,
		Warnings:     warnings,
		Metadata:     meta,
		Tier:         tier,
		AppliedRules: e.appliedRules(sub, tier, tierRules, meta),
	}
}

func (e *Engine) appliedRules(sub Submission, tier models.SubscriptionTier, tierRules rules.TierRules, meta *audio.Metadata) AppliedRules {
	applied := AppliedRules{
		FileSize: FileSizeRule{
			Limit:  tierRules.MaxFileSize,
			Actual: sub.Size,
			Tier:   tier,
		},
		Format: FormatRule{
			Allowed: e.catalog.Universal.Formats,
			Actual:  sub.MimeType,
			Valid:   e.catalog.FormatAllowed(sub.MimeType),
		},
		Metadata: e.metadataRule(sub.Metadata),
	}

	if meta != nil && meta.Duration > 0 {
		applied.Duration = &DurationRule{
			Limit:  e.catalog.Universal.Duration.Max,
			Actual: meta.Duration,
			Valid: meta.Duration >= e.catalog.Universal.Duration.Min &&
				meta.Duration <= e.catalog.Universal.Duration.Max,
		}
	}

	return applied
}

func (e *Engine) metadataRule(meta TrackMetadata) MetadataRule {
	required := e.catalog.Universal.Metadata.Required
	missing := make([]string, 0, len(required))
	for _, field := range required {
		if strings.TrimSpace(meta.fieldValue(field)) == "" {
			missing = append(missing, field)
		}
	}
	return MetadataRule{
		Required: required,
		Provided: meta.providedFields(),
		Missing:  missing,
	}
}

// BuildUpgradePrompt returns a prompt only for free-tier callers whose
// blocking error was a size or duration limit.
func BuildUpgradePrompt(result Result) UpgradePrompt {
	if result.Tier != models.TierFree {
		return UpgradePrompt{Show: false}
	}

	for _, err := range result.Errors {
		if err.Code == CodeFileSizeExceeded || err.Code == CodeDurationExceeded {
			return UpgradePrompt{
				Show:   true,
				Reason: "Your file exceeds the limits for the free tier",
				Benefits: []string{
					"Upload files up to 500MB (Pro) or 2GB (Enterprise)",
					"Priority processing and advanced copyright protection",
					"HD audio quality and instant processing",
					"More concurrent uploads",
				},
				CTA: "Upgrade Now",
			}
		}
	}

	return UpgradePrompt{Show: false}
}
