// internal/models/protection.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProtectionRecord tracks the copyright classification of one track over
// time. One row per track; reviewer overrides update the row in place.
type ProtectionRecord struct {
	BaseModel
	TrackID          uuid.UUID        `json:"track_id" gorm:"type:uuid;not null;uniqueIndex"`
	CreatorID        uuid.UUID        `json:"creator_id" gorm:"type:uuid;not null;index"`
	Status           ProtectionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CheckType        CheckType        `json:"check_type" gorm:"type:varchar(20);default:'automated'"`
	FingerprintHash  string           `json:"fingerprint_hash" gorm:"size:64;index"`
	ConfidenceScore  float64          `json:"confidence_score" gorm:"type:decimal(4,3);default:0"`
	MatchedTrackInfo JSONB            `json:"matched_track_info,omitempty" gorm:"type:jsonb"`
	ReviewerID       *uuid.UUID       `json:"reviewer_id,omitempty" gorm:"type:uuid"`
	ReviewNotes      string           `json:"review_notes,omitempty" gorm:"type:text"`

	// Relationships
	Track    AudioTrack `json:"track,omitempty" gorm:"foreignKey:TrackID"`
	Reviewer *User      `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
}

// AllowlistEntry marks a fingerprint as pre-cleared content.
type AllowlistEntry struct {
	BaseModel
	FingerprintHash string `json:"fingerprint_hash" gorm:"size:64;not null;uniqueIndex"`
	TrackTitle      string `json:"track_title" gorm:"size:255"`
	ArtistName      string `json:"artist_name" gorm:"size:255"`
	RightsHolder    string `json:"rights_holder" gorm:"size:255"`
	Notes           string `json:"notes,omitempty" gorm:"type:text"`
}

// DenylistEntry marks a fingerprint as known prohibited content.
type DenylistEntry struct {
	BaseModel
	FingerprintHash string     `json:"fingerprint_hash" gorm:"size:64;not null;uniqueIndex"`
	TrackTitle      string     `json:"track_title" gorm:"size:255;not null"`
	ArtistName      string     `json:"artist_name" gorm:"size:255;not null"`
	RightsHolder    string     `json:"rights_holder" gorm:"size:255"`
	ReleaseDate     *time.Time `json:"release_date"`
}

// CopyrightSetting holds persisted overrides for the decision policy,
// merged over compiled defaults at evaluation time.
type CopyrightSetting struct {
	BaseModel
	Key   string `json:"key" gorm:"size:100;not null;uniqueIndex"`
	Value JSONB  `json:"value" gorm:"type:jsonb;not null"`
}
