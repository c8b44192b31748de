// internal/models/track.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AudioTrack struct {
	BaseModel
	CreatorID     uuid.UUID      `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title         string         `json:"title" gorm:"size:255;not null"`
	Genre         string         `json:"genre" gorm:"size:100;index"`
	Description   string         `json:"description" gorm:"type:text"`
	Tags          pq.StringArray `json:"tags" gorm:"type:text[]"`
	Privacy       string         `json:"privacy" gorm:"size:20;default:'public'"`
	PublishAt     *time.Time     `json:"publish_at"`
	FileURL       string         `json:"file_url" gorm:"size:1024"`
	FileKey       string         `json:"file_key" gorm:"size:512"`
	FileSize      int64          `json:"file_size" gorm:"not null"`
	MimeType      string         `json:"mime_type" gorm:"size:100;not null"`
	Duration      float64        `json:"duration"`
	SampleRate    int            `json:"sample_rate"`
	Channels      int            `json:"channels"`
	Status        TrackStatus    `json:"status" gorm:"type:varchar(20);default:'processing';index"`
	RemovedReason string         `json:"removed_reason,omitempty" gorm:"size:255"`
	RemovedAt     *time.Time     `json:"removed_at"`

	// Relationships
	Creator    User              `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Protection *ProtectionRecord `json:"protection,omitempty" gorm:"foreignKey:TrackID"`
	Reports    []ViolationReport `json:"violation_reports,omitempty" gorm:"foreignKey:TrackID"`
}
