// internal/models/cases.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ViolationReport is a community-submitted complaint against a track.
// Reports are additive case records; they never mutate the track's
// protection record automatically.
type ViolationReport struct {
	BaseModel
	TrackID       uuid.UUID      `json:"track_id" gorm:"type:uuid;not null;index"`
	ReporterID    uuid.UUID      `json:"reporter_id" gorm:"type:uuid;not null;index"`
	ViolationType ViolationType  `json:"violation_type" gorm:"type:varchar(40);not null"`
	Description   string         `json:"description" gorm:"type:text;not null"`
	EvidenceURLs  pq.StringArray `json:"evidence_urls" gorm:"type:text[]"`
	Status        CaseStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	AdminNotes    string         `json:"admin_notes,omitempty" gorm:"type:text"`

	// Relationships
	Track    AudioTrack `json:"track,omitempty" gorm:"foreignKey:TrackID"`
	Reporter User       `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
}

// DMCARequest is a formal takedown notice. Rows only exist when all
// three sworn statements were true at intake.
type DMCARequest struct {
	BaseModel
	TrackID                 uuid.UUID  `json:"track_id" gorm:"type:uuid;not null;index"`
	RequesterName           string     `json:"requester_name" gorm:"size:255;not null"`
	RequesterEmail          string     `json:"requester_email" gorm:"size:255;not null"`
	RequesterPhone          string     `json:"requester_phone,omitempty" gorm:"size:50"`
	RightsHolder            string     `json:"rights_holder" gorm:"size:255;not null"`
	InfringementDescription string     `json:"infringement_description" gorm:"type:text;not null"`
	OriginalWorkDescription string     `json:"original_work_description" gorm:"type:text;not null"`
	GoodFaithStatement      bool       `json:"good_faith_statement" gorm:"not null"`
	AccuracyStatement       bool       `json:"accuracy_statement" gorm:"not null"`
	AuthorityStatement      bool       `json:"authority_statement" gorm:"not null"`
	ContactAddress          string     `json:"contact_address,omitempty" gorm:"size:512"`
	Status                  CaseStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`

	// Relationships
	Track AudioTrack `json:"track,omitempty" gorm:"foreignKey:TrackID"`
}
