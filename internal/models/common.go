// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeCreator  UserType = "creator"
	UserTypeListener UserType = "listener"
	UserTypeAdmin    UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

type TrackStatus string

const (
	TrackStatusProcessing TrackStatus = "processing"
	TrackStatusActive     TrackStatus = "active"
	TrackStatusRemoved    TrackStatus = "removed"
)

type ProtectionStatus string

const (
	ProtectionStatusPending  ProtectionStatus = "pending"
	ProtectionStatusApproved ProtectionStatus = "approved"
	ProtectionStatusFlagged  ProtectionStatus = "flagged"
	ProtectionStatusBlocked  ProtectionStatus = "blocked"
)

func (s ProtectionStatus) Valid() bool {
	switch s {
	case ProtectionStatusPending, ProtectionStatusApproved, ProtectionStatusFlagged, ProtectionStatusBlocked:
		return true
	}
	return false
}

type CheckType string

const (
	CheckTypeAutomated CheckType = "automated"
	CheckTypeManual    CheckType = "manual"
)

type ViolationType string

const (
	ViolationCopyrightInfringement ViolationType = "copyright_infringement"
	ViolationTrademark             ViolationType = "trademark"
	ViolationRightsHolderComplaint ViolationType = "rights_holder_complaint"
)

func (v ViolationType) Valid() bool {
	switch v {
	case ViolationCopyrightInfringement, ViolationTrademark, ViolationRightsHolderComplaint:
		return true
	}
	return false
}

type Recommendation string

const (
	RecommendationApprove      Recommendation = "approve"
	RecommendationFlag         Recommendation = "flag"
	RecommendationBlock        Recommendation = "block"
	RecommendationManualReview Recommendation = "manual_review"
)

type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusReviewing CaseStatus = "reviewing"
	CaseStatusResolved  CaseStatus = "resolved"
	CaseStatusRejected  CaseStatus = "rejected"
)
