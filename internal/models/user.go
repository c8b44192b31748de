// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username        string           `json:"username" gorm:"uniqueIndex;size:50;not null"`
	DisplayName     string           `json:"display_name" gorm:"size:100"`
	Email           string           `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string           `json:"-" gorm:"size:255;not null"`
	UserType        UserType         `json:"user_type" gorm:"type:varchar(20);not null"`
	Tier            SubscriptionTier `json:"subscription_tier" gorm:"column:subscription_tier;type:varchar(20);default:'free';index"`
	Status          UserStatus       `json:"status" gorm:"type:varchar(20);default:'active'"`
	ProfileData     JSONB            `json:"profile_data" gorm:"type:jsonb"`
	EmailVerifiedAt *time.Time       `json:"email_verified_at"`
	LastLoginAt     *time.Time       `json:"last_login_at"`

	// Relationships
	Tracks  []AudioTrack      `json:"tracks,omitempty" gorm:"foreignKey:CreatorID"`
	Reports []ViolationReport `json:"reports,omitempty" gorm:"foreignKey:ReporterID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
