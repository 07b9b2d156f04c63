package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string             `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string             `gorm:"not null" json:"-"`
	Role         Role               `gorm:"default:CANDIDATE" json:"role"`
	FullName     string             `gorm:"not null" json:"fullName"`
	Phone        *string            `json:"phone,omitempty"`
	Country      *string            `json:"country,omitempty"`
	City         *string            `json:"city,omitempty"`
	KYCStatus    VerificationStatus `gorm:"default:PENDING" json:"kycStatus"`

	Verification *IdentityVerification `json:"verification,omitempty"`
}

// IdentityVerification holds the documents uploaded at registration and their review state.
type IdentityVerification struct {
	gorm.Model
	UserID     uint               `gorm:"uniqueIndex;not null" json:"userId"`
	SelfieURL  string             `gorm:"not null" json:"selfieUrl"`
	IDDocURL   string             `gorm:"not null" json:"idDocUrl"`
	Status     VerificationStatus `gorm:"default:PENDING;index" json:"status"`
	ConsentAt  time.Time          `json:"consentAt"`
	ReviewedAt *time.Time         `json:"reviewedAt,omitempty"`
	ReviewNote string             `json:"reviewNote,omitempty"`
}
