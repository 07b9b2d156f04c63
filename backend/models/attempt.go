package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Attempt is a single test session of a candidate. The certificate fields stay
// NULL until the first certificate request and are then written together once.
type Attempt struct {
	gorm.Model
	UserID        uint          `gorm:"index;not null" json:"userId"`
	User          User          `json:"-"`
	Status        AttemptStatus `gorm:"default:IN_PROGRESS;index" json:"status"`
	Score         *float64      `json:"score,omitempty"`
	Level         Level         `json:"level,omitempty"`
	Region        string        `json:"region,omitempty"`
	SubmittedAt   *time.Time    `json:"submittedAt,omitempty"`
	CertificateID *string       `gorm:"uniqueIndex" json:"certificateId,omitempty"`
	VerifySlug    *string       `gorm:"uniqueIndex" json:"verifySlug,omitempty"`
	IssuedAt      *time.Time    `json:"issuedAt,omitempty"`
	Items         []AttemptItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (a *Attempt) Issued() bool {
	return a.CertificateID != nil && a.VerifySlug != nil && a.IssuedAt != nil
}

// AttemptItem freezes one selected question, including its correct options,
// at the moment the attempt is assembled.
type AttemptItem struct {
	ID               uint                      `gorm:"primaryKey" json:"id"`
	AttemptID        uint                      `gorm:"index;not null" json:"attemptId"`
	Position         int                       `gorm:"not null" json:"order"`
	Tag              Level                     `gorm:"not null" json:"tag"`
	QuestionID       uint                      `gorm:"index;not null" json:"questionId"`
	AllowMultiple    bool                      `json:"allowMultiple"`
	OptionIDs        datatypes.JSONSlice[uint] `json:"optionIds"`
	CorrectOptionIDs datatypes.JSONSlice[uint] `json:"-"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

// All returns every model the service persists, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&IdentityVerification{},
		&Question{},
		&Option{},
		&TestSettings{},
		&Attempt{},
		&AttemptItem{},
	}
}
