package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Question struct {
	gorm.Model
	Tag           Level    `gorm:"index;not null" json:"tag"`
	Text          string   `gorm:"type:text;not null" json:"text"`
	AllowMultiple bool     `gorm:"default:false" json:"allowMultiple"`
	Options       []Option `gorm:"constraint:OnDelete:CASCADE" json:"options"`
}

type Option struct {
	gorm.Model
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Position   int    `gorm:"not null" json:"order"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
}

// Criteria maps a level to the number of questions drawn for it.
type Criteria map[Level]int

// TestSettings is a singleton row (ID 1) holding the quota configuration.
type TestSettings struct {
	ID        uint                         `gorm:"primaryKey" json:"id"`
	Criteria  datatypes.JSONType[Criteria] `json:"criteria"`
	UpdatedAt time.Time                    `json:"updatedAt"`
}

const TestSettingsID = 1
