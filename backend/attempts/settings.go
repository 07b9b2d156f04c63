package attempts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"proficiency/backend/models"
)

// LoadCriteria reads the singleton quota configuration. A missing row yields empty criteria.
func LoadCriteria(ctx context.Context, db *gorm.DB) (models.Criteria, error) {
	var settings models.TestSettings
	err := db.WithContext(ctx).First(&settings, models.TestSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Criteria{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load test settings: %w", err)
	}

	criteria := settings.Criteria.Data()
	if criteria == nil {
		criteria = models.Criteria{}
	}
	return criteria, nil
}

func SaveCriteria(ctx context.Context, db *gorm.DB, criteria models.Criteria) error {
	settings := models.TestSettings{
		ID:       models.TestSettingsID,
		Criteria: datatypes.NewJSONType(criteria),
	}
	if err := db.WithContext(ctx).Save(&settings).Error; err != nil {
		return fmt.Errorf("save test settings: %w", err)
	}
	return nil
}

// ValidateCriteria returns a message per offending key, or nil.
func ValidateCriteria(criteria models.Criteria) map[string]string {
	problems := make(map[string]string)
	for tag, quota := range criteria {
		if _, ok := models.ParseLevel(string(tag)); !ok {
			problems[string(tag)] = "Unknown level."
			continue
		}
		if quota < 0 {
			problems[string(tag)] = "Quota must not be negative."
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}
