package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

type AnalyticsController struct {
	DB *gorm.DB
}

func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	return &AnalyticsController{DB: db}
}

type levelCount struct {
	Level models.Level `json:"level"`
	Count int64        `json:"count"`
}

type statusCount struct {
	Status models.VerificationStatus `json:"status"`
	Count  int64                     `json:"count"`
}

// GetOverview godoc
// @Summary Platform activity for a period
// @Description Registrations, attempts, issued certificates and the level distribution of submitted attempts
// @Tags admin
// @Produce json
// @Param start_date query string false "YYYY-MM-DD, defaults to one month ago"
// @Param end_date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /admin/analytics [get]
func (ac *AnalyticsController) GetOverview(c *fiber.Ctx) error {
	// Период по умолчанию: последний месяц
	end := time.Now()
	start := end.AddDate(0, -1, 0)
	if v := c.Query("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.BadRequest(apperr.CodeBadRequest, "Invalid start_date format. Use YYYY-MM-DD")
		}
		start = d
	}
	if v := c.Query("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.BadRequest(apperr.CodeBadRequest, "Invalid end_date format. Use YYYY-MM-DD")
		}
		// включаем весь последний день
		end = d.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		return apperr.BadRequest(apperr.CodeBadRequest, "start_date must be before end_date")
	}

	db := ac.DB.WithContext(c.UserContext())
	count := func(model interface{}, column string, extra ...interface{}) (int64, error) {
		var n int64
		q := db.Model(model).Where(column+" >= ? AND "+column+" < ?", start, end)
		if len(extra) > 0 {
			q = q.Where(extra[0], extra[1:]...)
		}
		err := q.Count(&n).Error
		return n, err
	}

	registrations, err := count(&models.User{}, "created_at", "role = ?", models.RoleCandidate)
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	started, err := count(&models.Attempt{}, "created_at")
	if err != nil {
		return fmt.Errorf("count attempts: %w", err)
	}
	submitted, err := count(&models.Attempt{}, "submitted_at")
	if err != nil {
		return fmt.Errorf("count submitted attempts: %w", err)
	}
	issued, err := count(&models.Attempt{}, "issued_at")
	if err != nil {
		return fmt.Errorf("count certificates: %w", err)
	}

	var levels []levelCount
	if err := db.Model(&models.Attempt{}).
		Select("level, count(*) AS count").
		Where("status = ? AND submitted_at >= ? AND submitted_at < ?", models.AttemptSubmitted, start, end).
		Group("level").
		Order("level").
		Scan(&levels).Error; err != nil {
		return fmt.Errorf("level distribution: %w", err)
	}

	var verifications []statusCount
	if err := db.Model(&models.IdentityVerification{}).
		Select("status, count(*) AS count").
		Group("status").
		Order("status").
		Scan(&verifications).Error; err != nil {
		return fmt.Errorf("verification status: %w", err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"registrations":      registrations,
		"attemptsStarted":    started,
		"attemptsSubmitted":  submitted,
		"certificatesIssued": issued,
		"levels":             levels,
		"verifications":      verifications,
		"period": fiber.Map{
			"start": start.Format("2006-01-02"),
			"end":   end.AddDate(0, 0, -1).Format("2006-01-02"),
		},
	})
}
