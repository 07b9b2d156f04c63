package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/attempts"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

type AttemptsController struct {
	DB        *gorm.DB
	Assembler *attempts.Assembler
}

func NewAttemptsController(db *gorm.DB, assembler *attempts.Assembler) *AttemptsController {
	return &AttemptsController{DB: db, Assembler: assembler}
}

type AttemptSummary struct {
	ID            uint                 `json:"id"`
	Status        models.AttemptStatus `json:"status"`
	Score         *float64             `json:"score,omitempty"`
	Level         models.Level         `json:"level,omitempty"`
	Items         int64                `json:"items"`
	CreatedAt     time.Time            `json:"createdAt"`
	SubmittedAt   *time.Time           `json:"submittedAt,omitempty"`
	CertificateID *string              `json:"certificateId,omitempty"`
	IssuedAt      *time.Time           `json:"issuedAt,omitempty"`
}

// Start godoc
// @Summary Start a test attempt
// @Description Draws questions according to the configured quotas and freezes them into a new attempt
// @Tags candidate
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /candidate/attempts/start [post]
func (ac *AttemptsController) Start(c *fiber.Ctx) error {
	s := utils.CurrentSession(c)
	if s == nil {
		return apperr.Unauthorized()
	}

	criteria, err := attempts.LoadCriteria(c.UserContext(), ac.DB)
	if err != nil {
		return err
	}
	attempt, err := ac.Assembler.Start(c.UserContext(), s.UserID, criteria)
	if err != nil {
		return err
	}
	return utils.Created(c, fiber.Map{"attemptId": attempt.ID})
}

// List godoc
// @Summary List own attempts
// @Tags candidate
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /candidate/attempts [get]
func (ac *AttemptsController) List(c *fiber.Ctx) error {
	s := utils.CurrentSession(c)
	if s == nil {
		return apperr.Unauthorized()
	}

	var list []models.Attempt
	if err := ac.DB.WithContext(c.UserContext()).
		Where("user_id = ?", s.UserID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}

	type itemCount struct {
		AttemptID uint
		N         int64
	}
	var counts []itemCount
	if len(list) > 0 {
		ids := make([]uint, len(list))
		for i, a := range list {
			ids[i] = a.ID
		}
		if err := ac.DB.WithContext(c.UserContext()).Model(&models.AttemptItem{}).
			Select("attempt_id, count(*) AS n").
			Where("attempt_id IN ?", ids).
			Group("attempt_id").
			Scan(&counts).Error; err != nil {
			return fmt.Errorf("count attempt items: %w", err)
		}
	}
	byAttempt := make(map[uint]int64, len(counts))
	for _, ic := range counts {
		byAttempt[ic.AttemptID] = ic.N
	}

	out := make([]AttemptSummary, 0, len(list))
	for _, a := range list {
		out = append(out, AttemptSummary{
			ID:            a.ID,
			Status:        a.Status,
			Score:         a.Score,
			Level:         a.Level,
			Items:         byAttempt[a.ID],
			CreatedAt:     a.CreatedAt,
			SubmittedAt:   a.SubmittedAt,
			CertificateID: a.CertificateID,
			IssuedAt:      a.IssuedAt,
		})
	}
	return utils.Success(c, fiber.StatusOK, out)
}
