package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/attempts"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

// AdminController manages the question bank, the quota settings and identity reviews.
type AdminController struct {
	DB  *gorm.DB
	Log *utils.Logger
}

func NewAdminController(db *gorm.DB, log *utils.Logger) *AdminController {
	return &AdminController{DB: db, Log: log.With("service", "AdminController")}
}

type SettingsRequest struct {
	Criteria models.Criteria `json:"criteria"`
}

type OptionInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionRequest struct {
	Tag           string        `json:"tag" validate:"required"`
	Text          string        `json:"text" validate:"required"`
	AllowMultiple bool          `json:"allowMultiple"`
	Options       []OptionInput `json:"options" validate:"min=2,dive"`
}

type ReviewRequest struct {
	Status models.VerificationStatus `json:"status" validate:"oneof=APPROVED REJECTED"`
	Note   string                    `json:"note" validate:"max=1000"`
}

// GetSettings godoc
// @Summary Get quota settings
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /admin/settings [get]
func (ac *AdminController) GetSettings(c *fiber.Ctx) error {
	criteria, err := attempts.LoadCriteria(c.UserContext(), ac.DB)
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"criteria": criteria})
}

// UpdateSettings godoc
// @Summary Replace quota settings
// @Description Sets how many questions of each level a new attempt draws
// @Tags admin
// @Accept json
// @Produce json
// @Param input body SettingsRequest true "Quota per level"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /admin/settings [put]
func (ac *AdminController) UpdateSettings(c *fiber.Ctx) error {
	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Cannot parse JSON")
	}
	if req.Criteria == nil {
		req.Criteria = models.Criteria{}
	}
	if problems := attempts.ValidateCriteria(req.Criteria); problems != nil {
		return apperr.Validation(problems)
	}

	if err := attempts.SaveCriteria(c.UserContext(), ac.DB, req.Criteria); err != nil {
		return err
	}
	ac.Log.Info("quota settings updated", "criteria", req.Criteria)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"criteria": req.Criteria})
}

func questionView(q *models.Question) fiber.Map {
	options := make([]fiber.Map, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, fiber.Map{
			"id":        o.ID,
			"text":      o.Text,
			"order":     o.Position,
			"isCorrect": o.IsCorrect,
		})
	}
	return fiber.Map{
		"id":            q.ID,
		"tag":           q.Tag,
		"text":          q.Text,
		"allowMultiple": q.AllowMultiple,
		"options":       options,
	}
}

// ListQuestions godoc
// @Summary List the question bank
// @Tags admin
// @Produce json
// @Param tag query string false "Level tag"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.PaginatedResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /admin/questions [get]
func (ac *AdminController) ListQuestions(c *fiber.Ctx) error {
	page, pageSize, offset := utils.Pagination(c)

	query := ac.DB.WithContext(c.UserContext()).Model(&models.Question{})
	if raw := c.Query("tag"); raw != "" {
		tag, ok := models.ParseLevel(strings.ToUpper(raw))
		if !ok {
			return apperr.Validation(map[string]string{"tag": "Unknown level."})
		}
		query = query.Where("tag = ?", tag)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return fmt.Errorf("count questions: %w", err)
	}

	var questions []models.Question
	if err := query.
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&questions).Error; err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	items := make([]fiber.Map, 0, len(questions))
	for i := range questions {
		items = append(items, questionView(&questions[i]))
	}
	return utils.Success(c, fiber.StatusOK, utils.PaginatedResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// CreateQuestion godoc
// @Summary Add a question to the bank
// @Description Options keep the order they are given in
// @Tags admin
// @Accept json
// @Produce json
// @Param input body QuestionRequest true "Question"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /admin/questions [post]
func (ac *AdminController) CreateQuestion(c *fiber.Ctx) error {
	var req QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Cannot parse JSON")
	}
	if err := validateStruct(&req, map[string]string{
		"tag":     "Unknown level.",
		"text":    "Question text is required.",
		"options": "At least two options are required.",
	}); err != nil {
		return err
	}

	tag, ok := models.ParseLevel(strings.ToUpper(req.Tag))
	if !ok {
		return apperr.Validation(map[string]string{"tag": "Unknown level."})
	}
	correct := 0
	for _, o := range req.Options {
		if o.IsCorrect {
			correct++
		}
	}
	switch {
	case correct == 0:
		return apperr.Validation(map[string]string{"options": "Mark at least one option as correct."})
	case correct > 1 && !req.AllowMultiple:
		return apperr.Validation(map[string]string{"options": "Only one option may be correct."})
	}

	question := models.Question{
		Tag:           tag,
		Text:          req.Text,
		AllowMultiple: req.AllowMultiple,
	}
	for i, o := range req.Options {
		question.Options = append(question.Options, models.Option{
			Text:      o.Text,
			Position:  i + 1,
			IsCorrect: o.IsCorrect,
		})
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&question).Error; err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return utils.Created(c, questionView(&question))
}

// DeleteQuestion godoc
// @Summary Remove a question from the bank
// @Description Attempts that already drew the question keep their snapshot
// @Tags admin
// @Param id path int true "Question ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /admin/questions/{id} [delete]
func (ac *AdminController) DeleteQuestion(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.NotFound("Question not found")
	}
	res := ac.DB.WithContext(c.UserContext()).Delete(&models.Question{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete question: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Question not found")
	}
	return utils.Success(c, fiber.StatusOK, nil)
}

// ListVerifications godoc
// @Summary List identity verifications
// @Tags admin
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Success 200 {object} utils.SuccessResponse
// @Router /admin/verifications [get]
func (ac *AdminController) ListVerifications(c *fiber.Ctx) error {
	query := ac.DB.WithContext(c.UserContext()).Model(&models.IdentityVerification{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}

	var list []models.IdentityVerification
	if err := query.Order("id ASC").Find(&list).Error; err != nil {
		return fmt.Errorf("list verifications: %w", err)
	}
	return utils.Success(c, fiber.StatusOK, list)
}

// ReviewVerification godoc
// @Summary Approve or reject an identity verification
// @Description The decision is mirrored into the user's KYC status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Verification ID"
// @Param input body ReviewRequest true "Decision"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /admin/verifications/{id} [put]
func (ac *AdminController) ReviewVerification(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.NotFound("Verification not found")
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Cannot parse JSON")
	}
	if err := validateStruct(&req, map[string]string{
		"status": "Status must be APPROVED or REJECTED.",
	}); err != nil {
		return err
	}

	var v models.IdentityVerification
	err = ac.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&v, id).Error; err != nil {
			return err
		}
		now := time.Now()
		v.Status = req.Status
		v.ReviewNote = req.Note
		v.ReviewedAt = &now
		if err := tx.Model(&v).Updates(map[string]interface{}{
			"status":      v.Status,
			"review_note": v.ReviewNote,
			"reviewed_at": v.ReviewedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", v.UserID).Update("kyc_status", req.Status).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Verification not found")
	}
	if err != nil {
		return fmt.Errorf("review verification %d: %w", id, err)
	}

	ac.Log.Info("identity verification reviewed", "verification_id", v.ID, "user_id", v.UserID, "status", v.Status)
	return utils.Success(c, fiber.StatusOK, v)
}
