package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

type UpdateProfileRequest struct {
	FullName    *string `json:"fullName" validate:"omitempty,min=2"`
	Phone       *string `json:"phone"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	OldPassword string  `json:"oldPassword"`
	NewPassword string  `json:"newPassword" validate:"omitempty,password"`
}

var profileMessages = map[string]string{
	"fullName":    "Full name is required.",
	"newPassword": "Use 8+ chars with upper, lower & number.",
}

func profile(u *models.User) fiber.Map {
	out := fiber.Map{
		"id":        u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"fullName":  u.FullName,
		"phone":     u.Phone,
		"country":   u.Country,
		"city":      u.City,
		"kycStatus": u.KYCStatus,
		"createdAt": u.CreatedAt,
	}
	if v := u.Verification; v != nil {
		out["verification"] = fiber.Map{
			"status":     v.Status,
			"consentAt":  v.ConsentAt,
			"reviewedAt": v.ReviewedAt,
		}
	}
	return out
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the signed-in user's profile and identity verification state
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	s := utils.CurrentSession(c)
	if s == nil {
		return apperr.Unauthorized()
	}

	user, err := uc.load(c, s.UserID)
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, profile(user))
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Changes contact details and, given the current password, the password
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateProfileRequest true "Profile update data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	s := utils.CurrentSession(c)
	if s == nil {
		return apperr.Unauthorized()
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Cannot parse JSON")
	}
	if err := validateStruct(&req, profileMessages); err != nil {
		return err
	}

	user, err := uc.load(c, s.UserID)
	if err != nil {
		return err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = optional(*req.Phone)
	}
	if req.Country != nil {
		user.Country = optional(*req.Country)
	}
	if req.City != nil {
		user.City = optional(*req.City)
	}

	// Смена пароля требует текущий пароль
	if req.NewPassword != "" {
		if req.OldPassword == "" {
			return apperr.Validation(map[string]string{"oldPassword": "Current password is required."})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			return apperr.Validation(map[string]string{"oldPassword": "Current password is incorrect."})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), passwordCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := uc.DB.WithContext(c.UserContext()).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"full_name":     user.FullName,
			"phone":         user.Phone,
			"country":       user.Country,
			"city":          user.City,
			"password_hash": user.PasswordHash,
		}).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return utils.Success(c, fiber.StatusOK, profile(user))
}

// ListUsers godoc
// @Summary List users
// @Description Paginated user list for administrators
// @Tags admin
// @Produce json
// @Param role query string false "CANDIDATE or ADMIN"
// @Param search query string false "Matches email or full name"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.PaginatedResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /admin/users [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	page, pageSize, offset := utils.Pagination(c)

	query := uc.DB.WithContext(c.UserContext()).Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", strings.ToUpper(role))
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	if err := query.Preload("Verification").Order("id ASC").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	items := make([]fiber.Map, 0, len(users))
	for i := range users {
		items = append(items, profile(&users[i]))
	}
	return utils.Success(c, fiber.StatusOK, utils.PaginatedResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (uc *UserController) load(c *fiber.Ctx, id uint) (*models.User, error) {
	var user models.User
	err := uc.DB.WithContext(c.UserContext()).Preload("Verification").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}
