package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/config"
	"proficiency/backend/metrics"
	"proficiency/backend/models"
	"proficiency/backend/storage"
	"proficiency/backend/utils"
)

const passwordCost = 10

type AuthController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Log     *utils.Logger
	Uploads storage.Store
}

func NewAuthController(db *gorm.DB, cfg *config.Config, log *utils.Logger, uploads storage.Store) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Log: log.With("service", "AuthController"), Uploads: uploads}
}

type RegisterRequest struct {
	FullName string `form:"fullName" validate:"min=2"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"password"`
	Phone    string `form:"phone"`
	Country  string `form:"country"`
	City     string `form:"city"`
	Consent  string `form:"consent" validate:"eq=true"`
}

var registerMessages = map[string]string{
	"fullName": "Full name is required.",
	"email":    "Enter a valid email.",
	"password": "Use 8+ chars with upper, lower & number.",
	"consent":  "Consent is required.",
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func publicUser(u *models.User) fiber.Map {
	return fiber.Map{
		"id":    u.ID,
		"role":  u.Role,
		"name":  u.FullName,
		"email": u.Email,
	}
}

// Register godoc
// @Summary Register a candidate
// @Description Creates a candidate with a pending identity verification and signs them in
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Param fullName formData string true "Full name"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param consent formData string true "Must be true"
// @Param selfie formData file true "Selfie"
// @Param idDoc formData file true "Identity document"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Expected form-data")
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Expected form-data")
	}
	if err := validateStruct(&req, registerMessages); err != nil {
		return err
	}

	selfie, idDoc := firstFile(form, "selfie"), firstFile(form, "idDoc")
	if selfie == nil || idDoc == nil {
		return apperr.FilesRequired()
	}

	ctx := c.UserContext()
	var count int64
	if err := ac.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return emailExists()
	}

	// both documents are checked before either is stored
	selfieFile, err := ac.readUpload(selfie)
	if err != nil {
		return err
	}
	idDocFile, err := ac.readUpload(idDoc)
	if err != nil {
		return err
	}

	var saved []string
	registered := false
	defer func() {
		if !registered {
			ac.discardUploads(ctx, saved)
		}
	}()

	selfieURL, err := ac.saveUpload(ctx, selfieFile, "selfie")
	if err != nil {
		return err
	}
	saved = append(saved, selfieURL)
	idDocURL, err := ac.saveUpload(ctx, idDocFile, "id")
	if err != nil {
		return err
	}
	saved = append(saved, idDocURL)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleCandidate,
		FullName:     req.FullName,
		Phone:        optional(req.Phone),
		Country:      optional(req.Country),
		City:         optional(req.City),
		KYCStatus:    models.VerificationPending,
	}
	err = ac.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.IdentityVerification{
			UserID:    user.ID,
			SelfieURL: selfieURL,
			IDDocURL:  idDocURL,
			Status:    models.VerificationPending,
			ConsentAt: time.Now(),
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return emailExists()
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	registered = true

	if err := utils.SetSessionCookie(c, &user, ac.Cfg); err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	metrics.Registrations.Inc()
	ac.Log.Info("candidate registered", "user_id", user.ID)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": publicUser(&user)})
}

func (ac *AuthController) readUpload(fh *multipart.FileHeader) (*storage.File, error) {
	limit := ac.Cfg.UploadMaxBytes
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Upload("Failed to save files.", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, apperr.Upload("Failed to save files.", err)
	}
	return storage.Validate(data, limit)
}

func (ac *AuthController) saveUpload(ctx context.Context, file *storage.File, prefix string) (string, error) {
	ref, err := ac.Uploads.Save(ctx, prefix, file)
	if err != nil {
		ac.Log.Error("saving upload failed", "prefix", prefix, "error", err)
		return "", apperr.Upload("Failed to save files.", err)
	}
	return ref, nil
}

// discardUploads removes documents stored for a registration that did not complete.
func (ac *AuthController) discardUploads(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := ac.Uploads.Delete(context.WithoutCancel(ctx), ref); err != nil {
			ac.Log.Warn("removing orphaned upload failed", "ref", ref, "error", err)
		}
	}
}

// Login godoc
// @Summary Sign in
// @Description Checks credentials and sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest(apperr.CodeBadRequest, "Cannot parse JSON")
	}
	if err := validateStruct(&req, nil); err != nil {
		return err
	}

	var user models.User
	err := ac.DB.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidCredentials()
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return invalidCredentials()
	}

	if err := utils.SetSessionCookie(c, &user, ac.Cfg); err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": publicUser(&user)})
}

// Logout godoc
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /auth/logout [post]
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	utils.ClearSessionCookie(c, ac.Cfg)
	return utils.Success(c, fiber.StatusOK, nil)
}

func firstFile(form *multipart.Form, name string) *multipart.FileHeader {
	if files := form.File[name]; len(files) > 0 {
		return files[0]
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emailExists() error {
	return apperr.Conflict(apperr.CodeEmailExists, "This email is already registered.")
}

func invalidCredentials() error {
	return apperr.New(http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid email or password.", nil)
}
