// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"proficiency/backend/config"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), utils.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, utils.Migrate(db))
	return db
}

func Config() *config.Config {
	return &config.Config{
		JWTSecret:         "testsecret",
		AccessTokenTTL:    time.Hour,
		PublicBaseURL:     "https://cert.example.org",
		UploadMaxBytes:    5 * 1024 * 1024,
		CertDefaultRegion: "European Union",
		RenderTimeout:     5 * time.Second,
	}
}

func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rdX"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     "jane   van DOE",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateQuestions inserts n questions for tag with three options each; the
// second option is the correct one.
func CreateQuestions(t *testing.T, db *gorm.DB, tag models.Level, n int) []models.Question {
	t.Helper()

	out := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		q := models.Question{
			Tag:  tag,
			Text: fmt.Sprintf("%s question %d", tag, i+1),
			Options: []models.Option{
				{Text: "first", Position: 1},
				{Text: "second", Position: 2, IsCorrect: true},
				{Text: "third", Position: 3},
			},
		}
		require.NoError(t, db.Create(&q).Error)
		out = append(out, q)
	}
	return out
}

// CreateSubmittedAttempt stores an attempt that already went through the submission flow.
func CreateSubmittedAttempt(t *testing.T, db *gorm.DB, userID uint, level models.Level) *models.Attempt {
	t.Helper()

	now := time.Now()
	score := 87.5
	attempt := &models.Attempt{
		UserID:      userID,
		Status:      models.AttemptSubmitted,
		Score:       &score,
		Level:       level,
		SubmittedAt: &now,
	}
	require.NoError(t, db.Create(attempt).Error)
	return attempt
}
