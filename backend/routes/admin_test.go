package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proficiency/backend/apperr"
	"proficiency/backend/attempts"
	"proficiency/backend/models"
	"proficiency/backend/testutil"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := setup(t)
	candidate := testutil.CreateUser(t, e.db, "c@example.com", models.RoleCandidate)

	for _, path := range []string{"/api/admin/settings", "/api/admin/questions", "/api/admin/users", "/api/admin/verifications"} {
		resp := e.doJSON(t, http.MethodGet, path, nil, e.cookieFor(t, candidate))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestAdminSettings(t *testing.T) {
	e := setup(t)
	admin := e.cookieFor(t, testutil.CreateUser(t, e.db, "a@example.com", models.RoleAdmin))

	resp := e.doJSON(t, http.MethodPut, "/api/admin/settings", map[string]interface{}{
		"criteria": map[string]int{"A1": 2, "D9": 1, "B1": -1},
	}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	env := decode(t, resp)
	assert.Equal(t, "Unknown level.", env.Error.Details["D9"])
	assert.Equal(t, "Quota must not be negative.", env.Error.Details["B1"])

	resp = e.doJSON(t, http.MethodPut, "/api/admin/settings", map[string]interface{}{
		"criteria": map[string]int{"A1": 2, "C2": 1},
	}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	criteria, err := attempts.LoadCriteria(context.Background(), e.db)
	require.NoError(t, err)
	assert.Equal(t, models.Criteria{models.LevelA1: 2, models.LevelC2: 1}, criteria)

	resp = e.doJSON(t, http.MethodGet, "/api/admin/settings", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data struct {
		Criteria models.Criteria `json:"criteria"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &data))
	assert.Equal(t, criteria, data.Criteria)
}

func TestAdminQuestions(t *testing.T) {
	e := setup(t)
	admin := e.cookieFor(t, testutil.CreateUser(t, e.db, "a@example.com", models.RoleAdmin))

	bad := []map[string]interface{}{
		{"tag": "Z1", "text": "?", "options": []map[string]interface{}{{"text": "a", "isCorrect": true}, {"text": "b"}}},
		{"tag": "A1", "text": "?", "options": []map[string]interface{}{{"text": "a", "isCorrect": true}}},
		{"tag": "A1", "text": "?", "options": []map[string]interface{}{{"text": "a"}, {"text": "b"}}},
		{"tag": "A1", "text": "?", "options": []map[string]interface{}{{"text": "a", "isCorrect": true}, {"text": "b", "isCorrect": true}}},
	}
	for i, body := range bad {
		resp := e.doJSON(t, http.MethodPost, "/api/admin/questions", body, admin)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "case %d", i)
		assert.Equal(t, apperr.CodeValidation, decode(t, resp).Error.Code, "case %d", i)
	}

	resp := e.doJSON(t, http.MethodPost, "/api/admin/questions", map[string]interface{}{
		"tag": "b2", "text": "Pick both", "allowMultiple": true,
		"options": []map[string]interface{}{
			{"text": "first", "isCorrect": true},
			{"text": "second"},
			{"text": "third", "isCorrect": true},
		},
	}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID      uint         `json:"id"`
		Tag     models.Level `json:"tag"`
		Options []struct {
			Text      string `json:"text"`
			Order     int    `json:"order"`
			IsCorrect bool   `json:"isCorrect"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))
	assert.Equal(t, models.LevelB2, created.Tag)
	require.Len(t, created.Options, 3)
	assert.Equal(t, "third", created.Options[2].Text)
	assert.Equal(t, 3, created.Options[2].Order)
	assert.True(t, created.Options[2].IsCorrect)

	testutil.CreateQuestions(t, e.db, models.LevelA1, 2)
	resp = e.doJSON(t, http.MethodGet, "/api/admin/questions?tag=B2", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Total int64             `json:"total"`
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Len(t, page.Items, 1)

	resp = e.doJSON(t, http.MethodDelete, "/api/admin/questions/"+strconv.FormatUint(uint64(created.ID), 10), nil, admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = e.doJSON(t, http.MethodDelete, "/api/admin/questions/"+strconv.FormatUint(uint64(created.ID), 10), nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminReviewVerification(t *testing.T) {
	e := setup(t)
	admin := e.cookieFor(t, testutil.CreateUser(t, e.db, "a@example.com", models.RoleAdmin))
	candidate := testutil.CreateUser(t, e.db, "c@example.com", models.RoleCandidate)
	v := models.IdentityVerification{
		UserID:    candidate.ID,
		SelfieURL: "/uploads/selfie_x.png",
		IDDocURL:  "/uploads/id_x.pdf",
		Status:    models.VerificationPending,
	}
	require.NoError(t, e.db.Create(&v).Error)
	path := "/api/admin/verifications/" + strconv.FormatUint(uint64(v.ID), 10)

	resp := e.doJSON(t, http.MethodGet, "/api/admin/verifications?status=pending", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []models.IdentityVerification
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &pending))
	assert.Len(t, pending, 1)

	resp = e.doJSON(t, http.MethodPut, path, map[string]string{"status": "MAYBE"}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = e.doJSON(t, http.MethodPut, "/api/admin/verifications/999", map[string]string{"status": "APPROVED"}, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.doJSON(t, http.MethodPut, path, map[string]string{"status": "APPROVED", "note": "looks fine"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.IdentityVerification
	require.NoError(t, e.db.First(&stored, v.ID).Error)
	assert.Equal(t, models.VerificationApproved, stored.Status)
	assert.Equal(t, "looks fine", stored.ReviewNote)
	assert.NotNil(t, stored.ReviewedAt)

	var user models.User
	require.NoError(t, e.db.First(&user, candidate.ID).Error)
	assert.Equal(t, models.VerificationApproved, user.KYCStatus)
}

func TestAdminListUsers(t *testing.T) {
	e := setup(t)
	admin := e.cookieFor(t, testutil.CreateUser(t, e.db, "a@example.com", models.RoleAdmin))
	testutil.CreateUser(t, e.db, "c1@example.com", models.RoleCandidate)
	testutil.CreateUser(t, e.db, "c2@example.com", models.RoleCandidate)

	resp := e.doJSON(t, http.MethodGet, "/api/admin/users?role=candidate&page_size=1", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Total    int64                    `json:"total"`
		PageSize int                      `json:"pageSize"`
		Items    []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c1@example.com", page.Items[0]["email"])
	assert.NotContains(t, page.Items[0], "passwordHash")
}

func TestMetricsEndpoint(t *testing.T) {
	e := setup(t)
	resp := e.doJSON(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminAnalytics(t *testing.T) {
	e := setup(t)
	admin := e.cookieFor(t, testutil.CreateUser(t, e.db, "a@example.com", models.RoleAdmin))
	candidate := testutil.CreateUser(t, e.db, "c@example.com", models.RoleCandidate)
	testutil.CreateSubmittedAttempt(t, e.db, candidate.ID, models.LevelB2)
	testutil.CreateSubmittedAttempt(t, e.db, candidate.ID, models.LevelB2)
	testutil.CreateSubmittedAttempt(t, e.db, candidate.ID, models.LevelC1)

	resp := e.doJSON(t, http.MethodGet, "/api/admin/analytics?start_date=yesterday", nil, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.doJSON(t, http.MethodGet, "/api/admin/analytics", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data struct {
		Registrations     int64 `json:"registrations"`
		AttemptsStarted   int64 `json:"attemptsStarted"`
		AttemptsSubmitted int64 `json:"attemptsSubmitted"`
		Levels            []struct {
			Level models.Level `json:"level"`
			Count int64        `json:"count"`
		} `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &data))
	assert.Equal(t, int64(1), data.Registrations)
	assert.Equal(t, int64(3), data.AttemptsStarted)
	assert.Equal(t, int64(3), data.AttemptsSubmitted)
	require.Len(t, data.Levels, 2)
	assert.Equal(t, models.LevelB2, data.Levels[0].Level)
	assert.Equal(t, int64(2), data.Levels[0].Count)
}
