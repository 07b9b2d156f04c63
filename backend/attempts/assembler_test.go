package attempts

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/models"
	"proficiency/backend/testutil"
)

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func fakeBank(counts map[models.Level]int) map[models.Level][]models.Question {
	bank := make(map[models.Level][]models.Question)
	id := uint(1)
	for tag, n := range counts {
		for i := 0; i < n; i++ {
			q := models.Question{Tag: tag}
			q.ID = id
			o1 := models.Option{Position: 2, IsCorrect: true}
			o1.ID = id*10 + 2
			o2 := models.Option{Position: 1}
			o2.ID = id*10 + 1
			q.Options = []models.Option{o1, o2}
			bank[tag] = append(bank[tag], q)
			id++
		}
	}
	return bank
}

func TestShuffleIsUniform(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	counts := map[string]int{}
	const runs = 60000
	for i := 0; i < runs; i++ {
		s := []int{1, 2, 3}
		Shuffle(r, s)
		counts[fmt.Sprint(s)]++
	}

	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, runs/6, n, runs/60, "permutation %s", perm)
	}
}

func TestShuffleKeepsElements(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	s := []int{5, 4, 3, 2, 1}
	Shuffle(r, s)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, s)

	var empty []int
	Shuffle(r, empty)
	assert.Empty(t, empty)
}

func TestSelectCountIsSumOfCappedQuotas(t *testing.T) {
	bank := fakeBank(map[models.Level]int{models.LevelA1: 5, models.LevelB1: 2, models.LevelC2: 0})
	cases := []struct {
		criteria models.Criteria
		want     int
	}{
		{models.Criteria{}, 0},
		{models.Criteria{models.LevelA1: 0, models.LevelB1: 0}, 0},
		{models.Criteria{models.LevelA1: 3}, 3},
		{models.Criteria{models.LevelA1: 9}, 5},
		{models.Criteria{models.LevelA1: 2, models.LevelB1: 4, models.LevelC2: 3}, 4},
		{models.Criteria{models.LevelA1: -1, models.LevelB1: 1}, 1},
	}

	a := NewAssembler(nil, seeded(3))
	for _, tc := range cases {
		items := a.Select(tc.criteria, bank)
		assert.Len(t, items, tc.want, "criteria %v", tc.criteria)
	}
}

func TestSelectGroupsByLevelOrder(t *testing.T) {
	bank := fakeBank(map[models.Level]int{models.LevelA1: 5, models.LevelB2: 3})
	a := NewAssembler(nil, seeded(11))

	items := a.Select(models.Criteria{models.LevelB2: 1, models.LevelA1: 2}, bank)

	require.Len(t, items, 3)
	assert.Equal(t, models.LevelA1, items[0].Tag)
	assert.Equal(t, models.LevelA1, items[1].Tag)
	assert.Equal(t, models.LevelB2, items[2].Tag)
	assert.NotEqual(t, items[0].QuestionID, items[1].QuestionID)
	for i, it := range items {
		assert.Equal(t, i, it.Position)
	}
}

func TestSelectSnapshotsOptionsInDisplayOrder(t *testing.T) {
	bank := fakeBank(map[models.Level]int{models.LevelA2: 1})
	a := NewAssembler(nil, seeded(5))

	items := a.Select(models.Criteria{models.LevelA2: 1}, bank)

	require.Len(t, items, 1)
	assert.Equal(t, []uint{11, 12}, []uint(items[0].OptionIDs))
	assert.Equal(t, []uint{12}, []uint(items[0].CorrectOptionIDs))
	// the bank's own option slice is left untouched
	assert.Equal(t, 2, bank[models.LevelA2][0].Options[0].Position)
}

func TestSelectIsDeterministicForSeed(t *testing.T) {
	bank := fakeBank(map[models.Level]int{models.LevelB1: 10})
	criteria := models.Criteria{models.LevelB1: 4}

	first := NewAssembler(nil, seeded(42)).Select(criteria, bank)
	second := NewAssembler(nil, seeded(42)).Select(criteria, bank)

	require.Len(t, first, 4)
	for i := range first {
		assert.Equal(t, first[i].QuestionID, second[i].QuestionID)
	}
}

func TestStartPersistsSnapshot(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "cand@example.com", models.RoleCandidate)
	testutil.CreateQuestions(t, db, models.LevelA1, 5)
	testutil.CreateQuestions(t, db, models.LevelB2, 3)

	a := NewAssembler(db, seeded(9))
	attempt, err := a.Start(context.Background(), user.ID, models.Criteria{models.LevelA1: 2, models.LevelB2: 1})
	require.NoError(t, err)

	var stored models.Attempt
	require.NoError(t, db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).First(&stored, attempt.ID).Error)
	assert.Equal(t, models.AttemptInProgress, stored.Status)
	assert.Equal(t, user.ID, stored.UserID)
	assert.False(t, stored.Issued())
	require.Len(t, stored.Items, 3)
	assert.Equal(t, models.LevelA1, stored.Items[0].Tag)
	assert.Equal(t, models.LevelA1, stored.Items[1].Tag)
	assert.Equal(t, models.LevelB2, stored.Items[2].Tag)

	// editing the bank afterwards leaves the frozen key alone
	item := stored.Items[0]
	require.Len(t, item.CorrectOptionIDs, 1)
	correct := item.CorrectOptionIDs[0]
	require.NoError(t, db.Model(&models.Option{}).Where("question_id = ?", item.QuestionID).Update("is_correct", false).Error)

	var reloaded models.AttemptItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, []uint{correct}, []uint(reloaded.CorrectOptionIDs))
	assert.Len(t, reloaded.OptionIDs, 3)
}

func TestStartWithoutQuestionsConflicts(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "cand@example.com", models.RoleCandidate)
	a := NewAssembler(db)

	for _, criteria := range []models.Criteria{{}, {models.LevelC1: 0}, {models.LevelC1: 3}} {
		_, err := a.Start(context.Background(), user.ID, criteria)
		require.Error(t, err)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, e.Status)
		assert.Equal(t, apperr.CodeNoQuestionsConfigured, e.Code)
	}

	var count int64
	db.Model(&models.Attempt{}).Count(&count)
	assert.Zero(t, count)
}
