// Package attempts assembles test attempts from the question bank.
package attempts

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/metrics"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

var ErrNoQuestionsConfigured = apperr.Conflict(apperr.CodeNoQuestionsConfigured, "No questions configured.")

// Assembler draws a per-level quota of questions and freezes them into a new attempt.
type Assembler struct {
	db  *gorm.DB
	log *utils.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

type Option func(*Assembler)

// WithRand replaces the random source; tests pass a seeded generator.
func WithRand(r *rand.Rand) Option {
	return func(a *Assembler) { a.rng = r }
}

func WithLogger(l *utils.Logger) Option {
	return func(a *Assembler) { a.log = l.With("service", "Assembler") }
}

func NewAssembler(db *gorm.DB, opts ...Option) *Assembler {
	a := &Assembler{
		db:  db,
		log: utils.NewNopLogger(),
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Shuffle permutes s in place with Fisher–Yates, uniformly over all orderings.
func Shuffle[T any](r *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Select picks min(quota, available) questions per level, in level order, and
// snapshots them. The bank is not modified.
func (a *Assembler) Select(criteria models.Criteria, bank map[models.Level][]models.Question) []models.AttemptItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	var items []models.AttemptItem
	for _, tag := range models.Levels {
		need := criteria[tag]
		if need <= 0 {
			continue
		}

		qs := slices.Clone(bank[tag])
		Shuffle(a.rng, qs)
		qs = qs[:min(need, len(qs))]

		for _, q := range qs {
			items = append(items, snapshot(q, len(items)))
		}
	}
	return items
}

func snapshot(q models.Question, position int) models.AttemptItem {
	opts := slices.Clone(q.Options)
	slices.SortStableFunc(opts, func(x, y models.Option) int { return x.Position - y.Position })

	optionIDs := make([]uint, 0, len(opts))
	correctIDs := make([]uint, 0, 1)
	for _, o := range opts {
		optionIDs = append(optionIDs, o.ID)
		if o.IsCorrect {
			correctIDs = append(correctIDs, o.ID)
		}
	}

	return models.AttemptItem{
		Position:         position,
		Tag:              q.Tag,
		QuestionID:       q.ID,
		AllowMultiple:    q.AllowMultiple,
		OptionIDs:        optionIDs,
		CorrectOptionIDs: correctIDs,
	}
}

// Start creates an IN_PROGRESS attempt for userID using criteria. Attempt and
// items are written in one transaction.
func (a *Assembler) Start(ctx context.Context, userID uint, criteria models.Criteria) (*models.Attempt, error) {
	bank, err := a.loadBank(ctx, criteria)
	if err != nil {
		return nil, err
	}

	items := a.Select(criteria, bank)
	if len(items) == 0 {
		return nil, ErrNoQuestionsConfigured
	}

	attempt := &models.Attempt{
		UserID: userID,
		Status: models.AttemptInProgress,
		Items:  items,
	}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(attempt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	metrics.AttemptsStarted.Inc()
	metrics.AttemptItems.Observe(float64(len(items)))
	a.log.Info("attempt started", "attempt_id", attempt.ID, "user_id", userID, "items", len(items))
	return attempt, nil
}

func (a *Assembler) loadBank(ctx context.Context, criteria models.Criteria) (map[models.Level][]models.Question, error) {
	bank := make(map[models.Level][]models.Question)
	for _, tag := range models.Levels {
		if criteria[tag] <= 0 {
			continue
		}

		var qs []models.Question
		err := a.db.WithContext(ctx).
			Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Where("tag = ?", tag).
			Order("id ASC").
			Find(&qs).Error
		if err != nil {
			return nil, fmt.Errorf("load %s questions: %w", tag, err)
		}
		bank[tag] = qs
	}
	return bank, nil
}
