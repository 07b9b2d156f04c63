// Package certificates issues and renders proficiency certificates.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"proficiency/backend/apperr"
	"proficiency/backend/metrics"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

const (
	DefaultPlatform = "English Proficiency Platform"

	// attempts at drawing a certificate id that is not taken yet
	maxIssueAttempts = 5
)

type Options struct {
	Platform      string
	BaseURL       string
	DefaultRegion string
	Logo          LogoSource
	// RenderTimeout bounds a single HTML to PDF conversion. Zero means no limit.
	RenderTimeout time.Duration
}

// Document is a rendered certificate together with its stable identifiers.
type Document struct {
	AttemptID     uint
	CertificateID string
	VerifySlug    string
	IssuedAt      time.Time
	PDF           []byte
}

func (d *Document) Filename() string {
	return d.CertificateID + ".pdf"
}

// Verification is the public view of an issued certificate.
type Verification struct {
	CertificateID string       `json:"certificateId"`
	AttemptID     uint         `json:"attemptId"`
	Name          string       `json:"name"`
	Level         models.Level `json:"level"`
	Region        string       `json:"region"`
	IssuedAt      time.Time    `json:"issuedAt"`
}

type Issuer struct {
	db       *gorm.DB
	renderer Renderer
	opts     Options
	log      *utils.Logger
	now      func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

func NewIssuer(db *gorm.DB, renderer Renderer, opts Options, log *utils.Logger) *Issuer {
	if opts.Platform == "" {
		opts.Platform = DefaultPlatform
	}
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = "European Union"
	}
	return &Issuer{
		db:       db,
		renderer: renderer,
		opts:     opts,
		log:      log.With("service", "CertificateIssuer"),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Issue returns the certificate of a submitted attempt, assigning its
// identifiers on the first call. Only the owner or an administrator may read
// it; everyone else gets NotFound.
func (i *Issuer) Issue(ctx context.Context, attemptID uint, requester *utils.Session) (*Document, error) {
	if requester == nil {
		return nil, apperr.Unauthorized()
	}

	var attempt models.Attempt
	err := i.db.WithContext(ctx).Preload("User").First(&attempt, attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt %d: %w", attemptID, err)
	}
	if !requester.IsAdmin() && attempt.UserID != requester.UserID {
		return nil, apperr.NotFound("Not found")
	}
	if attempt.Status != models.AttemptSubmitted {
		return nil, apperr.Conflict(apperr.CodeAttemptNotSubmitted, "Attempt not submitted")
	}

	if err := i.ensureIssued(ctx, &attempt); err != nil {
		return nil, err
	}

	html, err := i.html(&attempt)
	if err != nil {
		return nil, err
	}

	pdf, err := i.render(ctx, html)
	if err != nil {
		i.log.Error("certificate render failed", "attempt_id", attempt.ID, "error", err)
		return nil, apperr.Unavailable(err)
	}

	return &Document{
		AttemptID:     attempt.ID,
		CertificateID: *attempt.CertificateID,
		VerifySlug:    *attempt.VerifySlug,
		IssuedAt:      *attempt.IssuedAt,
		PDF:           pdf,
	}, nil
}

// ensureIssued assigns certificate id, slug and issue time in one conditional
// update. If another request won the race the stored triple is read back.
func (i *Issuer) ensureIssued(ctx context.Context, attempt *models.Attempt) error {
	if attempt.Issued() {
		return nil
	}

	db := i.db.WithContext(ctx)
	for try := 0; try < maxIssueAttempts; try++ {
		certificateID := i.newCertificateID()
		slug := uuid.NewString()
		issuedAt := i.now().UTC().Truncate(time.Microsecond)

		res := db.Model(&models.Attempt{}).
			Where("id = ? AND (certificate_id IS NULL OR verify_slug IS NULL OR issued_at IS NULL)", attempt.ID).
			Updates(map[string]interface{}{
				"certificate_id": certificateID,
				"verify_slug":    slug,
				"issued_at":      issuedAt,
			})
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			i.log.Warn("certificate id collision, retrying", "certificate_id", certificateID)
			continue
		}
		if res.Error != nil {
			return fmt.Errorf("issue certificate for attempt %d: %w", attempt.ID, res.Error)
		}

		if res.RowsAffected == 1 {
			attempt.CertificateID = &certificateID
			attempt.VerifySlug = &slug
			attempt.IssuedAt = &issuedAt
			metrics.CertificatesIssued.Inc()
			i.log.Info("certificate issued", "attempt_id", attempt.ID, "certificate_id", certificateID)
			return nil
		}

		var current models.Attempt
		if err := db.Select("id", "certificate_id", "verify_slug", "issued_at").First(&current, attempt.ID).Error; err != nil {
			return fmt.Errorf("reload issued attempt %d: %w", attempt.ID, err)
		}
		if !current.Issued() {
			return fmt.Errorf("attempt %d: issuance was not recorded", attempt.ID)
		}
		attempt.CertificateID = current.CertificateID
		attempt.VerifySlug = current.VerifySlug
		attempt.IssuedAt = current.IssuedAt
		return nil
	}
	return fmt.Errorf("attempt %d: no free certificate id after %d tries", attempt.ID, maxIssueAttempts)
}

func (i *Issuer) newCertificateID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return NewCertificateID(i.rng)
}

func (i *Issuer) html(attempt *models.Attempt) (string, error) {
	region := attempt.Region
	if region == "" {
		region = i.opts.DefaultRegion
	}
	level := printedLevel(attempt.Level)

	verifyURL := VerifyURL(i.opts.BaseURL, *attempt.VerifySlug)
	qr, err := QRDataURL(verifyURL)
	if err != nil {
		return "", err
	}

	return RenderHTML(View{
		Platform:      i.opts.Platform,
		LogoURL:       ResolveLogo(i.opts.Logo, i.log),
		Name:          DisplayName(attempt.User.FullName),
		Level:         level,
		Ladder:        models.Levels,
		CertificateID: *attempt.CertificateID,
		AttemptID:     attempt.ID,
		IssuedAt:      ISOTimestamp(*attempt.IssuedAt),
		Region:        region,
		Descriptor:    Descriptor(level),
		VerifyURL:     verifyURL,
		QRDataURL:     qr,
	})
}

func (i *Issuer) render(ctx context.Context, html string) ([]byte, error) {
	if i.opts.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.RenderTimeout)
		defer cancel()
	}

	start := time.Now()
	pdf, err := i.renderer.Render(ctx, html)
	metrics.CertificateRenderSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CertificateRenders.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CertificateRenders.WithLabelValues("ok").Inc()
	return pdf, nil
}

// printedLevel returns the level shown on certificates. Empty or unknown
// levels are printed as A1.
func printedLevel(l models.Level) models.Level {
	if level, ok := models.ParseLevel(string(l)); ok {
		return level
	}
	return models.LevelA1
}

// Verify looks up an issued certificate by its verification slug.
func (i *Issuer) Verify(ctx context.Context, slug string) (*Verification, error) {
	if _, err := uuid.Parse(slug); err != nil {
		return nil, apperr.NotFound("Certificate not found")
	}

	var attempt models.Attempt
	err := i.db.WithContext(ctx).Preload("User").Where("verify_slug = ?", slug).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !attempt.Issued()) {
		return nil, apperr.NotFound("Certificate not found")
	}
	if err != nil {
		return nil, fmt.Errorf("verify certificate: %w", err)
	}

	level := printedLevel(attempt.Level)
	region := attempt.Region
	if region == "" {
		region = i.opts.DefaultRegion
	}
	return &Verification{
		CertificateID: *attempt.CertificateID,
		AttemptID:     attempt.ID,
		Name:          DisplayName(attempt.User.FullName),
		Level:         level,
		Region:        region,
		IssuedAt:      *attempt.IssuedAt,
	}, nil
}
