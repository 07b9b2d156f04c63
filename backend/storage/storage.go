// Package storage validates and persists identity documents uploaded at registration.
package storage

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"proficiency/backend/apperr"
	"proficiency/backend/config"
	"proficiency/backend/utils"
)

var allowed = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

var ErrUnsupportedType = apperr.Upload("Unsupported file type.", nil)

// TooLarge is the error for a file over maxBytes.
func TooLarge(maxBytes int64) error {
	return apperr.Upload(fmt.Sprintf("File too large (max %dMB).", maxBytes>>20), nil)
}

// File is an upload that passed validation.
type File struct {
	Data []byte
	MIME string
	Ext  string
}

// Store persists a validated file and returns a reference to it. Delete
// removes a file by the reference Save returned.
type Store interface {
	Save(ctx context.Context, prefix string, f *File) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Validate checks the size limit and sniffs the content type. The type the
// client declared is ignored.
func Validate(data []byte, maxBytes int64) (*File, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, TooLarge(maxBytes)
	}
	mt := mimetype.Detect(data)
	for _, m := range allowed {
		if mt.Is(m) {
			return &File{Data: data, MIME: m, Ext: extension(m)}, nil
		}
	}
	return nil, ErrUnsupportedType
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}

// New returns the store selected by UPLOAD_DRIVER.
func New(ctx context.Context, cfg *config.Config, log *utils.Logger) (Store, error) {
	switch cfg.UploadDriver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "minio":
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		}, log)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.UploadDriver)
	}
}
