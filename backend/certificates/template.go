package certificates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"proficiency/backend/models"
)

//go:embed templates/certificate.html
var templateFS embed.FS

var certificateTemplate = template.Must(template.ParseFS(templateFS, "templates/certificate.html"))

// View is everything printed on a certificate.
type View struct {
	Platform      string
	LogoURL       template.URL
	Name          string
	Level         models.Level
	Ladder        []models.Level
	CertificateID string
	AttemptID     uint
	IssuedAt      string
	Region        string
	Descriptor    string
	VerifyURL     string
	QRDataURL     template.URL
}

func RenderHTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := certificateTemplate.ExecuteTemplate(&buf, "certificate.html", v); err != nil {
		return "", fmt.Errorf("execute certificate template: %w", err)
	}
	return buf.String(), nil
}
