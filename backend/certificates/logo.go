package certificates

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"

	"proficiency/backend/utils"
)

// LogoSource lists where the certificate logo may come from, in priority order.
type LogoSource struct {
	File string
	URL  string
}

// ResolveLogo returns the logo as an image URL. Failures are logged and
// degrade to a generated placeholder.
func ResolveLogo(src LogoSource, log *utils.Logger) template.URL {
	if src.File != "" {
		data, err := os.ReadFile(src.File)
		switch {
		case err == nil:
			mime := "image/png"
			if strings.EqualFold(filepath.Ext(src.File), ".svg") {
				mime = "image/svg+xml"
			}
			return dataURL(mime, data)
		case !errors.Is(err, fs.ErrNotExist):
			log.Warn("could not read certificate logo, using placeholder", "file", src.File, "error", err)
		}
	}

	if u := strings.TrimSpace(src.URL); u != "" {
		lu := strings.ToLower(u)
		if strings.HasPrefix(lu, "http://") || strings.HasPrefix(lu, "https://") {
			return template.URL(u)
		}
	}

	logo, err := placeholderLogo()
	if err != nil {
		log.Warn("could not generate placeholder logo", "error", err)
		return ""
	}
	return logo
}

var placeholderLogo = sync.OnceValues(func() (template.URL, error) {
	png, err := PlaceholderLogo()
	if err != nil {
		return "", err
	}
	return dataURL("image/png", png), nil
})

// PlaceholderLogo draws the platform name on a sky-blue banner.
func PlaceholderLogo() ([]byte, error) {
	const w, h = 420, 120

	dc := gg.NewContext(w, h)
	dc.SetHexColor("#0ea5e9")
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetHexColor("#ffffff")
	dc.ScaleAbout(2.5, 2.5, w/2, h/2)
	dc.DrawStringAnchored("English Proficiency", w/2, h/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
