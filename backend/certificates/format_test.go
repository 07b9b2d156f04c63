package certificates

import (
	"bytes"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proficiency/backend/models"
	"proficiency/backend/utils"
)

func TestDescriptor(t *testing.T) {
	assert.Equal(t, "Can understand with ease virtually everything heard or read and can express themselves spontaneously, very fluently and precisely.", Descriptor(models.LevelC2))
	assert.Equal(t, descriptors[models.LevelA1], Descriptor("Z9"))
	assert.Equal(t, descriptors[models.LevelA1], Descriptor(""))
	for _, l := range models.Levels {
		assert.NotEmpty(t, descriptors[l], "level %s", l)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"  jane   van DOE ": "Jane Van Doe",
		"ÉLODIE martin":     "Élodie Martin",
		"mary-jane o'neil":  "Mary-jane O'neil",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, DisplayName(in), "input %q", in)
	}
}

func TestNewCertificateID(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	for i := 0; i < 100; i++ {
		id := NewCertificateID(r)
		assert.Regexp(t, `^T-\d{7}$`, id)
	}
}

func TestVerifyURL(t *testing.T) {
	assert.Equal(t, "https://x.org/verify/abc", VerifyURL("https://x.org/", "abc"))
	assert.Equal(t, "https://x.org/verify/abc", VerifyURL("https://x.org", "abc"))
}

func TestISOTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 30, 0, 123456789, time.FixedZone("CET", 3600))
	assert.Equal(t, "2025-03-01T09:30:00.123Z", ISOTimestamp(ts))
}

func TestQRDataURL(t *testing.T) {
	u, err := QRDataURL("https://cert.example.org/verify/abc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(u), "data:image/png;base64,"))
}

func TestPlaceholderLogo(t *testing.T) {
	data, err := PlaceholderLogo()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 420, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestResolveLogo(t *testing.T) {
	log := utils.NewNopLogger()
	dir := t.TempDir()
	svg := filepath.Join(dir, "logo.svg")
	require.NoError(t, os.WriteFile(svg, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o644))

	assert.True(t, strings.HasPrefix(string(ResolveLogo(LogoSource{File: svg}, log)), "data:image/svg+xml;base64,"))

	missing := filepath.Join(dir, "nope.png")
	assert.Equal(t, "https://cdn.example.org/logo.png",
		string(ResolveLogo(LogoSource{File: missing, URL: "https://cdn.example.org/logo.png"}, log)))

	assert.True(t, strings.HasPrefix(string(ResolveLogo(LogoSource{URL: "ftp://nope"}, log)), "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(string(ResolveLogo(LogoSource{}, log)), "data:image/png;base64,"))
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(View{
		Platform:      DefaultPlatform,
		LogoURL:       "data:image/png;base64,AAAA",
		Name:          "Jane Doe",
		Level:         models.LevelB2,
		Ladder:        models.Levels,
		CertificateID: "T-0000042",
		AttemptID:     7,
		IssuedAt:      "2025-03-01T09:30:00.000Z",
		Region:        "European Union",
		Descriptor:    Descriptor(models.LevelB2),
		VerifyURL:     "https://cert.example.org/verify/abc",
		QRDataURL:     "data:image/png;base64,BBBB",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	for _, want := range []string{
		"Jane Doe", "T-0000042", "2025-03-01T09:30:00.000Z", "European Union",
		"https://cert.example.org/verify/abc", `src="data:image/png;base64,AAAA"`,
		`src="data:image/png;base64,BBBB"`, `<span class="current">B2</span>`,
		"<span>C2</span>", Descriptor(models.LevelB2),
	} {
		assert.Contains(t, html, want)
	}
}
