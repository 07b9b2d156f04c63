package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"proficiency/backend/attempts"
	"proficiency/backend/certificates"
	"proficiency/backend/config"
	"proficiency/backend/models"
	"proficiency/backend/storage"
	"proficiency/backend/testutil"
	"proficiency/backend/utils"
)

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 test"), nil
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	cfg      *config.Config
	renderer *fakeRenderer
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	return setupWithStore(t, nil)
}

// setupWithStore lets a test wrap the local upload store.
func setupWithStore(t *testing.T, wrap func(*gorm.DB, storage.Store) storage.Store) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := testutil.Config()
	cfg.UploadDir = t.TempDir()
	cfg.CORSOrigins = "http://localhost:3000"
	log := utils.NewNopLogger()

	local, err := storage.NewLocalStore(cfg.UploadDir)
	require.NoError(t, err)
	var uploads storage.Store = local
	if wrap != nil {
		uploads = wrap(db, local)
	}

	renderer := &fakeRenderer{}
	app := NewApp(Dependencies{
		DB:        db,
		Cfg:       cfg,
		Log:       log,
		Uploads:   uploads,
		Assembler: attempts.NewAssembler(db, attempts.WithRand(rand.New(rand.NewPCG(7, 11)))),
		Issuer: certificates.NewIssuer(db, renderer, certificates.Options{
			BaseURL:       cfg.PublicBaseURL,
			RenderTimeout: cfg.RenderTimeout,
		}, log),
	})
	return &testEnv{app: app, db: db, cfg: cfg, renderer: renderer}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *http.Response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req, cookie)
}

func (e *testEnv) cookieFor(t *testing.T, u *models.User) *http.Cookie {
	t.Helper()
	token, err := utils.GenerateJWTToken(u, e.cfg)
	require.NoError(t, err)
	return &http.Cookie{Name: utils.SessionCookie, Value: token}
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == utils.SessionCookie {
			return c
		}
	}
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

// registration builds a multipart registration request. A nil file is left out.
func registration(t *testing.T, fields map[string]string, selfie, idDoc []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range map[string][]byte{"selfie": selfie, "idDoc": idDoc} {
		if data == nil {
			continue
		}
		fw, err := w.CreateFormFile(name, name+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields(email string) map[string]string {
	return map[string]string{
		"fullName": "Jane Doe",
		"email":    email,
		"password": "Sup3rSecret",
		"country":  "Portugal",
		"consent":  "true",
	}
}
