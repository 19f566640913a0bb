package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Whispen/internal/audio"
	"Whispen/internal/service"
	"Whispen/internal/summary"
	"Whispen/internal/transcribe"
	"Whispen/pkg/cache"
	"Whispen/pkg/i18n"
	"Whispen/pkg/metrics"
	"Whispen/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxBytes = 4096

type fakeEngine struct {
	out      transcribe.Output
	err      error
	seen     string
	language string
}

func (f *fakeEngine) Name() string { return "local" }

func (f *fakeEngine) Transcribe(_ context.Context, path, language string) (transcribe.Output, error) {
	f.seen = path
	f.language = language
	return f.out, f.err
}

type fakeLLM struct {
	reply   string
	err     error
	pingErr error
	pings   int
	prompt  string
}

func (f *fakeLLM) Query(_ context.Context, systemPrompt, _ string) (string, error) {
	f.prompt = systemPrompt
	return f.reply, f.err
}

func (f *fakeLLM) Ping(context.Context) error {
	f.pings++
	return f.pingErr
}

type testServer struct {
	engine *gin.Engine
	files  *audio.Manager
	stt    *fakeEngine
	llm    *fakeLLM
}

func newTestServer(t *testing.T, opts Options, noBackend bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	files, err := audio.NewManager(audio.Config{
		Root:              t.TempDir(),
		MaxBytes:          testMaxBytes,
		AllowedExtensions: []string{"mp3", "wav"},
		Retention:         24 * time.Hour,
	}, nil)
	require.NoError(t, err)

	duration := 12.0
	stt := &fakeEngine{out: transcribe.Output{Text: "Bonjour à tous", Language: "fr", Duration: &duration}}
	var engine transcribe.Engine = stt
	if noBackend {
		engine = transcribe.Select(nil, nil)
	}
	chat := &fakeLLM{reply: "## Points Clés\n- un\n- deux\n## Participants\n- Marie"}

	svc := service.New(files,
		transcribe.NewTranscriber(engine, nil, nil),
		summary.NewGenerator(chat, nil, nil),
		nil, nil, service.Options{MinChars: 50})

	tr, err := i18n.NewI18nSupport("fr")
	require.NoError(t, err)

	h := NewHandlers(svc, tr, nil, opts)

	r := gin.New()
	r.Use(h.Recovery(), middleware.LanguageMiddleware(tr))
	h.Register(r)

	return &testServer{engine: r, files: files, stt: stt, llm: chat}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename string, content []byte, language string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if language != "" {
		require.NoError(t, mw.WriteField("language", language))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcription/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, path string, v interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func assertRootEmpty(t *testing.T, files *audio.Manager) {
	t.Helper()
	entries, err := os.ReadDir(files.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func longText() string {
	return strings.Repeat("La réunion portait sur le budget. ", 3)
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(uploadRequest(t, "meeting.wav", []byte("RIFF....WAVE"), "fr"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Bonjour à tous", body["text"])
	assert.Equal(t, "fr", body["language"])
	assert.Equal(t, 12.0, body["duration_seconds"])
	assert.Equal(t, 3.0, body["word_count"])
	assert.Equal(t, "local", body["backend"])
	assert.Equal(t, "meeting.wav", body["filename"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["created_at"])

	assert.NotEmpty(t, s.stt.seen)
	assert.Equal(t, s.files.Root(), filepath.Dir(s.stt.seen))
	assert.NoFileExists(t, s.stt.seen)
	assert.Equal(t, "fr", s.stt.language)
	assertRootEmpty(t, s.files)
}

func TestUploadLanguageAfterFile(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "meeting.mp3")
	require.NoError(t, err)
	_, err = fw.Write([]byte("ID3 audio"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("language", " en "))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcription/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "en", s.stt.language)
	assertRootEmpty(t, s.files)
}

func TestUploadDefaultLanguage(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(uploadRequest(t, "meeting.mp3", []byte("ID3"), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "fr", s.stt.language)
}

func TestUploadNotMultipart(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcription/upload", strings.NewReader("raw bytes"))
	req.Header.Set("Content-Type", "audio/wav")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.stt.seen)
	assertRootEmpty(t, s.files)
}

func TestUploadFileFieldWithoutFilename(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("file", "not a file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcription/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Aucun fichier audio fourni", decode(t, w)["error"])
}

func TestUploadUnsupportedFormat(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(uploadRequest(t, "notes.txt", []byte("hello"), ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Format non supporté. Formats acceptés : mp3, wav", body["error"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Empty(t, s.stt.seen)
	assertRootEmpty(t, s.files)
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	req := uploadRequest(t, "big.mp3", bytes.Repeat([]byte{1}, testMaxBytes+1), "")
	req.URL.RawQuery = "lang=en"
	w := s.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, decode(t, w)["error"], "File too large")
	assertRootEmpty(t, s.files)
}

func TestUploadBodyOverLimit(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(uploadRequest(t, "huge.mp3", bytes.Repeat([]byte{1}, testMaxBytes+multipartOverhead+1), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assertRootEmpty(t, s.files)
}

func TestUploadMissingFile(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(uploadRequest(t, "", nil, "fr"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Aucun fichier audio fourni", decode(t, w)["error"])
}

func TestUploadEngineFailure(t *testing.T) {
	s := newTestServer(t, Options{}, false)
	s.stt.err = errors.New("decoder exploded")

	w := s.do(uploadRequest(t, "a.mp3", []byte("ID3"), ""))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Erreur lors de la transcription", body["error"])
	assert.Contains(t, body["detail"], "decoder exploded")
	assertRootEmpty(t, s.files)
}

func TestUploadNoBackend(t *testing.T) {
	s := newTestServer(t, Options{}, true)

	w := s.do(uploadRequest(t, "a.mp3", []byte("ID3"), ""))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assertRootEmpty(t, s.files)
}

func TestTranscriptionHealth(t *testing.T) {
	s := newTestServer(t, Options{}, false)
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/transcription/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operational", decode(t, w)["status"])

	s = newTestServer(t, Options{}, true)
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/transcription/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode(t, w)["status"])
}

func TestGenerateSummary(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(jsonRequest(t, "/api/v1/summary/generate", map[string]string{
		"transcription_text": longText(),
		"summary_type":       "structured",
		"language":           "en",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, []interface{}{"un", "deux"}, body["key_points"])
	assert.Equal(t, []interface{}{}, body["decisions"])
	assert.Equal(t, []interface{}{}, body["action_items"])
	assert.Equal(t, []interface{}{"Marie"}, body["participants"])
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, summary.Prompt("structured", "en"), s.llm.prompt)
}

func TestGenerateSummaryTooShort(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	req := jsonRequest(t, "/api/v1/summary/generate", map[string]string{"transcription_text": "trop court"})
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Text is too short to summarize (minimum 50 characters)", decode(t, w)["error"])
	assert.Empty(t, s.llm.prompt)
}

func TestGenerateSummaryBadBody(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/summary/generate", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(jsonRequest(t, "/api/v1/summary/generate", map[string]string{"language": "fr"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateSummaryFailure(t *testing.T) {
	s := newTestServer(t, Options{}, false)
	s.llm.err = errors.New("quota exceeded")

	w := s.do(jsonRequest(t, "/api/v1/summary/generate", map[string]string{"transcription_text": longText()}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Erreur lors de la génération du résumé", decode(t, w)["error"])
}

func TestQuickSummary(t *testing.T) {
	s := newTestServer(t, Options{}, false)
	s.llm.reply = "Réunion budgétaire."

	q := url.Values{"transcription_text": {longText()}, "language": {"en"}}
	w := s.do(httptest.NewRequest(http.MethodPost, "/api/v1/summary/quick?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Réunion budgétaire.", decode(t, w)["summary"])
	assert.Equal(t, summary.Prompt(summary.StyleShort, "en"), s.llm.prompt)

	w = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/summary/quick", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["llm_connected"])
	assert.Equal(t, "local", body["transcription_backend"])
	storage := body["temp_storage"].(map[string]interface{})
	assert.Equal(t, s.files.Root(), storage["path"])
	assert.Equal(t, 24.0, storage["retention_hours"])

	s.llm.pingErr = errors.New("unreachable")
	w = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestHealthIsCached(t *testing.T) {
	c, err := cache.NewCache(cache.Config{Type: "gocache"})
	require.NoError(t, err)
	defer c.Close()

	s := newTestServer(t, Options{Cache: c, HealthTTL: time.Minute}, false)

	for i := 0; i < 3; i++ {
		w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/summary/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, s.llm.pings)
}

func TestSummaryHealth(t *testing.T) {
	s := newTestServer(t, Options{}, false)
	s.llm.pingErr = errors.New("unreachable")

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/summary/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, false, body["connected"])
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Whispen API", body["name"])
	assert.Equal(t, []interface{}{"mp3", "wav"}, body["formats"])
	endpoints := body["endpoints"].(map[string]interface{})
	assert.Equal(t, "/api/v1/transcription/upload", endpoints["transcription"])
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, Options{}, false)

	w := s.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Route non trouvée", body["error"])
	assert.Equal(t, "L'endpoint /nope n'existe pas", body["detail"])

	req := httptest.NewRequest(http.MethodGet, "/nope?lang=en", nil)
	w = s.do(req)
	assert.Equal(t, "Route not found", decode(t, w)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordUpload(100)

	s := newTestServer(t, Options{Gatherer: reg}, false)

	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "whispen_upload_size_bytes")
}

func TestRateLimited(t *testing.T) {
	var h *Handlers
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:        "1-M",
		DenyHandler: func(c *gin.Context) { h.TooManyRequests(c) },
	}, nil)

	s := newTestServer(t, Options{RateLimit: rl.Middleware()}, false)
	h = NewHandlers(nil, mustI18n(t), nil, Options{})

	body := map[string]string{"transcription_text": longText()}
	w := s.do(jsonRequest(t, "/api/v1/summary/generate", body))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(jsonRequest(t, "/api/v1/summary/generate", body))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Trop de requêtes, réessayez plus tard", decode(t, w)["error"])

	// health routes are not limited
	for i := 0; i < 3; i++ {
		w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/summary/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t, Options{}, false)
	s.engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := s.do(httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Erreur interne du serveur", decode(t, w)["error"])
}

func mustI18n(t *testing.T) *i18n.I18nSupport {
	t.Helper()
	tr, err := i18n.NewI18nSupport("fr")
	require.NoError(t, err)
	return tr
}
