package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/passgap/internal/config"
	"github.com/JonMunkholm/passgap/internal/core"
)

const (
	exportA = "Title,URL,Username,Password,Notes\n" +
		"Bank,https://bank.example.com,Alice@Example.com,pw1,\n" +
		"Mail,mail.example.org,bob,pw2,\"note, with comma\"\n"
	exportB = "Title,URL,Username,Password\n" +
		"Bank,https://www.bank.example.com/,alice@example.com,pw1\n"
)

type memStore struct {
	mu   sync.Mutex
	runs []core.ComparisonRun
	err  error
}

func (m *memStore) Record(_ context.Context, run core.ComparisonRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]core.ComparisonRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []core.ComparisonRun{}
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *memStore) Prune(context.Context, time.Time) (int64, error) { return 0, nil }

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadWith(func(k string) string { return env[k] })
	require.NoError(t, err)
	return cfg
}

// testClient drives a Server and carries its session cookie between calls.
type testClient struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newTestClient(t *testing.T, env map[string]string, runs core.RunStore) *testClient {
	t.Helper()
	cfg := testConfig(t, env)
	svc := core.NewService(core.ServiceConfig{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		SessionTTL:    cfg.Session.TTL,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	}, runs)
	srv := NewServer(svc, cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testClient{t: t, srv: srv}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.Router().ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "passgap_session" {
			c.cookie = ck
		}
	}
	return rec
}

func (c *testClient) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *testClient) upload(path, fileName, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(c.t, mw.WriteField("note", "ignored"))
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(c.t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, nil, nil)
	rec := c.get("/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Uploads.MaxConcurrent)
	assert.False(t, resp.History)
	assert.Nil(t, c.cookie, "health checks should not start sessions")
}

func TestUploadSlot_ReturnsSummary(t *testing.T) {
	c := newTestClient(t, nil, nil)

	rec := c.upload("/api/slots/a", "apple.csv", exportA)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := decode[core.SlotSummary](t, rec)
	assert.Equal(t, core.SlotA, summary.Slot)
	assert.Equal(t, "apple.csv", summary.FileName)
	assert.Equal(t, 2, summary.Records)
	assert.Len(t, summary.Columns, 5)
	assert.Empty(t, summary.Unmapped)

	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)

	list := decode[slotsResponse](t, c.get("/api/slots"))
	require.Len(t, list.Slots, 1)
	assert.Equal(t, "apple.csv", list.Slots[0].FileName)
}

func TestUploadSlot_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		fileName string
		content  string
		status   int
		code     string
	}{
		{"invalid slot", "/api/slots/c", "x.csv", exportA, http.StatusNotFound, "SLOT001"},
		{"no file part", "/api/slots/a", "", "", http.StatusBadRequest, "FILE003"},
		{"too large", "/api/slots/a", "big.csv", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, map[string]string{"UPLOAD_MAX_FILE_SIZE": "1024"}, nil)

			rec := c.upload(tt.path, tt.fileName, tt.content)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestUploadSlot_EmptyFileReplacesSlot(t *testing.T) {
	c := newTestClient(t, nil, nil)
	require.Equal(t, http.StatusOK, c.upload("/api/slots/a", "a.csv", exportA).Code)

	rec := c.upload("/api/slots/a", "empty.csv", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[core.SlotSummary](t, rec)
	assert.Equal(t, "empty.csv", summary.FileName)
	assert.Equal(t, 0, summary.Records)

	list := decode[slotsResponse](t, c.get("/api/slots"))
	require.Len(t, list.Slots, 1)
	assert.Equal(t, "empty.csv", list.Slots[0].FileName)
	assert.Equal(t, 0, list.Slots[0].Records)
}

func TestUploadSlot_NotMultipart(t *testing.T) {
	c := newTestClient(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/slots/a", strings.NewReader(exportA))
	req.Header.Set("Content-Type", "text/csv")

	rec := c.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE003", decode[ErrorResponse](t, rec).Code)
}

func TestCompare(t *testing.T) {
	store := &memStore{}
	c := newTestClient(t, nil, store)

	rec := c.get("/api/compare")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.Summary{}, decode[compareResponse](t, rec).Summary)

	require.Equal(t, http.StatusOK, c.upload("/api/slots/a", "a.csv", exportA).Code)
	require.Equal(t, http.StatusOK, c.upload("/api/slots/b", "b.csv", exportB).Code)

	rec = c.get("/api/compare")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loose := decode[compareResponse](t, rec)
	assert.Equal(t, core.Summary{SourceA: 2, SourceB: 1, Missing: 1}, loose.Summary)
	require.Len(t, loose.Missing, 1)
	assert.Equal(t, missingEntry{
		Title:    "Mail",
		URL:      "https://mail.example.org",
		Username: "bob",
		Domain:   "example.org",
	}, loose.Missing[0])
	assert.NotContains(t, rec.Body.String(), "pw2")

	strict := decode[compareResponse](t, c.get("/api/compare?strict=true"))
	assert.Equal(t, 2, strict.Summary.Missing)
	assert.True(t, strict.Summary.Strict)

	assert.Len(t, store.runs, 3)
	assert.Equal(t, loose.RunID, store.runs[1].ID)
}

func TestExport(t *testing.T) {
	c := newTestClient(t, nil, nil)
	c.upload("/api/slots/a", "a.csv", exportA)
	c.upload("/api/slots/b", "b.csv", exportB)

	rec := c.get("/api/export")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	want := `attachment; filename="` + core.ExportFilename(time.Now()) + `"`
	assert.Equal(t, want, rec.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"title,url,username,password,notes,otpAuth\r\n"+
			`Mail,https://mail.example.org,bob,pw2,"note, with comma",`,
		rec.Body.String())
}

func TestClearSlot(t *testing.T) {
	c := newTestClient(t, nil, nil)
	c.upload("/api/slots/a", "a.csv", exportA)
	c.upload("/api/slots/b", "b.csv", exportB)

	rec := c.do(httptest.NewRequest(http.MethodDelete, "/api/slots/b", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[slotsResponse](t, rec)
	require.Len(t, list.Slots, 1)
	assert.Equal(t, core.SlotA, list.Slots[0].Slot)

	rec = c.get("/api/compare")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.Summary{SourceA: 2, SourceB: 0, Missing: 2}, decode[compareResponse](t, rec).Summary)
}

func TestSessionsAreIsolated(t *testing.T) {
	c := newTestClient(t, nil, nil)
	c.upload("/api/slots/a", "a.csv", exportA)

	other := &testClient{t: t, srv: c.srv}
	list := decode[slotsResponse](t, other.get("/api/slots"))
	assert.Empty(t, list.Slots)
	assert.NotEqual(t, c.cookie.Value, other.cookie.Value)
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		c := newTestClient(t, nil, nil)
		rec := c.get("/api/history")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"enabled":false,"runs":[]}`, rec.Body.String())
	})

	t.Run("limit", func(t *testing.T) {
		store := &memStore{}
		c := newTestClient(t, nil, store)
		c.upload("/api/slots/a", "a.csv", exportA)
		c.upload("/api/slots/b", "b.csv", exportB)
		for i := 0; i < 3; i++ {
			c.get("/api/compare")
		}

		resp := decode[historyResponse](t, c.get("/api/history?limit=2"))
		assert.True(t, resp.Enabled)
		assert.Len(t, resp.Runs, 2)
	})

	t.Run("store failure", func(t *testing.T) {
		c := newTestClient(t, nil, &memStore{err: errors.New("disk gone")})
		rec := c.get("/api/history")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "HIST001", decode[ErrorResponse](t, rec).Code)
	})
}

func TestAPIKeyRequired(t *testing.T) {
	c := newTestClient(t, map[string]string{"REQUIRE_API_KEY": "true", "API_KEYS": "secret"}, nil)

	assert.Equal(t, http.StatusUnauthorized, c.get("/api/slots").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/slots", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, c.do(req).Code)

	assert.Equal(t, http.StatusOK, c.get("/").Code, "pages are not behind the API key")
}

func TestRateLimit(t *testing.T) {
	c := newTestClient(t, map[string]string{"RATE_LIMIT_UPLOAD": "1"}, nil)

	require.Equal(t, http.StatusOK, c.upload("/api/slots/a", "a.csv", exportA).Code)

	rec := c.upload("/api/slots/b", "b.csv", exportB)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestPageFlow(t *testing.T) {
	c := newTestClient(t, nil, &memStore{})

	rec := c.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/slots/a"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = c.upload("/slots/a", "a.csv", exportA)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c.upload("/slots/b", "b.csv", exportB)

	rec = c.get("/?compare=1&strict=on")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Results")
	assert.Contains(t, body, "mail.example.org")
	assert.Contains(t, body, `href="/export?strict=true"`)
	assert.NotContains(t, body, "pw1")

	rec = c.get("/export?strict=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), core.ExportHeader))

	rec = c.do(httptest.NewRequest(http.MethodPost, "/slots/a/clear", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = c.get("/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.ExportHeader, rec.Body.String())
}

func TestRespondError_HTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	respondError(rec, req, core.ErrSessionNotFound, http.StatusGone)

	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{core.ErrInvalidSlot, http.StatusNotFound},
		{errNoFile, http.StatusBadRequest},
		{core.ErrSessionNotFound, http.StatusGone},
		{core.ErrTooManyUploads, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestParseBoolParam(t *testing.T) {
	for q, want := range map[string]bool{"": false, "on": true, "1": true, "true": true, "no": false, "0": false} {
		req := httptest.NewRequest(http.MethodGet, "/?strict="+q, nil)
		assert.Equal(t, want, parseBoolParam(req, "strict"), q)
	}
}
