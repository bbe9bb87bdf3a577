package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/be4breach/reportd/internal/config"
	"github.com/be4breach/reportd/internal/core"
	"github.com/be4breach/reportd/internal/logger"
	"github.com/be4breach/reportd/pkg/types"
)

// fakeParser returns a canned report or error without touching real documents.
type fakeParser struct {
	report *types.PentestReport
	err    error
	calls  int
}

func (p *fakeParser) Parse(ctx context.Context, data []byte) (*types.PentestReport, error) {
	p.calls++
	return p.report, p.err
}

type fakeStore struct {
	saved   []*types.StoredReport
	reports map[string]*types.PentestReport
	listErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: map[string]*types.PentestReport{}}
}

func (s *fakeStore) SaveReport(ctx context.Context, meta *types.StoredReport, report *types.PentestReport) error {
	s.saved = append(s.saved, meta)
	s.reports[meta.ID] = report
	return nil
}

func (s *fakeStore) GetReport(ctx context.Context, id string) (*types.StoredReport, *types.PentestReport, error) {
	if s.getErr != nil {
		return nil, nil, s.getErr
	}
	for _, meta := range s.saved {
		if meta.ID == id {
			return meta, s.reports[id], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
}

func (s *fakeStore) ListReports(ctx context.Context, filter core.ReportFilter) ([]*types.StoredReport, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.saved, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeCache struct {
	entries map[string]*types.PentestReport
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*types.PentestReport{}}
}

func (c *fakeCache) Key(data []byte) string { return fmt.Sprintf("k%d", len(data)) }

func (c *fakeCache) Get(ctx context.Context, key string) (*types.PentestReport, error) {
	return c.entries[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, report *types.PentestReport) error {
	c.entries[key] = report
	return nil
}

func (c *fakeCache) Close() error { return nil }

func sampleReport() *types.PentestReport {
	score := 9.8
	return &types.PentestReport{
		Engagement:    types.EngagementInfo{Client: "Acme Corp", AuditType: "Web Application"},
		Summary:       map[string]int{"critical": 1},
		TotalFindings: 1,
		Findings: []types.Finding{
			{ID: 1, Title: "SQL Injection", Severity: "Critical", CVSSScore: &score},
		},
	}
}

func testServer(t *testing.T, parser core.ReportParser, opts ...ServerOption) *Server {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	// generous limits so rate limiting never interferes with ordinary tests
	cfg.Server.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000}
	return NewServer(cfg, log, parser, opts...)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/pentest-report", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUploadReport(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := newFakeStore()
		srv := testServer(t, &fakeParser{report: sampleReport()}, WithStore(store))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "report.docx", []byte("payload")))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Success bool                `json:"success"`
			Report  types.PentestReport `json:"report"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.Report.TotalFindings)
		assert.Equal(t, "Acme Corp", resp.Report.Engagement.Client)

		require.Len(t, store.saved, 1)
		assert.Equal(t, "report.docx", store.saved[0].Filename)
		assert.Equal(t, "Acme Corp", store.saved[0].Client)
		assert.Equal(t, int64(len("payload")), store.saved[0].SizeBytes)
		assert.Equal(t, store.saved[0].ID, w.Header().Get("X-Report-ID"))
	})

	t.Run("rejects non-docx extension", func(t *testing.T) {
		srv := testServer(t, &fakeParser{report: sampleReport()})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("x")))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Only .docx files are supported.")
	})

	t.Run("accepts uppercase extension", func(t *testing.T) {
		srv := testServer(t, &fakeParser{report: sampleReport()})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "REPORT.DOCX", []byte("x")))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		srv := testServer(t, &fakeParser{report: sampleReport()})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/pentest-report", nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("parser failure returns 500", func(t *testing.T) {
		srv := testServer(t, &fakeParser{err: errors.New("malformed document: cannot open archive")})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "bad.docx", []byte("x")))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to parse report:")
	})

	t.Run("zero findings returns 422", func(t *testing.T) {
		empty := &types.PentestReport{Summary: map[string]int{}}
		srv := testServer(t, &fakeParser{report: empty})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "empty.docx", []byte("x")))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("oversize upload rejected", func(t *testing.T) {
		parser := &fakeParser{report: sampleReport()}
		srv := testServer(t, parser)
		srv.cfg.Parser.MaxUploadBytes = 4
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "big.docx", []byte("way too large")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Zero(t, parser.calls)
	})

	t.Run("cache hit skips the parser", func(t *testing.T) {
		cache := newFakeCache()
		parser := &fakeParser{report: sampleReport()}
		srv := testServer(t, parser, WithCache(cache))

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "a.docx", []byte("same bytes")))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, parser.calls)

		w = httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "a.docx", []byte("same bytes")))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, parser.calls, "second identical upload is served from cache")
	})

	t.Run("store failure does not fail the upload", func(t *testing.T) {
		srv := testServer(t, &fakeParser{report: sampleReport()}) // no store at all
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "r.docx", []byte("x")))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleListReports(t *testing.T) {
	t.Run("lists stored reports", func(t *testing.T) {
		store := newFakeStore()
		store.saved = append(store.saved, &types.StoredReport{
			ID: "abc", Filename: "r.docx", TotalFindings: 3, CreatedAt: time.Now(),
		})
		srv := testServer(t, &fakeParser{}, WithStore(store))

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Reports []types.StoredReport `json:"reports"`
			Count   int                  `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, "abc", resp.Reports[0].ID)
	})

	t.Run("store errors surface as 500", func(t *testing.T) {
		store := newFakeStore()
		store.listErr = errors.New("connection refused")
		srv := testServer(t, &fakeParser{}, WithStore(store))

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("no store configured", func(t *testing.T) {
		srv := testServer(t, &fakeParser{})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandleGetReport(t *testing.T) {
	store := newFakeStore()
	meta := &types.StoredReport{ID: "xyz", Filename: "r.docx", TotalFindings: 1}
	require.NoError(t, store.SaveReport(context.Background(), meta, sampleReport()))
	srv := testServer(t, &fakeParser{}, WithStore(store))

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/xyz", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Acme Corp")
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other store errors are 500, not 404", func(t *testing.T) {
		broken := newFakeStore()
		broken.getErr = errors.New("connection reset")
		srv := testServer(t, &fakeParser{}, WithStore(broken))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/xyz", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, &fakeParser{})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
