package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/wordcards/internal/catalog"
	"github.com/conorfennell/wordcards/internal/domain"
	"github.com/conorfennell/wordcards/internal/importer"
	"github.com/conorfennell/wordcards/internal/mastery"
	"github.com/conorfennell/wordcards/internal/queue"
	"github.com/conorfennell/wordcards/internal/review"
	"github.com/conorfennell/wordcards/internal/storage"
)

var t0 = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type fakeSources struct {
	sources []storage.Source
	syncs   int
}

func (f *fakeSources) Sources(ctx context.Context) ([]storage.Source, error) {
	return f.sources, nil
}

func (f *fakeSources) AddSource(ctx context.Context, path string) (storage.Source, error) {
	if path == "" {
		return storage.Source{}, fmt.Errorf("%w: source path is required", domain.ErrInvalidArgument)
	}
	s := storage.Source{ID: int64(len(f.sources) + 1), Path: path, Type: storage.SourceLocal}
	f.sources = append(f.sources, s)
	return s, nil
}

func (f *fakeSources) DeleteSource(ctx context.Context, id int64) error {
	for i, s := range f.sources {
		if s.ID == id {
			f.sources = append(f.sources[:i], f.sources[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("source %d: %w", id, domain.ErrNotFound)
}

func (f *fakeSources) RunSync(ctx context.Context) (importer.Report, error) {
	f.syncs++
	return importer.Report{Sources: len(f.sources)}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeSources) {
	t.Helper()
	m := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tracker := mastery.NewTracker()
	tracker.Now = func() time.Time { return t0 }
	composer := queue.NewComposer()
	composer.Now = func() time.Time { return t0 }
	cards := catalog.NewService(m)
	cards.Now = func() time.Time { return t0 }

	sources := &fakeSources{}
	// No DefaultLimit, so queue requests without a limit use queue.DefaultLimit.
	s := NewServer(review.NewService(m, tracker, composer, logger), cards, sources, Options{
		CORSOrigins: []string{"http://localhost:5173"},
		Logger:      logger,
	})
	return s, sources
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createCard(t *testing.T, s *Server, word string) domain.Card {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/cards", fmt.Sprintf(`{"word":%q,"meaning":"meaning of %s"}`, word, word))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, but got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Card](t, rec)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, but got %d", rec.Code)
	}

	s.opts.Ping = func(ctx context.Context) error { return errors.New("db down") }
	rec = do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, but got %d", rec.Code)
	}
}

func TestCardEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	card := createCard(t, s, "Hello")
	if card.Word != "hello" || card.MasteryLevel != domain.MasteryNew {
		t.Errorf("Expected a new normalized card, but got %+v", card)
	}

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "Get", method: http.MethodGet, path: "/api/cards/" + card.ID, status: http.StatusOK},
		{name: "Get missing", method: http.MethodGet, path: "/api/cards/missing", status: http.StatusNotFound},
		{name: "Create duplicate", method: http.MethodPost, path: "/api/cards", body: `{"word":"HELLO","meaning":"again and again"}`, status: http.StatusConflict},
		{name: "Create invalid", method: http.MethodPost, path: "/api/cards", body: `{"word":"","meaning":"no word"}`, status: http.StatusBadRequest},
		{name: "Create malformed", method: http.MethodPost, path: "/api/cards", body: `{"word":`, status: http.StatusBadRequest},
		{name: "Create unknown field", method: http.MethodPost, path: "/api/cards", body: `{"word":"x","meaning":"a meaning","studyCount":9}`, status: http.StatusBadRequest},
		{name: "Update", method: http.MethodPut, path: "/api/cards/" + card.ID, body: `{"example":"Hello there."}`, status: http.StatusOK},
		{name: "Update missing", method: http.MethodPut, path: "/api/cards/missing", body: `{"example":"x"}`, status: http.StatusNotFound},
		{name: "Search", method: http.MethodGet, path: "/api/cards?q=hell&mastery=new", status: http.StatusOK},
		{name: "Search bad mastery", method: http.MethodGet, path: "/api/cards?mastery=expert", status: http.StatusBadRequest},
		{name: "Reviews", method: http.MethodGet, path: "/api/cards/" + card.ID + "/reviews", status: http.StatusOK},
		{name: "Statistics", method: http.MethodGet, path: "/api/statistics", status: http.StatusOK},
		{name: "Categories", method: http.MethodGet, path: "/api/categories", status: http.StatusOK},
		{name: "Create category", method: http.MethodPost, path: "/api/categories", body: `{"id":"travel","name":"Travel"}`, status: http.StatusCreated},
		{name: "Delete", method: http.MethodDelete, path: "/api/cards/" + card.ID, status: http.StatusNoContent},
		{name: "Delete again", method: http.MethodDelete, path: "/api/cards/" + card.ID, status: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Errorf("Expected status %d, but got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if rec.Code >= 400 {
				body := decode[map[string]string](t, rec)
				if body["error"] == "" {
					t.Errorf("Expected an error message, but got %v", body)
				}
			}
		})
	}
}

func TestPostAttempt(t *testing.T) {
	s, _ := newTestServer(t)
	card := createCard(t, s, "world")

	for i, correct := range []string{"true", "false"} {
		rec := do(t, s, http.MethodPost, "/api/cards/"+card.ID+"/attempts", `{"correct":`+correct+`}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, but got %d: %s", rec.Code, rec.Body.String())
		}
		got := decode[domain.Card](t, rec)
		if got.StudyCount != i+1 {
			t.Errorf("Expected study count %d, but got %d", i+1, got.StudyCount)
		}
	}

	rec := do(t, s, http.MethodGet, "/api/cards/"+card.ID, "")
	got := decode[domain.Card](t, rec)
	if got.StudyCount != 2 || got.CorrectCount != 1 || got.MasteryLevel != domain.MasteryLearning {
		t.Errorf("Expected 2/1 learning, but got %d/%d %s", got.StudyCount, got.CorrectCount, got.MasteryLevel)
	}

	rec = do(t, s, http.MethodGet, "/api/cards/"+card.ID+"/reviews", "")
	if logs := decode[[]domain.ReviewLog](t, rec); len(logs) != 2 {
		t.Errorf("Expected 2 review log entries, but got %d", len(logs))
	}

	t.Run("Missing correct", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/cards/"+card.ID+"/attempts", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, but got %d", rec.Code)
		}
	})

	t.Run("Unknown card", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/cards/missing/attempts", `{"correct":true}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, but got %d", rec.Code)
		}
	})
}

func TestGetQueue(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < 12; i++ {
		createCard(t, s, fmt.Sprintf("word%02d", i))
	}

	testCases := []struct {
		name   string
		query  string
		status int
		size   int
	}{
		{name: "Default limit", query: "", status: http.StatusOK, size: 5},
		{name: "Explicit limit", query: "?limit=4", status: http.StatusOK, size: 2},
		{name: "Zero limit", query: "?limit=0", status: http.StatusBadRequest},
		{name: "Negative limit", query: "?limit=-3", status: http.StatusBadRequest},
		{name: "Not a number", query: "?limit=ten", status: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/review/queue"+tc.query, "")
			if rec.Code != tc.status {
				t.Fatalf("Expected status %d, but got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}
			// Only new cards exist, so only the new-card share is filled.
			if cards := decode[[]domain.Card](t, rec); len(cards) != tc.size {
				t.Errorf("Expected %d cards, but got %d", tc.size, len(cards))
			}
		})
	}
}

func TestSourceEndpoints(t *testing.T) {
	s, sources := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/sources", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected an empty list, but got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/sources", `{"path":"/srv/decks"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, but got %d", rec.Code)
	}
	src := decode[storage.Source](t, rec)

	if rec := do(t, s, http.MethodPost, "/api/sources", `{"path":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an empty path, but got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, but got %d", rec.Code)
	}
	if report := decode[importer.Report](t, rec); report.Sources != 1 || sources.syncs != 1 {
		t.Errorf("Expected one synced source, but got %+v after %d syncs", report, sources.syncs)
	}

	if rec := do(t, s, http.MethodDelete, fmt.Sprintf("/api/sources/%d", src.ID), ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, but got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/sources/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad id, but got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/sources/99", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, but got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/cards", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected the origin to be allowed, but got %q", got)
	}
}

func TestStorageErrorsAreHidden(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.writeError(rec, req, fmt.Errorf("%w: disk full at /var/lib", domain.ErrStorage))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, but got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "/var/lib") {
		t.Errorf("Expected storage details to be hidden, but got %s", rec.Body.String())
	}
}
