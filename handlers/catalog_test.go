package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"showsync/models"
	catalogpkg "showsync/services/catalog"
)

type stubCatalog struct {
	getShow  func(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error)
	search   func(ctx context.Context, query string, page int) (*models.SummaryPage, error)
	popular  func(ctx context.Context, page int) (*models.SummaryPage, error)
	trending func(ctx context.Context) (*models.SummaryPage, error)
}

func (s *stubCatalog) GetShow(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error) {
	return s.getShow(ctx, tmdbID, forceRefresh)
}

func (s *stubCatalog) Search(ctx context.Context, query string, page int) (*models.SummaryPage, error) {
	return s.search(ctx, query, page)
}

func (s *stubCatalog) Popular(ctx context.Context, page int) (*models.SummaryPage, error) {
	return s.popular(ctx, page)
}

func (s *stubCatalog) Trending(ctx context.Context) (*models.SummaryPage, error) {
	return s.trending(ctx)
}

func TestShowReturnsDetails(t *testing.T) {
	var gotID int64
	var gotRefresh bool
	handler := NewCatalogHandler(&stubCatalog{
		getShow: func(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error) {
			gotID = tmdbID
			gotRefresh = forceRefresh
			return &models.ShowDetails{Show: models.Show{TMDBID: tmdbID, Name: "Stub Show"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/shows/100?refresh=true", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "100"})
	rr := httptest.NewRecorder()
	handler.Show(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotID != 100 || !gotRefresh {
		t.Errorf("expected id=100 refresh=true, got id=%d refresh=%v", gotID, gotRefresh)
	}

	var details models.ShowDetails
	if err := json.NewDecoder(rr.Body).Decode(&details); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if details.Name != "Stub Show" {
		t.Errorf("expected stub show in body, got %q", details.Name)
	}
}

func TestShowInvalidID(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/api/shows/abc", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rr := httptest.NewRecorder()
	handler.Show(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestShowNotFound(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalog{
		getShow: func(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error) {
			return nil, catalogpkg.ErrNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/shows/100", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "100"})
	rr := httptest.NewRecorder()
	handler.Show(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestShowOriginFailure(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalog{
		getShow: func(ctx context.Context, tmdbID int64, forceRefresh bool) (*models.ShowDetails, error) {
			return nil, errors.New("origin unreachable")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/shows/100", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "100"})
	rr := httptest.NewRecorder()
	handler.Show(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=%20", nil)
	rr := httptest.NewRecorder()
	handler.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSearchPassesQueryAndPage(t *testing.T) {
	var gotQuery string
	var gotPage int
	handler := NewCatalogHandler(&stubCatalog{
		search: func(ctx context.Context, query string, page int) (*models.SummaryPage, error) {
			gotQuery = query
			gotPage = page
			return &models.SummaryPage{Page: page, Results: []models.ShowSummary{}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=breaking&page=3", nil)
	rr := httptest.NewRecorder()
	handler.Search(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotQuery != "breaking" || gotPage != 3 {
		t.Errorf("expected q=breaking page=3, got q=%q page=%d", gotQuery, gotPage)
	}
}

func TestPopularDefaultsPage(t *testing.T) {
	var gotPage int
	handler := NewCatalogHandler(&stubCatalog{
		popular: func(ctx context.Context, page int) (*models.SummaryPage, error) {
			gotPage = page
			return &models.SummaryPage{Page: page, Results: []models.ShowSummary{}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/popular?page=junk", nil)
	rr := httptest.NewRecorder()
	handler.Popular(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotPage != 1 {
		t.Errorf("expected unparseable page to default to 1, got %d", gotPage)
	}
}
