package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newFakeOriginClient(t *testing.T, rt roundTripFunc) *OriginClient {
	t.Helper()
	c := NewOriginClient("https://origin.test/3", "test-key", "", &http.Client{Transport: rt})
	c.minInterval = 0
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestFetchShowDecodesDetailsAndSeasons(t *testing.T) {
	var gotURL string
	client := newFakeOriginClient(t, func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return jsonResponse(http.StatusOK, `{
			"id": 100,
			"name": "Test Show",
			"original_name": "Test Show Original",
			"overview": "overview",
			"status": "Returning Series",
			"number_of_episodes": 16,
			"number_of_seasons": 2,
			"genres": [{"id": 18}, {"id": 9648}],
			"origin_country": ["KR"],
			"seasons": [
				{"season_number": 1, "name": "Season 1", "episode_count": 8},
				{"season_number": 2, "name": "Season 2", "episode_count": 8}
			]
		}`), nil
	})

	show, seasons, err := client.FetchShow(context.Background(), 100)
	if err != nil {
		t.Fatalf("FetchShow failed: %v", err)
	}
	if !strings.Contains(gotURL, "/tv/100") {
		t.Errorf("expected /tv/100 in request url, got %q", gotURL)
	}
	if !strings.Contains(gotURL, "api_key=test-key") {
		t.Errorf("expected api key in request url, got %q", gotURL)
	}
	if !strings.Contains(gotURL, "language=en-US") {
		t.Errorf("expected default language in request url, got %q", gotURL)
	}
	if show.TMDBID != 100 || show.Name != "Test Show" {
		t.Errorf("unexpected show: %+v", show)
	}
	if len(show.GenreIDs) != 2 || show.GenreIDs[0] != 18 {
		t.Errorf("unexpected genre ids: %v", show.GenreIDs)
	}
	if len(seasons) != 2 || seasons[1].SeasonNumber != 2 {
		t.Errorf("unexpected seasons: %+v", seasons)
	}
}

func TestFetchShowNotFound(t *testing.T) {
	client := newFakeOriginClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"status_message": "not found"}`), nil
	})

	_, _, err := client.FetchShow(context.Background(), 100)
	if !errors.Is(err, ErrOriginNotFound) {
		t.Fatalf("expected ErrOriginNotFound, got %v", err)
	}
}

func TestFetchShowServerError(t *testing.T) {
	client := newFakeOriginClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, ``), nil
	})

	_, _, err := client.FetchShow(context.Background(), 100)
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if errors.Is(err, ErrOriginNotFound) {
		t.Fatalf("server error must not map to not-found: %v", err)
	}
}

func TestFetchCreditsCapsCast(t *testing.T) {
	var entries []string
	for i := 0; i < 30; i++ {
		entries = append(entries, fmt.Sprintf(`{"id": %d, "name": "Member %d", "order": %d}`, i+1, i+1, i))
	}
	body := `{"cast": [` + strings.Join(entries, ",") + `]}`

	client := newFakeOriginClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/tv/100/credits") {
			t.Errorf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, body), nil
	})

	cast, err := client.FetchCredits(context.Background(), 100)
	if err != nil {
		t.Fatalf("FetchCredits failed: %v", err)
	}
	if len(cast) != castLimit {
		t.Errorf("expected cast capped at %d, got %d", castLimit, len(cast))
	}
}

func TestFetchVideosSkipsEmptyIDs(t *testing.T) {
	client := newFakeOriginClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"results": [
			{"id": "v1", "name": "Trailer", "site": "YouTube", "type": "Trailer"},
			{"id": "", "name": "Broken"},
			{"id": "v2", "name": "Teaser", "site": "YouTube", "type": "Teaser"}
		]}`), nil
	})

	videos, err := client.FetchVideos(context.Background(), 100)
	if err != nil {
		t.Fatalf("FetchVideos failed: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected entries without an id dropped, got %d videos", len(videos))
	}
	if videos[0].VideoID != "v1" || videos[1].VideoID != "v2" {
		t.Errorf("unexpected videos: %+v", videos)
	}
}

func TestSearchBuildsQuery(t *testing.T) {
	client := newFakeOriginClient(t, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("query") != "breaking" || q.Get("page") != "2" {
			t.Errorf("unexpected query params: %v", q)
		}
		return jsonResponse(http.StatusOK, `{
			"page": 2, "total_pages": 5, "total_results": 100,
			"results": [{"id": 100, "name": "Test Show", "popularity": 42}]
		}`), nil
	})

	page, err := client.Search(context.Background(), "breaking", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Page != 2 || page.TotalResults != 100 {
		t.Errorf("unexpected page meta: %+v", page)
	}
	if len(page.Results) != 1 || page.Results[0].TMDBID != 100 {
		t.Errorf("unexpected results: %+v", page.Results)
	}
}

func TestUnconfiguredClientFailsFast(t *testing.T) {
	called := false
	client := NewOriginClient("https://origin.test/3", "", "", &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("should not be reached")
		}),
	})

	if _, _, err := client.FetchShow(context.Background(), 100); err == nil {
		t.Fatal("expected an error without an api key")
	}
	if called {
		t.Error("unconfigured client must not issue requests")
	}
}
