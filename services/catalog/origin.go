package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"showsync/models"
)

const defaultOriginBaseURL = "https://api.themoviedb.org/3"

// castLimit caps the cast collection at the top-billed entries; the origin
// returns the full credit list, which can run into the hundreds.
const castLimit = 20

// ErrOriginNotFound is returned when the origin explicitly reports that a
// show id does not exist, as opposed to a transient failure.
var ErrOriginNotFound = errors.New("origin reports no such show")

// OriginClient talks to the external catalog API. It is a pure function of
// request to response: no caching, no retry. Retry policy belongs to the
// caller; each request is bounded by the http client's own timeout.
type OriginClient struct {
	baseURL  string
	apiKey   string
	language string
	httpc    *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func NewOriginClient(baseURL, apiKey, language string, httpc *http.Client) *OriginClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOriginBaseURL
	}
	return &OriginClient{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond,
	}
}

func (c *OriginClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a rate-limited GET against the origin and decodes the JSON
// body into v. Query params are added to the endpoint; api key and language
// are always set.
func (c *OriginClient) doGET(ctx context.Context, endpoint string, params url.Values, v any) error {
	if !c.isConfigured() {
		return errors.New("origin api key not configured")
	}

	c.throttleMu.Lock()
	since := time.Since(c.lastRequest)
	if since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
	c.throttleMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	q := req.URL.Query()
	for key, vals := range params {
		for _, val := range vals {
			q.Add(key, val)
		}
	}
	q.Set("api_key", c.apiKey)
	if lang := strings.TrimSpace(c.language); lang != "" {
		q.Set("language", lang)
	} else {
		q.Set("language", "en-US")
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("origin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrOriginNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("origin request failed: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode origin response: %w", err)
	}
	return nil
}

type originShowResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	FirstAirDate     string  `json:"first_air_date"`
	LastAirDate      string  `json:"last_air_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	Status           string  `json:"status"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	Genres           []struct {
		ID int64 `json:"id"`
	} `json:"genres"`
	OriginCountry []string `json:"origin_country"`
	Seasons       []struct {
		SeasonNumber int    `json:"season_number"`
		Name         string `json:"name"`
		EpisodeCount int    `json:"episode_count"`
		AirDate      string `json:"air_date"`
		PosterPath   string `json:"poster_path"`
	} `json:"seasons"`
}

// FetchShow retrieves the full show record for one origin id. The origin
// embeds the season list in the details payload, so seasons ride along with
// every successful fetch.
func (c *OriginClient) FetchShow(ctx context.Context, tmdbID int64) (*models.Show, []models.Season, error) {
	endpoint, err := url.JoinPath(c.baseURL, "tv", fmt.Sprintf("%d", tmdbID))
	if err != nil {
		return nil, nil, err
	}

	var payload originShowResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, nil, err
	}

	show := &models.Show{
		TMDBID:          payload.ID,
		Name:            payload.Name,
		OriginalName:    payload.OriginalName,
		Overview:        payload.Overview,
		PosterPath:      payload.PosterPath,
		BackdropPath:    payload.BackdropPath,
		FirstAirDate:    payload.FirstAirDate,
		LastAirDate:     payload.LastAirDate,
		VoteAverage:     payload.VoteAverage,
		VoteCount:       payload.VoteCount,
		Popularity:      payload.Popularity,
		Status:          payload.Status,
		EpisodeCount:    payload.NumberOfEpisodes,
		SeasonCount:     payload.NumberOfSeasons,
		OriginCountries: payload.OriginCountry,
	}
	for _, g := range payload.Genres {
		show.GenreIDs = append(show.GenreIDs, g.ID)
	}

	seasons := make([]models.Season, 0, len(payload.Seasons))
	for _, season := range payload.Seasons {
		seasons = append(seasons, models.Season{
			SeasonNumber: season.SeasonNumber,
			Name:         season.Name,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
			PosterPath:   season.PosterPath,
		})
	}

	return show, seasons, nil
}

type originCreditsResponse struct {
	Cast []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Character   string `json:"character"`
		ProfilePath string `json:"profile_path"`
		Order       int    `json:"order"`
	} `json:"cast"`
}

// FetchCredits retrieves the top-billed cast for one show.
func (c *OriginClient) FetchCredits(ctx context.Context, tmdbID int64) ([]models.CastMember, error) {
	endpoint, err := url.JoinPath(c.baseURL, "tv", fmt.Sprintf("%d", tmdbID), "credits")
	if err != nil {
		return nil, err
	}

	var payload originCreditsResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	cast := make([]models.CastMember, 0, castLimit)
	for _, member := range payload.Cast {
		if len(cast) >= castLimit {
			break
		}
		cast = append(cast, models.CastMember{
			PersonID:    member.ID,
			Name:        member.Name,
			Character:   member.Character,
			ProfilePath: member.ProfilePath,
			Order:       member.Order,
		})
	}
	return cast, nil
}

type originVideosResponse struct {
	Results []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Site        string `json:"site"`
		Type        string `json:"type"`
		PublishedAt string `json:"published_at"`
	} `json:"results"`
}

// FetchVideos retrieves the trailer/teaser list for one show.
func (c *OriginClient) FetchVideos(ctx context.Context, tmdbID int64) ([]models.Video, error) {
	endpoint, err := url.JoinPath(c.baseURL, "tv", fmt.Sprintf("%d", tmdbID), "videos")
	if err != nil {
		return nil, err
	}

	var payload originVideosResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(payload.Results))
	for _, video := range payload.Results {
		if strings.TrimSpace(video.ID) == "" {
			continue
		}
		videos = append(videos, models.Video{
			VideoID:     video.ID,
			Site:        strings.TrimSpace(video.Site),
			Type:        strings.TrimSpace(video.Type),
			Name:        strings.TrimSpace(video.Name),
			PublishedAt: strings.TrimSpace(video.PublishedAt),
		})
	}
	return videos, nil
}

type originListResponse struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID           int64   `json:"id"`
		Name         string  `json:"name"`
		Overview     string  `json:"overview"`
		PosterPath   string  `json:"poster_path"`
		BackdropPath string  `json:"backdrop_path"`
		FirstAirDate string  `json:"first_air_date"`
		VoteAverage  float64 `json:"vote_average"`
		Popularity   float64 `json:"popularity"`
	} `json:"results"`
}

func (r *originListResponse) toPage() *models.SummaryPage {
	page := &models.SummaryPage{
		Page:         r.Page,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
		Results:      make([]models.ShowSummary, 0, len(r.Results)),
	}
	for _, item := range r.Results {
		page.Results = append(page.Results, models.ShowSummary{
			TMDBID:       item.ID,
			Name:         item.Name,
			Overview:     item.Overview,
			PosterPath:   item.PosterPath,
			BackdropPath: item.BackdropPath,
			FirstAirDate: item.FirstAirDate,
			VoteAverage:  item.VoteAverage,
			Popularity:   item.Popularity,
		})
	}
	return page
}

// Search performs a free-text show search against the origin.
func (c *OriginClient) Search(ctx context.Context, query string, page int) (*models.SummaryPage, error) {
	endpoint, err := url.JoinPath(c.baseURL, "search", "tv")
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", fmt.Sprintf("%d", page))

	var payload originListResponse
	if err := c.doGET(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}
	return payload.toPage(), nil
}

// Popular retrieves one page of the origin's popularity listing.
func (c *OriginClient) Popular(ctx context.Context, page int) (*models.SummaryPage, error) {
	endpoint, err := url.JoinPath(c.baseURL, "tv", "popular")
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))

	var payload originListResponse
	if err := c.doGET(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}
	return payload.toPage(), nil
}

// Trending retrieves the origin's weekly trending list.
func (c *OriginClient) Trending(ctx context.Context) (*models.SummaryPage, error) {
	endpoint, err := url.JoinPath(c.baseURL, "trending", "tv", "week")
	if err != nil {
		return nil, err
	}

	var payload originListResponse
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.toPage(), nil
}
