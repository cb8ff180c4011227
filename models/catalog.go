package models

import "time"

// Show status values as reported by the origin catalog.
const (
	ShowStatusReturning = "Returning Series"
	ShowStatusEnded     = "Ended"
	ShowStatusCanceled  = "Canceled"
	ShowStatusInProd    = "In Production"
)

// Show is the canonical cached record for one catalog entry. ID is assigned by
// the local store on first cache and is never reused; TMDBID is the origin's
// identifier and is unique across all cached shows.
type Show struct {
	ID              int64     `json:"id"`
	TMDBID          int64     `json:"tmdbId"`
	Name            string    `json:"name"`
	OriginalName    string    `json:"originalName,omitempty"`
	Overview        string    `json:"overview"`
	PosterPath      string    `json:"posterPath,omitempty"`
	BackdropPath    string    `json:"backdropPath,omitempty"`
	FirstAirDate    string    `json:"firstAirDate,omitempty"`
	LastAirDate     string    `json:"lastAirDate,omitempty"`
	VoteAverage     float64   `json:"voteAverage"`
	VoteCount       int64     `json:"voteCount"`
	Popularity      float64   `json:"popularity"`
	Status          string    `json:"status,omitempty"`
	EpisodeCount    int       `json:"episodeCount"`
	SeasonCount     int       `json:"seasonCount"`
	GenreIDs        []int64   `json:"genreIds,omitempty"`
	OriginCountries []string  `json:"originCountries,omitempty"`
	LastRefreshedAt time.Time `json:"lastRefreshedAt"`
}

// CastMember is one credited cast row owned by a show.
type CastMember struct {
	ShowID      int64  `json:"-"`
	PersonID    int64  `json:"personId"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
	Order       int    `json:"order"`
}

// Video is one trailer/teaser/clip row owned by a show.
type Video struct {
	ShowID      int64  `json:"-"`
	VideoID     string `json:"videoId"`
	Site        string `json:"site,omitempty"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// Season is one season row owned by a show.
type Season struct {
	ShowID       int64  `json:"-"`
	SeasonNumber int    `json:"seasonNumber"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate,omitempty"`
	PosterPath   string `json:"posterPath,omitempty"`
}

// ShowDetails is the assembled view returned to callers: the show row plus all
// of its dependent collections as currently stored.
type ShowDetails struct {
	Show
	Cast    []CastMember `json:"cast"`
	Videos  []Video      `json:"videos"`
	Seasons []Season     `json:"seasons"`
}

// ShowSummary is the listing-level shape returned by search, popular and
// trending queries. It carries only the fields the origin's list endpoints
// provide.
type ShowSummary struct {
	TMDBID       int64   `json:"tmdbId"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"posterPath,omitempty"`
	BackdropPath string  `json:"backdropPath,omitempty"`
	FirstAirDate string  `json:"firstAirDate,omitempty"`
	VoteAverage  float64 `json:"voteAverage"`
	Popularity   float64 `json:"popularity"`
}

// SummaryPage is one page of listing results.
type SummaryPage struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"totalPages"`
	TotalResults int           `json:"totalResults"`
	Results      []ShowSummary `json:"results"`
}
