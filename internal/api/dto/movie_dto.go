package dto

import (
	"time"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/service"
)

// MovieRequest payload for catalog create and update.
type MovieRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MovieResponse describes a catalog entry with presigned image URLs.
type MovieResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CoverImageURL   string    `json:"cover_image_url,omitempty"`
	DetailImageURLs []string  `json:"detail_image_urls,omitempty"`
	HasVideo        bool      `json:"has_video"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MovieAdminResponse adds the raw object keys for catalog management.
type MovieAdminResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CoverImageKey   string    `json:"cover_image_key,omitempty"`
	DetailImageKeys []string  `json:"detail_image_keys"`
	VideoKey        string    `json:"video_key,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PlaybackResponse hands out a time-limited stream URL.
type PlaybackResponse struct {
	MovieID   string    `json:"movie_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewMovieResponse maps a catalog view.
func NewMovieResponse(view service.MovieView) MovieResponse {
	return MovieResponse{
		ID:              view.ID,
		Title:           view.Title,
		Description:     view.Description,
		CoverImageURL:   view.CoverURL,
		DetailImageURLs: view.DetailImageURLs,
		HasVideo:        view.VideoKey != "",
		CreatedAt:       view.CreatedAt,
		UpdatedAt:       view.UpdatedAt,
	}
}

// NewMovieAdminResponse maps a stored movie.
func NewMovieAdminResponse(m *domain.Movie) MovieAdminResponse {
	keys := m.DetailImageKeys
	if keys == nil {
		keys = []string{}
	}
	return MovieAdminResponse{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		CoverImageKey:   m.CoverImageKey,
		DetailImageKeys: keys,
		VideoKey:        m.VideoKey,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
