package http

import (
	"time"

	"github.com/vadimbarashkov/url-shortener/internal/entity"
)

// urlRequest is the body of create and update requests.
type urlRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// urlResponse is the public view of a short URL. It never carries the access count.
type urlResponse struct {
	ShortCode string    `json:"shortCode"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toURLResponse(url *entity.URL) urlResponse {
	return urlResponse{
		ShortCode: url.ShortCode,
		URL:       url.OriginalURL,
		CreatedAt: url.CreatedAt.UTC(),
		UpdatedAt: url.UpdatedAt.UTC(),
	}
}

// urlStatsResponse is urlResponse plus the number of resolutions.
type urlStatsResponse struct {
	ShortCode   string    `json:"shortCode"`
	URL         string    `json:"url"`
	AccessCount int64     `json:"accessCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toURLStatsResponse(url *entity.URL) urlStatsResponse {
	return urlStatsResponse{
		ShortCode:   url.ShortCode,
		URL:         url.OriginalURL,
		AccessCount: url.AccessCount,
		CreatedAt:   url.CreatedAt.UTC(),
		UpdatedAt:   url.UpdatedAt.UTC(),
	}
}
