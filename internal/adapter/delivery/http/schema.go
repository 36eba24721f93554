package http

import (
	"encoding/json"
	"math"
	"time"

	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/response"
)

const statusHealthy = "healthy"

// shortenRequest represents the structure for a request to shorten a URL.
// Validity is in minutes; it is kept raw so that any integral JSON number, 1e3 included, is accepted.
type shortenRequest struct {
	URL       string          `json:"url" validate:"required,url"`
	Validity  json.RawMessage `json:"validity"`
	ShortCode string          `json:"shortcode" validate:"omitempty,alphanum,max=20"`
}

func (req shortenRequest) toInput() (usecase.ShortenInput, error) {
	validity, err := parseValidity(req.Validity)
	if err != nil {
		return usecase.ShortenInput{}, err
	}

	return usecase.ShortenInput{
		OriginalURL: req.URL,
		Validity:    validity,
		ShortCode:   req.ShortCode,
	}, nil
}

// parseValidity returns nil for an absent or null validity and
// entity.ErrInvalidValidity for anything that is not an integral JSON number.
func parseValidity(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, entity.ErrInvalidValidity
	}

	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, entity.ErrInvalidValidity
	}

	v := int(f)
	return &v, nil
}

type shortenResponse struct {
	ShortLink string    `json:"shortLink"`
	Expiry    time.Time `json:"expiry"`
}

func toShortenResponse(baseURL string, url *entity.URL) shortenResponse {
	return shortenResponse{
		ShortLink: baseURL + "/" + url.ShortCode,
		Expiry:    url.ExpiresAt,
	}
}

type clickResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer"`
	Location  string    `json:"location"`
}

type urlStatsResponse struct {
	ShortCode   string          `json:"shortcode"`
	OriginalURL string          `json:"originalUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	TotalClicks int             `json:"totalClicks"`
	Clicks      []clickResponse `json:"clicks"`
}

func toURLStatsResponse(url *entity.URL) urlStatsResponse {
	clicks := make([]clickResponse, 0, len(url.Clicks))
	for _, c := range url.Clicks {
		clicks = append(clicks, clickResponse{
			Timestamp: c.Timestamp,
			Referrer:  c.Referrer,
			Location:  c.Location,
		})
	}

	return urlStatsResponse{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
		TotalClicks: url.TotalClicks(),
		Clicks:      clicks,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
	TotalURLs int       `json:"totalUrls"`
}

// Predefined error responses for the short URL domain.
var (
	invalidURLResponse = response.New("Invalid URL format. Must start with http:// or https://")

	invalidValidityResponse = response.New("Validity must be a positive integer representing minutes")

	invalidShortCodeResponse = response.New("Shortcode must be alphanumeric and at most 20 characters")

	shortCodeExistsResponse = response.New("Custom shortcode already exists. Please choose a different one.")

	urlNotFoundResponse = response.New("Short URL not found")

	redirectNotFoundResponse = response.Error{
		Error:   "Short URL not found",
		Message: "The requested short URL does not exist or may have been deleted.",
	}
)
