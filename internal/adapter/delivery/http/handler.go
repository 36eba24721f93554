package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/remotelog"
	"github.com/vadimbarashkov/shorturls/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, in usecase.ShortenInput) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode, referrer string) (*entity.URL, error)
	GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error)
	CountURLs(ctx context.Context) (int, error)
}

type urlHandler struct {
	useCase   urlUseCase
	validate  *validator.Validate
	baseURL   string
	events    eventLogger
	startedAt time.Time
	now       func() time.Time
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate, baseURL string, events eventLogger, startedAt time.Time) *urlHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &urlHandler{
		useCase:   useCase,
		validate:  validate,
		baseURL:   strings.TrimRight(baseURL, "/"),
		events:    events,
		startedAt: startedAt,
		now:       time.Now,
	}
}

func (h *urlHandler) logEvent(level, message string) {
	h.events.Log(remotelog.StackBackend, level, remotelog.PackageHandler, message)
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBody)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidRequestBody)
		return
	}

	h.logEvent(remotelog.LevelInfo, fmt.Sprintf("Creating short URL for: %s", req.URL))

	validationErr := h.validate.Struct(req)
	if hasFieldError(validationErr, "url") {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidURLResponse.WithValidation(validationErr))
		return
	}

	in, err := req.toInput()
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidValidityResponse)
		return
	}

	if validationErr != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationResponse(validationErr))
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidURL):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidURLResponse)
		case errors.Is(err, entity.ErrInvalidValidity):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidValidityResponse)
		case errors.Is(err, entity.ErrInvalidShortCode):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidShortCodeResponse)
		case errors.Is(err, entity.ErrShortCodeExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, shortCodeExistsResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
			h.logEvent(remotelog.LevelFatal, fmt.Sprintf("Unexpected error in URL creation: %v", err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerError)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toShortenResponse(h.baseURL, url))
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	h.logEvent(remotelog.LevelInfo, fmt.Sprintf("Fetching statistics for shortcode: %s", shortCode))

	url, err := h.useCase.GetURLStats(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		h.logEvent(remotelog.LevelError, fmt.Sprintf("Error fetching statistics: %v", err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerError)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toURLStatsResponse(url))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	h.logEvent(remotelog.LevelInfo, fmt.Sprintf("Redirect request for shortcode: %s from IP: %s", shortCode, r.RemoteAddr))

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode, r.Referer())
	if err != nil {
		var expiredErr *entity.ExpiredError

		switch {
		case errors.Is(err, entity.ErrURLNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, redirectNotFoundResponse)
		case errors.As(err, &expiredErr):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, response.Expired(expiredErr.ExpiresAt))
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
			h.logEvent(remotelog.LevelFatal, fmt.Sprintf("Critical error in redirect: %v", err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerError)
		}
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

func (h *urlHandler) health(w http.ResponseWriter, r *http.Request) {
	h.logEvent(remotelog.LevelInfo, "Health check requested")

	total, err := h.useCase.CountURLs(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerError)
		return
	}

	now := h.now()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, healthResponse{
		Status:    statusHealthy,
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startedAt).Seconds(),
		TotalURLs: total,
	})
}

func hasFieldError(err error, field string) bool {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return false
	}

	for _, e := range errs {
		if e.Field() == field {
			return true
		}
	}
	return false
}

// validationResponse reports shortcode failures with the body ErrInvalidShortCode maps to.
func validationResponse(err error) response.Error {
	if hasFieldError(err, "shortcode") {
		return invalidShortCodeResponse.WithValidation(err)
	}

	return response.Validation(err)
}
