package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/shortcode"
	"github.com/vadimbarashkov/shorturls/pkg/remotelog"
)

const (
	// DefaultValidity is used when a shorten request carries no validity.
	DefaultValidity = 30 * time.Minute
	// DefaultClickLocation is recorded as the location of every click.
	DefaultClickLocation = "India"

	// MaxValidity is the longest validity, in minutes, whose expiry still fits in a time.Duration.
	MaxValidity = int(math.MaxInt64 / int64(time.Minute))

	maxRetries = 5
)

var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

type urlRepository interface {
	Save(ctx context.Context, url *entity.URL) error
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveAndRecordClick(ctx context.Context, shortCode string, newClick func() entity.Click) (*entity.URL, error)
	Count(ctx context.Context) (int, error)
}

type codeGenerator interface {
	Generate() (string, error)
}

type eventLogger interface {
	Log(stack, level, pkg, message string)
}

type nopEventLogger struct{}

func (nopEventLogger) Log(_, _, _, _ string) {}

// ShortenInput holds the caller supplied values for a new short URL.
type ShortenInput struct {
	OriginalURL string
	Validity    *int // minutes; nil means DefaultValidity
	ShortCode   string
}

type Option func(*URLUseCase)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

func WithDefaultValidity(d time.Duration) Option {
	return func(uc *URLUseCase) {
		if d > 0 {
			uc.defaultValidity = d
		}
	}
}

func WithClickLocation(location string) Option {
	return func(uc *URLUseCase) {
		if location != "" {
			uc.clickLocation = location
		}
	}
}

// WithEventLogger sets the sink for (stack, level, package, message) events.
func WithEventLogger(logger eventLogger) Option {
	return func(uc *URLUseCase) {
		if logger != nil {
			uc.events = logger
		}
	}
}

type URLUseCase struct {
	urlRepo         urlRepository
	gen             codeGenerator
	events          eventLogger
	now             func() time.Time
	defaultValidity time.Duration
	clickLocation   string
}

func New(urlRepo urlRepository, gen codeGenerator, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:         urlRepo,
		gen:             gen,
		events:          nopEventLogger{},
		now:             time.Now,
		defaultValidity: DefaultValidity,
		clickLocation:   DefaultClickLocation,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *URLUseCase) ShortenURL(ctx context.Context, in ShortenInput) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if err := validateURL(in.OriginalURL); err != nil {
		uc.logEvent(remotelog.LevelError, remotelog.PackageService, "Invalid URL format provided")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	validity := uc.defaultValidity
	if in.Validity != nil {
		if *in.Validity <= 0 || *in.Validity > MaxValidity {
			uc.logEvent(remotelog.LevelError, remotelog.PackageService, fmt.Sprintf("Invalid validity period: %d", *in.Validity))
			return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidValidity)
		}
		validity = time.Duration(*in.Validity) * time.Minute
	}

	if in.ShortCode != "" {
		return uc.shortenWithCustomCode(ctx, in.OriginalURL, in.ShortCode, validity)
	}

	for i := 0; i < maxRetries; i++ {
		shortCode, err := uc.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url := uc.newURL(shortCode, in.OriginalURL, validity)

		if err := uc.urlRepo.Save(ctx, url); err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				uc.logEvent(remotelog.LevelWarn, remotelog.PackageService, fmt.Sprintf("Generated shortcode collision: %s", shortCode))
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		uc.logCreated(url)

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

func (uc *URLUseCase) shortenWithCustomCode(ctx context.Context, originalURL, shortCode string, validity time.Duration) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if err := shortcode.Validate(shortCode); err != nil {
		uc.logEvent(remotelog.LevelError, remotelog.PackageService, fmt.Sprintf("Invalid shortcode format: %s", shortCode))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url := uc.newURL(shortCode, originalURL, validity)

	if err := uc.urlRepo.Save(ctx, url); err != nil {
		if errors.Is(err, entity.ErrShortCodeExists) {
			uc.logEvent(remotelog.LevelError, remotelog.PackageService, fmt.Sprintf("Shortcode collision: %s", shortCode))
		}

		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	uc.logCreated(url)

	return url, nil
}

func (uc *URLUseCase) newURL(shortCode, originalURL string, validity time.Duration) *entity.URL {
	createdAt := uc.now().UTC()

	return &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(validity),
	}
}

// ResolveShortCode records a click for shortCode and returns the URL to redirect to.
// An empty referrer is recorded as entity.DirectReferrer.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode, referrer string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	if referrer == "" {
		referrer = entity.DirectReferrer
	}

	// The repository calls newClick under its lock.
	newClick := func() entity.Click {
		return entity.Click{
			ID:        uuid.NewString(),
			Timestamp: uc.now().UTC(),
			Referrer:  referrer,
			Location:  uc.clickLocation,
		}
	}

	url, err := uc.urlRepo.RetrieveAndRecordClick(ctx, shortCode, newClick)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrURLNotFound):
			uc.logEvent(remotelog.LevelWarn, remotelog.PackageService, fmt.Sprintf("Shortcode not found for redirect: %s", shortCode))
		case errors.Is(err, entity.ErrURLExpired):
			uc.logEvent(remotelog.LevelWarn, remotelog.PackageService, fmt.Sprintf("Expired URL accessed: %s", shortCode))
		}

		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	uc.logEvent(remotelog.LevelInfo, remotelog.PackageService, fmt.Sprintf("Redirecting %s to %s. Click tracked.", shortCode, url.OriginalURL))

	return url, nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.logEvent(remotelog.LevelWarn, remotelog.PackageService, fmt.Sprintf("Shortcode not found: %s", shortCode))
		}

		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	uc.logEvent(remotelog.LevelInfo, remotelog.PackageService, fmt.Sprintf("Statistics retrieved for %s: %d total clicks", shortCode, url.TotalClicks()))

	return url, nil
}

func (uc *URLUseCase) CountURLs(ctx context.Context) (int, error) {
	const op = "usecase.URLUseCase.CountURLs"

	n, err := uc.urlRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to count urls: %w", op, err)
	}

	return n, nil
}

func (uc *URLUseCase) logCreated(url *entity.URL) {
	uc.logEvent(remotelog.LevelInfo, remotelog.PackageService,
		fmt.Sprintf("Short URL created: %s, expires: %s", url.ShortCode, url.ExpiresAt.Format(time.RFC3339)))
}

func (uc *URLUseCase) logEvent(level, pkg, message string) {
	uc.events.Log(remotelog.StackBackend, level, pkg, message)
}

// validateURL accepts absolute http and https URLs with a host.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return entity.ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return entity.ErrInvalidURL
	}

	if u.Host == "" {
		return entity.ErrInvalidURL
	}

	return nil
}
