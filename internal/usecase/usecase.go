// Package usecase implements the URL shortening business logic on top of a
// pluggable URL repository and short code generator.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/url-shortener/internal/entity"
)

// DefaultMaxRetries bounds the number of candidate short codes tried by ShortenURL.
const DefaultMaxRetries = 5

type urlRepository interface {
	Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
	RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error)
	Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error)
	Remove(ctx context.Context, shortCode string) error
}

type codeGenerator interface {
	Generate() (string, error)
}

// URLUseCase exposes create, resolve, update, delete and stats operations for shortened URLs.
type URLUseCase struct {
	urlRepo    urlRepository
	codeGen    codeGenerator
	maxRetries int
	reserved   map[string]struct{}
	validate   *validator.Validate
}

// Option configures a URLUseCase.
type Option func(*URLUseCase)

// WithReservedShortCodes keeps ShortenURL from handing out the given codes.
// A generated reserved code counts as a collision.
func WithReservedShortCodes(codes ...string) Option {
	return func(uc *URLUseCase) {
		for _, code := range codes {
			uc.reserved[code] = struct{}{}
		}
	}
}

// NewURLUseCase creates a URLUseCase. A non-positive maxRetries falls back to DefaultMaxRetries.
func NewURLUseCase(urlRepo urlRepository, codeGen codeGenerator, maxRetries int, opts ...Option) *URLUseCase {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	uc := &URLUseCase{
		urlRepo:    urlRepo,
		codeGen:    codeGen,
		maxRetries: maxRetries,
		reserved:   make(map[string]struct{}),
		validate:   validator.New(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *URLUseCase) validateURL(originalURL string) error {
	if err := uc.validate.Var(originalURL, "required,url"); err != nil {
		return entity.ErrInvalidURL
	}
	return nil
}

func (uc *URLUseCase) validateShortCode(shortCode string) error {
	if err := uc.validate.Var(shortCode, "required"); err != nil {
		return entity.ErrInvalidShortCode
	}
	return nil
}

// ShortenURL stores originalURL under a freshly generated short code.
//
// Collisions with live, retired or reserved codes are retried with a new candidate
// up to the configured limit, after which entity.ErrKeyspaceExhausted is returned.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if err := uc.validateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := 0; i < uc.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		shortCode, err := uc.codeGen.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		if _, ok := uc.reserved[shortCode]; ok {
			continue
		}

		url, err := uc.urlRepo.Save(ctx, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrKeyspaceExhausted)
}

// ResolveShortCode returns the URL behind shortCode and counts the access.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	if err := uc.validateShortCode(shortCode); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := uc.urlRepo.RetrieveAndUpdateStats(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url, nil
}

// ModifyURL points shortCode at originalURL.
func (uc *URLUseCase) ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ModifyURL"

	if err := uc.validateShortCode(shortCode); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := uc.validateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := uc.urlRepo.Update(ctx, shortCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify url: %w", op, err)
	}

	return url, nil
}

// DeactivateURL deletes shortCode for good. The code is never handed out again.
func (uc *URLUseCase) DeactivateURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeactivateURL"

	if err := uc.validateShortCode(shortCode); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := uc.urlRepo.Remove(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	return nil
}

// GetURLStats returns the URL behind shortCode without counting an access.
func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	if err := uc.validateShortCode(shortCode); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := uc.urlRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}
