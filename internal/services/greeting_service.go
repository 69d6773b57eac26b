// Package services – GreetingService
//
// This file implements the greeting lookup capability. It normalizes the
// requested name and profile, reads the profile's message from the profile
// repository, and composes the greeting. Unknown profiles are reported as
// domain errors; storage failures propagate wrapped so the HTTP layer treats
// them as internal faults.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-greeting-service/internal/domain"
	"github.com/tbourn/go-greeting-service/internal/observability"
	"github.com/tbourn/go-greeting-service/internal/repo"
)

// ProfileRepo defines the repository contract required by GreetingService.
type ProfileRepo interface {
	// GetProfile fetches a profile by folded name, or repo.ErrNotFound.
	GetProfile(ctx context.Context, db *gorm.DB, name string) (*domain.Profile, error)
}

// GreetingService composes greetings from stored profile messages.
// It holds no mutable state and is safe for concurrent use.
type GreetingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the profile repository used by this service.
	Repo ProfileRepo
	// DefaultProfile is used when the caller does not name one.
	DefaultProfile string
}

// NewGreetingService constructs a GreetingService. An empty defaultProfile
// falls back to "default".
func NewGreetingService(db *gorm.DB, r ProfileRepo, defaultProfile string) *GreetingService {
	if strings.TrimSpace(defaultProfile) == "" {
		defaultProfile = "default"
	}
	return &GreetingService{DB: db, Repo: r, DefaultProfile: foldProfile(defaultProfile)}
}

// RetrieveGreeting returns "<name>, <message>" for the given profile.
func (s *GreetingService) RetrieveGreeting(ctx context.Context, name, profile string) (string, error) {
	if !utf8.ValidString(name) {
		return "", domain.NewValidationError("name must be valid UTF-8")
	}
	name = normalizeName(name)
	if name == "" {
		return "", domain.NewValidationError("name must not be blank")
	}

	key := foldProfile(profile)
	if key == "" {
		key = s.DefaultProfile
	}

	ctx, span := observability.Tracer().Start(ctx, "GreetingService.RetrieveGreeting")
	defer span.End()
	span.SetAttributes(attribute.String("greeting.profile", key))

	p, err := s.Repo.GetProfile(ctx, s.DB, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", domain.ProfileNotValid(key)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile lookup failed")
		return "", fmt.Errorf("retrieve greeting for profile %q: %w", key, err)
	}
	return name + ", " + p.Message, nil
}

// normalizeName trims surrounding whitespace and applies Unicode NFC so that
// visually identical names compare and render the same.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// foldProfile produces the case-insensitive lookup key for a profile.
func foldProfile(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
