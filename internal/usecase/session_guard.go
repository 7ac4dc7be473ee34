package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain/ports/adapter"
)

// SessionGuard detects and restores the authenticated session the extraction
// adapter holds against the remote service.
type SessionGuard struct {
	ext adapter.ExtractionAdapter
	log zerolog.Logger
}

func NewSessionGuard(ext adapter.ExtractionAdapter, logger *zerolog.Logger) *SessionGuard {
	return &SessionGuard{
		ext: ext,
		log: logger.With().Str("component", "SessionGuard").Logger(),
	}
}

func (g *SessionGuard) IsAuthenticated(ctx context.Context) (bool, error) {
	return g.ext.SessionActive(ctx)
}

// Login runs the full authentication sequence. Safe to call when already
// authenticated, but callers should check IsAuthenticated first.
func (g *SessionGuard) Login(ctx context.Context) error {
	if err := g.ext.Authenticate(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	g.log.Info().Msg("login succeeded")
	return nil
}

// EnsureAuthenticated re-establishes the session when it has expired. The
// returned flag tells the caller a re-login happened, so any session-scoped
// cached state (applied filters) must be invalidated.
func (g *SessionGuard) EnsureAuthenticated(ctx context.Context) (bool, error) {
	active, err := g.ext.SessionActive(ctx)
	if err != nil {
		return false, fmt.Errorf("session check: %w", err)
	}
	if active {
		return false, nil
	}

	g.log.Warn().Msg("session expired, re-authenticating")
	if err := g.Login(ctx); err != nil {
		return false, err
	}
	return true, nil
}
