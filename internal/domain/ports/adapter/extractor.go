package adapter

import (
	"context"

	"prismabox-scraper/internal/domain/model"
)

// ExtractionAdapter is the port for the site-specific automation that knows
// how to authenticate against the remote UI and pull paginated box rows out
// of it. It operates a single logical browsing session, so calls for one job
// are strictly sequential.
type ExtractionAdapter interface {
	// Authenticate performs the full login sequence. Calling it while a
	// session is already active is allowed but wasteful; callers should
	// check SessionActive first.
	Authenticate(ctx context.Context) error

	// SessionActive reports whether the adapter still holds an authenticated
	// session (heuristic: not on the login surface and a post-login marker
	// is present).
	SessionActive(ctx context.Context) (bool, error)

	// OpenUnit navigates to the given unit's box listing.
	OpenUnit(ctx context.Context, unit model.Unit) error

	// ApplyAvailabilityFilter restricts the listing to available boxes. The
	// filter is session-scoped: it survives unit switches but not re-login.
	ApplyAvailabilityFilter(ctx context.Context) error

	// ExtractPage returns the box rows of the currently displayed page.
	ExtractPage(ctx context.Context) ([]model.BoxRecord, error)

	// NextPage advances to the following page, returning false when the
	// current page is the last one.
	NextPage(ctx context.Context) (bool, error)

	// Close releases the underlying browsing resources.
	Close(ctx context.Context) error
}
