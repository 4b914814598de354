package vendors

import (
	"context"

	"github.com/itinfra/seatsweep/pkg/license"
)

// AuthConfig carries the credential inputs a source may need. Fields a
// vendor does not use are ignored.
type AuthConfig struct {
	Token        string
	Organization string // GitHub org slug
	CustomerCode string // JetBrains customer code
}

// UsageSource defines a common interface for vendor-specific usage-data
// fetching, abstracting away authentication, pagination, and status-code
// interpretation. Implementations must return identities with normalized
// emails, exclude identities exempt from monitoring (e.g. organization
// owners), and only return activity records inside the requested window.
type UsageSource interface {
	Name() string
	DisplayName() string
	// Authenticate configures the source with credentials. Implementations
	// that validate nothing up front should return nil.
	Authenticate(ctx context.Context, cfg AuthConfig) error
	FetchRoster(ctx context.Context) ([]license.Identity, error)
	FetchActivity(ctx context.Context, w license.Window) ([]license.ActivityRecord, error)
}
