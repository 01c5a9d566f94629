package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"perfeval/internal/domain/directory"
)

type Resolver struct {
	Directory directory.Directory
	// AdminFallback grants the Admin role to principals that have no
	// employee profile. Enabled by default to match the portal's historical
	// behaviour; see IDENTITY_ADMIN_FALLBACK.
	AdminFallback bool
	Log           zerolog.Logger
}

func NewResolver(dir directory.Directory, adminFallback bool, log zerolog.Logger) *Resolver {
	return &Resolver{Directory: dir, AdminFallback: adminFallback, Log: log}
}

// Resolve builds the Principal for an authenticated principal id. A missing
// profile resolves to the Admin fallback (or a bare Employee when the
// fallback is disabled); any other directory failure is returned.
func (r *Resolver) Resolve(ctx context.Context, principalID string) (Principal, error) {
	profile, err := r.Directory.GetEmployeeProfile(ctx, principalID)
	if errors.Is(err, directory.ErrNotFound) {
		if !r.AdminFallback {
			return Principal{ID: principalID, Role: RoleEmployee, Portal: PortalEmployee}, nil
		}
		r.Log.Debug().Str("principal", principalID).Msg("no employee profile; resolving as admin")
		return Principal{ID: principalID, Role: RoleAdmin, Portal: PortalAdmin, Fallback: true}, nil
	}
	if err != nil {
		return Principal{}, err
	}

	role := strings.TrimSpace(profile.Role)
	reports := max(profile.DirectReportsCount, 0)
	return Principal{
		ID:                 principalID,
		EmployeeID:         profile.EmployeeID,
		Role:               role,
		Portal:             PortalForRole(role),
		IsManager:          reports > 0 || strings.EqualFold(role, RoleManager),
		DirectReportsCount: reports,
	}, nil
}
