// Package provisioning tells the identity provider about newly created users
// so that their future tokens carry the internal user id.
package provisioning

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"groupboard/internal/config"
)

// Provisioner attaches an internal user id to an external identity.
type Provisioner interface {
	Provision(ctx context.Context, externalID string, userID uint) error
}

// New builds the provisioner selected by cfg.Type.
func New(ctx context.Context, cfg config.ProvisionerConfig) (Provisioner, error) {
	switch cfg.Type {
	case "graph":
		return NewGraphProvisioner(ctx, cfg)
	case "none", "":
		return NoopProvisioner{}, nil
	default:
		return nil, fmt.Errorf("unsupported provisioner type: %s", cfg.Type)
	}
}

// NoopProvisioner accepts every user. For local development.
type NoopProvisioner struct{}

func (NoopProvisioner) Provision(_ context.Context, externalID string, userID uint) error {
	log.Warn().Str("oid", externalID).Uint("user_id", userID).Msg("provisioner disabled; token claims will not carry the user id")
	return nil
}

// Func adapts a function to Provisioner.
type Func func(ctx context.Context, externalID string, userID uint) error

func (f Func) Provision(ctx context.Context, externalID string, userID uint) error {
	return f(ctx, externalID, userID)
}
