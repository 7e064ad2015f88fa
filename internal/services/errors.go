package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"groupboard/internal/metrics"
)

// Handlers map these onto status codes; see handlers/apiserver/response.go.
var (
	ErrValidation      = errors.New("invalid request")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")

	ErrUserNotFound            = errors.New("user not found")
	ErrGroupNotFound           = errors.New("group not found")
	ErrMemberNotFound          = errors.New("member not found")
	ErrPostNotFound            = errors.New("post not found")
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrAcknowledgementNotFound = errors.New("acknowledgement not found")
	ErrShortcutNotFound        = errors.New("shortcut not found")

	ErrUserExists               = errors.New("user already exists")
	ErrUserDeleted              = errors.New("user has been deleted")
	ErrGroupDeleted             = errors.New("group has been deleted")
	ErrAlreadyDeleted           = errors.New("already deleted")
	ErrAlreadyMember            = errors.New("already a group member")
	ErrNotAMember               = errors.New("user is not a group member")
	ErrNotAcceptingInvitations  = errors.New("not accepting invitations")
	ErrActiveInvitationExists   = errors.New("an active invitation already exists")
	ErrInvitationUsed           = errors.New("invitation has already been used")
	ErrDuplicateAcknowledgement = errors.New("post already acknowledged")
	ErrDuplicateShortcut        = errors.New("shortcut already exists")
	ErrProvisioningFailed       = errors.New("identity provisioning failed")

	// ErrStoreFailure is an unclassified store error. The details are logged, not returned.
	ErrStoreFailure = errors.New("the request could not be completed")
	ErrStoreTimeout = errors.New("store timeout")
)

var serviceErrors = []error{
	ErrValidation, ErrUnauthenticated, ErrUnauthorized,
	ErrUserNotFound, ErrGroupNotFound, ErrMemberNotFound, ErrPostNotFound,
	ErrInvitationNotFound, ErrAcknowledgementNotFound, ErrShortcutNotFound,
	ErrUserExists, ErrUserDeleted, ErrGroupDeleted, ErrAlreadyDeleted,
	ErrAlreadyMember, ErrNotAMember, ErrNotAcceptingInvitations,
	ErrActiveInvitationExists, ErrInvitationUsed, ErrDuplicateAcknowledgement,
	ErrDuplicateShortcut, ErrProvisioningFailed, ErrStoreFailure, ErrStoreTimeout,
}

func isServiceError(err error) bool {
	for _, target := range serviceErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func requireCaller(callerID uint) error {
	if callerID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func requireID(name string, id uint) error {
	if id == 0 {
		return invalid("%s must be a positive id", name)
	}
	return nil
}

// storeFailure logs err with the attempted payload and hides it behind
// ErrStoreFailure, or ErrStoreTimeout when the deadline was hit.
func storeFailure(ctx context.Context, op string, payload interface{}, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn().Err(err).Str("operation", op).Msg("store call timed out")
		return fmt.Errorf("%w: %s", ErrStoreTimeout, op)
	}
	log.Error().Err(err).Str("operation", op).Interface("payload", payload).Msg("unexpected store failure")
	metrics.StoreFailures.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s", ErrStoreFailure, op)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
