package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"groupboard/internal/events"
	"groupboard/internal/models"
	"groupboard/internal/provisioning"
	"groupboard/internal/storage"
)

// UserService defines the user operations. Every method except the two
// keyed by external identity requires callerID to be the target user.
type UserService interface {
	GetUser(ctx context.Context, callerID, userID uint) (models.UserDTO, error)
	GetUserByExternalID(ctx context.Context, tokenExternalID, aadOid string) (models.UserDTO, error)
	ListUserGroups(ctx context.Context, callerID, userID uint) ([]models.UserGroupDTO, error)
	NewUser(ctx context.Context, externalID string, in NewUserInput) (models.UserDTO, error)
	UpdateUser(ctx context.Context, callerID, userID uint, in UpdateUserInput) (models.UserDTO, error)
	DeleteUser(ctx context.Context, callerID, userID uint) error
}

type NewUserInput struct {
	DisplayName            string `json:"displayName"`
	AcceptGroupInvitations bool   `json:"acceptGroupInvitations"`
}

type UpdateUserInput struct {
	DisplayName            string `json:"displayName"`
	AcceptGroupInvitations bool   `json:"acceptGroupInvitations"`
	DefaultGroupID         *uint  `json:"defaultGroupId"`
}

type userService struct {
	workflow
	provisioner provisioning.Provisioner
}

// NewUserService creates a UserService. provisioner registers new users with
// the identity provider inside the creating transaction.
func NewUserService(store *storage.Store, authority MembershipAuthority, provisioner provisioning.Provisioner, queryTimeout time.Duration) UserService {
	return &userService{
		workflow:    newWorkflow(store, authority, events.NopPublisher{}, queryTimeout),
		provisioner: provisioner,
	}
}

func validateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 50 {
		return "", invalid("displayName must be 1-50 characters")
	}
	return name, nil
}

func (s *userService) requireSelf(callerID, userID uint) error {
	if err := requireID("userId", userID); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	if callerID != userID {
		return ErrUnauthorized
	}
	return nil
}

func (s *userService) loadUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if storage.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeFailure(ctx, "get user", userID, err)
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, callerID, userID uint) (models.UserDTO, error) {
	if err := s.requireSelf(callerID, userID); err != nil {
		return models.UserDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.UserDTO{}, err
	}
	return models.NewUserDTO(user), nil
}

// GetUserByExternalID looks a user up by the identity provider's object id.
// It serves clients that do not know their internal id yet, so only the
// token's external identity is checked.
func (s *userService) GetUserByExternalID(ctx context.Context, tokenExternalID, aadOid string) (models.UserDTO, error) {
	aadOid = strings.TrimSpace(aadOid)
	if aadOid == "" {
		return models.UserDTO{}, invalid("aadOid is required")
	}
	if tokenExternalID == "" {
		return models.UserDTO{}, ErrUnauthenticated
	}
	if tokenExternalID != aadOid {
		return models.UserDTO{}, ErrUnauthorized
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	user, err := s.store.Users.GetByAadOid(ctx, aadOid)
	if storage.IsNotFound(err) {
		return models.UserDTO{}, ErrUserNotFound
	}
	if err != nil {
		return models.UserDTO{}, storeFailure(ctx, "get user by oid", aadOid, err)
	}
	return models.NewUserDTO(user), nil
}

func (s *userService) ListUserGroups(ctx context.Context, callerID, userID uint) ([]models.UserGroupDTO, error) {
	if err := s.requireSelf(callerID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	groups, err := s.store.Groups.ListUserGroups(ctx, userID)
	if err != nil {
		return nil, storeFailure(ctx, "list user groups", userID, err)
	}
	return groups, nil
}

// NewUser inserts the user and provisions its internal id with the identity
// provider in one transaction. A provisioning failure rolls the row back,
// since a user unreachable from future tokens is unusable.
func (s *userService) NewUser(ctx context.Context, externalID string, in NewUserInput) (models.UserDTO, error) {
	name, err := validateDisplayName(in.DisplayName)
	if err != nil {
		return models.UserDTO{}, err
	}
	if externalID == "" {
		return models.UserDTO{}, ErrUnauthenticated
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.store.Users.GetByAadOid(ctx, externalID); err == nil {
		return models.UserDTO{}, ErrUserExists
	} else if !storage.IsNotFound(err) {
		return models.UserDTO{}, storeFailure(ctx, "get user by oid", externalID, err)
	}

	user := &models.User{
		AadOid:                 externalID,
		DisplayName:            name,
		AcceptGroupInvitations: in.AcceptGroupInvitations,
	}
	err = s.transact(ctx, "create user tx", user, func(tx *storage.Repositories) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return ErrUserExists
			}
			return storeFailure(ctx, "create user", user, err)
		}
		if err := s.provisioner.Provision(ctx, externalID, user.ID); err != nil {
			log.Error().Err(err).Uint("userId", user.ID).Str("oid", externalID).Msg("provisioning failed; rolling back new user")
			return ErrProvisioningFailed
		}
		return nil
	})
	if err != nil {
		return models.UserDTO{}, err
	}
	return models.NewUserDTO(user), nil
}

func (s *userService) UpdateUser(ctx context.Context, callerID, userID uint, in UpdateUserInput) (models.UserDTO, error) {
	name, err := validateDisplayName(in.DisplayName)
	if err != nil {
		return models.UserDTO{}, err
	}
	if in.DefaultGroupID != nil && *in.DefaultGroupID == 0 {
		return models.UserDTO{}, invalid("defaultGroupId must be a positive id")
	}
	if err := s.requireSelf(callerID, userID); err != nil {
		return models.UserDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.UserDTO{}, err
	}
	if user.IsDeleted {
		return models.UserDTO{}, ErrUserDeleted
	}
	if in.DefaultGroupID != nil {
		role, err := s.authority.GroupRole(ctx, userID, *in.DefaultGroupID)
		if err != nil {
			return models.UserDTO{}, storeFailure(ctx, "group role", in, err)
		}
		if role == 0 {
			return models.UserDTO{}, invalid("defaultGroupId must be a group the user belongs to")
		}
	}

	update := storage.UserUpdate{
		DisplayName:            name,
		AcceptGroupInvitations: in.AcceptGroupInvitations,
		DefaultGroupID:         in.DefaultGroupID,
	}
	if err := s.store.Users.UpdateProfile(ctx, userID, update); err != nil {
		if errors.Is(err, storage.ErrForeignKey) {
			return models.UserDTO{}, invalid("defaultGroupId does not exist")
		}
		return models.UserDTO{}, storeFailure(ctx, "update user", in, err)
	}
	user.DisplayName = name
	user.AcceptGroupInvitations = in.AcceptGroupInvitations
	user.DefaultGroupID = in.DefaultGroupID
	return models.NewUserDTO(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, callerID, userID uint) error {
	if err := s.requireSelf(callerID, userID); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsDeleted {
		return ErrAlreadyDeleted
	}
	if err := s.store.Users.SoftDelete(ctx, userID, s.now()); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrAlreadyDeleted
		}
		return storeFailure(ctx, "delete user", userID, err)
	}
	return nil
}
