package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/validation"
)

type UserService struct {
	db             core.UserStorage
	passwordHasher core.PasswordHandler
	validator      *validation.Validator
}

// Ensure UserService implements UserProvider
var _ core.UserProvider = (*UserService)(nil)

func NewUserService(db core.UserStorage, passwordHasher core.PasswordHandler, v *validation.Validator) *UserService {
	return &UserService{db: db, passwordHasher: passwordHasher, validator: v}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*core.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr("find user by id", err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*core.User, error) {
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// UpdateUser applies a partial update. Callers may update their own record;
// admins may update anyone's.
func (s *UserService) UpdateUser(ctx context.Context, caller *core.Claims, id string, input core.ProfileUpdateInput) (*core.User, error) {
	if caller == nil || (caller.UserID != id && !caller.IsAdmin) {
		return nil, core.ErrForbidden
	}
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr("find user by id", err)
	}

	if input.Email != nil && *input.Email != user.Email {
		other, err := s.db.GetUserByEmail(ctx, *input.Email)
		if err != nil && !errors.Is(err, core.ErrUserNotFound) {
			return nil, core.StorageError("find user by email", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, core.ErrUserExists
		}
		user.Email = *input.Email
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Country != nil {
		user.Country = *input.Country
	}
	if input.Age != nil {
		user.Age = *input.Age
	}
	if input.Password != nil {
		hash, err := s.passwordHasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, storeErr("update user", err)
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.db.DeleteUser(ctx, id); err != nil {
		return storeErr("delete user", err)
	}
	return nil
}

// storeErr passes taxonomy errors through and wraps anything else as a
// storage failure.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrProductNotFound),
		errors.Is(err, core.ErrOrderNotFound),
		errors.Is(err, core.ErrUserExists),
		errors.Is(err, core.ErrReviewExists),
		errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrStorage):
		return err
	default:
		return core.StorageError(op, err)
	}
}
