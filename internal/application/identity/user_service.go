package identity

import (
	"context"
	"fmt"

	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService provides user administration operations
type UserService struct {
	users  identity.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(users identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents an administrative user update
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
}

// ResetPasswordRequest represents an administrative password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// Create creates a new user (admin only)
func (s *UserService) Create(ctx context.Context, actor identity.Actor, req CreateUserRequest) (*UserResponse, error) {
	if err := actor.Authorize(identity.CapManageUsers); err != nil {
		return nil, err
	}

	user, err := identity.NewUser(req.Username, req.Email, req.Password, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if req.FullName != "" {
		if err := user.SetFullName(req.FullName); err != nil {
			return nil, err
		}
	}

	existing, err := s.users.FindByUsername(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
	}
	if user.Email != "" {
		existing, err = s.users.FindByEmail(ctx, user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if existing != nil {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Email is already in use")
		}
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	resp := toUserResponse(user)
	return &resp, nil
}

// GetByID gets a user by ID. Non-admins may only look up themselves.
func (s *UserService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserResponse, error) {
	if !actor.Can(identity.CapManageUsers) && actor.UserID != id {
		return nil, shared.ErrForbidden
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// List lists users (admin only)
func (s *UserService) List(ctx context.Context, actor identity.Actor, filter shared.Filter) ([]UserResponse, int64, error) {
	if err := actor.Authorize(identity.CapManageUsers); err != nil {
		return nil, 0, err
	}
	users, total, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = toUserResponse(user)
	}
	return responses, total, nil
}

// Update applies an administrative update to a user (admin only)
func (s *UserService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	if err := actor.Authorize(identity.CapManageUsers); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		if err := user.SetFullName(*req.FullName); err != nil {
			return nil, err
		}
	}
	if req.Role != nil {
		if actor.UserID == id {
			return nil, shared.NewDomainError("SELF_ROLE_CHANGE", "You cannot change your own role")
		}
		if err := user.SetRole(identity.Role(*req.Role)); err != nil {
			return nil, err
		}
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// Deactivate deactivates a user (admin only). Admins cannot deactivate
// themselves.
func (s *UserService) Deactivate(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserResponse, error) {
	if err := actor.Authorize(identity.CapManageUsers); err != nil {
		return nil, err
	}
	if actor.UserID == id {
		return nil, shared.NewDomainError("SELF_DEACTIVATION", "You cannot deactivate your own account")
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("user deactivated", zap.String("user_id", id.String()))
	resp := toUserResponse(user)
	return &resp, nil
}

// Activate reactivates a user and clears any lockout (admin only)
func (s *UserService) Activate(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserResponse, error) {
	if err := actor.Authorize(identity.CapManageUsers); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Activate(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("user activated", zap.String("user_id", id.String()))
	resp := toUserResponse(user)
	return &resp, nil
}

// ResetPassword sets a new password without the current one (admin only)
func (s *UserService) ResetPassword(ctx context.Context, actor identity.Actor, id uuid.UUID, req ResetPasswordRequest) error {
	if err := actor.Authorize(identity.CapManageUsers); err != nil {
		return err
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("password reset",
		zap.String("user_id", id.String()),
		zap.String("reset_by", actor.UserID.String()))
	return nil
}

func (s *UserService) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "User not found")
	}
	return user, nil
}
