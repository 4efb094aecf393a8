package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// BootstrapAdminEmail self-registers with the ADMIN role instead of CLIENT.
// Every other registration gets CLIENT.
const BootstrapAdminEmail = "admin@digital.store"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotProfileOwner    = errors.New("you can only edit your own profile")
)

type CreateInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      Role
	Password  string
}

type UpdateInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      Role
	Password  string // empty keeps the current hash
}

type ProfileInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string // empty keeps the current hash
}

// ProfileResult carries the updated user plus an explicit signal that the
// login identity changed. The HTTP layer uses it to refresh the caller's
// session so it is not invalidated by a now-stale email.
type ProfileResult struct {
	User         *User
	EmailChanged bool
}

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, in CreateInput) (*User, error)
	Register(ctx context.Context, in CreateInput) (*User, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput, currentEmail string) (*ProfileResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f Filter) ([]User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("service: failed to get user by id: %w", err)
	}
	return u, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("service: failed to get user by email")
		return nil, fmt.Errorf("service: failed to get user by email: %w", err)
	}
	return u, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*User, error) {
	return s.create(ctx, in, in.Role)
}

func (s *service) Register(ctx context.Context, in CreateInput) (*User, error) {
	role := RoleClient
	if strings.EqualFold(in.Email, BootstrapAdminEmail) {
		role = RoleAdmin
	}
	return s.create(ctx, in, role)
}

func (s *service) create(ctx context.Context, in CreateInput, role Role) (*User, error) {
	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		log.Error().Err(err).Str("email", in.Email).Msg("service: failed to check email existence")
		return nil, fmt.Errorf("service: failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate user id: %w", err)
	}

	now := time.Now().UTC()
	u := &User{
		ID:           id,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Str("email", in.Email).Msg("service: failed to create user")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Str("role", u.Role.String()).Msg("service: user created")
	return u, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkEmailFree(ctx, u.Email, in.Email); err != nil {
		return nil, err
	}

	u.Email = in.Email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.Role = in.Role

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to hash password")
			return nil, fmt.Errorf("service: failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update user")
		return nil, fmt.Errorf("service: failed to update user: %w", err)
	}

	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput, currentEmail string) (*ProfileResult, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A profile may only be edited by the principal it belongs to.
	if u.Email != currentEmail {
		return nil, ErrNotProfileOwner
	}

	emailChanged := u.Email != in.Email
	if emailChanged {
		if err := s.checkEmailFree(ctx, u.Email, in.Email); err != nil {
			return nil, err
		}
		u.Email = in.Email
	}

	u.FirstName = in.FirstName
	u.LastName = in.LastName

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to hash password")
			return nil, fmt.Errorf("service: failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update profile")
		return nil, fmt.Errorf("service: failed to update profile: %w", err)
	}

	return &ProfileResult{User: u, EmailChanged: emailChanged}, nil
}

// checkEmailFree enforces email uniqueness while exempting the record's own
// current value, so an update that keeps the email does not conflict with itself.
func (s *service) checkEmailFree(ctx context.Context, currentEmail, newEmail string) error {
	if currentEmail == newEmail {
		return nil
	}
	exists, err := s.repo.ExistsByEmail(ctx, newEmail)
	if err != nil {
		log.Error().Err(err).Str("email", newEmail).Msg("service: failed to check email existence")
		return fmt.Errorf("service: failed to check email existence: %w", err)
	}
	if exists {
		return ErrEmailExists
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user: %w", err)
	}
	return nil
}

func (s *service) Search(ctx context.Context, f Filter) ([]User, error) {
	users, err := s.repo.FindByFilter(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to search users")
		return nil, fmt.Errorf("service: failed to search users: %w", err)
	}
	return users, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Str("email", email).Msg("service: failed to fetch user for authentication")
		return nil, fmt.Errorf("service: failed to authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
