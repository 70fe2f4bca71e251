package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Persona     string
	// Secret is compared with the configured registration password, if any.
	Secret string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	Stats(ctx context.Context, id string) (domain.UserStats, error)
	Follow(ctx context.Context, followerID, targetID string) (bool, error)
	Unfollow(ctx context.Context, followerID, targetID string) (bool, error)
}

type userService struct {
	users          repository.UserRepository
	follows        repository.FollowRepository
	registerSecret string
	now            func() time.Time
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository, registerSecret string) UserService {
	return &userService{
		users:          users,
		follows:        follows,
		registerSecret: strings.TrimSpace(registerSecret),
		now:            time.Now,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := strings.TrimSpace(in.Password)
	displayName := strings.TrimSpace(in.DisplayName)

	if email == "" {
		return nil, invalidf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("email is invalid")
	}
	if password == "" {
		return nil, invalidf("password is required")
	}
	if len(password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}
	if displayName == "" {
		return nil, invalidf("display name is required")
	}
	var persona domain.Persona
	if strings.TrimSpace(in.Persona) != "" {
		p, ok := domain.ParsePersona(in.Persona)
		if !ok {
			return nil, invalidf("unknown persona %q", in.Persona)
		}
		persona = p
	}
	if s.registerSecret != "" &&
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(in.Secret)), []byte(s.registerSecret)) != 1 {
		return nil, ErrInvalidRegistrationPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Persona:      persona,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) == "" {
		return nil, invalidf("display name cannot be empty")
	}
	set(&user.DisplayName, update.DisplayName)
	set(&user.Avatar, update.Avatar)
	set(&user.Headline, update.Headline)
	set(&user.Bio, update.Bio)
	set(&user.CurrentJobTitle, update.CurrentJobTitle)
	set(&user.Industry, update.Industry)
	set(&user.City, update.City)
	set(&user.Country, update.Country)
	if update.Persona != nil {
		p, ok := domain.ParsePersona(string(*update.Persona))
		if !ok {
			return nil, invalidf("unknown persona %q", *update.Persona)
		}
		user.Persona = p
	}
	if update.Skills != nil {
		user.Skills = update.Skills
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *userService) Stats(ctx context.Context, id string) (domain.UserStats, error) {
	return s.users.Stats(ctx, id)
}

func (s *userService) Follow(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, invalidf("you cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return false, err
	}
	return s.follows.Follow(ctx, followerID, targetID)
}

func (s *userService) Unfollow(ctx context.Context, followerID, targetID string) (bool, error) {
	return s.follows.Unfollow(ctx, followerID, targetID)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	out := *user
	out.PasswordHash = ""
	out.Skills = append([]string(nil), user.Skills...)
	return &out
}
