package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserService(env.store.Users, env.store.Follows, "")

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "password1", DisplayName: "Ada"}},
		{"bad email", RegisterInput{Email: "nope", Password: "password1", DisplayName: "Ada"}},
		{"short password", RegisterInput{Email: "ada@example.com", Password: "short", DisplayName: "Ada"}},
		{"missing name", RegisterInput{Email: "ada@example.com", Password: "password1"}},
		{"unknown persona", RegisterInput{Email: "ada@example.com", Password: "password1", DisplayName: "Ada", Persona: "wizard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	user, err := svc.Register(ctx, RegisterInput{
		Email:       " Ada@Example.com ",
		Password:    "password1",
		DisplayName: "Ada",
		Persona:     "creator",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, domain.PersonaCreator, user.Persona)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "password2", DisplayName: "Ada"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserService_RegistrationSecret(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserService(env.store.Users, env.store.Follows, "open-sesame")

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1", DisplayName: "A", Secret: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidRegistrationPassword)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1", DisplayName: "A", Secret: "open-sesame"})
	assert.NoError(t, err)
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserService(env.store.Users, env.store.Follows, "")

	_, err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "password1", DisplayName: "Ada"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "ADA@example.com", "password1")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Authenticate(ctx, "ada@example.com", "password2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserService(env.store.Users, env.store.Follows, "")
	env.user(t, "u1")

	headline := "  Staff engineer "
	persona := domain.Persona("mentor")
	user, err := svc.UpdateProfile(ctx, "u1", domain.ProfileUpdate{
		Headline: &headline,
		Persona:  &persona,
		Skills:   []string{"Go", "SQL"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Staff engineer", user.Headline)
	assert.Equal(t, domain.PersonaMentor, user.Persona)
	assert.Len(t, user.Skills, 2)
	assert.Equal(t, "User u1", user.DisplayName)

	empty := " "
	_, err = svc.UpdateProfile(ctx, "u1", domain.ProfileUpdate{DisplayName: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	bad := domain.Persona("pirate")
	_, err = svc.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Persona: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateProfile(ctx, "missing", domain.ProfileUpdate{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserService_Follow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewUserService(env.store.Users, env.store.Follows, "")
	env.user(t, "a")
	env.user(t, "b")

	_, err := svc.Follow(ctx, "a", "a")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Follow(ctx, "a", "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	created, err := svc.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, created)

	stats, err := svc.Stats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Following)

	removed, err := svc.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)
}
