package service

import (
	"context"
	"testing"

	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestUserServiceAccounts(t *testing.T) {
	env := setupTestEnv("user_accounts")
	ctx := context.Background()
	users := NewUserService(repository.NewUserRepository(env.db))

	t.Run("Register forces the citizen role", func(t *testing.T) {
		resp, err := users.Register(ctx, RegisterRequest{
			Username: "newcitizen",
			Email:    "newcitizen@example.com",
			Phone:    "0811111111",
			Password: "secret123",
		})
		assert.NoError(t, err)
		assert.Equal(t, model.RoleCitizen, resp.Role)
	})

	t.Run("Duplicate username", func(t *testing.T) {
		_, err := users.Register(ctx, RegisterRequest{
			Username: "newcitizen",
			Email:    "other@example.com",
			Phone:    "0811111112",
			Password: "secret123",
		})
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("Invalid email", func(t *testing.T) {
		_, err := users.Register(ctx, RegisterRequest{
			Username: "bademail",
			Email:    "not-an-email",
			Phone:    "0811111113",
			Password: "secret123",
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Admin creates an officer", func(t *testing.T) {
		resp, err := users.CreateUser(ctx, CreateUserRequest{
			Username: "newofficer",
			Email:    "newofficer@example.com",
			Phone:    "0811111114",
			Password: "secret123",
			Role:     model.RoleOfficer,
		})
		assert.NoError(t, err)
		assert.Equal(t, model.RoleOfficer, resp.Role)
	})

	t.Run("Unknown role", func(t *testing.T) {
		_, err := users.CreateUser(ctx, CreateUserRequest{
			Username: "badrole",
			Email:    "badrole@example.com",
			Phone:    "0811111115",
			Password: "secret123",
			Role:     "supervisor",
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestUserServiceLogin(t *testing.T) {
	env := setupTestEnv("user_login")
	ctx := context.Background()
	users := NewUserService(repository.NewUserRepository(env.db))

	_, err := users.Register(ctx, RegisterRequest{
		Username: "login_user",
		Email:    "login@example.com",
		Phone:    "0822222222",
		Password: "secret123",
	})
	assert.NoError(t, err)

	t.Run("Correct credentials", func(t *testing.T) {
		tokens, err := users.Login(ctx, LoginUserRequest{Email: "login@example.com", Password: "secret123"})
		assert.NoError(t, err)
		assert.NotEmpty(t, tokens.Token)
		assert.NotEmpty(t, tokens.RefreshToken)

		t.Run("Refresh rotates the token", func(t *testing.T) {
			rotated, err := users.Refresh(ctx, tokens.RefreshToken)
			assert.NoError(t, err)
			assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

			// the consumed token is dead
			_, err = users.Refresh(ctx, tokens.RefreshToken)
			assert.Error(t, err)
		})
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := users.Login(ctx, LoginUserRequest{Email: "login@example.com", Password: "wrong"})
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("Unknown email", func(t *testing.T) {
		_, err := users.Login(ctx, LoginUserRequest{Email: "ghost@example.com", Password: "secret123"})
		assert.Error(t, err)
	})
}
