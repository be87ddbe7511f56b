package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodeck/internal/core/apperror"
	appctx "geodeck/internal/core/context"
	"geodeck/internal/core/id"
)

func ctxWithUser(user *appctx.UserContext) context.Context {
	return appctx.WithUser(context.Background(), user)
}

func TestAuthorize(t *testing.T) {
	projectID := id.New()

	tests := []struct {
		name     string
		ctx      context.Context
		wantCode string
	}{
		{
			name:     "anonymous",
			ctx:      context.Background(),
			wantCode: apperror.CodeUnauthorized,
		},
		{
			name: "admin bypasses membership",
			ctx:  ctxWithUser(&appctx.UserContext{UserID: "u1", IsAdmin: true}),
		},
		{
			name: "project member",
			ctx: ctxWithUser(&appctx.UserContext{
				UserID:     "u2",
				ProjectIDs: []string{id.New().String(), projectID.String()},
			}),
		},
		{
			name: "non-member",
			ctx: ctxWithUser(&appctx.UserContext{
				UserID:     "u3",
				ProjectIDs: []string{id.New().String()},
			}),
			wantCode: apperror.CodeForbidden,
		},
		{
			name:     "member of nothing",
			ctx:      ctxWithUser(&appctx.UserContext{UserID: "u4"}),
			wantCode: apperror.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.ctx, projectID, ActionWrite)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	projectID := id.New().String()

	token, expiresAt, err := svc.GenerateAccessToken(
		"user-1", "user@example.com",
		[]string{"editor"}, []string{projectID},
		false,
	)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, []string{"editor"}, user.Roles)
	assert.Equal(t, []string{projectID}, user.ProjectIDs)
	assert.False(t, user.IsAdmin)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	validator := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateAccessToken("user-1", "", nil, nil, false)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}
