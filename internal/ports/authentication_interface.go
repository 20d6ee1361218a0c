package ports

import (
	"context"

	"session-web-server/internal/model"
)

type AuthenticationService interface {
	Register(ctx context.Context, email string, password string) (*model.TokensPair, error)
	SignIn(ctx context.Context, user *model.User) (*model.TokensPair, error)
	Refresh(ctx context.Context, user *model.User) (*model.TokensPair, error)
	SignOut(ctx context.Context, userUUID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken string, newPassword string) error
}
