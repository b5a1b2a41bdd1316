package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/api/transport"
	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/pkg/httpcontext"
	authUC "github.com/sandpiper/backend/usecase/auth"
)

type AuthService interface {
	Signup(ctx context.Context, in authUC.SignupInput) (*domain.Person, *domain.Email, error)
	Login(ctx context.Context, address, password, userAgent string) (*authUC.LoginResult, error)
	Refresh(ctx context.Context, personID, sessionID string) (*authUC.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, address string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type AuthHandler struct {
	baseHandler
	uc AuthService
}

func NewAuthHandler(uc AuthService, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Register a person with email and password
// @Tags auth
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to sign up"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.SignupRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	in, err := signupInput(req)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}

	if _, _, err := h.uc.Signup(stdCtx, in); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Signup successful. Please check your email to verify your account."))
}

// @Summary Issue an access token
// @Tags auth
// @Router /auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LoginRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to log in")
		return
	}

	result, err := h.uc.Login(stdCtx,
		transport.Optional(req.EmailAddress),
		transport.Optional(req.Password),
		string(ctx.Request.Header.UserAgent()))
	if err != nil {
		h.respondError(ctx, stdCtx, err, "Failed to log in")
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("").
		With("access_token", result.AccessToken).
		With("expires_at", result.ExpiresAt.UTC().Format(time.RFC3339)).
		With("person", result.Person.Map(true)))
}

// @Summary Extend the current session
// @Tags auth
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	personID, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Refresh(stdCtx, personID, httpcontext.SessionID(ctx))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			h.respondFailureStatus(ctx, http.StatusUnauthorized, "Session expired.")
			return
		}
		h.respondError(ctx, stdCtx, err, "Failed to refresh session")
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("").
		With("access_token", result.AccessToken).
		With("expires_at", result.ExpiresAt.UTC().Format(time.RFC3339)))
}

// @Summary Revoke the current session
// @Tags auth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	if _, ok := h.principal(ctx); !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Logout(stdCtx, httpcontext.SessionID(ctx)); err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		h.respondError(ctx, stdCtx, err, "Failed to log out")
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Logged out successfully."))
}

// @Summary Confirm an email address
// @Tags auth
// @Router /auth/verify_email [post]
func (h *AuthHandler) VerifyEmail(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to verify email"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.TokenRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	token, err := transport.Required("token", req.Token)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}

	if err := h.uc.VerifyEmail(stdCtx, token); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Email verified successfully."))
}

// @Summary Request a password reset link
// @Tags auth
// @Router /auth/forgot_password [post]
func (h *AuthHandler) ForgotPassword(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to send password reset email"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ForgotPasswordRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	address, err := transport.Required("email_address", req.EmailAddress)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}

	if err := h.uc.ForgotPassword(stdCtx, address); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("If the email address is registered, a reset link has been sent."))
}

// @Summary Set a new password using a reset token
// @Tags auth
// @Router /auth/reset_password [post]
func (h *AuthHandler) ResetPassword(ctx *fasthttp.RequestCtx) {
	const failed = "Failed to reset password"

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ResetPasswordRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	token, err := transport.Required("token", req.Token)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	password, err := transport.Required("password", req.Password)
	if err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}

	if err := h.uc.ResetPassword(stdCtx, token, password); err != nil {
		h.respondError(ctx, stdCtx, err, failed)
		return
	}
	h.respondSuccess(ctx, transport.NewSuccess("Password reset successfully."))
}

func signupInput(req transport.SignupRequest) (authUC.SignupInput, error) {
	var (
		in  authUC.SignupInput
		err error
	)
	if in.FirstName, err = transport.Required("first_name", req.FirstName); err != nil {
		return in, err
	}
	if in.LastName, err = transport.Required("last_name", req.LastName); err != nil {
		return in, err
	}
	if in.Email, err = transport.Required("email_address", req.EmailAddress); err != nil {
		return in, err
	}
	if in.Password, err = transport.Required("password", req.Password); err != nil {
		return in, err
	}
	return in, nil
}

var _ AuthService = (*authUC.UseCase)(nil)
