package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
	"github.com/sandpiper/backend/usecase"
)

var (
	ErrInvalidCredentials = domain.NewError(domain.ErrCodeUnauthorized, "Invalid email or password.")
	ErrInvalidToken       = domain.NewError(domain.ErrCodeInvalid, "Invalid or expired token.")
	ErrPasswordRequired   = domain.Validation("'password' is required and cannot be empty.")
)

// Claims is the JWT payload issued on login.
type Claims struct {
	PersonID  string `json:"person_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Config holds token lifetimes and the frontend base used for mail links.
type Config struct {
	Secret       string
	Issuer       string
	TokenTTL     time.Duration
	SessionTTL   time.Duration
	MailTokenTTL time.Duration
	FrontendURL  string
	BcryptCost   int
}

// Deps groups the stores and ports the use case needs.
type Deps struct {
	Persons      repository.PersonRepository
	Emails       repository.EmailRepository
	LoginMethods repository.LoginMethodRepository
	Registrar    repository.Registrar
	Sessions     repository.SessionRepository
	Tokens       repository.TokenRepository
	Mailer       usecase.Mailer
}

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Session     *domain.Session
	Person      *domain.Person
}

type UseCase struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func New(deps Deps, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = cfg.TokenTTL
	}
	if cfg.MailTokenTTL <= 0 {
		cfg.MailTokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &UseCase{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Signup registers a person with an email/password login and sends the
// verification mail. Mail failures are logged, not returned.
func (uc *UseCase) Signup(ctx context.Context, in SignupInput) (*domain.Person, *domain.Email, error) {
	person, email, err := uc.register(ctx, in, false)
	if err != nil {
		return nil, nil, err
	}

	token, err := uc.deps.Tokens.Issue(ctx, domain.TokenVerifyEmail, person.EntityID, uc.cfg.MailTokenTTL)
	if err != nil {
		uc.logger.Error("verification token not issued", zap.String("person_id", person.EntityID), zap.Error(err))
		return person, email, nil
	}
	if uc.deps.Mailer != nil {
		link := uc.link("/verify-email", token)
		if err := uc.deps.Mailer.SendWelcome(ctx, person.EntityID, email.Address, person.FullName(), link); err != nil {
			uc.logger.Error("welcome mail failed", zap.String("person_id", person.EntityID), zap.Error(err))
		}
	}
	return person, email, nil
}

// CreateTestUser registers a person whose email is already verified. No mail is sent.
func (uc *UseCase) CreateTestUser(ctx context.Context, in SignupInput) (*domain.Person, *domain.Email, error) {
	return uc.register(ctx, in, true)
}

func (uc *UseCase) register(ctx context.Context, in SignupInput, verified bool) (*domain.Person, *domain.Email, error) {
	if in.Password == "" {
		return nil, nil, ErrPasswordRequired
	}
	person := domain.NewPerson(strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName))
	if err := person.Validate(); err != nil {
		return nil, nil, err
	}
	email := domain.NewEmail(person.EntityID, in.Email)
	email.IsVerified = verified
	if err := email.Validate(); err != nil {
		return nil, nil, err
	}

	if _, err := uc.deps.Emails.GetByAddress(ctx, email.Address); err == nil {
		return nil, nil, domain.ErrEmailTaken
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}

	method := &domain.LoginMethod{
		VersionedModel: domain.NewVersionedModel(),
		PersonID:       person.EntityID,
		EmailID:        email.EntityID,
		MethodType:     domain.LoginMethodEmailPassword,
		PasswordHash:   string(hash),
	}
	if err := uc.deps.Registrar.Register(ctx, person, email, method); err != nil {
		return nil, nil, err
	}

	uc.logger.Info("person registered", zap.String("person_id", person.EntityID), zap.Bool("verified", verified))
	return person, email, nil
}

// Login checks the password and opens a session.
func (uc *UseCase) Login(ctx context.Context, address, password, userAgent string) (*LoginResult, error) {
	if address == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	email, err := uc.deps.Emails.GetByAddress(ctx, address)
	if err != nil {
		return nil, uc.credentialsError(err)
	}
	method, err := uc.deps.LoginMethods.GetByPersonID(ctx, email.PersonID, domain.LoginMethodEmailPassword)
	if err != nil {
		return nil, uc.credentialsError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(method.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	person, err := uc.deps.Persons.GetByID(ctx, email.PersonID)
	if err != nil {
		return nil, uc.credentialsError(err)
	}

	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		PersonID:  person.EntityID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.cfg.SessionTTL),
		UserAgent: userAgent,
	}
	if err := uc.deps.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	token, expiresAt, err := uc.sign(person.EntityID, session.ID, now)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("person logged in", zap.String("person_id", person.EntityID), zap.String("session_id", session.ID))
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Session:     session,
		Person:      person,
	}, nil
}

// Authenticate validates an access token and the session it names.
func (uc *UseCase) Authenticate(ctx context.Context, tokenString string) (*domain.Session, error) {
	claims, err := uc.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	session, err := uc.deps.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if session.PersonID != claims.PersonID {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

// ParseToken verifies an HS256 token signed with the configured secret.
func (uc *UseCase) ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, domain.ErrUnauthorized
	}
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(uc.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid access token", err)
	}
	if claims.PersonID == "" || claims.SessionID == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// Refresh extends the session and issues a fresh access token.
func (uc *UseCase) Refresh(ctx context.Context, personID, sessionID string) (*LoginResult, error) {
	session, err := uc.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.PersonID != personID {
		return nil, domain.ErrUnauthorized
	}
	if err := uc.deps.Sessions.Extend(ctx, sessionID, int(uc.cfg.SessionTTL.Seconds())); err != nil {
		return nil, err
	}
	now := uc.now()
	session.ExpiresAt = now.Add(uc.cfg.SessionTTL)

	token, expiresAt, err := uc.sign(personID, sessionID, now)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, Session: session}, nil
}

func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrSessionNotFound
	}
	return uc.deps.Sessions.Delete(ctx, sessionID)
}

// VerifyEmail marks the email of the token's person as verified.
func (uc *UseCase) VerifyEmail(ctx context.Context, token string) error {
	personID, err := uc.consume(ctx, domain.TokenVerifyEmail, token)
	if err != nil {
		return err
	}
	email, err := uc.deps.Emails.GetByPersonID(ctx, personID)
	if err != nil {
		return err
	}
	if email.IsVerified {
		return nil
	}
	email.IsVerified = true
	if err := uc.deps.Emails.Save(ctx, email); err != nil {
		return err
	}
	uc.logger.Info("email verified", zap.String("person_id", personID))
	return nil
}

// ForgotPassword sends a reset link when the address is known. Unknown
// addresses succeed silently.
func (uc *UseCase) ForgotPassword(ctx context.Context, address string) error {
	email, err := uc.deps.Emails.GetByAddress(ctx, address)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Info("password reset for unknown address")
			return nil
		}
		return err
	}

	token, err := uc.deps.Tokens.Issue(ctx, domain.TokenResetPassword, email.PersonID, uc.cfg.MailTokenTTL)
	if err != nil {
		return err
	}
	if uc.deps.Mailer == nil {
		return nil
	}
	return uc.deps.Mailer.SendPasswordReset(ctx, email.PersonID, email.Address, uc.link("/reset-password", token))
}

// ResetPassword replaces the password hash of the token's person.
func (uc *UseCase) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	personID, err := uc.consume(ctx, domain.TokenResetPassword, token)
	if err != nil {
		return err
	}
	method, err := uc.deps.LoginMethods.GetByPersonID(ctx, personID, domain.LoginMethodEmailPassword)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cfg.BcryptCost)
	if err != nil {
		return err
	}
	method.PasswordHash = string(hash)
	if err := uc.deps.LoginMethods.Save(ctx, method); err != nil {
		return err
	}
	uc.logger.Info("password reset", zap.String("person_id", personID))
	return nil
}

func (uc *UseCase) consume(ctx context.Context, purpose domain.TokenPurpose, token string) (string, error) {
	personID, err := uc.deps.Tokens.Consume(ctx, purpose, token)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return personID, nil
}

func (uc *UseCase) sign(personID, sessionID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(uc.cfg.TokenTTL)
	claims := Claims{
		PersonID:  personID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   personID,
			Issuer:    uc.cfg.Issuer,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

func (uc *UseCase) credentialsError(err error) error {
	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return ErrInvalidCredentials
	}
	return err
}

func (uc *UseCase) link(path, token string) string {
	base := strings.TrimRight(uc.cfg.FrontendURL, "/")
	return base + path + "?token=" + url.QueryEscape(token)
}
