package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	redislib "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository/memory"
	redisRepo "github.com/sandpiper/backend/repository/redis"
)

type sentMail struct {
	kind     string
	personID string
	email    string
	link     string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendWelcome(_ context.Context, personID, email, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"welcome", personID, email, link})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, personID, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"reset", personID, email, link})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	uc     *UseCase
	store  *memory.PersonStore
	mailer *fakeMailer
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewPersonStore()
	mailer := &fakeMailer{}
	uc := New(Deps{
		Persons:      store.Persons(),
		Emails:       store.Emails(),
		LoginMethods: store.LoginMethods(),
		Registrar:    store,
		Sessions:     redisRepo.NewSessionRepository(client, time.Hour),
		Tokens:       redisRepo.NewTokenRepository(client),
		Mailer:       mailer,
	}, Config{
		Secret:      "test-secret",
		Issuer:      "sandpiper",
		TokenTTL:    time.Hour,
		SessionTTL:  time.Hour,
		FrontendURL: "http://app.test/",
		BcryptCost:  bcrypt.MinCost,
	}, nil)
	return &fixture{uc: uc, store: store, mailer: mailer, redis: srv}
}

func (f *fixture) signup(t *testing.T) *domain.Person {
	t.Helper()
	person, _, err := f.uc.Signup(context.Background(), SignupInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Example.com",
		Password:  "correct horse",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	return person
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	i := strings.Index(link, "token=")
	if i < 0 {
		t.Fatalf("link without token: %q", link)
	}
	return link[i+len("token="):]
}

func TestSignupSendsVerificationAndVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.signup(t)

	mail := f.mailer.last(t)
	if mail.kind != "welcome" || mail.email != "ada@example.com" || mail.personID != person.EntityID {
		t.Errorf("welcome mail: got %+v", mail)
	}
	if !strings.HasPrefix(mail.link, "http://app.test/verify-email?token=") {
		t.Errorf("link: got %q", mail.link)
	}

	if err := f.uc.VerifyEmail(ctx, tokenFrom(t, mail.link)); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	email, _ := f.store.Emails().GetByPersonID(ctx, person.EntityID)
	if !email.IsVerified {
		t.Error("IsVerified: got false, want true")
	}

	if err := f.uc.VerifyEmail(ctx, tokenFrom(t, mail.link)); err != ErrInvalidToken {
		t.Errorf("second VerifyEmail: got %v, want ErrInvalidToken", err)
	}
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name string
		in   SignupInput
		code domain.ErrorCode
	}{
		{"no password", SignupInput{FirstName: "A", LastName: "B", Email: "a@b.c"}, domain.ErrCodeInvalid},
		{"no first name", SignupInput{LastName: "B", Email: "a@b.c", Password: "pw"}, domain.ErrCodeInvalid},
		{"bad email", SignupInput{FirstName: "A", LastName: "B", Email: "nope", Password: "pw"}, domain.ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if _, _, err := f.uc.Signup(context.Background(), tt.in); !domain.IsDomainError(err, tt.code) {
				t.Errorf("Signup: got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.signup(t)

	_, _, err := f.uc.Signup(context.Background(), SignupInput{
		FirstName: "Other", LastName: "Person", Email: "ada@example.com", Password: "pw",
	})
	if err != domain.ErrEmailTaken {
		t.Errorf("Signup: got %v, want ErrEmailTaken", err)
	}
}

// racingRegistrar lets another signup claim the address just before the
// wrapped store writes.
type racingRegistrar struct {
	store *memory.PersonStore
}

func (r racingRegistrar) Register(ctx context.Context, person *domain.Person, email *domain.Email, method *domain.LoginMethod) error {
	rival := domain.NewPerson("Rival", "Signup")
	rivalEmail := domain.NewEmail(rival.EntityID, email.Address)
	rivalMethod := &domain.LoginMethod{
		VersionedModel: domain.NewVersionedModel(),
		MethodType:     domain.LoginMethodEmailPassword,
		PasswordHash:   "hash",
	}
	if err := r.store.Register(ctx, rival, rivalEmail, rivalMethod); err != nil {
		return err
	}
	return r.store.Register(ctx, person, email, method)
}

func TestSignupLosingRaceWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.uc.deps.Registrar = racingRegistrar{store: f.store}

	_, _, err := f.uc.Signup(context.Background(), SignupInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "pw",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("Signup: got %v, want ErrEmailTaken", err)
	}

	persons, emails, methods := f.store.Counts()
	if persons != 1 || emails != 1 || methods != 1 {
		t.Errorf("rows: got persons=%d emails=%d methods=%d, want only the rival's", persons, emails, methods)
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("mail: got %d sent, want none", len(f.mailer.sent))
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.signup(t)

	result, err := f.uc.Login(ctx, "ADA@example.com", "correct horse", "tests")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Person.EntityID != person.EntityID {
		t.Errorf("Person: got %q, want %q", result.Person.EntityID, person.EntityID)
	}

	claims, err := f.uc.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.PersonID != person.EntityID || claims.SessionID != result.Session.ID {
		t.Errorf("claims: got %+v", claims)
	}

	session, err := f.uc.Authenticate(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.UserAgent != "tests" {
		t.Errorf("UserAgent: got %q", session.UserAgent)
	}

	if err := f.uc.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.uc.Authenticate(ctx, result.AccessToken); !domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
		t.Errorf("Authenticate after logout: got %v, want unauthorized", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.signup(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ada@example.com", "wrong"},
		{"unknown email", "bob@example.com", "correct horse"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.uc.Login(context.Background(), tt.email, tt.password, ""); err != ErrInvalidCredentials {
				t.Errorf("Login: got %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	f := newFixture(t)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{PersonID: "p1", SessionID: "s1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	otherKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{PersonID: "p1", SessionID: "s1"}).
		SignedString([]byte("other-secret"))
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PersonID:  "p1",
		SessionID: "s1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret"))
	noSession, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{PersonID: "p1"}).
		SignedString([]byte("test-secret"))

	for name, token := range map[string]string{
		"alg none":   none,
		"other key":  otherKey,
		"expired":    expired,
		"no session": noSession,
		"garbage":    "not.a.token",
		"empty":      "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := f.uc.ParseToken(token); !domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
				t.Errorf("ParseToken: got %v, want unauthorized", err)
			}
		})
	}
}

func TestRefreshExtendsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	person := f.signup(t)
	result, err := f.uc.Login(ctx, "ada@example.com", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.redis.FastForward(50 * time.Minute)
	refreshed, err := f.uc.Refresh(ctx, person.EntityID, result.Session.ID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	f.redis.FastForward(30 * time.Minute)

	if _, err := f.uc.Authenticate(ctx, refreshed.AccessToken); err != nil {
		t.Errorf("Authenticate after refresh: %v", err)
	}
	if _, err := f.uc.Refresh(ctx, "someone-else", result.Session.ID); err != domain.ErrUnauthorized {
		t.Errorf("Refresh foreign session: got %v, want ErrUnauthorized", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t)

	if err := f.uc.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("ForgotPassword unknown: %v", err)
	}
	if err := f.uc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	mail := f.mailer.last(t)
	if mail.kind != "reset" || !strings.HasPrefix(mail.link, "http://app.test/reset-password?token=") {
		t.Fatalf("reset mail: got %+v", mail)
	}

	if err := f.uc.ResetPassword(ctx, tokenFrom(t, mail.link), ""); err != ErrPasswordRequired {
		t.Errorf("ResetPassword empty: got %v, want ErrPasswordRequired", err)
	}
	if err := f.uc.ResetPassword(ctx, tokenFrom(t, mail.link), "new password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := f.uc.Login(ctx, "ada@example.com", "correct horse", ""); err != ErrInvalidCredentials {
		t.Errorf("Login old password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := f.uc.Login(ctx, "ada@example.com", "new password", ""); err != nil {
		t.Errorf("Login new password: %v", err)
	}
	if err := f.uc.ResetPassword(ctx, tokenFrom(t, mail.link), "again"); err != ErrInvalidToken {
		t.Errorf("ResetPassword reused token: got %v, want ErrInvalidToken", err)
	}
}

func TestCreateTestUserIsVerifiedWithoutMail(t *testing.T) {
	f := newFixture(t)
	_, email, err := f.uc.CreateTestUser(context.Background(), SignupInput{
		FirstName: "Test", LastName: "User", Email: "test@example.com", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	if !email.IsVerified {
		t.Error("IsVerified: got false, want true")
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("mail: got %d sent, want 0", len(f.mailer.sent))
	}
}
