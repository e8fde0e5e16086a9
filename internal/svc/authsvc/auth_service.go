package authsvc

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmayland/taskboard/internal/domain"
	"github.com/pmayland/taskboard/internal/infra/logging"
	"github.com/pmayland/taskboard/internal/repo/session"
	"github.com/pmayland/taskboard/internal/repo/user"
	"github.com/pmayland/taskboard/internal/util/encoding"
	"github.com/pmayland/taskboard/internal/util/uuid"
)

const sessionTokenBytes = 32

// dummyPasswordHash is a throwaway bcrypt hash compared against when the
// email is unknown, so the unknown-email and wrong-password paths take the
// same time.
//
//nolint:gochecknoglobals
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// SessionTTL is the absolute session lifetime in seconds
	SessionTTL int64 `env:"SESSION_TTL" default:"86400"` // 24h

	// BcryptCost is the bcrypt work factor for new password hashes
	BcryptCost int `env:"BCRYPT_COST" default:"10"`
}

// AuthService is both the credential store and the session authority:
// it handles registration, login, and the issue/validate/destroy cycle of
// server-side sessions.
type AuthService struct {
	Config      AuthConfig
	UserRepo    user.Repository
	SessionRepo session.Repository
	Log         logging.Logger
}

// NewAuthService creates a new AuthService with the given repository
// factories and configuration. Returns an error if a repository cannot be
// created.
func NewAuthService(
	userFactory user.RepositoryFactory,
	sessionFactory session.RepositoryFactory,
	cfg AuthConfig,
) (*AuthService, error) {
	log := logging.GetLogger("svc.authsvc.auth_service")

	userRepo, err := userFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	sessionRepo, err := sessionFactory()
	if err != nil {
		return nil, fmt.Errorf("new session repo: %w", err)
	}

	return &AuthService{
		Config:      cfg,
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Log:         log,
	}, nil
}

// Register creates a new user account. The raw password is hashed with
// bcrypt before persisting and is never stored or logged.
// Returns domain.ErrDuplicateEmail when the email is already registered and
// a domain.ValidationError when input rules are violated.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (_ *domain.User, err error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	log := s.Log.With(logging.Group("user", "username", username, "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	if err := ValidateRegistration(username, email, password); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.Config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	newUser := &domain.User{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}

	if err := s.UserRepo.CreateUser(ctx, newUser); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates a user by email and password. Unknown email and wrong
// password both surface as domain.ErrInvalidCredentials so callers cannot
// probe which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *domain.User, err error) {
	email = NormalizeEmail(email)

	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}

	account, ok, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !ok {
		// Burn a comparison anyway, see dummyPasswordHash
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))

		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return account, nil
}

// CreateSession issues a new server-side session for the user and returns
// it. The token is an opaque random handle; username and email are
// snapshotted into the session record.
func (s *AuthService) CreateSession(ctx context.Context, account *domain.User) (_ *domain.Session, err error) {
	log := s.Log.With(logging.Group("user", "username", account.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create session failed", "error", err)
		} else {
			log.DebugContext(ctx, "session created")
		}
	}()

	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("new session token: %w", err)
	}

	now := time.Now().UTC()
	newSession := &domain.Session{
		Token:     token,
		UserID:    account.ID,
		Username:  account.Username,
		Email:     account.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.Config.SessionTTL) * time.Second),
	}

	if err := s.SessionRepo.CreateSession(ctx, newSession); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return newSession, nil
}

// ValidateSession resolves a session token to its identity. Returns false
// for unknown or expired tokens; expired records are removed on sight.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (domain.Identity, bool, error) {
	record, ok, err := s.SessionRepo.GetSession(ctx, token)
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("get session: %w", err)
	}

	if !ok {
		return domain.Identity{}, false, nil
	}

	if record.Expired(time.Now().UTC()) {
		if err := s.SessionRepo.DeleteSession(ctx, token); err != nil {
			s.Log.WarnContext(ctx, "delete expired session failed", "error", err)
		}

		return domain.Identity{}, false, nil
	}

	return record.Identity(), true, nil
}

// DestroySession invalidates a session. Destroying an absent session is a
// no-op, so a double logout succeeds; a store failure is returned to the
// caller, not swallowed, and is never retried here.
func (s *AuthService) DestroySession(ctx context.Context, token string) (err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "destroy session failed", "error", err)
		} else {
			s.Log.DebugContext(ctx, "session destroyed")
		}
	}()

	if err := s.SessionRepo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// PurgeExpiredSessions removes expired session records in bulk.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	purged, err := s.SessionRepo.DeleteExpired(ctx, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}

	if purged > 0 {
		s.Log.DebugContext(ctx, "purged expired sessions", "count", purged)
	}

	return purged, nil
}

// Close releases resources held by the service, such as database connections.
func (s *AuthService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	if err := s.SessionRepo.Close(); err != nil {
		return fmt.Errorf("close session repo: %w", err)
	}

	return nil
}

func newID() string {
	id, err := uuid.New(uuid.UUIDv7)
	if err != nil {
		panic(err) // UUIDv7 is always supported
	}

	return encoding.EncodeCrockfordB32LC(id.Bytes())
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return encoding.EncodeCrockfordB32LC(buf), nil
}
