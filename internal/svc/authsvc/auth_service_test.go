package authsvc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmayland/taskboard/internal/domain"
	"github.com/pmayland/taskboard/internal/infra/logging"
	"github.com/pmayland/taskboard/internal/svc/authsvc"
)

var ErrRepoError = errors.New("repository error")

// mockUserRepository implements user.Repository for testing.
type mockUserRepository struct {
	users map[string]*domain.User // keyed by email
	err   error
	m     sync.Mutex
}

func newMockUserRepo() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return m.err
	}

	if _, exists := m.users[user.Email]; exists {
		return domain.ErrDuplicateEmail
	}

	for _, existing := range m.users {
		if existing.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}

	m.users[user.Email] = user

	return nil
}

func (m *mockUserRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return nil, false, m.err
	}

	user, exists := m.users[email]
	if !exists {
		return nil, false, nil
	}

	return user, true, nil
}

func (m *mockUserRepository) Close() error {
	return m.err
}

// mockSessionRepository implements session.Repository for testing.
type mockSessionRepository struct {
	sessions map[string]*domain.Session
	err      error
	m        sync.Mutex
}

func newMockSessionRepo() *mockSessionRepository {
	return &mockSessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (m *mockSessionRepository) CreateSession(_ context.Context, session *domain.Session) error {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return m.err
	}

	m.sessions[session.Token] = session

	return nil
}

func (m *mockSessionRepository) GetSession(_ context.Context, token string) (*domain.Session, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return nil, false, m.err
	}

	session, exists := m.sessions[token]

	return session, exists, nil
}

func (m *mockSessionRepository) DeleteSession(_ context.Context, token string) error {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return m.err
	}

	delete(m.sessions, token)

	return nil
}

func (m *mockSessionRepository) DeleteExpired(_ context.Context, now int64) (int, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return 0, m.err
	}

	var purged int

	for token, session := range m.sessions {
		if session.ExpiresAt.UnixMilli() <= now {
			delete(m.sessions, token)

			purged++
		}
	}

	return purged, nil
}

func (m *mockSessionRepository) Close() error {
	return m.err
}

func setupTestService(t *testing.T) (*authsvc.AuthService, *mockUserRepository, *mockSessionRepository) {
	t.Helper()

	userRepo := newMockUserRepo()
	sessionRepo := newMockSessionRepo()

	svc := &authsvc.AuthService{
		Config: authsvc.AuthConfig{
			SessionTTL: 3600,
			BcryptCost: bcrypt.MinCost, // keep the tests fast
		},
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Log:         logging.GetLogger("test.authsvc"),
	}

	return svc, userRepo, sessionRepo
}

//nolint:paralleltest
func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		repoErr  error
		wantErr  error
	}{
		{
			name:     "successful registration",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
		},
		{
			name:     "short username",
			username: "al",
			email:    "alice@example.com",
			password: "password123",
			wantErr:  &domain.ValidationError{Field: "username", Message: "Username must be at least 3 characters"},
		},
		{
			name:     "invalid email",
			username: "alice",
			email:    "not-an-email",
			password: "password123",
			wantErr:  &domain.ValidationError{Field: "email", Message: "Must be a valid email"},
		},
		{
			name:     "short password",
			username: "alice",
			email:    "alice@example.com",
			password: "short",
			wantErr:  &domain.ValidationError{Field: "password", Message: "Password must be at least 6 characters"},
		},
		{
			name:     "repository error",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
			repoErr:  ErrRepoError,
			wantErr:  ErrRepoError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, userRepo, _ := setupTestService(t)
			userRepo.err = tt.repoErr

			account, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)

			var wantValidation *domain.ValidationError
			if errors.As(tt.wantErr, &wantValidation) {
				var gotValidation *domain.ValidationError
				if !errors.As(err, &gotValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}

				if gotValidation.Message != wantValidation.Message {
					t.Errorf("message = %q, want %q", gotValidation.Message, wantValidation.Message)
				}

				return
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if account.ID == "" {
				t.Error("expected a generated user id")
			}

			if string(account.PasswordHash) == tt.password {
				t.Error("password stored in plain text")
			}

			if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(tt.password)); err != nil {
				t.Errorf("stored hash does not verify: %v", err)
			}
		})
	}
}

//nolint:paralleltest
func TestAuthService_RegisterNormalizesEmail(t *testing.T) {
	svc, userRepo, _ := setupTestService(t)

	account, err := svc.Register(context.Background(), "alice", "  Alice@Example.COM ", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if account.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", account.Email)
	}

	if _, exists := userRepo.users["alice@example.com"]; !exists {
		t.Error("user not stored under normalized email")
	}
}

//nolint:paralleltest
func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := setupTestService(t)

	if _, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := svc.Register(context.Background(), "other", "ALICE@example.com", "different456")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("error = %v, want ErrDuplicateEmail", err)
	}
}

//nolint:paralleltest
func TestAuthService_Login(t *testing.T) {
	svc, _, _ := setupTestService(t)

	if _, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "successful login",
			email:    "alice@example.com",
			password: "password123",
		},
		{
			name:     "case insensitive email",
			email:    "ALICE@EXAMPLE.COM",
			password: "password123",
		},
		{
			name:     "wrong password",
			email:    "alice@example.com",
			password: "wrongpass",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			wantErr:  domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				// Unknown email and wrong password must be indistinguishable
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if account.Username != "alice" {
				t.Errorf("username = %q, want alice", account.Username)
			}
		})
	}
}

//nolint:paralleltest
func TestAuthService_SessionLifecycle(t *testing.T) {
	svc, _, sessionRepo := setupTestService(t)

	account, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	created, err := svc.CreateSession(context.Background(), account)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	if created.Token == "" {
		t.Fatal("expected a session token")
	}

	identity, ok, err := svc.ValidateSession(context.Background(), created.Token)
	if err != nil || !ok {
		t.Fatalf("validate session = %v, %v; want identity", ok, err)
	}

	if identity.UserID != account.ID || identity.Username != "alice" {
		t.Errorf("identity = %+v, want alice's", identity)
	}

	if err := svc.DestroySession(context.Background(), created.Token); err != nil {
		t.Fatalf("destroy session failed: %v", err)
	}

	if _, ok, _ := svc.ValidateSession(context.Background(), created.Token); ok {
		t.Error("session still valid after destroy")
	}

	// Destroying again is a no-op, not an error
	if err := svc.DestroySession(context.Background(), created.Token); err != nil {
		t.Errorf("second destroy failed: %v", err)
	}

	if len(sessionRepo.sessions) != 0 {
		t.Errorf("expected empty session store, got %d", len(sessionRepo.sessions))
	}
}

//nolint:paralleltest
func TestAuthService_ValidateSessionExpired(t *testing.T) {
	svc, _, sessionRepo := setupTestService(t)

	expired := &domain.Session{
		Token:     "expiredtoken",
		UserID:    "user-1",
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	sessionRepo.sessions[expired.Token] = expired

	_, ok, err := svc.ValidateSession(context.Background(), expired.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok {
		t.Error("expired session validated")
	}

	if _, exists := sessionRepo.sessions[expired.Token]; exists {
		t.Error("expired session not removed on sight")
	}
}

//nolint:paralleltest
func TestAuthService_ValidateSessionUnknown(t *testing.T) {
	svc, _, _ := setupTestService(t)

	if _, ok, err := svc.ValidateSession(context.Background(), "nosuchtoken"); ok || err != nil {
		t.Errorf("validate unknown token = %v, %v; want false, nil", ok, err)
	}
}

//nolint:paralleltest
func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	svc, _, sessionRepo := setupTestService(t)

	now := time.Now()
	sessionRepo.sessions["live"] = &domain.Session{Token: "live", ExpiresAt: now.Add(time.Hour)}
	sessionRepo.sessions["dead"] = &domain.Session{Token: "dead", ExpiresAt: now.Add(-time.Hour)}

	purged, err := svc.PurgeExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	if _, exists := sessionRepo.sessions["live"]; !exists {
		t.Error("live session purged")
	}
}
