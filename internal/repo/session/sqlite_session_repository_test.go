package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pmayland/taskboard/internal/domain"
	"github.com/pmayland/taskboard/internal/repo/session"
)

func setupRepo(t *testing.T) *session.SQLiteSessionRepository {
	t.Helper()

	repo, err := session.NewSQLiteSessionRepository(session.SQLiteSessionRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "sessions.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close repository: %v", err)
		}
	})

	return repo
}

func testSession(token string, expiresAt time.Time) *domain.Session {
	return &domain.Session{
		Token:     token,
		UserID:    "user-1",
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		ExpiresAt: expiresAt.UTC().Truncate(time.Millisecond),
	}
}

//nolint:paralleltest
func TestSQLiteSessionRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created := testSession("tok1", time.Now().Add(time.Hour))

	if err := repo.CreateSession(ctx, created); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fetched, ok, err := repo.GetSession(ctx, "tok1")
	if err != nil || !ok {
		t.Fatalf("get = %v, %v; want session", ok, err)
	}

	if fetched.UserID != "user-1" || fetched.Username != "alice" {
		t.Errorf("fetched = %+v", fetched)
	}

	if !fetched.ExpiresAt.Equal(created.ExpiresAt) {
		t.Errorf("expiresAt = %v, want %v", fetched.ExpiresAt, created.ExpiresAt)
	}
}

//nolint:paralleltest
func TestSQLiteSessionRepository_GetExpiredStillReturned(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// The repository does not interpret expiry; that is the caller's call
	expired := testSession("tok1", time.Now().Add(-time.Hour))

	if err := repo.CreateSession(ctx, expired); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, ok, err := repo.GetSession(ctx, "tok1"); !ok || err != nil {
		t.Errorf("get expired = %v, %v; want true, nil", ok, err)
	}
}

//nolint:paralleltest
func TestSQLiteSessionRepository_DeleteIsIdempotent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.CreateSession(ctx, testSession("tok1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.DeleteSession(ctx, "tok1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok, _ := repo.GetSession(ctx, "tok1"); ok {
		t.Error("session still present after delete")
	}

	if err := repo.DeleteSession(ctx, "tok1"); err != nil {
		t.Errorf("second delete failed: %v", err)
	}

	if err := repo.DeleteSession(ctx, "neverexisted"); err != nil {
		t.Errorf("deleting unknown token failed: %v", err)
	}
}

//nolint:paralleltest
func TestSQLiteSessionRepository_DeleteExpired(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()

	if err := repo.CreateSession(ctx, testSession("live", now.Add(time.Hour))); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.CreateSession(ctx, testSession("dead1", now.Add(-time.Hour))); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.CreateSession(ctx, testSession("dead2", now.Add(-time.Minute))); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	purged, err := repo.DeleteExpired(ctx, now.UnixMilli())
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}

	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}

	if _, ok, _ := repo.GetSession(ctx, "live"); !ok {
		t.Error("live session purged")
	}
}
