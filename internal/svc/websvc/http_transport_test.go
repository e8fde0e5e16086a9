package websvc_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmayland/taskboard/internal/repo/session"
	"github.com/pmayland/taskboard/internal/repo/task"
	"github.com/pmayland/taskboard/internal/repo/user"
	"github.com/pmayland/taskboard/internal/svc/authsvc"
	"github.com/pmayland/taskboard/internal/svc/tasksvc"
	"github.com/pmayland/taskboard/internal/svc/websvc"
)

const cookieName = "taskboard_session"

func setupWeb(t *testing.T) *websvc.HTTPTransport {
	t.Helper()

	dir := t.TempDir()

	authSvc, err := authsvc.NewAuthService(
		user.SQLiteUserRepositoryFactory(user.SQLiteUserRepositoryConfig{
			DatabasePath: filepath.Join(dir, "users.db"),
		}),
		session.SQLiteSessionRepositoryFactory(session.SQLiteSessionRepositoryConfig{
			DatabasePath: filepath.Join(dir, "sessions.db"),
		}),
		authsvc.AuthConfig{SessionTTL: 3600, BcryptCost: bcrypt.MinCost},
	)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}

	t.Cleanup(func() { authSvc.Close() })

	taskSvc, err := tasksvc.NewTaskService(
		task.SQLiteTaskRepositoryFactory(task.SQLiteTaskRepositoryConfig{
			DatabasePath: filepath.Join(dir, "tasks.db"),
		}),
		tasksvc.TaskConfig{DashboardLimit: 10},
	)
	if err != nil {
		t.Fatalf("failed to create task service: %v", err)
	}

	t.Cleanup(func() { taskSvc.Close() })

	return websvc.NewHTTPTransport(authSvc, taskSvc, tasksvc.NewHTTPTransport(taskSvc), websvc.WebConfig{
		CookieName: cookieName,
	})
}

func postForm(transport http.Handler, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	transport.ServeHTTP(rec, req)

	return rec
}

func get(transport http.Handler, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)

	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	transport.ServeHTTP(rec, req)

	return rec
}

// register creates an account and logs in, returning the session cookie.
func register(t *testing.T, transport http.Handler, username, email, password string) *http.Cookie {
	t.Helper()

	rec := postForm(transport, "/register", url.Values{
		"username": {username},
		"email":    {email},
		"password": {password},
	}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = postForm(transport, "/login", url.Values{
		"email":    {email},
		"password": {password},
	}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == cookieName && cookie.Value != "" {
			return cookie
		}
	}

	t.Fatal("no session cookie set on login")

	return nil
}

//nolint:paralleltest
func TestWeb_PublicPages(t *testing.T) {
	transport := setupWeb(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{name: "landing page", target: "/", wantStatus: http.StatusOK},
		{name: "login form", target: "/login", wantStatus: http.StatusOK},
		{name: "register form", target: "/register", wantStatus: http.StatusOK},
		{name: "unknown path", target: "/nope", wantStatus: http.StatusNotFound},
		{name: "deep unknown path", target: "/admin/secrets", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(transport, tt.target, nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

//nolint:paralleltest
func TestWeb_WelcomeRequiresSession(t *testing.T) {
	transport := setupWeb(t)

	rec := get(transport, "/welcome", nil)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("location = %q, want /login", loc)
	}

	// A stale cookie is treated the same as none
	rec = get(transport, "/welcome", &http.Cookie{Name: cookieName, Value: "stale-token"})

	if rec.Code != http.StatusFound {
		t.Errorf("stale cookie status = %d, want 302", rec.Code)
	}
}

//nolint:paralleltest
func TestWeb_APIRequiresSession(t *testing.T) {
	transport := setupWeb(t)

	rec := get(transport, "/api/tasks", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "Not authenticated") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

//nolint:paralleltest
func TestWeb_RegisterRedirectsWithFlash(t *testing.T) {
	transport := setupWeb(t)

	rec := postForm(transport, "/register", url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"password": {"password123"},
	}, nil)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad location: %v", err)
	}

	if location.Path != "/login" {
		t.Errorf("path = %q, want /login", location.Path)
	}

	if got := location.Query().Get("message"); got != "Registration successful. Please login." {
		t.Errorf("message = %q", got)
	}

	// The flash shows up on the login form
	rec = get(transport, rec.Header().Get("Location"), nil)

	if !strings.Contains(rec.Body.String(), "Registration successful. Please login.") {
		t.Error("flash message not rendered")
	}
}

//nolint:paralleltest
func TestWeb_RegisterDuplicateEmail(t *testing.T) {
	transport := setupWeb(t)

	register(t, transport, "alice", "alice@example.com", "password123")

	rec := postForm(transport, "/register", url.Values{
		"username": {"other"},
		"email":    {"alice@example.com"},
		"password": {"different456"},
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "You are already registered with this email. Please login instead.") {
		t.Errorf("body missing duplicate-email message: %s", rec.Body.String())
	}
}

//nolint:paralleltest
func TestWeb_RegisterValidation(t *testing.T) {
	transport := setupWeb(t)

	rec := postForm(transport, "/register", url.Values{
		"username": {"al"},
		"email":    {"alice@example.com"},
		"password": {"password123"},
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "Username must be at least 3 characters") {
		t.Errorf("body missing validation message: %s", rec.Body.String())
	}

	// Form values survive the re-render
	if !strings.Contains(rec.Body.String(), `value="alice@example.com"`) {
		t.Error("email not preserved on error")
	}
}

//nolint:paralleltest
func TestWeb_LoginFailureIsGeneric(t *testing.T) {
	transport := setupWeb(t)

	register(t, transport, "alice", "alice@example.com", "password123")

	tests := []struct {
		name  string
		email string
	}{
		{name: "wrong password", email: "alice@example.com"},
		{name: "unknown email", email: "nobody@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(transport, "/login", url.Values{
				"email":    {tt.email},
				"password": {"wrongpass"},
			}, nil)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}

			// Same message either way, no account probing
			if !strings.Contains(rec.Body.String(), "Incorrect password. Please check your password and try again.") {
				t.Errorf("body missing generic failure message: %s", rec.Body.String())
			}
		})
	}
}

//nolint:paralleltest
func TestWeb_SessionFlow(t *testing.T) {
	transport := setupWeb(t)

	cookie := register(t, transport, "alice", "alice@example.com", "password123")

	// Dashboard greets the user
	rec := get(transport, "/welcome", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("welcome status = %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "Welcome, alice") {
		t.Error("greeting missing from dashboard")
	}

	// Logged-in visitors skip the public pages
	for _, target := range []string{"/", "/login", "/register"} {
		rec = get(transport, target, cookie)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/welcome" {
			t.Errorf("%s: status = %d, location = %q; want redirect to /welcome",
				target, rec.Code, rec.Header().Get("Location"))
		}
	}

	// The same session opens the API
	rec = get(transport, "/api/tasks", cookie)
	if rec.Code != http.StatusOK {
		t.Errorf("api status = %d, want 200", rec.Code)
	}

	// Logout kills the session server-side
	rec = postForm(transport, "/logout", nil, cookie)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("logout status = %d, location = %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = get(transport, "/welcome", cookie)
	if rec.Code != http.StatusFound {
		t.Errorf("welcome after logout status = %d, want redirect", rec.Code)
	}

	rec = get(transport, "/api/tasks", cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("api after logout status = %d, want 401", rec.Code)
	}
}

//nolint:paralleltest
func TestWeb_DashboardShowsTasksAndStats(t *testing.T) {
	transport := setupWeb(t)

	cookie := register(t, transport, "alice", "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks",
		strings.NewReader(`{"title":"Water the plants","priority":"high"}`))
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	transport.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = get(transport, "/welcome?filter=high-priority&sort=priority", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("welcome status = %d", rec.Code)
	}

	body := rec.Body.String()

	if !strings.Contains(body, "Water the plants") {
		t.Error("task missing from dashboard")
	}

	if !strings.Contains(body, "<strong>1</strong> total") {
		t.Error("stats missing from dashboard")
	}
}
