package websvc

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/pmayland/taskboard/internal/domain"
	context_ "github.com/pmayland/taskboard/internal/infra/context"
	"github.com/pmayland/taskboard/internal/infra/logging"
	http_ "github.com/pmayland/taskboard/internal/infra/transport/http"
	"github.com/pmayland/taskboard/internal/svc/authsvc"
	"github.com/pmayland/taskboard/internal/svc/tasksvc"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	loginURL = "/login"

	msgRegistered      = "Registration successful. Please login."
	msgAlreadyUser     = "You are already registered with this email. Please login instead."
	msgBadCredentials  = "Incorrect password. Please check your password and try again."
	msgLoginFailed     = "Error logging in"
	msgRegisterFailed  = "Error registering"
	msgLogoutFailed    = "Error logging out"
	msgDashboardFailed = "Error loading dashboard"
)

// WebConfig contains configuration parameters for the browser-facing surface.
type WebConfig struct {
	// CookieName is the name of the session cookie
	CookieName string `env:"COOKIE_NAME" default:"taskboard_session"`

	// CookieSecure marks the session cookie Secure; enable behind TLS
	CookieSecure bool `env:"COOKIE_SECURE" default:"false"`
}

// HTTPTransport serves the server-rendered pages and mounts the JSON task
// API under /api/. Pages redirect to the login form when the session is
// missing; the API answers 401 instead.
type HTTPTransport struct {
	authSvc   *authsvc.AuthService
	taskSvc   *tasksvc.TaskService
	cfg       WebConfig
	log       logging.Logger
	mux       *http.ServeMux
	templates *template.Template
}

// NewHTTPTransport creates a new HTTPTransport and sets up the page routes:
// - GET  /:         landing page, or redirect to /welcome when logged in
// - GET  /login:    login form (?message= carries the registration flash)
// - POST /login:    authenticate and start a session
// - GET  /register: registration form
// - POST /register: create an account
// - POST /logout:   destroy the session
// - GET  /welcome:  dashboard, session required
// plus the task API under /api/ and a 404 page for everything else.
func NewHTTPTransport(
	authSvc *authsvc.AuthService,
	taskSvc *tasksvc.TaskService,
	apiTransport *tasksvc.HTTPTransport,
	cfg WebConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc:   authSvc,
		taskSvc:   taskSvc,
		cfg:       cfg,
		log:       logging.GetLogger("svc.websvc.http_transport"),
		mux:       http.NewServeMux(),
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}

	ht.mux.HandleFunc("GET /{$}", ht.HandleHome)
	ht.mux.HandleFunc("GET /login", ht.HandleLoginPage)
	ht.mux.HandleFunc("POST /login", ht.HandleLogin)
	ht.mux.HandleFunc("GET /register", ht.HandleRegisterPage)
	ht.mux.HandleFunc("POST /register", ht.HandleRegister)
	ht.mux.HandleFunc("POST /logout", ht.HandleLogout)
	ht.mux.Handle("GET /welcome", http_.SessionPageMiddleware(
		http.HandlerFunc(ht.HandleWelcome), authSvc, cfg.CookieName, loginURL, ht.log,
	))
	ht.mux.Handle("/api/", http_.SessionAPIMiddleware(
		apiTransport, authSvc, cfg.CookieName, ht.log,
	))
	ht.mux.HandleFunc("/", ht.HandleNotFound)

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

type loginPage struct {
	Message string
	Error   string
	Email   string
}

type registerPage struct {
	Error    string
	Username string
	Email    string
}

type welcomePage struct {
	Username string
	Filter   string
	Sort     string
	Tasks    []domain.Task
	Stats    domain.TaskStats
	Now      time.Time
}

type errorPage struct {
	Message string
}

// render executes the named template into a buffer first, so a template
// failure can still produce a clean 500 instead of a torn page.
func (ht *HTTPTransport) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer

	if err := ht.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return fmt.Errorf("execute template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	//nolint:errcheck
	buf.WriteTo(w)

	return nil
}

func (ht *HTTPTransport) renderError(w http.ResponseWriter, message string) {
	//nolint:errcheck
	ht.render(w, http.StatusInternalServerError, "error", errorPage{Message: message})
}

func (ht *HTTPTransport) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     ht.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ht.authSvc.Config.SessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ht.cfg.CookieSecure,
	})
}

func (ht *HTTPTransport) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     ht.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ht.cfg.CookieSecure,
	})
}

// loggedIn reports whether the request carries a valid session cookie.
// Used on public pages that redirect logged-in visitors to the dashboard.
func (ht *HTTPTransport) loggedIn(r *http.Request) bool {
	token, ok := http_.SessionToken(r, ht.cfg.CookieName)
	if !ok {
		return false
	}

	_, ok, err := ht.authSvc.ValidateSession(r.Context(), token)
	if err != nil {
		ht.log.ErrorContext(r.Context(), "validate session failed", "error", err)

		return false
	}

	return ok
}

// HandleHome serves the landing page, or sends logged-in visitors straight
// to the dashboard.
func (ht *HTTPTransport) HandleHome(w http.ResponseWriter, r *http.Request) {
	if ht.loggedIn(r) {
		http.Redirect(w, r, "/welcome", http.StatusFound)

		return
	}

	//nolint:errcheck
	ht.render(w, http.StatusOK, "home", nil)
}

// HandleNotFound serves the 404 page for every unmatched path.
func (ht *HTTPTransport) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	//nolint:errcheck
	ht.render(w, http.StatusNotFound, "notfound", nil)
}

// HandleLoginPage serves the login form. A ?message= query parameter is
// shown as a flash, which is how the registration redirect hands over its
// success note.
func (ht *HTTPTransport) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if ht.loggedIn(r) {
		http.Redirect(w, r, "/welcome", http.StatusFound)

		return
	}

	//nolint:errcheck
	ht.render(w, http.StatusOK, "login", loginPage{
		Message: r.URL.Query().Get("message"),
	})
}

// HandleLogin authenticates the posted credentials and starts a session.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}(r.Context())

	if err := r.ParseForm(); err != nil {
		ht.renderError(w, msgLoginFailed)

		return fmt.Errorf("parse form: %w", err)
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	account, err := ht.authSvc.Login(r.Context(), email, password)
	if err != nil {
		var validationErr *domain.ValidationError

		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return ht.render(w, http.StatusBadRequest, "login", loginPage{
				Error: msgBadCredentials,
				Email: email,
			})
		case errors.As(err, &validationErr):
			return ht.render(w, http.StatusBadRequest, "login", loginPage{
				Error: validationErr.Message,
				Email: email,
			})
		default:
			ht.renderError(w, msgLoginFailed)

			return fmt.Errorf("login: %w", err)
		}
	}

	newSession, err := ht.authSvc.CreateSession(r.Context(), account)
	if err != nil {
		ht.renderError(w, msgLoginFailed)

		return fmt.Errorf("create session: %w", err)
	}

	ht.setSessionCookie(w, newSession.Token)
	http.Redirect(w, r, "/welcome", http.StatusFound)

	return nil
}

// HandleRegisterPage serves the registration form.
func (ht *HTTPTransport) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if ht.loggedIn(r) {
		http.Redirect(w, r, "/welcome", http.StatusFound)

		return
	}

	//nolint:errcheck
	ht.render(w, http.StatusOK, "register", registerPage{})
}

// HandleRegister creates an account from the posted form and redirects to
// the login page with a flash message. Form values are preserved when the
// form is re-rendered on error.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	if err := r.ParseForm(); err != nil {
		ht.renderError(w, msgRegisterFailed)

		return fmt.Errorf("parse form: %w", err)
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")

	if _, err := ht.authSvc.Register(r.Context(), username, email, password); err != nil {
		var validationErr *domain.ValidationError

		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			return ht.render(w, http.StatusBadRequest, "register", registerPage{
				Error:    msgAlreadyUser,
				Username: username,
				Email:    email,
			})
		case errors.As(err, &validationErr):
			return ht.render(w, http.StatusBadRequest, "register", registerPage{
				Error:    validationErr.Message,
				Username: username,
				Email:    email,
			})
		default:
			ht.renderError(w, msgRegisterFailed)

			return fmt.Errorf("register: %w", err)
		}
	}

	flash := url.Values{"message": {msgRegistered}}
	http.Redirect(w, r, loginURL+"?"+flash.Encode(), http.StatusFound)

	return nil
}

// HandleLogout destroys the current session and expires the cookie. A store
// failure is reported as a 500; the session may then still be alive, so the
// cookie is only cleared on success.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "logout failed", "error", err)
		} else {
			log.DebugContext(ctx, "logout successful")
		}
	}(r.Context())

	if token, ok := http_.SessionToken(r, ht.cfg.CookieName); ok {
		if err := ht.authSvc.DestroySession(r.Context(), token); err != nil {
			ht.renderError(w, msgLogoutFailed)

			return fmt.Errorf("destroy session: %w", err)
		}
	}

	ht.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)

	return nil
}

// HandleWelcome serves the dashboard: recent tasks ranked by the selected
// filter and sort, plus aggregate counts. Runs behind the session
// middleware, so the identity is always on the context here.
func (ht *HTTPTransport) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleWelcome(w, r)
}

func (ht *HTTPTransport) handleWelcome(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "dashboard failed", "error", err)
		} else {
			log.DebugContext(ctx, "dashboard rendered")
		}
	}(r.Context())

	identity, ok := context_.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, loginURL, http.StatusFound)

		return domain.ErrUnauthenticated
	}

	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = string(tasksvc.FilterAll)
	}

	sortKey := r.URL.Query().Get("sort")
	if sortKey == "" {
		sortKey = string(tasksvc.SortNewest)
	}

	tasks, err := ht.taskSvc.Recent(r.Context(), identity.UserID, tasksvc.Filter(filter), tasksvc.SortKey(sortKey))
	if err != nil {
		ht.renderError(w, msgDashboardFailed)

		return fmt.Errorf("recent tasks: %w", err)
	}

	stats, err := ht.taskSvc.Stats(r.Context(), identity.UserID)
	if err != nil {
		ht.renderError(w, msgDashboardFailed)

		return fmt.Errorf("stats: %w", err)
	}

	return ht.render(w, http.StatusOK, "welcome", welcomePage{
		Username: identity.Username,
		Filter:   filter,
		Sort:     sortKey,
		Tasks:    tasks,
		Stats:    stats,
		Now:      time.Now().UTC(),
	})
}
