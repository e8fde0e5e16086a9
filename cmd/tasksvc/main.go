package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pmayland/taskboard/internal/infra/config"
	"github.com/pmayland/taskboard/internal/infra/logging"
	"github.com/pmayland/taskboard/internal/infra/transport/http"
	"github.com/pmayland/taskboard/internal/repo/session"
	"github.com/pmayland/taskboard/internal/repo/task"
	"github.com/pmayland/taskboard/internal/repo/user"
	"github.com/pmayland/taskboard/internal/svc/authsvc"
	"github.com/pmayland/taskboard/internal/svc/tasksvc"
	"github.com/pmayland/taskboard/internal/svc/websvc"
)

const (
	appName = "taskboard"
	svcName = "tasksvc"

	sessionPurgeInterval = time.Hour
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig                  `envPrefix:"LOG_"`
	HTTP    http.HTTPTransportConfig              `envPrefix:"HTTP_"`
	Auth    authsvc.AuthConfig                    `envPrefix:"AUTH_"`
	Task    tasksvc.TaskConfig                    `envPrefix:"TASK_"`
	Web     websvc.WebConfig                      `envPrefix:"WEB_"`
	User    user.SQLiteUserRepositoryConfig       `envPrefix:"USER_"`
	Tasks   task.SQLiteTaskRepositoryConfig       `envPrefix:"TASKS_"`
	Session session.SQLiteSessionRepositoryConfig `envPrefix:"SESSION_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.tasksvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	authSvc, err := authsvc.NewAuthService(
		user.SQLiteUserRepositoryFactory(cfg.User),
		session.SQLiteSessionRepositoryFactory(cfg.Session),
		cfg.Auth,
	)
	if err != nil {
		return fmt.Errorf("new auth service: %w", err)
	}
	defer authSvc.Close()

	taskSvc, err := tasksvc.NewTaskService(
		task.SQLiteTaskRepositoryFactory(cfg.Tasks),
		cfg.Task,
	)
	if err != nil {
		return fmt.Errorf("new task service: %w", err)
	}
	defer taskSvc.Close()

	go purgeSessions(ctx, authSvc)

	apiTransport := tasksvc.NewHTTPTransport(taskSvc)
	webTransport := websvc.NewHTTPTransport(authSvc, taskSvc, apiTransport, cfg.Web)

	if err := http.ListenAndServe(ctx, webTransport, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// purgeSessions periodically removes expired session rows. Expired sessions
// are already rejected at validation time; this keeps the table small.
func purgeSessions(ctx context.Context, authSvc *authsvc.AuthService) {
	log := logging.GetLogger("cmd.tasksvc")
	ticker := time.NewTicker(sessionPurgeInterval)

	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := authSvc.PurgeExpiredSessions(ctx); err != nil {
				log.WarnContext(ctx, "purge expired sessions failed", "error", err)
			}
		}
	}
}
