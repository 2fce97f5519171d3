package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ignatij/kyubey/internal/metrics"
	"github.com/ignatij/kyubey/pkg/models"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Inspector is the read-only query surface the dashboard renders.
type Inspector interface {
	Ping(ctx context.Context) error
	Search(ctx context.Context, searchBy string, page uint32) (models.SearchSystems, error)
	GetSystem(ctx context.Context, systemID string) (models.System, error)
	GetSystemForRun(ctx context.Context, runID string) (models.System, error)
	GetDagRun(ctx context.Context, runID string) (models.DagRun, error)
	GetDagRunsForSystem(ctx context.Context, systemID string) (models.SystemDagRuns, error)
	GetTask(ctx context.Context, runID, taskID string) (models.Task, error)
	GetTasksForDagRun(ctx context.Context, runID string) (models.DagRunTasks, error)
	GetTaskPage(ctx context.Context, runID string) (models.TaskPage, error)
	ReadTaskLog(ctx context.Context, runID, taskID string, attempt *uint32) (models.TaskLog, error)
	GetLogPage(ctx context.Context, runID, taskID string) (models.LogPage, error)
}

type Options struct {
	LogRequests bool
}

type handler struct {
	svc    Inspector
	logger *logrus.Logger
}

// NewRouter wires pages, htmx components, the JSON API and ops endpoints.
func NewRouter(svc Inspector, logger *logrus.Logger, opts Options) *gin.Engine {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warnf("Failed to register metrics: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.SetHTMLTemplate(loadTemplates())

	r.Use(gin.Recovery(), observeRequests())
	if opts.LogRequests {
		r.Use(logRequests(logger))
	}
	r.Use(renderErrors(logger))

	h := &handler{svc: svc, logger: logger}

	r.GET("/", h.index)
	r.GET("/dag_runs/:system_id", h.dagRunsPage)
	r.GET("/tasks/:run_id", h.tasksPage)
	r.GET("/logs/:run_id/:task_id", h.logsPage)

	component := r.Group("/component")
	{
		component.GET("/search_systems", h.searchSystemsComponent)
		component.GET("/log", h.logComponent)
	}

	api := r.Group("/api")
	{
		api.GET("/search_systems", h.apiSearchSystems)
		api.GET("/system/:system_id", h.apiSystem)
		api.GET("/system/:system_id/dag_runs", h.apiSystemDagRuns)
		api.GET("/dag_run/:run_id", h.apiDagRun)
		api.GET("/dag_run/:run_id/system", h.apiDagRunSystem)
		api.GET("/dag_run/:run_id/tasks", h.apiDagRunTasks)
		api.GET("/task/:run_id/:task_id", h.apiTask)
		api.GET("/task/:run_id/:task_id/log", h.apiTaskLog)
	}

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS("/assets", http.FS(assets()))

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(errRouteNotFound)
	})
	return r
}

// StartServer serves handler on addr until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, addr string, handler http.Handler, logger *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting Kyubey server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Infof("Shutting down Kyubey server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown server")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
