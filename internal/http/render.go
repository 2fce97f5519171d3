package http

import (
	"embed"
	"html/template"
	"io/fs"
	"time"

	"github.com/ignatij/kyubey/pkg/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets
var assetsFS embed.FS

func assets() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Crumbs holds the identifiers known on a page; the navbar links as far as they go.
type Crumbs struct {
	SystemID string
	RunID    string
	TaskID   string
}

var dagBadges = map[models.DagState]string{
	models.FailedDagState:  "badge-error",
	models.QueuedDagState:  "badge-neutral",
	models.RunningDagState: "badge-primary",
	models.SuccessDagState: "badge-success",
}

var taskBadges = map[models.TaskState]string{
	models.DeferredTaskState:        "badge-info",
	models.FailedTaskState:          "badge-error",
	models.QueuedTaskState:          "badge-neutral",
	models.RemovedTaskState:         "badge-neutral",
	models.RestartingTaskState:      "badge-secondary",
	models.RunningTaskState:         "badge-primary",
	models.ScheduledTaskState:       "badge-neutral",
	models.SkippedTaskState:         "badge-neutral",
	models.SuccessTaskState:         "badge-success",
	models.UpForRescheduleTaskState: "badge-warning",
	models.UpForRetryTaskState:      "badge-warning",
	models.UpstreamFailedTaskState:  "badge-warning",
}

// DagBadge returns the badge class for a DagRun state.
func DagBadge(s models.DagState) string {
	return dagBadges[s]
}

// TaskBadge returns the badge class for a Task state.
func TaskBadge(s models.TaskState) string {
	return taskBadges[s]
}

func formatTime(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	}
	return ""
}

var templateFuncs = template.FuncMap{
	"dagBadge":  DagBadge,
	"taskBadge": TaskBadge,
	"time":      formatTime,
	"inc":       func(i int) int { return i + 1 },
	"crumbs": func(systemID, runID, taskID string) Crumbs {
		return Crumbs{SystemID: systemID, RunID: runID, TaskID: taskID}
	},
}

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html"))
}
