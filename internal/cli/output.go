package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ignatij/kyubey/pkg/models"
	"golang.org/x/term"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	grey   = "\033[90m"
)

var stateColours = map[string]string{
	string(models.SuccessTaskState):         green,
	string(models.FailedTaskState):          red,
	string(models.RunningTaskState):         blue,
	string(models.QueuedTaskState):          grey,
	string(models.ScheduledTaskState):       grey,
	string(models.SkippedTaskState):         grey,
	string(models.RemovedTaskState):         grey,
	string(models.DeferredTaskState):        cyan,
	string(models.RestartingTaskState):      cyan,
	string(models.UpForRetryTaskState):      yellow,
	string(models.UpForRescheduleTaskState): yellow,
	string(models.UpstreamFailedTaskState):  yellow,
}

type printer struct {
	w      io.Writer
	colour bool
}

// newPrinter colours states only when w is a terminal and NO_COLOR is unset.
func newPrinter(w io.Writer) *printer {
	colour := false
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		colour = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, colour: colour}
}

func (p *printer) state(s string) string {
	if s == "" {
		return "-"
	}
	if c, ok := stateColours[s]; ok && p.colour {
		return c + s + reset
	}
	return s
}

// table aligns columns; the coloured state column goes last since escape codes skew widths.
func (p *printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func dagState(s *models.DagState) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func taskState(s *models.TaskState) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func (p *printer) system(s models.System) {
	fmt.Fprintf(p.w, "System %s (%s)  client %s (%s)  team %s (%s)\n",
		s.SystemName, s.SystemID, s.ClientName, s.ClientID, s.TeamName, s.TeamID)
}

func runSearch(ctx context.Context, svc inspector, p *printer, searchBy string, page uint32) error {
	result, err := svc.Search(ctx, searchBy, page)
	if err != nil {
		return err
	}
	if len(result.Systems) == 0 {
		fmt.Fprintln(p.w, "No systems found.")
		return nil
	}
	tw := p.table()
	fmt.Fprintln(tw, "SYSTEM ID\tSYSTEM NAME\tCLIENT\tTEAM\tLATEST RUN\tDAG RUNS")
	for _, s := range result.Systems {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.SystemID, s.SystemName, s.ClientName, s.TeamName, formatTime(&s.LatestRun), s.NumberOfDagRuns)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if result.NextPage != nil {
		fmt.Fprintf(p.w, "More results: --page %d\n", *result.NextPage)
	}
	return nil
}

func runDagRuns(ctx context.Context, svc inspector, p *printer, systemID string) error {
	result, err := svc.GetDagRunsForSystem(ctx, systemID)
	if err != nil {
		return err
	}
	p.system(result.System)
	tw := p.table()
	fmt.Fprintln(tw, "DAG ID\tRUN ID\tEXECUTION DATE\tSTART\tEND\tSTATE")
	for _, r := range result.DagRuns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.DagID, r.RunID, formatTime(&r.ExecutionDate), formatTime(r.StartDate), formatTime(r.EndDate), p.state(dagState(r.State)))
	}
	return tw.Flush()
}

func runTasks(ctx context.Context, svc inspector, p *printer, runID string) error {
	page, err := svc.GetTaskPage(ctx, runID)
	if err != nil {
		return err
	}
	p.system(page.System)
	fmt.Fprintf(p.w, "DagRun %s of %s  executed %s  %s\n",
		page.DagRun.RunID, page.DagRun.DagID, formatTime(&page.DagRun.ExecutionDate), p.state(dagState(page.DagRun.State)))
	tw := p.table()
	fmt.Fprintln(tw, "TASK ID\tSTART\tEND\tATTEMPTS\tSTATE")
	for _, t := range page.Tasks {
		attempts := "-"
		if t.HasLogs() {
			attempts = fmt.Sprint(t.Attempts())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.TaskID, formatTime(t.StartDate), formatTime(t.EndDate), attempts, p.state(taskState(t.State)))
	}
	return tw.Flush()
}

func runLog(ctx context.Context, svc inspector, p *printer, runID, taskID string, attempt *uint32) error {
	taskLog, err := svc.ReadTaskLog(ctx, runID, taskID, attempt)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.w, "# %s/%s attempt %d of %d\n", taskLog.RunID, taskLog.TaskID, taskLog.Attempt, taskLog.TryNumber)
	_, err = io.WriteString(p.w, taskLog.Content)
	return err
}
