package storage

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	"github.com/ignatij/kyubey/pkg/models"
)

// systemRow is one grouped api_trigger row. Every column may be NULL.
type systemRow struct {
	ClientName      null.String `db:"client_name"`
	ClientID        null.String `db:"client_id"`
	SystemName      null.String `db:"system_name"`
	SystemID        null.String `db:"system_id"`
	TeamName        null.String `db:"team_name"`
	TeamID          null.String `db:"team_id"`
	LatestRun       null.Time   `db:"latest_run"`
	NumberOfDagRuns null.Int    `db:"number_of_dag_runs"`
}

// toSystem returns the System only when every column is present and the
// count fits an unsigned integer. Partial rows are trigger records that have
// not been attributed to a system yet and are dropped without error.
func (r systemRow) toSystem() (models.System, bool) {
	if !r.ClientName.Valid || !r.ClientID.Valid || !r.SystemName.Valid ||
		!r.SystemID.Valid || !r.TeamName.Valid || !r.TeamID.Valid {
		return models.System{}, false
	}
	if !r.LatestRun.Valid || !r.NumberOfDagRuns.Valid || r.NumberOfDagRuns.Int64 < 0 {
		return models.System{}, false
	}
	return models.System{
		ClientName:      r.ClientName.String,
		ClientID:        r.ClientID.String,
		SystemName:      r.SystemName.String,
		SystemID:        r.SystemID.String,
		TeamName:        r.TeamName.String,
		TeamID:          r.TeamID.String,
		LatestRun:       r.LatestRun.Time.UTC(),
		NumberOfDagRuns: uint64(r.NumberOfDagRuns.Int64),
	}, true
}

func toSystems(rows []systemRow) []models.System {
	systems := make([]models.System, 0, len(rows))
	for _, row := range rows {
		if system, ok := row.toSystem(); ok {
			systems = append(systems, system)
		}
	}
	return systems
}

// dagRunRow is one dag_run row joined with the system id of its trigger.
type dagRunRow struct {
	DagID         null.String `db:"dag_id"`
	RunID         null.String `db:"run_id"`
	ExecutionDate null.Time   `db:"execution_date"`
	State         null.String `db:"state"`
	StartDate     null.Time   `db:"start_date"`
	EndDate       null.Time   `db:"end_date"`
	SystemID      null.String `db:"system_id"`
}

// toDagRun requires dag_id, run_id and execution_date; everything else is optional
// and an unrecognised state is treated as absent.
func (r dagRunRow) toDagRun() (models.DagRun, bool) {
	if !r.DagID.Valid || !r.RunID.Valid || !r.ExecutionDate.Valid {
		return models.DagRun{}, false
	}
	dagRun := models.DagRun{
		DagID:         r.DagID.String,
		RunID:         r.RunID.String,
		ExecutionDate: r.ExecutionDate.Time.UTC(),
		StartDate:     utcPtr(r.StartDate),
		EndDate:       utcPtr(r.EndDate),
	}
	if r.State.Valid {
		if state, ok := models.ParseDagState(r.State.String); ok {
			dagRun.State = &state
		}
	}
	if r.SystemID.Valid {
		systemID := r.SystemID.String
		dagRun.SystemID = &systemID
	}
	return dagRun, true
}

func toDagRuns(rows []dagRunRow) []models.DagRun {
	dagRuns := make([]models.DagRun, 0, len(rows))
	for _, row := range rows {
		if dagRun, ok := row.toDagRun(); ok {
			dagRuns = append(dagRuns, dagRun)
		}
	}
	return dagRuns
}

// taskRow is one task_instance row.
type taskRow struct {
	TaskID    null.String `db:"task_id"`
	DagID     null.String `db:"dag_id"`
	RunID     null.String `db:"run_id"`
	State     null.String `db:"state"`
	StartDate null.Time   `db:"start_date"`
	EndDate   null.Time   `db:"end_date"`
	TryNumber null.Int    `db:"try_number"`
}

// toTask requires task_id, dag_id and run_id. A try_number outside the uint32
// range is treated as absent so the task renders without offering logs.
func (r taskRow) toTask() (models.Task, bool) {
	if !r.TaskID.Valid || !r.DagID.Valid || !r.RunID.Valid {
		return models.Task{}, false
	}
	task := models.Task{
		TaskID:    r.TaskID.String,
		DagID:     r.DagID.String,
		RunID:     r.RunID.String,
		StartDate: utcPtr(r.StartDate),
		EndDate:   utcPtr(r.EndDate),
	}
	if r.State.Valid {
		if state, ok := models.ParseTaskState(r.State.String); ok {
			task.State = &state
		}
	}
	if r.TryNumber.Valid && r.TryNumber.Int64 >= 0 && r.TryNumber.Int64 <= math.MaxUint32 {
		tryNumber := uint32(r.TryNumber.Int64)
		task.TryNumber = &tryNumber
	}
	return task, true
}

func toTasks(rows []taskRow) []models.Task {
	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		if task, ok := row.toTask(); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
