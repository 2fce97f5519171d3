package storage

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/ignatij/kyubey/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeSystemRow() systemRow {
	return systemRow{
		ClientName:      null.StringFrom("Acme"),
		ClientID:        null.StringFrom("c1"),
		SystemName:      null.StringFrom("Billing"),
		SystemID:        null.StringFrom("sys-1"),
		TeamName:        null.StringFrom("Core"),
		TeamID:          null.StringFrom("t1"),
		LatestRun:       null.TimeFrom(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
		NumberOfDagRuns: null.IntFrom(3),
	}
}

func TestSystemRow(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		system, ok := completeSystemRow().toSystem()
		require.True(t, ok)
		assert.Equal(t, models.System{
			ClientName:      "Acme",
			ClientID:        "c1",
			SystemName:      "Billing",
			SystemID:        "sys-1",
			TeamName:        "Core",
			TeamID:          "t1",
			LatestRun:       time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			NumberOfDagRuns: 3,
		}, system)
	})

	missing := map[string]func(r *systemRow){
		"client_name":        func(r *systemRow) { r.ClientName = null.String{} },
		"client_id":          func(r *systemRow) { r.ClientID = null.String{} },
		"system_name":        func(r *systemRow) { r.SystemName = null.String{} },
		"system_id":          func(r *systemRow) { r.SystemID = null.String{} },
		"team_name":          func(r *systemRow) { r.TeamName = null.String{} },
		"team_id":            func(r *systemRow) { r.TeamID = null.String{} },
		"latest_run":         func(r *systemRow) { r.LatestRun = null.Time{} },
		"number_of_dag_runs": func(r *systemRow) { r.NumberOfDagRuns = null.Int{} },
		"negative count":     func(r *systemRow) { r.NumberOfDagRuns = null.IntFrom(-1) },
	}
	for name, mutate := range missing {
		t.Run("Rejects "+name, func(t *testing.T) {
			row := completeSystemRow()
			mutate(&row)
			_, ok := row.toSystem()
			assert.False(t, ok)
		})
	}

	t.Run("AllNull", func(t *testing.T) {
		_, ok := systemRow{}.toSystem()
		assert.False(t, ok)
	})

	t.Run("ConvertsToUTC", func(t *testing.T) {
		row := completeSystemRow()
		row.LatestRun = null.TimeFrom(time.Date(2024, 1, 3, 1, 0, 0, 0, time.FixedZone("CET", 3600)))
		system, ok := row.toSystem()
		require.True(t, ok)
		assert.Equal(t, time.UTC, system.LatestRun.Location())
		assert.Equal(t, 0, system.LatestRun.Hour())
	})

	t.Run("ToSystemsFiltersSilently", func(t *testing.T) {
		partial := completeSystemRow()
		partial.TeamID = null.String{}
		systems := toSystems([]systemRow{partial, completeSystemRow(), {}})
		require.Len(t, systems, 1)
		assert.Equal(t, "sys-1", systems[0].SystemID)
		assert.NotNil(t, toSystems(nil))
	})
}

func TestDagRunRow(t *testing.T) {
	exec := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	base := dagRunRow{
		DagID:         null.StringFrom("ingest"),
		RunID:         null.StringFrom("r1"),
		ExecutionDate: null.TimeFrom(exec),
	}

	t.Run("MinimalRow", func(t *testing.T) {
		dagRun, ok := base.toDagRun()
		require.True(t, ok)
		assert.Equal(t, models.DagRun{DagID: "ingest", RunID: "r1", ExecutionDate: exec}, dagRun)
	})

	t.Run("FullRow", func(t *testing.T) {
		row := base
		row.State = null.StringFrom("success")
		row.StartDate = null.TimeFrom(exec)
		row.EndDate = null.TimeFrom(exec.Add(time.Minute))
		row.SystemID = null.StringFrom("sys-1")
		dagRun, ok := row.toDagRun()
		require.True(t, ok)
		require.NotNil(t, dagRun.State)
		assert.Equal(t, models.SuccessDagState, *dagRun.State)
		require.NotNil(t, dagRun.EndDate)
		assert.Equal(t, exec.Add(time.Minute), *dagRun.EndDate)
		require.NotNil(t, dagRun.SystemID)
		assert.Equal(t, "sys-1", *dagRun.SystemID)
	})

	t.Run("UnknownStateIsAbsent", func(t *testing.T) {
		row := base
		row.State = null.StringFrom("runing")
		dagRun, ok := row.toDagRun()
		require.True(t, ok)
		assert.Nil(t, dagRun.State)
	})

	for name, mutate := range map[string]func(r *dagRunRow){
		"dag_id":         func(r *dagRunRow) { r.DagID = null.String{} },
		"run_id":         func(r *dagRunRow) { r.RunID = null.String{} },
		"execution_date": func(r *dagRunRow) { r.ExecutionDate = null.Time{} },
	} {
		t.Run("Rejects "+name, func(t *testing.T) {
			row := base
			mutate(&row)
			_, ok := row.toDagRun()
			assert.False(t, ok)
		})
	}
}

func TestTaskRow(t *testing.T) {
	base := taskRow{
		TaskID: null.StringFrom("extract"),
		DagID:  null.StringFrom("ingest"),
		RunID:  null.StringFrom("r1"),
	}

	tryNumbers := []struct {
		name string
		raw  null.Int
		want *uint32
	}{
		{"null", null.Int{}, nil},
		{"zero", null.IntFrom(0), ptr(uint32(0))},
		{"three", null.IntFrom(3), ptr(uint32(3))},
		{"max", null.IntFrom(math.MaxUint32), ptr(uint32(math.MaxUint32))},
		{"negative", null.IntFrom(-1), nil},
		{"overflow", null.IntFrom(math.MaxUint32 + 1), nil},
	}
	for _, tt := range tryNumbers {
		t.Run("TryNumber "+tt.name, func(t *testing.T) {
			row := base
			row.TryNumber = tt.raw
			task, ok := row.toTask()
			require.True(t, ok)
			assert.Equal(t, tt.want, task.TryNumber)
		})
	}

	t.Run("StateDecoding", func(t *testing.T) {
		row := base
		row.State = null.StringFrom("upstream_failed")
		task, ok := row.toTask()
		require.True(t, ok)
		require.NotNil(t, task.State)
		assert.Equal(t, models.UpstreamFailedTaskState, *task.State)

		row.State = null.StringFrom("exploded")
		task, ok = row.toTask()
		require.True(t, ok)
		assert.Nil(t, task.State)
	})

	t.Run("RejectsMissingTaskID", func(t *testing.T) {
		row := base
		row.TaskID = null.String{}
		_, ok := row.toTask()
		assert.False(t, ok)
	})
}

func ptr[T any](v T) *T { return &v }
