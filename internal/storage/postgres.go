package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignatij/kyubey/internal/metrics"
	"github.com/ignatij/kyubey/pkg/models"
	"github.com/ignatij/kyubey/pkg/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

type DBInterface interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type PostgresStore struct {
	db DBInterface
}

// PoolOptions tunes the connection pool shared by all requests.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func NewPostgresStore(ctx context.Context, connStr string, opts PoolOptions) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already opened pool.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Begin starts a read-only transaction; the returned store runs every query on it.
func (s *PostgresStore) Begin(ctx context.Context) (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, errors.Wrap(err, "begin transaction")
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

const systemColumns = `
		details ->> 'client_name' AS client_name,
		details ->> 'client_id' AS client_id,
		details ->> 'system_name' AS system_name,
		details ->> 'system_id' AS system_id,
		details ->> 'team_name' AS team_name,
		details ->> 'team_id' AS team_id,
		MAX(execution_date) AS latest_run,
		COUNT(*) AS number_of_dag_runs`

const systemComplete = `
		details ->> 'client_name' IS NOT NULL
		AND details ->> 'client_id' IS NOT NULL
		AND details ->> 'system_name' IS NOT NULL
		AND details ->> 'system_id' IS NOT NULL
		AND details ->> 'team_name' IS NOT NULL
		AND details ->> 'team_id' IS NOT NULL`

const systemGroupBy = `
	GROUP BY
		details ->> 'client_name',
		details ->> 'client_id',
		details ->> 'system_name',
		details ->> 'system_id',
		details ->> 'team_name',
		details ->> 'team_id'`

// Ties on system_id are broken by the remaining group keys so pages never overlap.
const systemOrderBy = `
	ORDER BY
		MAX(execution_date) DESC,
		details ->> 'system_id',
		details ->> 'client_id',
		details ->> 'team_id',
		details ->> 'client_name',
		details ->> 'system_name',
		details ->> 'team_name'`

var searchSystemsQuery = `
	SELECT` + systemColumns + `
	FROM api_trigger
	WHERE (
		details ->> 'client_name' ILIKE $1
		OR details ->> 'client_id' ILIKE $1
		OR details ->> 'system_name' ILIKE $1
		OR details ->> 'system_id' ILIKE $1
		OR details ->> 'team_name' ILIKE $1
		OR details ->> 'team_id' ILIKE $1
	) AND` + systemComplete + systemGroupBy + systemOrderBy + `
	LIMIT $2
	OFFSET $3`

var getSystemQuery = `
	SELECT` + systemColumns + `
	FROM api_trigger
	WHERE details ->> 'system_id' = $1 AND` + systemComplete + systemGroupBy + systemOrderBy

var getSystemForRunQuery = `
	SELECT` + systemColumns + `
	FROM api_trigger
	WHERE details ->> 'system_id' IN (
		SELECT details ->> 'system_id' FROM api_trigger WHERE run_id = $1
	) AND` + systemComplete + systemGroupBy + systemOrderBy

const dagRunColumns = `
		dr.dag_id,
		dr.run_id,
		dr.execution_date,
		dr.state,
		dr.start_date,
		dr.end_date,
		(
			SELECT t.details ->> 'system_id'
			FROM api_trigger t
			WHERE t.run_id = dr.run_id AND t.details ->> 'system_id' IS NOT NULL
			ORDER BY t.execution_date DESC
			LIMIT 1
		) AS system_id`

var getDagRunQuery = `
	SELECT` + dagRunColumns + `
	FROM dag_run dr
	WHERE dr.run_id = $1`

var listDagRunsForSystemQuery = `
	SELECT` + dagRunColumns + `
	FROM dag_run dr
	WHERE dr.run_id IN (
		SELECT run_id FROM api_trigger WHERE details ->> 'system_id' = $1
	)
	ORDER BY dr.execution_date, dr.dag_id`

const taskColumns = `task_id, dag_id, run_id, state, start_date, end_date, try_number`

const getTaskQuery = `
	SELECT ` + taskColumns + `
	FROM task_instance
	WHERE run_id = $1 AND task_id = $2
	ORDER BY map_index
	LIMIT 1`

const listTasksForDagRunQuery = `
	SELECT ` + taskColumns + `
	FROM task_instance
	WHERE run_id = $1
	ORDER BY dag_id, priority_weight, task_id, map_index`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPattern builds the ILIKE pattern for a literal substring match.
func SearchPattern(searchBy string) string {
	return "%" + likeEscaper.Replace(searchBy) + "%"
}

// SearchSystems returns one window of Systems matching searchBy on any descriptive field.
func (s *PostgresStore) SearchSystems(ctx context.Context, searchBy string, limit, offset int64) ([]models.System, error) {
	defer metrics.ObserveQuery("search_systems")()
	var rows []systemRow
	err := s.db.SelectContext(ctx, &rows, searchSystemsQuery, SearchPattern(searchBy), limit, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "search systems %q", searchBy)
	}
	return toSystems(rows), nil
}

// GetSystem returns the most recently run complete System with the given id.
func (s *PostgresStore) GetSystem(ctx context.Context, systemID string) (models.System, error) {
	defer metrics.ObserveQuery("get_system")()
	var rows []systemRow
	if err := s.db.SelectContext(ctx, &rows, getSystemQuery, systemID); err != nil {
		return models.System{}, errors.Wrapf(err, "get system %s", systemID)
	}
	return firstSystem(rows)
}

// GetSystemForRun resolves the System through the trigger rows of a run.
func (s *PostgresStore) GetSystemForRun(ctx context.Context, runID string) (models.System, error) {
	defer metrics.ObserveQuery("get_system_for_run")()
	var rows []systemRow
	if err := s.db.SelectContext(ctx, &rows, getSystemForRunQuery, runID); err != nil {
		return models.System{}, errors.Wrapf(err, "get system for run %s", runID)
	}
	return firstSystem(rows)
}

func firstSystem(rows []systemRow) (models.System, error) {
	systems := toSystems(rows)
	if len(systems) == 0 {
		return models.System{}, storage.ErrNotFound
	}
	return systems[0], nil
}

func (s *PostgresStore) GetDagRun(ctx context.Context, runID string) (models.DagRun, error) {
	defer metrics.ObserveQuery("get_dag_run")()
	var row dagRunRow
	err := s.db.GetContext(ctx, &row, getDagRunQuery, runID)
	if err == sql.ErrNoRows {
		return models.DagRun{}, storage.ErrNotFound
	}
	if err != nil {
		return models.DagRun{}, errors.Wrapf(err, "get dag run %s", runID)
	}
	dagRun, ok := row.toDagRun()
	if !ok {
		return models.DagRun{}, storage.ErrNotFound
	}
	return dagRun, nil
}

func (s *PostgresStore) ListDagRunsForSystem(ctx context.Context, systemID string) ([]models.DagRun, error) {
	defer metrics.ObserveQuery("list_dag_runs_for_system")()
	var rows []dagRunRow
	if err := s.db.SelectContext(ctx, &rows, listDagRunsForSystemQuery, systemID); err != nil {
		return nil, errors.Wrapf(err, "list dag runs for system %s", systemID)
	}
	return toDagRuns(rows), nil
}

func (s *PostgresStore) GetTask(ctx context.Context, runID, taskID string) (models.Task, error) {
	defer metrics.ObserveQuery("get_task")()
	var row taskRow
	err := s.db.GetContext(ctx, &row, getTaskQuery, runID, taskID)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, errors.Wrapf(err, "get task %s/%s", runID, taskID)
	}
	task, ok := row.toTask()
	if !ok {
		return models.Task{}, storage.ErrNotFound
	}
	return task, nil
}

func (s *PostgresStore) ListTasksForDagRun(ctx context.Context, runID string) ([]models.Task, error) {
	defer metrics.ObserveQuery("list_tasks_for_dag_run")()
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, listTasksForDagRunQuery, runID); err != nil {
		return nil, errors.Wrapf(err, "list tasks for dag run %s", runID)
	}
	return toTasks(rows), nil
}
