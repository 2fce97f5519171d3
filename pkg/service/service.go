package service

import (
	"context"
	"math"

	"github.com/ignatij/kyubey/internal/logs"
	"github.com/ignatij/kyubey/pkg/models"
	"github.com/ignatij/kyubey/pkg/storage"
	"github.com/pkg/errors"
)

// PageSize is the number of Systems on one search page.
const PageSize = 50

var (
	// ErrNotFound is returned when a direct lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrNoParentSystem is returned when a DagRun exists but no System can be derived for it.
	ErrNoParentSystem = errors.New("no parent system")
	// ErrNoAttempts is returned when a log is requested for a task that never ran.
	ErrNoAttempts = errors.New("task has no attempts")
	// ErrInternal hides store and I/O failures from callers. Details are logged.
	ErrInternal = errors.New("internal failure")
)

// Logger defines the logging interface for InspectService
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// LogReader returns the normalized content of one task attempt log.
type LogReader interface {
	Read(ctx context.Context, key logs.Key) (string, error)
}

// InspectService answers read-only questions about Systems, DagRuns and Tasks.
// Every operation runs its queries inside one read-only transaction so that
// composed results come from a single snapshot.
type InspectService struct {
	store  storage.Store
	logs   LogReader
	logger Logger
}

func NewInspectService(store storage.Store, logReader LogReader, logger Logger) *InspectService {
	return &InspectService{
		store:  store,
		logs:   logReader,
		logger: logger,
	}
}

// inTx runs fn on a transaction-scoped store, committing on success and
// rolling back otherwise. Errors leave translated to the service taxonomy.
func (s *InspectService) inTx(ctx context.Context, op string, fn func(tx storage.Store) error) (err error) {
	txStore, err := s.store.Begin(ctx)
	if err != nil {
		return s.translate(op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback %s: %v (original error: %v)", op, rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			err = s.translate(op, commitErr)
		}
	}()

	if err = fn(txStore); err != nil {
		return s.translate(op, err)
	}
	return nil
}

func (s *InspectService) translate(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoParentSystem), errors.Is(err, ErrNoAttempts), errors.Is(err, ErrInternal):
		s.logger.Debugf("%s: %v", op, err)
		return errors.Cause(err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, logs.ErrNotFound):
		s.logger.Debugf("%s: %v", op, err)
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Infof("%s aborted: %v", op, err)
		return ErrInternal
	default:
		s.logger.Errorf("%s failed: %v", op, err)
		return ErrInternal
	}
}

// Ping checks that a transaction can be opened against the store.
func (s *InspectService) Ping(ctx context.Context) error {
	return s.inTx(ctx, "ping", func(tx storage.Store) error { return nil })
}

// Search returns one page of Systems matching searchBy. NextPage is set only
// when the following page is non-empty.
func (s *InspectService) Search(ctx context.Context, searchBy string, page uint32) (models.SearchSystems, error) {
	result := models.SearchSystems{SearchBy: searchBy, Page: page}
	err := s.inTx(ctx, "search systems", func(tx storage.Store) error {
		offset := int64(page) * PageSize
		systems, err := tx.SearchSystems(ctx, searchBy, PageSize, offset)
		if err != nil {
			return err
		}
		result.Systems = systems
		if page == math.MaxUint32 {
			return nil
		}
		lookAhead, err := tx.SearchSystems(ctx, searchBy, PageSize, offset+PageSize)
		if err != nil {
			return err
		}
		if len(lookAhead) > 0 {
			next := page + 1
			result.NextPage = &next
		}
		return nil
	})
	if err != nil {
		return models.SearchSystems{}, err
	}
	s.logger.Debugf("Search %q page %d returned %d systems", searchBy, page, len(result.Systems))
	return result, nil
}

func (s *InspectService) GetSystem(ctx context.Context, systemID string) (models.System, error) {
	var system models.System
	err := s.inTx(ctx, "get system", func(tx storage.Store) (err error) {
		system, err = tx.GetSystem(ctx, systemID)
		return err
	})
	return system, err
}

// GetSystemForRun resolves the System that triggered runID.
func (s *InspectService) GetSystemForRun(ctx context.Context, runID string) (models.System, error) {
	var system models.System
	err := s.inTx(ctx, "get system for run", func(tx storage.Store) (err error) {
		system, err = tx.GetSystemForRun(ctx, runID)
		return err
	})
	return system, err
}

func (s *InspectService) GetDagRun(ctx context.Context, runID string) (models.DagRun, error) {
	var dagRun models.DagRun
	err := s.inTx(ctx, "get dag run", func(tx storage.Store) (err error) {
		dagRun, err = tx.GetDagRun(ctx, runID)
		return err
	})
	return dagRun, err
}

// GetDagRunsForSystem returns the System and its DagRuns ordered by
// execution date then dag id.
func (s *InspectService) GetDagRunsForSystem(ctx context.Context, systemID string) (models.SystemDagRuns, error) {
	var result models.SystemDagRuns
	err := s.inTx(ctx, "get dag runs for system", func(tx storage.Store) error {
		system, err := tx.GetSystem(ctx, systemID)
		if err != nil {
			return err
		}
		dagRuns, err := tx.ListDagRunsForSystem(ctx, systemID)
		if err != nil {
			return err
		}
		result = models.SystemDagRuns{System: system, DagRuns: dagRuns}
		return nil
	})
	return result, err
}

func (s *InspectService) GetTask(ctx context.Context, runID, taskID string) (models.Task, error) {
	var task models.Task
	err := s.inTx(ctx, "get task", func(tx storage.Store) (err error) {
		task, err = tx.GetTask(ctx, runID, taskID)
		return err
	})
	return task, err
}

// GetTasksForDagRun returns the DagRun and its Tasks. A DagRun without tasks
// yields an empty list, not ErrNotFound.
func (s *InspectService) GetTasksForDagRun(ctx context.Context, runID string) (models.DagRunTasks, error) {
	var result models.DagRunTasks
	err := s.inTx(ctx, "get tasks for dag run", func(tx storage.Store) error {
		dagRun, tasks, err := tasksForDagRun(ctx, tx, runID)
		if err != nil {
			return err
		}
		result = models.DagRunTasks{DagRun: dagRun, Tasks: tasks}
		return nil
	})
	return result, err
}

func tasksForDagRun(ctx context.Context, tx storage.Store, runID string) (models.DagRun, []models.Task, error) {
	dagRun, err := tx.GetDagRun(ctx, runID)
	if err != nil {
		return models.DagRun{}, nil, err
	}
	tasks, err := tx.ListTasksForDagRun(ctx, runID)
	if err != nil {
		return models.DagRun{}, nil, err
	}
	return dagRun, tasks, nil
}

// parentSystem resolves the System a DagRun belongs to.
func parentSystem(ctx context.Context, tx storage.Store, dagRun models.DagRun) (models.System, error) {
	if dagRun.SystemID == nil {
		return models.System{}, errors.Wrapf(ErrNoParentSystem, "dag run %s has no system id", dagRun.RunID)
	}
	system, err := tx.GetSystem(ctx, *dagRun.SystemID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.System{}, errors.Wrapf(ErrNoParentSystem, "system %s of dag run %s", *dagRun.SystemID, dagRun.RunID)
	}
	return system, err
}

// GetTaskPage returns a DagRun with its Tasks and the System it belongs to.
func (s *InspectService) GetTaskPage(ctx context.Context, runID string) (models.TaskPage, error) {
	var page models.TaskPage
	err := s.inTx(ctx, "get task page", func(tx storage.Store) error {
		dagRun, tasks, err := tasksForDagRun(ctx, tx, runID)
		if err != nil {
			return err
		}
		system, err := parentSystem(ctx, tx, dagRun)
		if err != nil {
			return err
		}
		page = models.TaskPage{System: system, DagRun: dagRun, Tasks: tasks}
		return nil
	})
	return page, err
}

// ReadTaskLog returns the log of one attempt of a task. A nil attempt selects
// the latest one. Tasks that never ran yield ErrNoAttempts and attempts
// outside 1..try_number yield ErrNotFound.
func (s *InspectService) ReadTaskLog(ctx context.Context, runID, taskID string, attempt *uint32) (models.TaskLog, error) {
	var taskLog models.TaskLog
	err := s.inTx(ctx, "read task log", func(tx storage.Store) error {
		task, err := tx.GetTask(ctx, runID, taskID)
		if err != nil {
			return err
		}
		taskLog, err = s.readLog(ctx, task, attempt)
		return err
	})
	return taskLog, err
}

func (s *InspectService) readLog(ctx context.Context, task models.Task, attempt *uint32) (models.TaskLog, error) {
	if !task.HasLogs() {
		return models.TaskLog{}, errors.Wrapf(ErrNoAttempts, "task %s/%s", task.RunID, task.TaskID)
	}
	tryNumber := task.Attempts()
	selected := tryNumber
	if attempt != nil {
		selected = *attempt
	}
	if selected < 1 || selected > tryNumber {
		return models.TaskLog{}, errors.Wrapf(ErrNotFound, "attempt %d of task %s/%s (tried %d)", selected, task.RunID, task.TaskID, tryNumber)
	}

	content, err := s.logs.Read(ctx, logs.Key{
		DagID:   task.DagID,
		RunID:   task.RunID,
		TaskID:  task.TaskID,
		Attempt: selected,
	})
	if err != nil {
		return models.TaskLog{}, err
	}
	return models.TaskLog{
		DagID:     task.DagID,
		RunID:     task.RunID,
		TaskID:    task.TaskID,
		Attempt:   selected,
		TryNumber: tryNumber,
		Content:   content,
		Lines:     logs.Lines(content),
	}, nil
}

// GetLogPage returns a Task with its DagRun, System and the log of its
// latest attempt.
func (s *InspectService) GetLogPage(ctx context.Context, runID, taskID string) (models.LogPage, error) {
	var page models.LogPage
	err := s.inTx(ctx, "get log page", func(tx storage.Store) error {
		dagRun, err := tx.GetDagRun(ctx, runID)
		if err != nil {
			return err
		}
		task, err := tx.GetTask(ctx, runID, taskID)
		if err != nil {
			return err
		}
		system, err := parentSystem(ctx, tx, dagRun)
		if err != nil {
			return err
		}
		taskLog, err := s.readLog(ctx, task, nil)
		if err != nil {
			return err
		}
		page = models.LogPage{System: system, DagRun: dagRun, Task: task, Log: taskLog}
		return nil
	})
	return page, err
}
