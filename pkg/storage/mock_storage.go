package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ignatij/kyubey/pkg/models"
	"github.com/pkg/errors"
)

type mockTask struct {
	task           models.Task
	priorityWeight int
}

// MockStore implements Store over in-memory fixtures. It mirrors the ordering
// and filtering rules of the Postgres store so services can be tested without a database.
type MockStore struct {
	mu       sync.Mutex
	systems  []models.System
	dagRuns  []models.DagRun
	tasks    []mockTask
	failWith error // returned by every read when set
	begun    int   // transactions started
	open     int   // transactions not yet committed or rolled back
	inTx     bool
	parent   *MockStore
}

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) AddSystem(s models.System) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems = append(m.systems, s)
	return m
}

func (m *MockStore) AddDagRun(r models.DagRun) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dagRuns = append(m.dagRuns, r)
	return m
}

func (m *MockStore) AddTask(t models.Task, priorityWeight int) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, mockTask{task: t, priorityWeight: priorityWeight})
	return m
}

// FailWith makes every subsequent read return err.
func (m *MockStore) FailWith(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
	return m
}

// Transactions returns how many transactions were started and how many are still open.
func (m *MockStore) Transactions() (begun, open int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begun, m.open
}

func (m *MockStore) root() *MockStore {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *MockStore) Begin(ctx context.Context) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.begun++
	root.open++
	return &MockStore{parent: root, inTx: true}, nil
}

func (m *MockStore) Commit() error {
	return m.end()
}

func (m *MockStore) Rollback() error {
	return m.end()
}

func (m *MockStore) end() error {
	if !m.inTx {
		return errors.New("not a transaction")
	}
	m.inTx = false
	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.open--
	return nil
}

func (m *MockStore) Close() error {
	return nil
}

// read runs fn against the root fixtures under its lock.
func (m *MockStore) read(ctx context.Context, fn func(root *MockStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	if root.failWith != nil {
		return root.failWith
	}
	return fn(root)
}

func (m *MockStore) SearchSystems(ctx context.Context, searchBy string, limit, offset int64) ([]models.System, error) {
	var systems []models.System
	err := m.read(ctx, func(root *MockStore) error {
		term := strings.ToLower(searchBy)
		matched := []models.System{}
		for _, s := range root.systems {
			for _, field := range []string{s.ClientName, s.ClientID, s.SystemName, s.SystemID, s.TeamName, s.TeamID} {
				if strings.Contains(strings.ToLower(field), term) {
					matched = append(matched, s)
					break
				}
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if !matched[i].LatestRun.Equal(matched[j].LatestRun) {
				return matched[i].LatestRun.After(matched[j].LatestRun)
			}
			return matched[i].SystemID < matched[j].SystemID
		})
		if offset >= int64(len(matched)) {
			systems = []models.System{}
			return nil
		}
		end := offset + limit
		if end > int64(len(matched)) {
			end = int64(len(matched))
		}
		systems = matched[offset:end]
		return nil
	})
	return systems, err
}

func (m *MockStore) GetSystem(ctx context.Context, systemID string) (models.System, error) {
	var system models.System
	err := m.read(ctx, func(root *MockStore) error {
		for _, s := range root.systems {
			if s.SystemID == systemID {
				system = s
				return nil
			}
		}
		return ErrNotFound
	})
	return system, err
}

func (m *MockStore) GetSystemForRun(ctx context.Context, runID string) (models.System, error) {
	var system models.System
	err := m.read(ctx, func(root *MockStore) error {
		for _, r := range root.dagRuns {
			if r.RunID != runID || r.SystemID == nil {
				continue
			}
			for _, s := range root.systems {
				if s.SystemID == *r.SystemID {
					system = s
					return nil
				}
			}
		}
		return ErrNotFound
	})
	return system, err
}

func (m *MockStore) GetDagRun(ctx context.Context, runID string) (models.DagRun, error) {
	var dagRun models.DagRun
	err := m.read(ctx, func(root *MockStore) error {
		for _, r := range root.dagRuns {
			if r.RunID == runID {
				dagRun = r
				return nil
			}
		}
		return ErrNotFound
	})
	return dagRun, err
}

func (m *MockStore) ListDagRunsForSystem(ctx context.Context, systemID string) ([]models.DagRun, error) {
	dagRuns := []models.DagRun{}
	err := m.read(ctx, func(root *MockStore) error {
		for _, r := range root.dagRuns {
			if r.SystemID != nil && *r.SystemID == systemID {
				dagRuns = append(dagRuns, r)
			}
		}
		sort.SliceStable(dagRuns, func(i, j int) bool {
			if !dagRuns[i].ExecutionDate.Equal(dagRuns[j].ExecutionDate) {
				return dagRuns[i].ExecutionDate.Before(dagRuns[j].ExecutionDate)
			}
			return dagRuns[i].DagID < dagRuns[j].DagID
		})
		return nil
	})
	return dagRuns, err
}

func (m *MockStore) GetTask(ctx context.Context, runID, taskID string) (models.Task, error) {
	var task models.Task
	err := m.read(ctx, func(root *MockStore) error {
		for _, t := range root.tasks {
			if t.task.RunID == runID && t.task.TaskID == taskID {
				task = t.task
				return nil
			}
		}
		return ErrNotFound
	})
	return task, err
}

func (m *MockStore) ListTasksForDagRun(ctx context.Context, runID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := m.read(ctx, func(root *MockStore) error {
		var matched []mockTask
		for _, t := range root.tasks {
			if t.task.RunID == runID {
				matched = append(matched, t)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if matched[i].task.DagID != matched[j].task.DagID {
				return matched[i].task.DagID < matched[j].task.DagID
			}
			if matched[i].priorityWeight != matched[j].priorityWeight {
				return matched[i].priorityWeight < matched[j].priorityWeight
			}
			return matched[i].task.TaskID < matched[j].task.TaskID
		})
		for _, t := range matched {
			tasks = append(tasks, t.task)
		}
		return nil
	})
	return tasks, err
}
