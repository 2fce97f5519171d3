package models

import "time"

// Task is one step of a DagRun, identified by (RunID, TaskID).
type Task struct {
	TaskID    string     `json:"task_id"`
	DagID     string     `json:"dag_id"`
	RunID     string     `json:"run_id"`
	State     *TaskState `json:"state,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	TryNumber *uint32    `json:"try_number,omitempty"` // 1-based attempt counter, nil or 0 means never attempted
}

// Attempts returns how many attempts have logs. Zero means none.
func (t Task) Attempts() uint32 {
	if t.TryNumber == nil {
		return 0
	}
	return *t.TryNumber
}

// HasLogs reports whether a log may be offered for this task.
func (t Task) HasLogs() bool {
	return t.Attempts() > 0
}
