package models

// TaskLog is the content of a single task attempt log, ready for display.
type TaskLog struct {
	DagID     string   `json:"dag_id"`
	RunID     string   `json:"run_id"`
	TaskID    string   `json:"task_id"`
	Attempt   uint32   `json:"attempt"`    // Attempt being displayed
	TryNumber uint32   `json:"try_number"` // Latest attempt of the task
	Content   string   `json:"content"`    // Line endings normalized to "\n"
	Lines     []string `json:"-"`
}

// AttemptNumbers lists 1..TryNumber for attempt navigation.
func (l TaskLog) AttemptNumbers() []uint32 {
	attempts := make([]uint32, 0, l.TryNumber)
	for i := uint32(1); i <= l.TryNumber; i++ {
		attempts = append(attempts, i)
	}
	return attempts
}

// LogPage is a task together with its ancestors and the latest attempt log.
type LogPage struct {
	System System  `json:"system"`
	DagRun DagRun  `json:"dag_run"`
	Task   Task    `json:"task"`
	Log    TaskLog `json:"log"`
}
