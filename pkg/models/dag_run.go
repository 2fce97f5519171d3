package models

import "time"

// DagRun is one execution instance of a scheduled workflow.
type DagRun struct {
	DagID         string     `json:"dag_id"`
	RunID         string     `json:"run_id"`
	ExecutionDate time.Time  `json:"execution_date"`
	State         *DagState  `json:"state,omitempty"`      // nil when unknown or absent
	StartDate     *time.Time `json:"start_date,omitempty"` // Nullable start time
	EndDate       *time.Time `json:"end_date,omitempty"`   // Nullable end time
	SystemID      *string    `json:"system_id,omitempty"`  // nil when no trigger row references the run
}

// DagRunTasks pairs a DagRun with its Tasks.
type DagRunTasks struct {
	DagRun DagRun `json:"dag_run"`
	Tasks  []Task `json:"tasks"`
}

// TaskPage is everything the task listing of a run needs, parent System included.
type TaskPage struct {
	System System `json:"system"`
	DagRun DagRun `json:"dag_run"`
	Tasks  []Task `json:"tasks"`
}
