package models

type DagState string

const (
	FailedDagState  DagState = "failed"
	QueuedDagState  DagState = "queued"
	RunningDagState DagState = "running"
	SuccessDagState DagState = "success"
)

// DagStates lists every DagState in display order.
func DagStates() []DagState {
	return []DagState{FailedDagState, QueuedDagState, RunningDagState, SuccessDagState}
}

// ParseDagState decodes a raw dag_run.state value. Unknown tokens yield false.
func ParseDagState(raw string) (DagState, bool) {
	switch DagState(raw) {
	case FailedDagState, QueuedDagState, RunningDagState, SuccessDagState:
		return DagState(raw), true
	default:
		return "", false
	}
}

func (s DagState) String() string {
	return string(s)
}

type TaskState string

const (
	DeferredTaskState        TaskState = "deferred"
	FailedTaskState          TaskState = "failed"
	QueuedTaskState          TaskState = "queued"
	RemovedTaskState         TaskState = "removed"
	RestartingTaskState      TaskState = "restarting"
	RunningTaskState         TaskState = "running"
	ScheduledTaskState       TaskState = "scheduled"
	SkippedTaskState         TaskState = "skipped"
	SuccessTaskState         TaskState = "success"
	UpForRescheduleTaskState TaskState = "up_for_reschedule"
	UpForRetryTaskState      TaskState = "up_for_retry"
	UpstreamFailedTaskState  TaskState = "upstream_failed"
)

// TaskStates lists every TaskState in display order.
func TaskStates() []TaskState {
	return []TaskState{
		DeferredTaskState,
		FailedTaskState,
		QueuedTaskState,
		RemovedTaskState,
		RestartingTaskState,
		RunningTaskState,
		ScheduledTaskState,
		SkippedTaskState,
		SuccessTaskState,
		UpForRescheduleTaskState,
		UpForRetryTaskState,
		UpstreamFailedTaskState,
	}
}

// ParseTaskState decodes a raw task_instance.state value. Unknown tokens yield false.
func ParseTaskState(raw string) (TaskState, bool) {
	switch TaskState(raw) {
	case DeferredTaskState, FailedTaskState, QueuedTaskState, RemovedTaskState,
		RestartingTaskState, RunningTaskState, ScheduledTaskState, SkippedTaskState,
		SuccessTaskState, UpForRescheduleTaskState, UpForRetryTaskState, UpstreamFailedTaskState:
		return TaskState(raw), true
	default:
		return "", false
	}
}

func (s TaskState) String() string {
	return string(s)
}
