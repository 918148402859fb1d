package thread

// TaskStatus is the lifecycle status of a thread's task.
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "backlog"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusIterating  TaskStatus = "iterating"
	StatusValidating TaskStatus = "validating"
	StatusDone       TaskStatus = "done"
	StatusCanceled   TaskStatus = "canceled"
	StatusArchived   TaskStatus = "archived"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusIterating,
		StatusValidating, StatusDone, StatusCanceled, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether the task has reached a resting state. Terminal
// threads only move again through reopen-by-new-message or archival.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusCanceled || s == StatusArchived
}

// transitions is the canonical task state machine for explicit status
// changes. Entering in_progress happens through run start rather than an
// explicit SetTaskStatus, and leaving done/canceled (other than to archived)
// happens only through reopen-by-new-message; neither appears here.
var transitions = map[TaskStatus][]TaskStatus{
	StatusBacklog:    {StatusTodo, StatusCanceled},
	StatusTodo:       {StatusBacklog, StatusIterating, StatusValidating, StatusDone, StatusCanceled},
	StatusInProgress: {StatusTodo, StatusIterating, StatusValidating, StatusDone, StatusCanceled},
	StatusIterating:  {StatusTodo, StatusValidating, StatusDone, StatusCanceled},
	StatusValidating: {StatusTodo, StatusIterating, StatusDone, StatusCanceled},
	StatusDone:       {StatusArchived},
	StatusCanceled:   {StatusArchived},
	StatusArchived:   {},
}

// CanTransition reports whether an explicit status change from "from" to
// "to" is legal while "running" indicates an active turn. Archiving a thread
// with a running turn is always rejected.
func CanTransition(from, to TaskStatus, running bool) bool {
	if !to.Valid() || from == to {
		return false
	}
	if to == StatusArchived {
		if running {
			return false
		}
		// Any idle thread may be archived explicitly.
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
