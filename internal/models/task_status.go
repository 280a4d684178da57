package models

// TaskStatus is the column a task sits in on the task board
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatusInfo describes how a status is shown on the board
type TaskStatusInfo struct {
	ID        TaskStatus `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	SortOrder int        `json:"sortOrder"`
}

// TaskStatuses returns the fixed status set in board order
func TaskStatuses() []TaskStatusInfo {
	return []TaskStatusInfo{
		{ID: TaskStatusTodo, Name: "To Do", Color: "#3B82F6", SortOrder: 0},
		{ID: TaskStatusInProgress, Name: "In Progress", Color: "#EAB308", SortOrder: 1},
		{ID: TaskStatusDone, Name: "Done", Color: "#22C55E", SortOrder: 2},
	}
}

// Valid reports whether s is one of the known statuses
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}
