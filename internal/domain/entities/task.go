package entities

import "time"

// TaskPriority ranks a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

// Task is a follow-up item on the sales dashboard
type Task struct {
	ID              string       `json:"id"`
	CreatedAt       time.Time    `json:"created_at"`
	LastModifiedAt  time.Time    `json:"last_modified_at"`
	Title           string       `json:"title"`
	Content         string       `json:"content"` // markdown
	RelatedContacts []string     `json:"related_contacts"`
	Priority        TaskPriority `json:"priority"`
	CreatedBy       string       `json:"created_by"`
	AssignedTo      string       `json:"assigned_to"`
	DueAt           time.Time    `json:"due_at"`
	CompletedAt     *time.Time   `json:"completed_at"`
}

// IsCompleted returns true if the task has a completion time
func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}

// IsOverdue returns true if an open task is past its due time
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted() && !t.DueAt.IsZero() && now.After(t.DueAt)
}

// ContactInteractionEvent records a touch point with a contact
type ContactInteractionEvent struct {
	Contact            string    `json:"contact"`
	InteractionChannel string    `json:"interaction_channel"` // EMAIL, PHONE, LINKEDIN, ...
	EventType          string    `json:"event_type"`          // EMAIL_SENT, EMAIL_OPENED, CALL_MADE, MESSAGE_SENT, ...
	OccurredAt         time.Time `json:"occurred_at"`
	PerformedBy        string    `json:"performed_by"` // source system, e.g. BRIDGE
	UserPerformedBy    string    `json:"user_performed_by"`
	EventData          string    `json:"event_data"`
}

// Overview is the dashboard summary
type Overview struct {
	Tasks         []Task                    `json:"tasks"`
	ContactEvents []ContactInteractionEvent `json:"contact_events"`
	OpenTasks     int                       `json:"open_tasks"`
	OverdueTasks  int                       `json:"overdue_tasks"`
}
