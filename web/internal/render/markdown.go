package render

import (
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/pkg/textutil"
	"github.com/devilmonastery/salesdesk/internal/pkg/timeutil"
)

var policy = bluemonday.UGCPolicy()

// Markdown converts markdown text to safe HTML
func Markdown(markdown string) template.HTML {
	unsafe := blackfriday.Run([]byte(markdown))
	return template.HTML(policy.SanitizeBytes(unsafe))
}

// TaskView is a task with its markdown content rendered for the browser
type TaskView struct {
	entities.Task
	ContentHTML template.HTML `json:"content_html"`
	Overdue     bool          `json:"overdue"`
	DueDate     string        `json:"due_date,omitempty"` // in the viewer's timezone
	DueToday    bool          `json:"due_today"`
	Tags        []string      `json:"tags"`
}

// Task renders one task. now carries the viewer's timezone.
func Task(t entities.Task, now time.Time) TaskView {
	return TaskView{
		Task:        t,
		ContentHTML: Markdown(t.Content),
		Overdue:     t.IsOverdue(now),
		DueDate:     timeutil.LocalDate(t.DueAt, now),
		DueToday:    !t.IsCompleted() && timeutil.SameDay(t.DueAt, now),
		Tags:        textutil.ExtractHashtags(t.Content),
	}
}

// Tasks renders a list of tasks
func Tasks(tasks []entities.Task, now time.Time) []TaskView {
	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = Task(t, now)
	}
	return views
}
