package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
	"github.com/devilmonastery/salesdesk/internal/pkg/textutil"
)

// DashboardService reads the sales dashboard data
type DashboardService struct {
	api API
	now func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(api API) *DashboardService {
	return &DashboardService{api: api, now: time.Now}
}

// Tasks returns the user's tasks. A non-empty search keeps only tasks whose
// title or content contains it, ignoring case.
func (s *DashboardService) Tasks(ctx context.Context, search string) (tasks []entities.Task, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("dashboard", "tasks", time.Since(start), err)
	}()

	resp, err := decodeEnvelope[entities.Page[entities.Task]](s.api.Get(ctx, client.RouteTasks))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to fetch tasks"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(search) == "" {
		return resp.Data.Results, nil
	}

	matched := make([]entities.Task, 0, len(resp.Data.Results))
	for _, t := range resp.Data.Results {
		if matchesSearch(t, search) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// FilterByTag keeps tasks whose content carries the hashtag tag.
// An empty tag keeps everything.
func FilterByTag(tasks []entities.Task, tag string) []entities.Task {
	if tag == "" {
		return tasks
	}
	matched := make([]entities.Task, 0, len(tasks))
	for _, t := range tasks {
		if textutil.HasHashtag(t.Content, tag) {
			matched = append(matched, t)
		}
	}
	return matched
}

// Task returns a single task
func (s *DashboardService) Task(ctx context.Context, id string) (task *entities.Task, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("dashboard", "task", time.Since(start), err)
	}()

	if id == "" {
		return nil, invalid("task id is required")
	}

	resp, err := decodeEnvelope[entities.Task](s.api.Get(ctx, client.RouteTask(id)))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to fetch task"); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ContactEvents returns recent contact interaction events
func (s *DashboardService) ContactEvents(ctx context.Context) (events []entities.ContactInteractionEvent, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("dashboard", "contact_events", time.Since(start), err)
	}()

	resp, err := decodeEnvelope[entities.Page[entities.ContactInteractionEvent]](s.api.Get(ctx, client.RouteContactEvents))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to fetch contact events"); err != nil {
		return nil, err
	}
	return resp.Data.Results, nil
}

// Overview fetches tasks and contact events concurrently and summarizes them.
func (s *DashboardService) Overview(ctx context.Context) (overview *entities.Overview, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("dashboard", "overview", time.Since(start), err)
	}()

	var (
		tasks  []entities.Task
		events []entities.ContactInteractionEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = s.Tasks(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.ContactEvents(gctx)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	overview = &entities.Overview{Tasks: tasks, ContactEvents: events}
	now := s.now()
	for i := range tasks {
		if tasks[i].IsCompleted() {
			continue
		}
		overview.OpenTasks++
		if tasks[i].IsOverdue(now) {
			overview.OverdueTasks++
		}
	}
	return overview, nil
}
