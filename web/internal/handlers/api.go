package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
	"github.com/devilmonastery/salesdesk/internal/pkg/timeutil"
	"github.com/devilmonastery/salesdesk/web/internal/render"
)

// Me returns the signed-in user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, s *requestScope) {
	user, err := services.NewAuthService(s.api, h.log).CurrentUser(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial profile update for the signed-in user
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var update entities.ProfileUpdate
	if err := decode(w, r, &update); err != nil {
		h.fail(w, r, s, err)
		return
	}
	userID, err := h.userID(r, s)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	user, err := services.NewUserService(s.api).UpdateProfile(r.Context(), userID, update)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UploadAvatar forwards a multipart "avatar" file to the API
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request, s *requestScope) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAvatarSize+1<<20)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.fail(w, r, s, fmt.Errorf("%w: avatar file is required", services.ErrInvalidInput))
		return
	}
	defer file.Close()

	userID, err := h.userID(r, s)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	user, err := services.NewUserService(s.api).UploadAvatar(r.Context(), userID, header.Filename, file, nil)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// userID returns the signed-in user's id from the session claims, asking
// the API when the access token carries none.
func (h *Handler) userID(r *http.Request, s *requestScope) (string, error) {
	if u, err := auth.GetUserFromContext(r.Context()); err == nil && u.UserID != "" {
		return u.UserID, nil
	}
	user, err := services.NewAuthService(s.api, h.log).CurrentUser(r.Context())
	if err != nil {
		return "", err
	}
	return user.ExternalID, nil
}

// Teams lists the user's teams
func (h *Handler) Teams(w http.ResponseWriter, r *http.Request, s *requestScope) {
	teams, err := services.NewTeamService(s.api).List(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.Page[entities.Team]{Results: nonNil(teams)})
}

// CreateTeam creates a team
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req entities.CreateTeamRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	team, err := services.NewTeamService(s.api).Create(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// Invites lists a team's invites
func (h *Handler) Invites(w http.ResponseWriter, r *http.Request, s *requestScope) {
	invites, err := services.NewTeamService(s.api).Invites(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.Page[entities.Invite]{Results: nonNil(invites)})
}

// CreateInvite invites someone to a team
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request, s *requestScope) {
	var req entities.InviteRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, s, err)
		return
	}
	invite, err := services.NewTeamService(s.api).Invite(r.Context(), mux.Vars(r)["id"], req.Email, req.Role)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

type dashboardResponse struct {
	Tasks         []render.TaskView                  `json:"tasks"`
	ContactEvents []entities.ContactInteractionEvent `json:"contact_events"`
	OpenTasks     int                                `json:"open_tasks"`
	OverdueTasks  int                                `json:"overdue_tasks"`
}

// Dashboard returns tasks and contact events in one call
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request, s *requestScope) {
	overview, err := services.NewDashboardService(s.api).Overview(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Tasks:         render.Tasks(overview.Tasks, h.userNow(r)),
		ContactEvents: nonNil(overview.ContactEvents),
		OpenTasks:     overview.OpenTasks,
		OverdueTasks:  overview.OverdueTasks,
	})
}

// Tasks lists tasks, optionally filtered by ?search= and ?tag=
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request, s *requestScope) {
	q := r.URL.Query()
	tasks, err := services.NewDashboardService(s.api).Tasks(r.Context(), q.Get("search"))
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	tasks = services.FilterByTag(tasks, q.Get("tag"))
	writeJSON(w, http.StatusOK, entities.Page[render.TaskView]{Results: render.Tasks(tasks, h.userNow(r))})
}

// Task returns one task with rendered content
func (h *Handler) Task(w http.ResponseWriter, r *http.Request, s *requestScope) {
	task, err := services.NewDashboardService(s.api).Task(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, render.Task(*task, h.userNow(r)))
}

// ContactEvents lists recent contact interactions
func (h *Handler) ContactEvents(w http.ResponseWriter, r *http.Request, s *requestScope) {
	events, err := services.NewDashboardService(s.api).ContactEvents(r.Context())
	if err != nil {
		h.fail(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.Page[entities.ContactInteractionEvent]{Results: nonNil(events)})
}

// userNow is the current time in the viewer's timezone, taken from ?tz=
// or the X-Timezone header (IANA names, UTC otherwise)
func (h *Handler) userNow(r *http.Request) time.Time {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = r.Header.Get("X-Timezone")
	}
	if tz != "" && !timeutil.IsValidTimezone(tz) {
		h.log.Debug("ignoring unknown timezone", slog.String("timezone", tz))
	}
	return timeutil.ConvertToUserTimezone(h.now(), tz)
}

// nonNil keeps empty lists as [] in JSON
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
