package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// TeamService manages teams and their invites
type TeamService struct {
	api API
}

// NewTeamService creates a new team service
func NewTeamService(api API) *TeamService {
	return &TeamService{api: api}
}

// List returns the teams the signed-in user belongs to
func (s *TeamService) List(ctx context.Context) (teams []entities.Team, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("teams", "list", time.Since(start), err)
	}()

	resp, err := decodeEnvelope[entities.Page[entities.Team]](s.api.Get(ctx, client.RouteTeams))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to fetch teams"); err != nil {
		return nil, err
	}
	return resp.Data.Results, nil
}

// Create creates a team owned by the signed-in user
func (s *TeamService) Create(ctx context.Context, name string) (team *entities.Team, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("teams", "create", time.Since(start), err)
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("team name is required")
	}

	resp, err := decodeEnvelope[entities.Team](s.api.Post(ctx, client.RouteTeams, entities.CreateTeamRequest{Name: name}))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to create team"); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Invite invites an email address to a team with the given role
func (s *TeamService) Invite(ctx context.Context, teamID, email, role string) (invite *entities.Invite, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("teams", "invite", time.Since(start), err)
	}()

	if teamID == "" {
		return nil, invalid("team id is required")
	}
	addr, parseErr := mail.ParseAddress(strings.TrimSpace(email))
	if parseErr != nil {
		return nil, invalid("invalid email address %q", email)
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = auth.RoleMember
	}
	if !auth.ValidTeamRole(role) {
		return nil, invalid("role must be %s or %s", auth.RoleAdmin, auth.RoleMember)
	}

	resp, err := decodeEnvelope[entities.Invite](s.api.Post(ctx, client.RouteTeamInvites(teamID), entities.InviteRequest{
		Email: addr.Address,
		Role:  role,
	}))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to send invite"); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Invites lists the outstanding invites for a team
func (s *TeamService) Invites(ctx context.Context, teamID string) (invites []entities.Invite, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("teams", "invites", time.Since(start), err)
	}()

	if teamID == "" {
		return nil, invalid("team id is required")
	}

	resp, err := decodeEnvelope[entities.Page[entities.Invite]](s.api.Get(ctx, client.RouteTeamInvites(teamID)))
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(resp, "Failed to fetch invites"); err != nil {
		return nil, err
	}
	return resp.Data.Results, nil
}
