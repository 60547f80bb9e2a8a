package entities

// Team is a workspace shared by a group of users
type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Logo      string `json:"logo,omitempty"`
	Plan      string `json:"plan"`
	CreatedBy string `json:"created_by"`
}

// CreateTeamRequest is the payload for creating a team
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// InviteStatus is the lifecycle state of a team invite
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
)

// Invite is an invitation for an email address to join a team
type Invite struct {
	ID     string       `json:"id,omitempty"`
	Email  string       `json:"email_address"`
	Role   string       `json:"role"`
	Status InviteStatus `json:"status,omitempty"`
}

// InviteRequest is the payload for inviting someone to a team
type InviteRequest struct {
	Email string `json:"email_address"`
	Role  string `json:"role"`
}

// Page is the list wrapper the API returns inside the envelope payload
type Page[T any] struct {
	Results []T `json:"results"`
}
