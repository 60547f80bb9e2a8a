package entities

import "time"

// UserType distinguishes account owners from the seats they manage
type UserType string

const (
	UserTypeOwner   UserType = "OWNER"
	UserTypeSubUser UserType = "SUB_USER"
)

// User is the signed-in account as returned by the API
type User struct {
	ExternalID     string          `json:"external_id"`
	Owner          *string         `json:"owner,omitempty"` // external_id of the owning account for sub-users
	Email          string          `json:"email_address"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	UserType       UserType        `json:"user_type"`
	Avatar         *string         `json:"avatar,omitempty"`
	IsActive       bool            `json:"is_active"`
	Profile        BusinessProfile `json:"profile"`
	Teams          []TeamRef       `json:"teams"`
	IsDeleted      bool            `json:"is_deleted,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	LastModifiedAt *time.Time      `json:"last_modified_at,omitempty"`
}

// BusinessProfile is the sales profile captured at onboarding
type BusinessProfile struct {
	Title             string         `json:"title"`
	BusinessName      string         `json:"business_name"`
	BusinessIndustry  string         `json:"business_industry"`
	Website           string         `json:"website"`
	AcquisitionSource string         `json:"acquisition_source"`
	RelatedLinks      []string       `json:"related_links"`
	Metadata          map[string]any `json:"metadata"`
}

// TeamRef is the short team form embedded in a user
type TeamRef struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

// DisplayName returns the user's full name, falling back to the email
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// IsOwner returns true if the user owns their account
func (u *User) IsOwner() bool {
	return u.UserType == UserTypeOwner
}

// Public returns a copy of the user limited to the fields shown to the UI
func (u *User) Public() *User {
	return &User{
		ExternalID: u.ExternalID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		UserType:   u.UserType,
		Avatar:     u.Avatar,
		IsActive:   u.IsActive,
		Profile:    u.Profile,
		Teams:      u.Teams,
	}
}

// ProfileUpdate is a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string          `json:"first_name,omitempty"`
	LastName  *string          `json:"last_name,omitempty"`
	Profile   *BusinessProfile `json:"profile,omitempty"`
}

// Empty reports whether the update changes nothing
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Profile == nil
}
