package client

import "fmt"

// Remote API paths, relative to the configured base URL.
const (
	RouteLogin          = "users/auth/login/"
	RouteSignUp         = "users/signup/"
	RouteVerifyAccount  = "users/signup-complete/"
	RouteResendOTP      = "users/resend-signup-otp/"
	RouteForgotPassword = "users/reset-password/"
	RouteResetPassword  = "users/reset-password-complete/"
	RouteRefreshToken   = "users/auth/refresh/"
	RouteLogout         = "users/auth/logout/"
	RouteSocialLogin    = "users/social-auth/login/"
	RouteProfile        = "users/from-auth/"

	RouteTeams         = "teams/"
	RouteTasks         = "tasks/"
	RouteContactEvents = "contacts/events/"
)

// RouteUpdateProfile is the profile update path for a user.
func RouteUpdateProfile(userID string) string {
	return fmt.Sprintf("users/%s/", userID)
}

// RouteUserAvatar is the avatar upload path for a user.
func RouteUserAvatar(userID string) string {
	return fmt.Sprintf("users/%s/avatar/", userID)
}

// RouteTeamInvites is the invite collection path for a team.
func RouteTeamInvites(teamID string) string {
	return fmt.Sprintf("teams/%s/invites/", teamID)
}

// RouteTask is the path for a single task.
func RouteTask(taskID string) string {
	return fmt.Sprintf("tasks/%s/", taskID)
}
