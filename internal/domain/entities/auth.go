package entities

// SignUpRequest is the payload for creating an account
type SignUpRequest struct {
	Email     string `json:"email_address"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest is the payload for password sign-in
type LoginRequest struct {
	Email    string `json:"email_address"`
	Password string `json:"password"`
}

// VerifyOTPRequest is the payload for completing sign-up
type VerifyOTPRequest struct {
	Email   string `json:"email_address"`
	OTPCode string `json:"otp_code"`
}

// EmailRequest is the payload for OTP resend and password reset requests
type EmailRequest struct {
	Email string `json:"email_address"`
}

// ResetPasswordRequest is the payload for completing a password reset
type ResetPasswordRequest struct {
	Email    string `json:"email_address"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code"`
}

// SocialLoginRequest is the payload the API uses to exchange a provider code
type SocialLoginRequest struct {
	Provider     string `json:"provider"`
	Code         string `json:"code"`
	State        string `json:"state"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// SignUpResult is what sign-up reports back to the caller
type SignUpResult struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}
