package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
)

// formatDuration formats a duration in a human-friendly way (e.g., "2 days, 3 hours and 45 minutes")
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	parts = appendUnit(parts, days, "day")
	parts = appendUnit(parts, hours, "hour")
	parts = appendUnit(parts, minutes, "minute")
	if len(parts) == 0 {
		parts = appendUnit(parts, seconds, "second")
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func appendUnit(parts []string, n int, unit string) []string {
	switch {
	case n == 1:
		return append(parts, "1 "+unit)
	case n > 1:
		return append(parts, fmt.Sprintf("%d %ss", n, unit))
	}
	return parts
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Sign up, sign in and manage the stored session for the current context.`,
	}

	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthSignUpCommand())
	cmd.AddCommand(newAuthVerifyCommand())
	cmd.AddCommand(newAuthResendOTPCommand())
	cmd.AddCommand(newAuthForgotPasswordCommand())
	cmd.AddCommand(newAuthResetPasswordCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthWhoAmICommand())
	cmd.AddCommand(newAuthTokenCommand())

	return cmd
}

func authService(cmd *cobra.Command) *services.AuthService {
	c := getCliContext(cmd)
	return services.NewAuthService(c.API, c.Logger)
}

func newAuthLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in to the API of the current context. The password is prompted
for without echo when not given.

Examples:
  salesdesk auth login --email rep@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = promptLine(cmd, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(cmd, "Password: "); err != nil {
					return err
				}
			}

			if err := authService(cmd).SignIn(cmd.Context(), email, password); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓  Signed in as %s (context %q)\n", email, getCliContext(cmd).Config.CurrentContext)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted if not provided)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if not provided)")
	return cmd
}

func newAuthSignUpCommand() *cobra.Command {
	var req entities.SignUpRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long:  `Create an account. A one-time code is emailed; finish with 'salesdesk auth verify'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Password == "" {
				if req.Password, err = promptPassword(cmd, "Choose a password: "); err != nil {
					return err
				}
			}
			result, err := authService(cmd).SignUp(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			fmt.Fprintf(cmd.OutOrStdout(), "Next: salesdesk auth verify --email %s --otp CODE\n", result.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password (prompted if not provided)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAuthVerifyCommand() *cobra.Command {
	var email, otp string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a new account with the emailed code and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := authService(cmd).VerifyAccount(cmd.Context(), email, otp)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓  Welcome, %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&otp, "otp", "", "One-time code from the email")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func newAuthResendOTPCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend-otp",
		Short: "Send a new sign-up code",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := authService(cmd).ResendOTP(cmd.Context(), email)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAuthForgotPasswordCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := authService(cmd).ForgotPassword(cmd.Context(), email)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAuthResetPasswordCommand() *cobra.Command {
	var email, otp, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the emailed reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if password == "" {
				if password, err = promptPassword(cmd, "New password: "); err != nil {
					return err
				}
			}
			msg, err := authService(cmd).ResetPassword(cmd.Context(), email, otp, password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&otp, "otp", "", "Reset code from the email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (prompted if not provided)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authService(cmd).SignOut(cmd.Context()); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			creds, err := getCliContext(cmd).Tokens.Load()
			if err != nil {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}

			if creds.Email != "" {
				fmt.Fprintf(out, "Logged in as: %s\n", creds.Email)
			}
			if creds.UserID != "" {
				fmt.Fprintf(out, "User ID: %s\n", creds.UserID)
			}
			if creds.ExpiresAt.IsZero() {
				fmt.Fprintln(out, "Token expiry: unknown")
				return nil
			}

			fmt.Fprintf(out, "Token expires: %s\n", creds.ExpiresAt.Local().Format("2006-01-02 15:04:05 MST"))
			now := time.Now()
			if creds.IsExpired() {
				fmt.Fprintf(out, "⚠  Token expired %s ago - automatic refresh will be attempted on next request\n", formatDuration(now.Sub(creds.ExpiresAt)))
			} else {
				fmt.Fprintf(out, "✓  Valid for %s\n", formatDuration(creds.ExpiresAt.Sub(now)))
			}
			return nil
		},
	}
}

func newAuthWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := authService(cmd).CurrentUser(cmd.Context())
			if err != nil {
				return describe(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.DisplayName(), user.Email)
			fmt.Fprintf(out, "Account: %s\n", user.UserType)
			for _, t := range user.Teams {
				fmt.Fprintf(out, "Team: %s\n", t.Name)
			}
			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Display the current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := getCliContext(cmd).Tokens.Load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), creds.AccessToken)
			return nil
		},
	}
}

var (
	inputMu  sync.Mutex
	inputSrc io.Reader
	inputBuf *bufio.Reader
)

// inputReader keeps one buffer per input so consecutive prompts on piped
// stdin don't drop lines.
func inputReader(r io.Reader) *bufio.Reader {
	inputMu.Lock()
	defer inputMu.Unlock()
	if inputSrc != r || inputBuf == nil {
		inputSrc, inputBuf = r, bufio.NewReader(r)
	}
	return inputBuf
}

// promptLine reads one line from the command's input
func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := inputReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return promptLine(cmd, prompt)
	}

	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	password, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr()) // newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
