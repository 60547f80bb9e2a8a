package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
)

func testJWT(claims jwt.MapClaims) string {
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SigningString()
	return s + ".fake_signature"
}

// runCLI executes the root command with args in an isolated home directory.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":   data,
		"status": map[string]any{"status_code": http.StatusOK},
	})
}

func TestFileTokenStore(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/creds/credentials-dev.json"
	store := NewFileTokenStore(path)

	access, err := store.AccessToken(ctx)
	require.NoError(t, err, "missing file reads as signed out")
	assert.Empty(t, access)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := testJWT(jwt.MapClaims{"user_id": 12, "email": "rep@example.com", "exp": float64(exp.Unix())})
	require.NoError(t, store.SetTokens(ctx, client.TokenPair{Access: token, Refresh: "r1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "12", creds.UserID)
	assert.Equal(t, "rep@example.com", creds.Email)
	assert.True(t, creds.ExpiresAt.Equal(exp))
	assert.False(t, creds.IsExpired())

	// Refresh without rotation keeps the stored refresh token
	require.NoError(t, store.SetTokens(ctx, client.TokenPair{Access: "opaque"}))
	refresh, _ := store.RefreshToken(ctx)
	assert.Equal(t, "r1", refresh)
	creds, _ = store.Load()
	assert.True(t, creds.ExpiresAt.IsZero())
	assert.Empty(t, creds.Email)

	require.NoError(t, store.ClearTokens(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.ClearTokens(ctx), "clearing twice is fine")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{90 * time.Minute, "1 hour and 30 minutes"},
		{49*time.Hour + 2*time.Minute, "2 days, 1 hour and 2 minutes"},
		{-2 * time.Hour, "2 hours"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in), tt.in.String())
	}
}

func TestConfigCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCLI(t, "", "config", "set-server", "staging", "https://staging.example.com/api/",
		"--theme", "dark", "--timeout", "5s", "--max-retries", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `Context "staging" saved`)

	_, err = runCLI(t, "", "config", "use-context", "staging")
	require.NoError(t, err)

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", config.CurrentContext)
	current, err := config.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com/api/", current.Server.URL)
	assert.Equal(t, "dark", current.Rendering.Theme)
	api := current.APIConfig()
	assert.Equal(t, 5*time.Second, api.Timeout)
	assert.Equal(t, 0, api.Retry.MaxRetries)
	assert.Equal(t, "salesdesk-cli", api.UserAgent)

	out, err = runCLI(t, "", "config", "list-contexts")
	require.NoError(t, err)
	assert.Regexp(t, `\*\s+staging\s+https://staging\.example\.com/api/\s+5s`, out)

	_, err = runCLI(t, "", "config", "delete-context", "staging")
	assert.Error(t, err, "current context cannot be deleted")

	_, err = runCLI(t, "", "config", "set-server", "bad", "not a url")
	assert.Error(t, err)
}

func TestLoadConfig_EnvPathAndValidation(t *testing.T) {
	path := t.TempDir() + "/salesdesk.yaml"
	t.Setenv(EnvConfigPath, path)

	require.NoError(t, os.WriteFile(path, []byte("contexts:\n  zeta:\n    server:\n      url: https://z.example.com/api/\n  alpha:\n    server:\n      url: https://a.example.com/api/\n"), 0o600))
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "alpha", cfg.CurrentContext, "first context by name becomes current")
	assert.Equal(t, []string{"alpha", "zeta"}, cfg.ContextNames())

	require.NoError(t, os.WriteFile(path, []byte("contexts:\n  broken:\n    server:\n      url: localhost\n"), 0o600))
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "broken")

	cfg = DefaultConfig()
	_, err = (&Config{CurrentContext: "gone", Contexts: cfg.Contexts}).GetCurrentContext()
	assert.ErrorIs(t, err, ErrContextNotFound)
	_, err = (&Config{}).GetCurrentContext()
	assert.ErrorIs(t, err, ErrNoCurrentContext)
}

func TestLoginThenTeams(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var gotLogin entities.LoginRequest
	access := testJWT(jwt.MapClaims{"user_id": "u-1", "email": "rep@example.com", "exp": float64(time.Now().Add(time.Hour).Unix())})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotLogin)
		writeEnvelope(w, map[string]string{"access": access, "refresh": "refresh-1"})
	})
	mux.HandleFunc("/api/teams/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeEnvelope(w, map[string]any{"results": []entities.Team{{ID: "t1", Name: "West Coast", Plan: "PRO"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := runCLI(t, "", "config", "set-server", "dev", srv.URL+"/api/")
	require.NoError(t, err)

	// Password arrives on stdin since it is not a terminal here
	out, err := runCLI(t, "s3cret\n", "auth", "login", "--email", "rep@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as rep@example.com")
	assert.Equal(t, "s3cret", gotLogin.Password)

	out, err = runCLI(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as: rep@example.com")

	out, err = runCLI(t, "", "teams", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "West Coast")
	assert.Contains(t, out, "PRO")
}

func TestProfileCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	access := testJWT(jwt.MapClaims{"user_id": "u-1", "email": "rep@example.com", "exp": float64(time.Now().Add(time.Hour).Unix())})
	var patched map[string]any
	var avatarName string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]string{"access": access, "refresh": "refresh-1"})
	})
	mux.HandleFunc("/api/users/from-auth/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{
			"external_id": "u-1",
			"profile":     map[string]any{"title": "SDR", "business_name": "Acme"},
		})
	})
	mux.HandleFunc("/api/users/u-1/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&patched)
		writeEnvelope(w, map[string]any{"external_id": "u-1", "first_name": "Ada", "last_name": "Lovelace"})
	})
	mux.HandleFunc("/api/users/u-1/avatar/", func(w http.ResponseWriter, r *http.Request) {
		if _, header, err := r.FormFile("avatar"); err == nil {
			avatarName = header.Filename
		}
		writeEnvelope(w, map[string]any{"external_id": "u-1", "avatar": "https://cdn.test/u-1.png"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := runCLI(t, "", "config", "set-server", "dev", srv.URL+"/api/")
	require.NoError(t, err)
	_, err = runCLI(t, "s3cret\n", "auth", "login", "--email", "rep@example.com")
	require.NoError(t, err)

	out, err := runCLI(t, "", "profile", "update", "--first-name", "Ada", "--title", "AE")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated for Ada Lovelace")
	assert.Equal(t, "Ada", patched["first_name"])
	profile, _ := patched["profile"].(map[string]any)
	assert.Equal(t, "AE", profile["title"])
	assert.Equal(t, "Acme", profile["business_name"], "unchanged profile fields are kept")

	avatar := t.TempDir() + "/me.png"
	require.NoError(t, os.WriteFile(avatar, []byte("PNG"), 0o600))
	out, err = runCLI(t, "", "profile", "avatar", avatar)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploading... 100%")
	assert.Contains(t, out, "Avatar updated: https://cdn.test/u-1.png")
	assert.Equal(t, "me.png", avatarName)

	_, err = runCLI(t, "", "profile", "avatar", t.TempDir()+"/missing.png")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	err := describe(&client.APIError{StatusCode: 401, Detail: "Token expired"})
	assert.Contains(t, err.Error(), "Token expired")
	assert.Contains(t, err.Error(), "salesdesk auth login")

	err = describe(&client.APIError{StatusCode: 400, Detail: "Invalid", Fields: map[string][]string{"email_address": {"Enter a valid email"}}})
	assert.Contains(t, err.Error(), "email_address: Enter a valid email")
}

func TestTaskMarkdown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task := &entities.Task{
		Title:           "Call Acme",
		Content:         "Ask about **renewal**",
		Priority:        entities.PriorityHigh,
		DueAt:           now.Add(-time.Hour),
		RelatedContacts: []string{"Ana", "Bo"},
	}

	md := taskMarkdown(task, now)
	assert.True(t, strings.HasPrefix(md, "# Call Acme\n"))
	assert.Contains(t, md, "**Status:** overdue")
	assert.Contains(t, md, "**Priority:** HIGH")
	assert.Contains(t, md, "**Contacts:** Ana, Bo")
	assert.Contains(t, md, "Ask about **renewal**")

	// Non-terminal output is passed through unchanged
	var buf bytes.Buffer
	require.NoError(t, printMarkdown(&buf, md, "dark"))
	assert.Equal(t, md, buf.String())
}
