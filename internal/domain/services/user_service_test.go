package services

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
)

func ptr(s string) *string { return &s }

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/u1/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		ok(w, map[string]any{
			"external_id":   "u1",
			"email_address": "rep@example.com",
			"first_name":    got["first_name"],
			"user_type":     "OWNER",
			"profile":       map[string]any{"title": "AE", "website": "https://acme.test"},
		})
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{Access: "a"})
	svc := NewUserService(api)

	user, err := svc.UpdateProfile(t.Context(), "u1", entities.ProfileUpdate{
		FirstName: ptr("  Ada "),
		Profile:   &entities.BusinessProfile{Title: "AE", Website: "https://acme.test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "AE", user.Profile.Title)

	assert.Equal(t, "Ada", got["first_name"])
	assert.NotContains(t, got, "last_name")
}

func TestUserService_UpdateProfile_Invalid(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, http.NewServeMux(), client.TokenPair{Access: "a"})
	svc := NewUserService(api)
	ctx := t.Context()

	tests := map[string]struct {
		userID string
		update entities.ProfileUpdate
	}{
		"missing user":  {"", entities.ProfileUpdate{FirstName: ptr("Ada")}},
		"empty update":  {"u1", entities.ProfileUpdate{}},
		"blank name":    {"u1", entities.ProfileUpdate{FirstName: ptr("   ")}},
		"relative site": {"u1", entities.ProfileUpdate{Profile: &entities.BusinessProfile{Website: "acme.test"}}},
	}
	for name, tc := range tests {
		_, err := svc.UpdateProfile(ctx, tc.userID, tc.update)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestUserService_UpdateProfile_Rejected(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/u1/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, http.StatusForbidden, "Not allowed", nil)
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{Access: "a"})

	_, err := NewUserService(api).UpdateProfile(t.Context(), "u1", entities.ProfileUpdate{LastName: ptr("Lovelace")})
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusForbidden, re.StatusCode)
	assert.Equal(t, "Not allowed", re.Message)
}

func TestUserService_UploadAvatar(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/u1/avatar/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "face.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "PNGDATA", string(data))
		ok(w, map[string]any{"external_id": "u1", "avatar": "https://cdn.test/u1.png"})
	})
	api, _ := newTestAPI(t, mux, client.TokenPair{Access: "a"})
	svc := NewUserService(api)

	var last atomic.Int32
	user, err := svc.UploadAvatar(t.Context(), "u1", "/tmp/face.PNG", strings.NewReader("PNGDATA"), func(p int) { last.Store(int32(p)) })
	require.NoError(t, err)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, "https://cdn.test/u1.png", *user.Avatar)
	assert.EqualValues(t, 100, last.Load())
}

func TestUserService_UploadAvatar_Invalid(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, http.NewServeMux(), client.TokenPair{Access: "a"})
	svc := NewUserService(api)
	ctx := t.Context()

	_, err := svc.UploadAvatar(ctx, "u1", "notes.txt", strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadAvatar(ctx, "u1", "face.png", strings.NewReader(""), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadAvatar(ctx, "u1", "face.png", strings.NewReader(strings.Repeat("x", MaxAvatarSize+1)), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
