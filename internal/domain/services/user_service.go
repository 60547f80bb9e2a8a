package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/pkg/metrics"
)

// MaxAvatarSize is the largest avatar image accepted for upload
const MaxAvatarSize = 5 << 20

var avatarTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UserService updates the signed-in user's profile
type UserService struct {
	api API
}

// NewUserService creates a new user service
func NewUserService(api API) *UserService {
	return &UserService{api: api}
}

// UpdateProfile applies a partial profile change for userID and returns the
// updated user.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update entities.ProfileUpdate) (user *entities.User, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("users", "update_profile", time.Since(start), err)
	}()

	if userID == "" {
		return nil, invalid("user id is required")
	}
	update = trimProfileUpdate(update)
	if update.Empty() {
		return nil, invalid("nothing to update")
	}
	if update.FirstName != nil && *update.FirstName == "" {
		return nil, invalid("first name cannot be empty")
	}
	if update.Profile != nil && update.Profile.Website != "" {
		if u, perr := url.Parse(update.Profile.Website); perr != nil || u.Scheme == "" || u.Host == "" {
			return nil, invalid("website must be an absolute URL")
		}
	}

	env, err := s.api.Patch(ctx, client.RouteUpdateProfile(userID), update)
	if err != nil {
		return nil, err
	}
	return decodeUser(env, "Failed to update profile")
}

// UploadAvatar uploads an avatar image for userID. The content type is taken
// from the file extension. onProgress may be nil.
func (s *UserService) UploadAvatar(ctx context.Context, userID, filename string, r io.Reader, onProgress func(percent int)) (user *entities.User, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordServiceOperation("users", "upload_avatar", time.Since(start), err)
	}()

	if userID == "" {
		return nil, invalid("user id is required")
	}
	contentType, ok := avatarTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, invalid("avatar must be a png, jpeg, gif or webp image")
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, invalid("avatar file is empty")
	}
	if len(data) > MaxAvatarSize {
		return nil, invalid("avatar must be at most %d MB", MaxAvatarSize>>20)
	}

	env, err := s.api.Upload(ctx, client.RouteUserAvatar(userID), client.UploadPayload{
		Files: []client.UploadFile{{
			FieldName:   "avatar",
			FileName:    client.SanitizeFilename(filename),
			ContentType: contentType,
			Reader:      bytes.NewReader(data),
		}},
	}, onProgress)
	if err != nil {
		return nil, err
	}
	return decodeUser(env, "Failed to upload avatar")
}

func decodeUser(env *client.Envelope, fallback string) (*entities.User, error) {
	if err := requireData(env, fallback); err != nil {
		return nil, err
	}
	var u entities.User
	if err := json.Unmarshal(env.Data, &u); err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func trimProfileUpdate(update entities.ProfileUpdate) entities.ProfileUpdate {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	update.FirstName = trim(update.FirstName)
	update.LastName = trim(update.LastName)
	if update.Profile != nil {
		profile := *update.Profile
		profile.Title = strings.TrimSpace(profile.Title)
		profile.BusinessName = strings.TrimSpace(profile.BusinessName)
		profile.BusinessIndustry = strings.TrimSpace(profile.BusinessIndustry)
		profile.Website = strings.TrimSpace(profile.Website)
		update.Profile = &profile
	}
	return update
}
