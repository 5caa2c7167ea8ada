package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"slackimporter/clients"
	"slackimporter/models"
	"slackimporter/services/entitygraph"
)

// UserExporter creates (or resolves an existing) Mattermost user for each
// imported Slack user (spec.md 4.4). Team membership is deliberately not
// added here — ChannelExporter ensures it, lazily, as each channel needs it.
type UserExporter struct {
	mm    clients.MattermostClient
	graph *entitygraph.Service
}

func NewUserExporter(mm clients.MattermostClient, graph *entitygraph.Service) *UserExporter {
	return &UserExporter{mm: mm, graph: graph}
}

func (e *UserExporter) Type() models.EntityType { return models.EntityTypeUser }

var usernameDisallowed = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeUsername mirrors Mattermost's username constraints: lowercase,
// alphanumeric plus `.`, `-`, `_`, 3-22 characters.
func sanitizeUsername(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = usernameDisallowed.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if len(name) < 3 {
		name = name + "user"
	}
	if len(name) > 22 {
		name = name[:22]
	}
	return name
}

// authData hashes username the same way the original importer's
// calc_auth_data does: a 31-multiplier rolling hash over each byte,
// reduced mod 10^5. Not Go's/Python's salted string hash, which isn't
// stable across runs - this has to match on every re-export.
func authData(username string) string {
	var h uint32
	for i := 0; i < len(username); i++ {
		h = h*31 + uint32(username[i])
	}
	return strconv.Itoa(int(h % 100000))
}

func (e *UserExporter) Export(ctx context.Context, entity *models.Entity) (string, error) {
	var data models.UserData
	if err := json.Unmarshal(entity.Data, &data); err != nil {
		return "", fmt.Errorf("decode user data: %w", err)
	}

	email := data.Profile.Email
	if email == "" {
		email = fmt.Sprintf("%s@imported.invalid", strings.ToLower(entity.SlackID))
	}

	if existing, err := e.mm.GetUserByEmail(ctx, email); err == nil && existing.ID != "" {
		e.uploadAvatar(ctx, existing.ID, data.Profile.AvatarURL())
		return existing.ID, nil
	}

	displayName := data.Profile.DisplayName
	if displayName == "" {
		displayName = data.Name
	}
	username := sanitizeUsername(displayName)
	if username == "" || username == "user" {
		username = sanitizeUsername(entity.SlackID)
	}

	user, err := e.mm.CreateUser(ctx, models.MMCreateUserRequest{
		Email:       email,
		Username:    username,
		Nickname:    data.Profile.RealName,
		Position:    data.Profile.Title,
		AuthService: "gitlab",
		AuthData:    authData(username),
	})
	if err != nil {
		return "", fmt.Errorf("create mattermost user: %w", err)
	}

	e.uploadAvatar(ctx, user.ID, data.Profile.AvatarURL())
	return user.ID, nil
}

// uploadAvatar is best-effort: a missing or unreachable avatar never fails
// the user export, it just leaves Mattermost's default avatar in place.
func (e *UserExporter) uploadAvatar(ctx context.Context, userID, avatarURL string) {
	if avatarURL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		log.Printf("⚠️ failed to build avatar request %s for user %s: %v", avatarURL, userID, err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("⚠️ failed to download avatar %s for user %s: %v", avatarURL, userID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ avatar download %s returned %d for user %s", avatarURL, resp.StatusCode, userID)
		return
	}
	if err := e.mm.UploadProfileImage(ctx, userID, "avatar.png", resp.Body); err != nil {
		log.Printf("⚠️ failed to upload avatar for user %s: %v", userID, err)
	}
}
