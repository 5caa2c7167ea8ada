package clients

import (
	"context"
	"io"

	"slackimporter/models"
)

// MattermostClient is the pooled HTTP collaborator every exporter resolves
// against (spec.md 4.3). It wraps both Mattermost's core REST API and the
// importer plugin's higher-level idempotent endpoints.
type MattermostClient interface {
	// Core API
	CreateUser(ctx context.Context, req models.MMCreateUserRequest) (*models.MMUser, error)
	GetUserByEmail(ctx context.Context, email string) (*models.MMUser, error)
	GetUserByUsername(ctx context.Context, username string) (*models.MMUser, error)
	GetUserMe(ctx context.Context) (*models.MMUser, error)
	UploadProfileImage(ctx context.Context, userID string, filename string, image io.Reader) error

	GetTeamByName(ctx context.Context, name string) (*models.MMTeam, error)
	AddTeamMember(ctx context.Context, teamID, userID string) error

	CreateEmoji(ctx context.Context, name, creatorID, filename string, image io.Reader) (*models.MMEmoji, error)
	GetEmojiByName(ctx context.Context, name string) (*models.MMEmoji, error)

	// Importer plugin
	CreateDM(ctx context.Context, req models.MMCreateDMRequest) (*models.MMChannel, error)
	CreateGroupDM(ctx context.Context, req models.MMCreateGroupDMRequest) (*models.MMChannel, error)
	CreateChannel(ctx context.Context, req models.MMCreateChannelRequest) (*models.MMChannel, error)
	AddChannelMembers(ctx context.Context, req models.MMAddChannelMembersRequest) error
	ArchiveChannel(ctx context.Context, channelID string) error

	UploadAttachmentMultipart(ctx context.Context, channelID, filename string, file io.Reader) (string, error)
	UploadAttachmentBase64(ctx context.Context, channelID, filename string, data []byte) (string, error)

	ImportPost(ctx context.Context, req models.MMCreatePostRequest) (string, error)
	CreateReaction(ctx context.Context, req models.MMCreateReactionRequest) error
}

// SlackFileClient resolves the two Slack HTTP contracts the import and
// export phases need: downloading a file behind a bearer token, and
// listing the workspace's custom emoji (spec.md 1, "out of scope" note).
type SlackFileClient interface {
	DownloadFile(ctx context.Context, url string) (io.ReadCloser, error)
	ListEmoji(ctx context.Context) (map[string]string, error)
}
