package clients

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"slackimporter/models"
)

// MockMattermostClient is a mock implementation of the MattermostClient interface.
type MockMattermostClient struct {
	mock.Mock
}

func (m *MockMattermostClient) CreateUser(ctx context.Context, req models.MMCreateUserRequest) (*models.MMUser, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMUser), args.Error(1)
}

func (m *MockMattermostClient) GetUserByEmail(ctx context.Context, email string) (*models.MMUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMUser), args.Error(1)
}

func (m *MockMattermostClient) GetUserByUsername(ctx context.Context, username string) (*models.MMUser, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMUser), args.Error(1)
}

func (m *MockMattermostClient) GetUserMe(ctx context.Context) (*models.MMUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMUser), args.Error(1)
}

func (m *MockMattermostClient) UploadProfileImage(ctx context.Context, userID string, filename string, image io.Reader) error {
	args := m.Called(ctx, userID, filename, image)
	return args.Error(0)
}

func (m *MockMattermostClient) GetTeamByName(ctx context.Context, name string) (*models.MMTeam, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMTeam), args.Error(1)
}

func (m *MockMattermostClient) AddTeamMember(ctx context.Context, teamID, userID string) error {
	args := m.Called(ctx, teamID, userID)
	return args.Error(0)
}

func (m *MockMattermostClient) CreateEmoji(ctx context.Context, name, creatorID, filename string, image io.Reader) (*models.MMEmoji, error) {
	args := m.Called(ctx, name, creatorID, filename, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMEmoji), args.Error(1)
}

func (m *MockMattermostClient) GetEmojiByName(ctx context.Context, name string) (*models.MMEmoji, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMEmoji), args.Error(1)
}

func (m *MockMattermostClient) CreateDM(ctx context.Context, req models.MMCreateDMRequest) (*models.MMChannel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMChannel), args.Error(1)
}

func (m *MockMattermostClient) CreateGroupDM(ctx context.Context, req models.MMCreateGroupDMRequest) (*models.MMChannel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMChannel), args.Error(1)
}

func (m *MockMattermostClient) CreateChannel(ctx context.Context, req models.MMCreateChannelRequest) (*models.MMChannel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MMChannel), args.Error(1)
}

func (m *MockMattermostClient) AddChannelMembers(ctx context.Context, req models.MMAddChannelMembersRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockMattermostClient) ArchiveChannel(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockMattermostClient) UploadAttachmentMultipart(ctx context.Context, channelID, filename string, file io.Reader) (string, error) {
	args := m.Called(ctx, channelID, filename, file)
	return args.String(0), args.Error(1)
}

func (m *MockMattermostClient) UploadAttachmentBase64(ctx context.Context, channelID, filename string, data []byte) (string, error) {
	args := m.Called(ctx, channelID, filename, data)
	return args.String(0), args.Error(1)
}

func (m *MockMattermostClient) ImportPost(ctx context.Context, req models.MMCreatePostRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockMattermostClient) CreateReaction(ctx context.Context, req models.MMCreateReactionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

var _ MattermostClient = (*MockMattermostClient)(nil)

// MockSlackFileClient is a mock implementation of the SlackFileClient interface.
type MockSlackFileClient struct {
	mock.Mock
}

func (m *MockSlackFileClient) DownloadFile(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockSlackFileClient) ListEmoji(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

var _ SlackFileClient = (*MockSlackFileClient)(nil)
