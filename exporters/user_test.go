package exporters

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slackimporter/clients"
	"slackimporter/models"
	"slackimporter/services"
	"slackimporter/services/entitygraph"
)

func newTestGraph() (*entitygraph.Service, *services.MockEntitiesRepository, *services.MockEntityRelationsRepository) {
	entities := &services.MockEntitiesRepository{}
	relations := &services.MockEntityRelationsRepository{}
	return entitygraph.New(entities, relations), entities, relations
}

func userEntity(t *testing.T, data models.UserData) *models.Entity {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &models.Entity{ID: 1, Type: models.EntityTypeUser, SlackID: data.ID, Data: raw}
}

func TestUserExporter_Export_CreatesNewUser(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, _, _ := newTestGraph()
	exporter := NewUserExporter(mm, graph)

	entity := userEntity(t, models.UserData{
		SlackExportUser: models.SlackExportUser{
			ID:   "U1",
			Name: "jdoe",
			Profile: models.SlackExportProfile{
				Email:       "jdoe@example.com",
				DisplayName: "J Doe",
				RealName:    "Jane Doe",
				Title:       "Engineer",
				Image192:    "https://files.slack.com/jdoe-192.png",
			},
		},
	})

	mm.On("GetUserByEmail", mock.Anything, "jdoe@example.com").Return(nil, assert.AnError)
	mm.On("CreateUser", mock.Anything, mock.MatchedBy(func(req models.MMCreateUserRequest) bool {
		return req.Email == "jdoe@example.com" && req.Username == "j-doe" &&
			req.Position == "Engineer" && req.AuthService == "gitlab" && req.AuthData == authData("j-doe")
	})).Return(&models.MMUser{ID: "mm-user-1"}, nil)
	mm.On("UploadProfileImage", mock.Anything, "mm-user-1", mock.Anything, mock.Anything).Return(nil)

	mattermostID, err := exporter.Export(context.Background(), entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-user-1", mattermostID)
	mm.AssertNotCalled(t, "AddTeamMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserExporter_Export_ReusesExistingUser(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, _, _ := newTestGraph()
	exporter := NewUserExporter(mm, graph)

	entity := userEntity(t, models.UserData{
		SlackExportUser: models.SlackExportUser{
			ID:   "U2",
			Name: "existing",
			Profile: models.SlackExportProfile{
				Email: "existing@example.com",
			},
		},
	})

	mm.On("GetUserByEmail", mock.Anything, "existing@example.com").
		Return(&models.MMUser{ID: "mm-user-2"}, nil)

	mattermostID, err := exporter.Export(context.Background(), entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-user-2", mattermostID)
	mm.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	mm.AssertNotCalled(t, "AddTeamMember", mock.Anything, mock.Anything, mock.Anything)
	mm.AssertNotCalled(t, "UploadProfileImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthData_IsStableAndBounded(t *testing.T) {
	a := authData("jdoe")
	b := authData("jdoe")
	assert.Equal(t, a, b)
	assert.NotEqual(t, authData("jdoe"), authData("other"))
	n, err := strconv.Atoi(a)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 0)
	assert.Less(t, n, 100000)
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"J Doe", "j-doe"},
		{"ab", "abuser"},
		{"", "user"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeUsername(tt.in))
	}
}
