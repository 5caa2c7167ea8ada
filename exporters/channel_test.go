package exporters

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/models"
	"slackimporter/services"
)

func channelEntity(t *testing.T, data models.ChannelData) *models.Entity {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &models.Entity{ID: 10, Type: models.EntityTypeChannel, SlackID: data.ID, Data: raw}
}

func withTwoMembers(entities *services.MockEntitiesRepository, relations *services.MockEntityRelationsRepository, jobID, channelEntityID int64) {
	relations.On("ListByFromEntity", mock.Anything, jobID, channelEntityID, models.RelationChannelMember).
		Return([]*models.EntityRelation{
			{ToEntity: 101},
			{ToEntity: 102},
		}, nil)
	entities.On("GetEntityByID", mock.Anything, (*int64)(nil), int64(101)).
		Return(mo.Some(&models.Entity{ID: 101, MattermostID: "mm-user-101"}), nil)
	entities.On("GetEntityByID", mock.Anything, (*int64)(nil), int64(102)).
		Return(mo.Some(&models.Entity{ID: 102, MattermostID: "mm-user-102"}), nil)
}

func TestChannelExporter_Export_DM(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, entities, relations := newTestGraph()
	exporter := NewChannelExporter(mm, graph, "team1")

	entity := channelEntity(t, models.ChannelData{
		SlackExportChannel: models.SlackExportChannel{ID: "D1", IsIM: true},
	})
	ctx := appctx.WithJobID(context.Background(), 7)
	withTwoMembers(entities, relations, 7, entity.ID)

	mm.On("CreateDM", mock.Anything, models.MMCreateDMRequest{UserID1: "mm-user-101", UserID2: "mm-user-102"}).
		Return(&models.MMChannel{ID: "mm-dm-1"}, nil)

	mattermostID, err := exporter.Export(ctx, entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-dm-1", mattermostID)
}

func TestChannelExporter_Export_RegularChannel(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, entities, relations := newTestGraph()
	exporter := NewChannelExporter(mm, graph, "team1")

	entity := channelEntity(t, models.ChannelData{
		SlackExportChannel: models.SlackExportChannel{ID: "C1", Name: "general"},
	})
	ctx := appctx.WithJobID(context.Background(), 7)
	withTwoMembers(entities, relations, 7, entity.ID)

	mm.On("CreateChannel", mock.Anything, mock.MatchedBy(func(req models.MMCreateChannelRequest) bool {
		return req.Name == "general" && req.Type == "O" && req.TeamID == "team1" && req.DisplayName == "general"
	})).Return(&models.MMChannel{ID: "mm-channel-1"}, nil)
	mm.On("AddTeamMember", mock.Anything, "team1", "mm-user-101").Return(nil)
	mm.On("AddTeamMember", mock.Anything, "team1", "mm-user-102").Return(nil)
	mm.On("AddChannelMembers", mock.Anything, models.MMAddChannelMembersRequest{
		ChannelID: "mm-channel-1",
		UserIDs:   []string{"mm-user-101", "mm-user-102"},
	}).Return(nil)

	mattermostID, err := exporter.Export(ctx, entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-channel-1", mattermostID)
}

func TestChannelExporter_Export_DMWithoutEnoughMembersSkips(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, entities, relations := newTestGraph()
	exporter := NewChannelExporter(mm, graph, "team1")

	entity := channelEntity(t, models.ChannelData{
		SlackExportChannel: models.SlackExportChannel{ID: "D2", IsIM: true},
	})
	ctx := appctx.WithJobID(context.Background(), 7)
	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationChannelMember).
		Return([]*models.EntityRelation{{ToEntity: 101}}, nil)
	entities.On("GetEntityByID", mock.Anything, (*int64)(nil), int64(101)).
		Return(mo.Some(&models.Entity{ID: 101, MattermostID: "mm-user-101"}), nil)

	_, err := exporter.Export(ctx, entity)

	require.Error(t, err)
	var skip *ErrSkip
	assert.ErrorAs(t, err, &skip)
	mm.AssertNotCalled(t, "CreateDM", mock.Anything, mock.Anything)
}

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{"passthrough", "general", "general", "general"},
		{"strips crlf", "team\r\nstandup", "fallback", "team standup"},
		{"truncates to 64", strings.Repeat("a", 80), "fallback", strings.Repeat("a", 64)},
		{"empty falls back", "", "general", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeDisplayName(tt.raw, tt.fallback))
		})
	}
}
