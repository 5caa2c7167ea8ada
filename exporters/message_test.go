package exporters

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slackimporter/appctx"
	"slackimporter/clients"
	"slackimporter/models"
)

// fakeMentionResolver is a minimal hand-written MentionResolver for tests
// that need to control cache hits/misses precisely, rather than driving the
// real entity graph through orchestrator.MentionCache.
type fakeMentionResolver struct {
	userIDs      map[string]string
	channelIDs   map[string]string
	membershipOK bool
	ensureCalls  []string
}

func (f *fakeMentionResolver) Usernames() map[string]string     { return nil }
func (f *fakeMentionResolver) ChannelNames() map[string]string  { return nil }
func (f *fakeMentionResolver) UserMattermostID(slackID string) (string, bool) {
	id, ok := f.userIDs[slackID]
	return id, ok
}
func (f *fakeMentionResolver) ChannelMattermostID(slackID string) (string, bool) {
	id, ok := f.channelIDs[slackID]
	return id, ok
}
func (f *fakeMentionResolver) EnsureMembership(channelSlackID, userSlackID string) bool {
	f.ensureCalls = append(f.ensureCalls, channelSlackID+":"+userSlackID)
	return f.membershipOK
}

func messageEntity(t *testing.T, data models.MessageData) *models.Entity {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &models.Entity{ID: 20, Type: models.EntityTypeMessage, SlackID: data.Ts, Data: raw}
}

func TestMessageExporter_Export_ChannelAndAuthorFromCache(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, _, relations := newTestGraph()
	resolver := &fakeMentionResolver{
		userIDs:      map[string]string{"U1": "mm-user-1"},
		channelIDs:   map[string]string{"C1": "mm-channel-1"},
		membershipOK: true,
	}
	exporter := NewMessageExporter(mm, graph, resolver)

	entity := messageEntity(t, models.MessageData{
		SlackExportMessage: models.SlackExportMessage{User: "U1", Text: "hello", Ts: "1700000000.000100"},
		ChannelSlackID:     "C1",
	})
	ctx := appctx.WithJobID(context.Background(), 7)

	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageAuthor).
		Return([]*models.EntityRelation{}, nil)
	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageFile).
		Return([]*models.EntityRelation{}, nil)

	mm.On("AddChannelMembers", mock.Anything, models.MMAddChannelMembersRequest{
		ChannelID: "mm-channel-1",
		UserIDs:   []string{"mm-user-1"},
	}).Return(nil)
	mm.On("ImportPost", mock.Anything, mock.MatchedBy(func(req models.MMCreatePostRequest) bool {
		return req.ChannelID == "mm-channel-1" && req.UserID == "mm-user-1"
	})).Return("mm-post-1", nil)

	postID, err := exporter.Export(ctx, entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-post-1", postID)
	assert.Equal(t, []string{"C1:U1"}, resolver.ensureCalls)
	mm.AssertNotCalled(t, "GetUserMe", mock.Anything)
}

func TestMessageExporter_Export_FallsBackToUsersMe(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, entities, relations := newTestGraph()
	resolver := &fakeMentionResolver{
		userIDs:    map[string]string{},
		channelIDs: map[string]string{"C1": "mm-channel-1"},
	}
	exporter := NewMessageExporter(mm, graph, resolver)

	entity := messageEntity(t, models.MessageData{
		SlackExportMessage: models.SlackExportMessage{BotID: "B1", Text: "bot post", Ts: "1700000000.000200"},
		ChannelSlackID:     "C1",
	})
	ctx := appctx.WithJobID(context.Background(), 7)

	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageAuthor).
		Return([]*models.EntityRelation{}, nil)
	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageFile).
		Return([]*models.EntityRelation{}, nil)
	_ = entities

	mm.On("GetUserMe", mock.Anything).Return(&models.MMUser{ID: "mm-admin"}, nil)
	mm.On("ImportPost", mock.Anything, mock.MatchedBy(func(req models.MMCreatePostRequest) bool {
		return req.UserID == "mm-admin"
	})).Return("mm-post-2", nil)

	postID, err := exporter.Export(ctx, entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-post-2", postID)
	mm.AssertNotCalled(t, "AddChannelMembers", mock.Anything, mock.Anything)
}

func TestMessageExporter_Export_SkipsWithoutChannel(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, _, relations := newTestGraph()
	resolver := &fakeMentionResolver{userIDs: map[string]string{}, channelIDs: map[string]string{}}
	exporter := NewMessageExporter(mm, graph, resolver)

	entity := messageEntity(t, models.MessageData{
		SlackExportMessage: models.SlackExportMessage{User: "U1", Text: "orphan", Ts: "1700000000.000300"},
		ChannelSlackID:     "C-missing",
	})
	ctx := appctx.WithJobID(context.Background(), 7)

	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageChannel).
		Return([]*models.EntityRelation{}, nil)

	_, err := exporter.Export(ctx, entity)

	require.Error(t, err)
	var skip *ErrSkip
	assert.ErrorAs(t, err, &skip)
}

func TestMessageExporter_Export_AuthorRelationWinsOverCache(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	graph, entities, relations := newTestGraph()
	resolver := &fakeMentionResolver{
		userIDs:      map[string]string{"U1": "mm-user-cache"},
		channelIDs:   map[string]string{"C1": "mm-channel-1"},
		membershipOK: true,
	}
	exporter := NewMessageExporter(mm, graph, resolver)

	entity := messageEntity(t, models.MessageData{
		SlackExportMessage: models.SlackExportMessage{User: "U1", Text: "hi", Ts: "1700000000.000400"},
		ChannelSlackID:     "C1",
	})
	ctx := appctx.WithJobID(context.Background(), 7)

	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageAuthor).
		Return([]*models.EntityRelation{{ToEntity: 901}}, nil)
	entities.On("GetEntityByID", mock.Anything, (*int64)(nil), int64(901)).
		Return(mo.Some(&models.Entity{ID: 901, MattermostID: "mm-user-relation"}), nil)
	relations.On("ListByFromEntity", mock.Anything, int64(7), entity.ID, models.RelationMessageFile).
		Return([]*models.EntityRelation{}, nil)

	mm.On("AddChannelMembers", mock.Anything, models.MMAddChannelMembersRequest{
		ChannelID: "mm-channel-1",
		UserIDs:   []string{"mm-user-relation"},
	}).Return(nil)
	mm.On("ImportPost", mock.Anything, mock.MatchedBy(func(req models.MMCreatePostRequest) bool {
		return req.UserID == "mm-user-relation"
	})).Return("mm-post-3", nil)

	postID, err := exporter.Export(ctx, entity)

	require.NoError(t, err)
	assert.Equal(t, "mm-post-3", postID)
}
