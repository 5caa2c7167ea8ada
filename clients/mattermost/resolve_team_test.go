package mattermost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"slackimporter/clients"
	"slackimporter/models"
)

func TestResolveTeamID_ExplicitIDWins(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	got := ResolveTeamID(context.Background(), mm, "explicit-team", "ignored")
	assert.Equal(t, "explicit-team", got)
	mm.AssertNotCalled(t, "GetTeamByName", mock.Anything, mock.Anything)
}

func TestResolveTeamID_ResolvesByName(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	mm.On("GetTeamByName", mock.Anything, "migration").Return(&models.MMTeam{ID: "resolved-team"}, nil)

	got := ResolveTeamID(context.Background(), mm, "", "migration")

	assert.Equal(t, "resolved-team", got)
}

func TestResolveTeamID_DefaultsTeamNameToTest(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	mm.On("GetTeamByName", mock.Anything, "test").Return(&models.MMTeam{ID: "resolved-team"}, nil)

	got := ResolveTeamID(context.Background(), mm, "", "")

	assert.Equal(t, "resolved-team", got)
}

func TestResolveTeamID_FallsBackOnLookupFailure(t *testing.T) {
	mm := &clients.MockMattermostClient{}
	mm.On("GetTeamByName", mock.Anything, "missing").Return(nil, assert.AnError)

	got := ResolveTeamID(context.Background(), mm, "", "missing")

	assert.Equal(t, fallbackTeamID, got)
}
