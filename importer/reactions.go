package importer

import (
	"context"
	"encoding/json"
	"fmt"

	"slackimporter/models"
)

// runReactions fans each Slack reaction object (one emoji name + a list of
// reacting users) into one reaction entity per user, matching Mattermost's
// one-reaction-per-user-per-post model (spec.md 4.2 step 6).
func (p *Pipeline) runReactions(ctx context.Context, extractDir string) error {
	jobID, ok := jobIDFrom(ctx)
	if !ok {
		return fmt.Errorf("runReactions requires a job id in context")
	}

	messages, err := p.graph.ListMessagesForJob(ctx, jobID)
	if err != nil {
		return err
	}

	for _, msgEntity := range messages {
		var data models.MessageData
		if err := json.Unmarshal(msgEntity.Data, &data); err != nil {
			continue
		}
		for _, reaction := range data.Reactions {
			for _, user := range reaction.Users {
				compositeID := data.Ts + "_" + reaction.Name + "_" + user
				reactionEntity, err := p.graph.UpsertReaction(ctx, jobID, compositeID, models.ReactionData{
					Ts:             data.Ts,
					MessageTs:      data.Ts,
					EmojiName:      reaction.Name,
					CompositeID:    compositeID,
					User:           user,
					ChannelSlackID: data.ChannelSlackID,
				})
				if err != nil {
					return err
				}

				if err := p.graph.Relate(ctx, jobID, models.RelationReactionMessage, reactionEntity.ID, msgEntity.ID); err != nil {
					return err
				}
				if author, err := p.graph.GetUser(ctx, user); err == nil && author != nil {
					if err := p.graph.Relate(ctx, jobID, models.RelationReactionAuthor, reactionEntity.ID, author.ID); err != nil {
						return err
					}
				}

				if err := p.jobs.IncrementMetaCounter(ctx, jobID, "totals.reactions", 1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
