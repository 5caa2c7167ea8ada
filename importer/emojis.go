package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"

	"slackimporter/models"
)

// shortcodeRegex matches Slack's `:name:` custom-emoji shortcode syntax.
var shortcodeRegex = regexp.MustCompile(`:([a-z0-9_+\-]+):`)

const maxEmojiAliasDepth = 10

// runEmojis scans every message imported so far for `:shortcode:` custom
// emoji references, resolves each one (including alias chains, e.g. "party"
// -> "alias:partyparrot" -> an actual image URL) against the workspace's
// live emoji list, and upserts one custom_emoji entity per resolvable
// shortcode (spec.md 4.2 step 5). Shortcodes that turn out to be built-in
// Unicode emoji (not present in the custom list) are silently skipped.
func (p *Pipeline) runEmojis(ctx context.Context, extractDir string) error {
	jobID, ok := jobIDFrom(ctx)
	if !ok {
		return fmt.Errorf("runEmojis requires a job id in context")
	}

	full, err := p.slackFiles.ListEmoji(ctx)
	if err != nil {
		log.Printf("⚠️ import job %d: emoji list unavailable (%v), skipping custom emoji import", jobID, err)
		return nil
	}

	messages, err := p.graph.ListMessagesForJob(ctx, jobID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, msgEntity := range messages {
		var data models.MessageData
		if err := json.Unmarshal(msgEntity.Data, &data); err != nil {
			continue
		}
		for _, name := range shortcodesIn(data) {
			if seen[name] {
				continue
			}
			seen[name] = true

			url, ok := resolveEmojiAlias(name, full, make(map[string]bool), 0)
			if !ok {
				continue
			}
			if _, err := p.graph.UpsertCustomEmoji(ctx, name, models.CustomEmojiData{Name: name, URL: url}); err != nil {
				return fmt.Errorf("failed to upsert custom emoji %q: %w", name, err)
			}
			if err := p.jobs.IncrementMetaCounter(ctx, jobID, "totals.emojis", 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// shortcodesIn extracts every `:name:` occurrence from a message's plain
// text and its block/attachment payloads (searched as raw JSON, which is
// sufficient since shortcodes only ever appear inside string leaves).
func shortcodesIn(data models.MessageData) []string {
	var names []string
	for _, m := range shortcodeRegex.FindAllStringSubmatch(data.Text, -1) {
		names = append(names, m[1])
	}
	for _, block := range data.Blocks {
		raw, _ := json.Marshal(block)
		for _, m := range shortcodeRegex.FindAllStringSubmatch(string(raw), -1) {
			names = append(names, m[1])
		}
	}
	for _, att := range data.Attachments {
		raw, _ := json.Marshal(att)
		for _, m := range shortcodeRegex.FindAllStringSubmatch(string(raw), -1) {
			names = append(names, m[1])
		}
	}
	return names
}

// resolveEmojiAlias follows a chain of "alias:target" entries up to
// maxEmojiAliasDepth, refusing to loop on a cycle. Returns (url, true) once
// it lands on a direct URL, or (_, false) if the name isn't a known custom
// emoji, the chain cycles, or it exceeds the depth limit.
func resolveEmojiAlias(name string, full map[string]string, visited map[string]bool, depth int) (string, bool) {
	if depth >= maxEmojiAliasDepth || visited[name] {
		return "", false
	}
	visited[name] = true

	value, ok := full[name]
	if !ok {
		return "", false
	}
	const aliasPrefix = "alias:"
	if len(value) > len(aliasPrefix) && value[:len(aliasPrefix)] == aliasPrefix {
		return resolveEmojiAlias(value[len(aliasPrefix):], full, visited, depth+1)
	}
	return value, true
}
