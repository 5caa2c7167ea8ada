package models

import "strings"

// These types mirror the shapes found in a Slack "export workspace data"
// ZIP. Field sets are deliberately permissive (extra Slack fields are
// ignored by encoding/json) since the importer only needs a subset of what
// Slack actually emits.

type SlackExportUser struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Deleted  bool                `json:"deleted"`
	IsBot    bool                `json:"is_bot"`
	Profile  SlackExportProfile  `json:"profile"`
}

type SlackExportProfile struct {
	Email       string `json:"email"`
	RealName    string `json:"real_name"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	ImageOrig   string `json:"image_original"`
	Image1024   string `json:"image_1024"`
	Image512    string `json:"image_512"`
	Image192    string `json:"image_192"`
	Image72     string `json:"image_72"`
	Image48     string `json:"image_48"`
	Image32     string `json:"image_32"`
	Image24     string `json:"image_24"`
}

// AvatarURL returns the highest-resolution profile image that isn't a
// Gravatar fallback, or "" if every candidate is empty or Gravatar-backed.
func (p SlackExportProfile) AvatarURL() string {
	for _, url := range []string{
		p.ImageOrig, p.Image1024, p.Image512, p.Image192,
		p.Image72, p.Image48, p.Image32, p.Image24,
	} {
		if url != "" && !strings.Contains(url, "secure.gravatar.com") {
			return url
		}
	}
	return ""
}

// SlackExportChannel is the permissive shape shared by channels.json,
// groups.json, dms.json, and mpims.json entries. DMs and group DMs only
// populate ID/Members/IsIM/IsMPIM; public/private channels populate the
// rest.
type SlackExportChannel struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Purpose    SlackExportTopicLike `json:"purpose"`
	Topic      SlackExportTopicLike `json:"topic"`
	Members    []string             `json:"members"`
	IsArchived bool                 `json:"is_archived"`
	IsIM       bool                 `json:"is_im"`
	IsMPIM     bool                 `json:"is_mpim"`
	Creator    string               `json:"creator"`
}

// IsDM reports whether this channel is a 1:1 direct message, by Slack's
// `D`-prefixed id convention or the explicit is_im flag.
func (c SlackExportChannel) IsDM() bool {
	return c.IsIM || strings.HasPrefix(c.ID, "D")
}

// IsGroupDM reports whether this channel is a multi-person direct message.
func (c SlackExportChannel) IsGroupDM() bool {
	return c.IsMPIM || strings.HasPrefix(c.Name, "mpdm-")
}

// IsPrivateChannel reports whether this is a private (non-DM) channel, by
// Slack's `G`-prefixed id convention.
func (c SlackExportChannel) IsPrivateChannel() bool {
	return !c.IsDM() && !c.IsGroupDM() && strings.HasPrefix(c.ID, "G")
}

type SlackExportTopicLike struct {
	Value string `json:"value"`
}

type SlackExportEmoji map[string]string // alias name -> URL or "alias:other_name"

// SlackExportFile is an attachment/upload referenced by a message.
type SlackExportFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Title              string `json:"title"`
	Mimetype           string `json:"mimetype"`
	Filetype           string `json:"filetype"`
	URLPrivate         string `json:"url_private"`
	URLPrivateDownload string `json:"url_private_download"`
	Size               int64  `json:"size"`
}

// SlackExportReaction is a single emoji reaction with the users who gave it.
type SlackExportReaction struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// SlackExportMessage is one line of a per-channel, per-day JSON array file.
// Subtype classifies non-plain messages (channel_join, bot_message, etc.)
// per spec.md 4.2's message-kind filtering rules.
type SlackExportMessage struct {
	Type        string                `json:"type"`
	Subtype     string                `json:"subtype"`
	User        string                `json:"user"`
	BotID       string                `json:"bot_id"`
	Text        string                `json:"text"`
	Ts          string                `json:"ts"`
	ThreadTs    string                `json:"thread_ts"`
	Files       []SlackExportFile     `json:"files"`
	Reactions   []SlackExportReaction `json:"reactions"`
	Blocks      []map[string]any      `json:"blocks"`
	Attachments []map[string]any      `json:"attachments"`
}

func (m SlackExportMessage) IsPlainMessage() bool {
	return m.Subtype == "" && m.Type == "message"
}

func (m SlackExportMessage) IsBotMessage() bool {
	return m.Subtype == "bot_message" || m.BotID != ""
}

func (m SlackExportMessage) IsJoinLeaveMessage() bool {
	return m.Subtype == "channel_join" || m.Subtype == "channel_leave"
}

func (m SlackExportMessage) IsReply() bool {
	return m.ThreadTs != "" && m.ThreadTs != m.Ts
}
