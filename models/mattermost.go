package models

// Request/response payloads exchanged with the Mattermost REST API, named
// after the Mattermost server's own import-plugin endpoints.

type MMCreateUserRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Nickname    string `json:"nickname,omitempty"`
	Position    string `json:"position,omitempty"`
	AuthService string `json:"auth_service,omitempty"`
	AuthData    string `json:"auth_data,omitempty"`
	Password    string `json:"password,omitempty"`
}

type MMUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type MMCreateEmojiRequest struct {
	Name string `json:"name"`
}

type MMEmoji struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MMCreateChannelRequest struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"` // "O" open, "P" private
	Purpose     string `json:"purpose,omitempty"`
	Header      string `json:"header,omitempty"`
}

type MMChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MMCreateDMRequest is the payload for the importer plugin's /dm endpoint.
type MMCreateDMRequest struct {
	UserID1 string `json:"user_id_1"`
	UserID2 string `json:"user_id_2"`
}

// MMCreateGroupDMRequest is the payload for the importer plugin's /gdm
// endpoint; MemberIDs must contain at least two Mattermost user ids.
type MMCreateGroupDMRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// MMAddChannelMembersRequest is the payload for the importer plugin's
// /channel/members endpoint.
type MMAddChannelMembersRequest struct {
	ChannelID string   `json:"channel_id"`
	UserIDs   []string `json:"user_ids"`
}

// MMArchiveChannelRequest is the payload for the importer plugin's
// /channel/archive endpoint.
type MMArchiveChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

type MMTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MMAddTeamMemberRequest mirrors the core API's team-member payload.
type MMAddTeamMemberRequest struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// MMAttachmentRequest is the payload for the importer plugin's
// /attachment_multipart (multipart form fields) and /attachment (JSON with
// base64-encoded content) endpoints.
type MMAttachmentRequest struct {
	ChannelID      string `json:"channel_id"`
	Filename       string `json:"filename"`
	ContentBase64  string `json:"content_base64,omitempty"`
}

type MMAttachmentResponse struct {
	FileID string `json:"file_id"`
}

type MMImportPostResponse struct {
	PostID string `json:"post_id"`
}

type MMFileUploadResponse struct {
	FileInfos []MMFileInfo `json:"file_infos"`
}

type MMFileInfo struct {
	ID string `json:"id"`
}

type MMCreatePostRequest struct {
	ChannelID string   `json:"channel_id"`
	Message   string   `json:"message"`
	RootID    string   `json:"root_id,omitempty"`
	FileIDs   []string `json:"file_ids,omitempty"`
	CreateAt  int64    `json:"create_at,omitempty"`
	UserID    string   `json:"user_id,omitempty"` // set via X-Requested-By-style import header, not by a normal client
}

type MMPost struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

type MMCreateReactionRequest struct {
	UserID    string `json:"user_id"`
	PostID    string `json:"post_id"`
	EmojiName string `json:"emoji_name"`
	CreateAt  int64  `json:"create_at,omitempty"`
}

type MMReaction struct {
	UserID    string `json:"user_id"`
	PostID    string `json:"post_id"`
	EmojiName string `json:"emoji_name"`
}

// MMAPIError is the shape Mattermost returns on every non-2xx response.
type MMAPIError struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	StatusCode int   `json:"status_code"`
}

func (e *MMAPIError) Error() string {
	return e.Message
}
