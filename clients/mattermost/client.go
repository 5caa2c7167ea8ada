package mattermost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"slackimporter/clients"
	"slackimporter/clients/httputil"
	"slackimporter/config"
	"slackimporter/models"
)

// Client implements clients.MattermostClient: a single pooled HTTP client
// shared process-wide by every exporter (spec.md 4.3, 9 "global state").
// It talks to both Mattermost's core REST API (/api/v4/...) and the
// importer plugin (/plugins/mm-importer/api/v1/...).
type Client struct {
	baseURL     string
	token       string
	standard    *http.Client // 30s timeout, JSON POST/GET
	downloads   *http.Client // 60s timeout, file GET
	uploads     *http.Client // unbounded, streamed multipart
	retryPolicy httputil.RetryPolicy
}

const pluginPrefix = "/plugins/mm-importer/api/v1"

// New builds the shared Mattermost client from process configuration.
func New(cfg config.MattermostConfig) *Client {
	transport := &http.Transport{
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxIdleKeepalive,
		ForceAttemptHTTP2:   cfg.HTTP2,
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		token:       cfg.AdminToken,
		standard:    &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
		downloads:   &http.Client{Transport: transport, Timeout: 60 * time.Second},
		uploads:     &http.Client{Transport: transport},
		retryPolicy: httputil.DefaultRetryPolicy,
	}
}

var _ clients.MattermostClient = (*Client)(nil)

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// doJSON performs one retried JSON round trip against path with method and
// an optional request body, decoding a 2xx response body into out (may be
// nil). Non-2xx responses are surfaced as *models.MMAPIError.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyBytes = b
	}

	var apiErr *models.MMAPIError
	status, err := c.retryPolicy.Do(ctx, func() (int, error) {
		req, rErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
		if rErr != nil {
			return 0, rErr
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.authorize(req)

		resp, rErr := c.standard.Do(req)
		if rErr != nil {
			return 0, rErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr = decodeAPIError(resp)
			if httputil.ShouldRetryStatus(resp.StatusCode) {
				return resp.StatusCode, fmt.Errorf("mattermost %s %s: %s", method, path, apiErr.Message)
			}
			// 4xx: not retried, but still reported as an error to the caller
			return resp.StatusCode, nil
		}

		if out != nil {
			if dErr := json.NewDecoder(resp.Body).Decode(out); dErr != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", dErr)
			}
		}
		return resp.StatusCode, nil
	})

	if apiErr != nil && (status < 200 || status >= 300) {
		return apiErr
	}
	return err
}

func decodeAPIError(resp *http.Response) *models.MMAPIError {
	var apiErr models.MMAPIError
	body, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(body, &apiErr)
	apiErr.StatusCode = resp.StatusCode
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	return &apiErr
}

// --- Core API ---

func (c *Client) CreateUser(ctx context.Context, req models.MMCreateUserRequest) (*models.MMUser, error) {
	var user models.MMUser
	if err := c.doJSON(ctx, http.MethodPost, "/api/v4/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.MMUser, error) {
	var user models.MMUser
	path := "/api/v4/users/email/" + url.PathEscape(email)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*models.MMUser, error) {
	var user models.MMUser
	path := "/api/v4/users/username/" + url.PathEscape(username)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserMe(ctx context.Context) (*models.MMUser, error) {
	var user models.MMUser
	if err := c.doJSON(ctx, http.MethodGet, "/api/v4/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UploadProfileImage(ctx context.Context, userID, filename string, image io.Reader) error {
	path := fmt.Sprintf("/api/v4/users/%s/image", userID)
	_, err := c.doMultipart(ctx, path, nil, "image", filename, image)
	return err
}

func (c *Client) GetTeamByName(ctx context.Context, name string) (*models.MMTeam, error) {
	var team models.MMTeam
	path := "/api/v4/teams/name/" + url.PathEscape(name)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// fallbackTeamID is used only when neither MM_TEAM_ID nor a GetTeamByName
// lookup resolves a team, so export never silently no-ops for lack of a
// team id.
const fallbackTeamID = "b7u9rycm43nip86mdiuqsxdcbe"

// ResolveTeamID implements the team-id resolution order: an explicit
// MM_TEAM_ID env value wins outright; otherwise look the team up by name
// (MM_TEAM, defaulting to "test"); otherwise fall back to a fixed id.
func ResolveTeamID(ctx context.Context, client clients.MattermostClient, teamID, teamName string) string {
	if teamID != "" {
		return teamID
	}
	if teamName == "" {
		teamName = "test"
	}
	team, err := client.GetTeamByName(ctx, teamName)
	if err != nil || team == nil || team.ID == "" {
		log.Printf("⚠️ could not resolve mattermost team %q, falling back to default team id: %v", teamName, err)
		return fallbackTeamID
	}
	return team.ID
}

func (c *Client) AddTeamMember(ctx context.Context, teamID, userID string) error {
	path := fmt.Sprintf("/api/v4/teams/%s/members", teamID)
	return c.doJSON(ctx, http.MethodPost, path, models.MMAddTeamMemberRequest{TeamID: teamID, UserID: userID}, nil)
}

func (c *Client) CreateEmoji(ctx context.Context, name, creatorID, filename string, image io.Reader) (*models.MMEmoji, error) {
	emojiField, err := json.Marshal(map[string]string{"name": name, "creator_id": creatorID})
	if err != nil {
		return nil, err
	}
	body, err := c.doMultipart(ctx, "/api/v4/emoji", map[string]string{"emoji": string(emojiField)}, "image", filename, image)
	if err != nil {
		return nil, err
	}
	var emoji models.MMEmoji
	if err := json.Unmarshal(body, &emoji); err != nil {
		return nil, fmt.Errorf("decode emoji response: %w", err)
	}
	return &emoji, nil
}

func (c *Client) GetEmojiByName(ctx context.Context, name string) (*models.MMEmoji, error) {
	var emoji models.MMEmoji
	path := "/api/v4/emoji/name/" + url.PathEscape(name)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &emoji); err != nil {
		return nil, err
	}
	return &emoji, nil
}

// --- Importer plugin ---

func (c *Client) CreateDM(ctx context.Context, req models.MMCreateDMRequest) (*models.MMChannel, error) {
	var ch models.MMChannel
	if err := c.doJSON(ctx, http.MethodPost, pluginPrefix+"/dm", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) CreateGroupDM(ctx context.Context, req models.MMCreateGroupDMRequest) (*models.MMChannel, error) {
	var ch models.MMChannel
	if err := c.doJSON(ctx, http.MethodPost, pluginPrefix+"/gdm", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) CreateChannel(ctx context.Context, req models.MMCreateChannelRequest) (*models.MMChannel, error) {
	var ch models.MMChannel
	if err := c.doJSON(ctx, http.MethodPost, pluginPrefix+"/channel", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) AddChannelMembers(ctx context.Context, req models.MMAddChannelMembersRequest) error {
	return c.doJSON(ctx, http.MethodPost, pluginPrefix+"/channel/members", req, nil)
}

func (c *Client) ArchiveChannel(ctx context.Context, channelID string) error {
	return c.doJSON(ctx, http.MethodPost, pluginPrefix+"/channel/archive", models.MMArchiveChannelRequest{ChannelID: channelID}, nil)
}

func (c *Client) UploadAttachmentMultipart(ctx context.Context, channelID, filename string, file io.Reader) (string, error) {
	body, err := c.doMultipart(
		ctx, pluginPrefix+"/attachment_multipart",
		map[string]string{"channel_id": channelID}, "file", filename, file,
	)
	if err != nil {
		return "", err
	}
	var resp models.MMAttachmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode attachment response: %w", err)
	}
	return resp.FileID, nil
}

func (c *Client) UploadAttachmentBase64(ctx context.Context, channelID, filename string, data []byte) (string, error) {
	req := models.MMAttachmentRequest{
		ChannelID:     channelID,
		Filename:      filename,
		ContentBase64: base64.StdEncoding.EncodeToString(data),
	}
	var resp models.MMAttachmentResponse
	// redaction: never log content_base64 (spec.md 4.3); doJSON's error path
	// only surfaces the server's message, never the outbound request body.
	if err := c.doJSON(ctx, http.MethodPost, pluginPrefix+"/attachment", req, &resp); err != nil {
		return "", err
	}
	return resp.FileID, nil
}

func (c *Client) ImportPost(ctx context.Context, req models.MMCreatePostRequest) (string, error) {
	var resp models.MMImportPostResponse
	if err := c.doJSON(ctx, http.MethodPost, pluginPrefix+"/import", req, &resp); err != nil {
		return "", err
	}
	return resp.PostID, nil
}

func (c *Client) CreateReaction(ctx context.Context, req models.MMCreateReactionRequest) error {
	return c.doJSON(ctx, http.MethodPost, pluginPrefix+"/reaction", req, nil)
}

// doMultipart streams one file plus a set of plain text fields to path.
// If file implements io.Seeker, failed attempts rewind it before retrying;
// otherwise (as with a single-pass network download) only one attempt is
// made, since the body cannot be safely replayed.
func (c *Client) doMultipart(
	ctx context.Context,
	path string,
	fields map[string]string,
	fileField, filename string,
	file io.Reader,
) ([]byte, error) {
	seeker, canRewind := file.(io.Seeker)
	policy := c.retryPolicy
	if !canRewind {
		policy.MaxAttempts = 1
	}

	var respBody []byte
	var apiErr *models.MMAPIError

	status, err := policy.Do(ctx, func() (int, error) {
		if canRewind {
			if _, sErr := seeker.Seek(0, io.SeekStart); sErr != nil {
				return 0, fmt.Errorf("rewind multipart file: %w", sErr)
			}
		}

		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			defer pw.Close()
			defer mw.Close()
			for k, v := range fields {
				if wErr := mw.WriteField(k, v); wErr != nil {
					pw.CloseWithError(wErr)
					return
				}
			}
			part, wErr := mw.CreateFormFile(fileField, filename)
			if wErr != nil {
				pw.CloseWithError(wErr)
				return
			}
			written, cErr := io.Copy(part, file)
			if cErr != nil {
				pw.CloseWithError(cErr)
				return
			}
			log.Printf("📎 streaming multipart upload: field=%s filename=%q bytes=%d", fileField, filename, written)
		}()

		req, rErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
		if rErr != nil {
			return 0, rErr
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		c.authorize(req)

		resp, rErr := c.uploads.Do(req)
		if rErr != nil {
			return 0, rErr
		}
		defer resp.Body.Close()

		body, rErr := io.ReadAll(resp.Body)
		if rErr != nil {
			return resp.StatusCode, rErr
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr = decodeAPIErrorBody(resp.StatusCode, body)
			if httputil.ShouldRetryStatus(resp.StatusCode) {
				return resp.StatusCode, fmt.Errorf("mattermost multipart %s: %s", path, apiErr.Message)
			}
			return resp.StatusCode, nil
		}

		respBody = body
		return resp.StatusCode, nil
	})

	if apiErr != nil && (status < 200 || status >= 300) {
		return nil, apiErr
	}
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func decodeAPIErrorBody(status int, body []byte) *models.MMAPIError {
	var apiErr models.MMAPIError
	_ = json.Unmarshal(body, &apiErr)
	apiErr.StatusCode = status
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	return &apiErr
}
