package slackfiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"slackimporter/clients"
	"slackimporter/clients/httputil"
)

// Client implements clients.SlackFileClient. It is the only outbound
// caller into the Slack HTTP API (spec.md 1): downloading attachment
// bytes and resolving the workspace's custom emoji list.
type Client struct {
	botToken   string
	httpClient *http.Client
	sdk        *slack.Client
}

func New(botToken string) *Client {
	return &Client{
		botToken:   botToken,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sdk:        slack.New(botToken),
	}
}

var _ clients.SlackFileClient = (*Client)(nil)

// DownloadFile fetches a Slack file-host URL (url_private) with the bot
// token as a bearer header, retrying on transport errors and non-200
// responses per spec.md 4.3.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	var lastErr error

	status, err := httputil.DefaultRetryPolicy.Do(ctx, func() (int, error) {
		req, rErr := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if rErr != nil {
			return 0, rErr
		}
		req.Header.Set("Authorization", "Bearer "+c.botToken)

		resp, rErr := c.httpClient.Do(req)
		if rErr != nil {
			lastErr = rErr
			return 0, rErr
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("slack file download %s: status %d", fileURL, resp.StatusCode)
			return resp.StatusCode, lastErr
		}
		body = resp.Body
		return resp.StatusCode, nil
	})
	_ = status
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, lastErr
	}
	return body, nil
}

// ListEmoji resolves the workspace's custom emoji (name -> URL or
// "alias:other_name"), used by the import pipeline's emoji-resolution
// stage (spec.md 4.2 step 5).
func (c *Client) ListEmoji(ctx context.Context) (map[string]string, error) {
	return c.sdk.GetEmojiContext(ctx)
}
