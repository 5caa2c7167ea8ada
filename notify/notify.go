// Package notify posts job-completion summaries to an operations webhook,
// adapted from the teacher's sales-notification plumbing: a fire-and-forget
// Slack-style webhook post, never on the critical path of the job it
// reports on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"slackimporter/models"
)

var (
	instance *Notifier
	once     sync.Once
)

type Notifier struct {
	webhookURL  string
	environment string
	mu          sync.RWMutex
}

// Init sets up the global notifier instance. Calling it with an empty
// webhookURL disables notifications; JobFinished becomes a no-op.
func Init(webhookURL, environment string) {
	once.Do(func() {
		instance = &Notifier{webhookURL: webhookURL, environment: environment}
	})
}

// JobFinished reports one completed (or failed) import/export job. Sent
// asynchronously so a slow or unreachable webhook never delays the
// orchestrator or supervisor.
func JobFinished(job *models.ImportJob) {
	if instance == nil {
		log.Printf("⚠️ ops notifier not initialized, skipping notification for job %d", job.ID)
		return
	}
	instance.send(job)
}

func (n *Notifier) send(job *models.ImportJob) {
	n.mu.RLock()
	webhookURL := n.webhookURL
	n.mu.RUnlock()
	if webhookURL == "" {
		return
	}
	go n.post(webhookURL, job)
}

func (n *Notifier) post(webhookURL string, job *models.ImportJob) {
	meta, err := job.DecodeMeta()
	if err != nil {
		log.Printf("⚠️ failed to decode job %d meta for notification: %v", job.ID, err)
	}

	summary := fmt.Sprintf(
		"job %d (%s) finished with status %s: %d messages, %d reactions, %d attachments, %d emoji",
		job.ID, job.TeamName, job.Status,
		meta.Processed.Messages, meta.Processed.Reactions, meta.Processed.Attachments, meta.Processed.Emojis,
	)
	if job.Error != "" {
		summary += fmt.Sprintf(" (error: %s)", job.Error)
	}

	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Environment:* %s", n.environment)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Job ID:* %d", job.ID)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:* %s", time.Now().Format("2006-01-02 15:04:05 UTC"))},
	}

	payload := map[string]any{
		"blocks": []map[string]any{
			{"type": "section", "fields": fields},
			{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("📊 *Migration:*\n%s", summary)},
			},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ failed to marshal notification payload: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, strings.NewReader(string(payloadBytes)))
	if err != nil {
		log.Printf("❌ failed to build notification request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("❌ failed to send notification: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ notification webhook responded with status %d", resp.StatusCode)
		return
	}
	log.Printf("💰 sent job-completion notification for job %d", job.ID)
}
