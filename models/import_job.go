package models

import (
	"encoding/json"
	"time"
)

// ImportJobStatus is the job supervisor's top-level state machine, driving
// both the import (extract+parse) and export (push to Mattermost) phases
// (spec.md 3).
type ImportJobStatus string

const (
	JobStatusQueued   ImportJobStatus = "queued"
	JobStatusRunning  ImportJobStatus = "running"
	JobStatusSuccess  ImportJobStatus = "success"
	JobStatusFailed   ImportJobStatus = "failed"
	JobStatusCanceled ImportJobStatus = "canceled"
)

// ImportStage is the fine-grained stage tracked alongside status while a
// job is importing or exporting (spec.md 3's current_stage column).
type ImportStage string

const (
	StageExtracting  ImportStage = "extracting"
	StageUsers       ImportStage = "users"
	StageChannels    ImportStage = "channels"
	StageMessages    ImportStage = "messages"
	StageEmojis      ImportStage = "emojis"
	StageReactions   ImportStage = "reactions"
	StageAttachments ImportStage = "attachments"
	StageExporting   ImportStage = "exporting"
	StageDone        ImportStage = "done"
)

// EntityCounts is the shape shared by the meta document's "totals" and
// "processed" counters (spec.md 4.2, 6).
type EntityCounts struct {
	Messages    int `json:"messages"`
	Reactions   int `json:"reactions"`
	Attachments int `json:"attachments"`
	Emojis      int `json:"emojis"`
}

// JobMeta is the atomically-updated JSON document stored in
// import_jobs.meta. Totals are computed once in an import pre-pass;
// Processed is incremented with single-statement atomic updates as rows
// reach a terminal state, never via a read-modify-write round trip.
type JobMeta struct {
	Totals             EntityCounts `json:"totals"`
	Processed          EntityCounts `json:"processed"`
	JSONFilesTotal     int          `json:"json_files_total"`
	JSONFilesProcessed int          `json:"json_files_processed"`
	ExtractDir         string       `json:"extract_dir,omitempty"`
	ZipPath            string       `json:"zip_path,omitempty"`
}

// ImportJob is the top-level unit of work: one Slack export ZIP migrated
// into one Mattermost team.
type ImportJob struct {
	ID             int64           `db:"id" json:"id"`
	TeamName       string          `db:"team_name" json:"team_name"`
	MattermostTeam string          `db:"mattermost_team" json:"mattermost_team"`
	Status         ImportJobStatus `db:"status" json:"status"`
	CurrentStage   ImportStage     `db:"current_stage" json:"current_stage"`
	ArchivePath    string          `db:"archive_path" json:"-"`
	Meta           json.RawMessage `db:"meta" json:"meta"`
	Error          string          `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// DecodeMeta unmarshals the job's meta document, defaulting to a zero
// value when absent (a freshly created job).
func (j *ImportJob) DecodeMeta() (JobMeta, error) {
	var m JobMeta
	if len(j.Meta) == 0 {
		return m, nil
	}
	err := json.Unmarshal(j.Meta, &m)
	return m, err
}
