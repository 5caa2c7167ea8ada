package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"slackimporter/config"
	"slackimporter/db"
	"slackimporter/models"
)

// LoadTestConfig loads configuration for tests from environment variables.
func LoadTestConfig() (*config.AppConfig, error) {
	_ = godotenv.Load("../../.env.test")
	_ = godotenv.Load("../.env.test")
	_ = godotenv.Load(".env.test")
	_ = godotenv.Load()

	databaseURL := os.Getenv("DB_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}

	databaseSchema := os.Getenv("DB_SCHEMA")
	if databaseSchema == "" {
		return nil, fmt.Errorf("DB_SCHEMA is not set")
	}

	return &config.AppConfig{
		DatabaseURL:    databaseURL,
		DatabaseSchema: databaseSchema,
		RunMode:        "test",
	}, nil
}

// SetupTestDB creates a test database connection.
func SetupTestDB() (*sqlx.DB, error) {
	cfg, err := LoadTestConfig()
	if err != nil {
		return nil, err
	}
	return db.NewConnection(cfg.DatabaseURL)
}

const TestSchema = "slack_migrator_test"

// NewTestImportJob builds an in-memory ImportJob fixture, not yet persisted.
func NewTestImportJob(teamName string) *models.ImportJob {
	meta, _ := json.Marshal(models.JobMeta{})
	return &models.ImportJob{
		TeamName:       teamName,
		MattermostTeam: "test-team",
		Status:         models.JobStatusQueued,
		CurrentStage:   models.StageExtracting,
		ArchivePath:    fmt.Sprintf("/tmp/test-export-%d.zip", rand.Int63()),
		Meta:           meta,
	}
}

// CreateTestImportJob persists a test job via the given repository.
func CreateTestImportJob(ctx context.Context, repo *db.PostgresImportJobsRepository, teamName string) (*models.ImportJob, error) {
	return repo.CreateJob(ctx, NewTestImportJob(teamName))
}

// NewTestEntity builds an in-memory Entity fixture for a given job/type. A
// nil jobID models a global entity (user, channel, custom_emoji).
func NewTestEntity(jobID *int64, entityType models.EntityType, slackID string, data any) *models.Entity {
	raw, _ := json.Marshal(data)
	return &models.Entity{
		JobID:   jobID,
		Type:    entityType,
		SlackID: slackID,
		Status:  models.EntityStatusPending,
		Data:    raw,
	}
}

// RandomSlackID generates a Slack-style identifier (e.g. "U0123456789") with
// the given single-character prefix, used to avoid unique-index collisions
// between test cases sharing a schema.
func RandomSlackID(prefix string) string {
	return fmt.Sprintf("%s%010d", prefix, rand.Int63n(9999999999))
}

// RandomTS generates a plausible Slack message timestamp string.
func RandomTS() string {
	return fmt.Sprintf("%d.%06d", 1700000000+rand.Int63n(100000), rand.Int63n(999999))
}
