package appctx

import "context"

// Context key for carrying the active job id through a request or pipeline
// call chain, so log lines and error alerts can be attributed without
// threading an extra parameter through every function signature.
type contextKey string

const jobIDContextKey contextKey = "import_job_id"

// WithJobID attaches a job id to the context.
func WithJobID(ctx context.Context, jobID int64) context.Context {
	return context.WithValue(ctx, jobIDContextKey, jobID)
}

// JobID extracts the job id previously attached with WithJobID.
func JobID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(jobIDContextKey).(int64)
	return id, ok
}
