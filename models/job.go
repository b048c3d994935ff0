package models

// JobStatus is the lifecycle state of a ParseJob.
type JobStatus string

// Only JobCreated is ever assigned today; the other states are reserved
// for a driver that runs the fetch and records its outcome.
const (
	JobCreated   JobStatus = "created"
	JobStarted   JobStatus = "started"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ParseJob is an asynchronous, pollable parse request.
type ParseJob struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	Status      JobStatus    `json:"status"`
	Result      *ParseResult `json:"result"`
	Error       *string      `json:"error"`
	CreatedAt   int64        `json:"createdAt"` // unix ms
	StartedAt   *int64       `json:"startedAt"`
	CompletedAt *int64       `json:"completedAt"`
}
