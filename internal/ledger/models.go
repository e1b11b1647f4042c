package ledger

import "time"

// Status represents the outcome of a file or run.
type Status string

const (
	StatusRunning Status = "running"
	StatusPending Status = "pending"
	// StatusLoaded means the filtered CSV was written and loaded.
	StatusLoaded Status = "loaded"
	// StatusEmpty means no row passed the filter; nothing was loaded.
	StatusEmpty Status = "empty"
	// StatusSkipped means an earlier run already loaded the same content.
	StatusSkipped Status = "skipped"
	// StatusSwept means a stale artifact was marked processed.
	StatusSwept     Status = "swept"
	StatusPreviewed Status = "previewed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
	StatusCompleted Status = "completed"
)

// IsTerminalSuccess reports whether a file with this status needs no reload.
func (s Status) IsTerminalSuccess() bool {
	return s == StatusLoaded || s == StatusEmpty
}

// Run summarizes one invocation of the batch driver.
type Run struct {
	ID          string
	Status      Status
	StartedAt   time.Time
	FinishedAt  *time.Time
	FilesTotal  int
	FilesLoaded int
	FilesFailed int
	DryRun      bool
}

// FileRecord captures what happened to one source file during a run.
type FileRecord struct {
	ID           int64
	RunID        string
	SourceID     string
	SourceName   string
	Checksum     string
	SizeBytes    int64
	Status       Status
	RowsParsed   int
	KeysRetained int
	RowsWritten  int
	RowsDropped  int
	OutputName   string
	TableName    string
	JobID        string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
