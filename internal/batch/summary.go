package batch

import (
	"auctionload/internal/ledger"
)

// FileOutcome is what happened to one file during a run.
type FileOutcome struct {
	Name        string
	Status      ledger.Status
	OutputName  string
	TableName   string
	JobID       string
	RowsWritten int
	RowsDropped int
	Err         error
}

// Summary describes a finished run.
type Summary struct {
	RunID  string
	DryRun bool
	Date   string
	Files  []FileOutcome
}

// Count returns the number of outcomes with status.
func (s *Summary) Count(status ledger.Status) int {
	n := 0
	for _, f := range s.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the number of files that ended in failed or review.
func (s *Summary) Failed() int {
	return s.Count(ledger.StatusFailed) + s.Count(ledger.StatusReview)
}

func (s *Summary) add(o FileOutcome) {
	s.Files = append(s.Files, o)
}
