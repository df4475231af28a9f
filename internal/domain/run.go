package domain

import "time"

type RunStatus string

const (
	RunStatusStarted RunStatus = "started"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

const contactTitleMaxLen = 50

// ContactAttempt records one outreach attempt within a run.
type ContactAttempt struct {
	OfferID   string
	Title     string
	Success   bool
	Timestamp time.Time
}

type RunError struct {
	Message   string
	Timestamp time.Time
}

// RunRecord is the terminal outcome of one dispatch run. Exactly one record
// is emitted per run, success or failure.
type RunRecord struct {
	StartedAt      time.Time
	EndedAt        time.Time
	Status         RunStatus
	DryRun         bool
	OffersFound    int
	OffersFiltered int
	OffersNew      int
	MessagesSent   int
	Errors         []RunError
	Contacted      []ContactAttempt
}

func NewRunRecord(startedAt time.Time, dryRun bool) RunRecord {
	return RunRecord{
		StartedAt: startedAt,
		Status:    RunStatusStarted,
		DryRun:    dryRun,
	}
}

// LogContact appends an attempt and counts successful ones (including
// simulated dry-run sends) towards MessagesSent.
func (r *RunRecord) LogContact(offerID, title string, success bool, at time.Time) {
	r.Contacted = append(r.Contacted, ContactAttempt{
		OfferID:   offerID,
		Title:     truncate(title, contactTitleMaxLen),
		Success:   success,
		Timestamp: at,
	})
	if success {
		r.MessagesSent++
	}
}

func (r *RunRecord) LogError(message string, at time.Time) {
	r.Errors = append(r.Errors, RunError{Message: message, Timestamp: at})
}

func (r *RunRecord) End(success bool, at time.Time) {
	r.EndedAt = at
	if success {
		r.Status = RunStatusSuccess
	} else {
		r.Status = RunStatusFailed
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
