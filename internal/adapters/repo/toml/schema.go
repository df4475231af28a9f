package toml

import (
	"fmt"
	"time"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

const currentSchemaVersion = 1

type sessionFileSchema struct {
	Version int           `toml:"version"`
	Session sessionSchema `toml:"session"`
}

type sessionSchema struct {
	Mode            string `toml:"mode"`
	UserID          string `toml:"user_id"`
	AccessToken     string `toml:"access_token"`
	RefreshToken    string `toml:"refresh_token,omitempty"`
	DevRefNo        string `toml:"dev_ref_no,omitempty"`
	CSRFToken       string `toml:"csrf_token,omitempty"`
	CookieSessionID string `toml:"cookie_session_id,omitempty"`
}

type contactedFileSchema struct {
	Version      int      `toml:"version"`
	ContactedIDs []string `toml:"contacted_ids"`
}

type runLogFileSchema struct {
	Version int         `toml:"version"`
	Runs    []runSchema `toml:"runs"`
}

type runSchema struct {
	StartedAt      string               `toml:"started_at"`
	EndedAt        string               `toml:"ended_at,omitempty"`
	Status         string               `toml:"status"`
	DryRun         bool                 `toml:"dry_run"`
	OffersFound    int                  `toml:"offers_found"`
	OffersFiltered int                  `toml:"offers_filtered"`
	OffersNew      int                  `toml:"offers_new"`
	MessagesSent   int                  `toml:"messages_sent"`
	Errors         []runErrorSchema     `toml:"errors,omitempty"`
	Contacted      []runContactedSchema `toml:"contacted,omitempty"`
}

type runErrorSchema struct {
	Message   string `toml:"message"`
	Timestamp string `toml:"timestamp"`
}

type runContactedSchema struct {
	OfferID   string `toml:"offer_id"`
	Title     string `toml:"title,omitempty"`
	Success   bool   `toml:"success"`
	Timestamp string `toml:"timestamp"`
}

func validateVersion(fileName string, version int) error {
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported %s schema version %d (current %d)", fileName, version, currentSchemaVersion)
	}
	return nil
}

func toSessionSchema(session domain.Session) sessionSchema {
	return sessionSchema{
		Mode:            string(session.Mode),
		UserID:          session.UserID,
		AccessToken:     session.AccessToken,
		RefreshToken:    session.RefreshToken,
		DevRefNo:        session.DevRefNo,
		CSRFToken:       session.CSRFToken,
		CookieSessionID: session.CookieSessionID,
	}
}

func fromSessionSchema(entry sessionSchema) domain.Session {
	return domain.Session{
		Mode:            domain.AuthMode(entry.Mode),
		UserID:          entry.UserID,
		AccessToken:     entry.AccessToken,
		RefreshToken:    entry.RefreshToken,
		DevRefNo:        entry.DevRefNo,
		CSRFToken:       entry.CSRFToken,
		CookieSessionID: entry.CookieSessionID,
	}
}

func toRunSchema(record domain.RunRecord) runSchema {
	entry := runSchema{
		StartedAt:      formatTime(record.StartedAt),
		EndedAt:        formatTime(record.EndedAt),
		Status:         string(record.Status),
		DryRun:         record.DryRun,
		OffersFound:    record.OffersFound,
		OffersFiltered: record.OffersFiltered,
		OffersNew:      record.OffersNew,
		MessagesSent:   record.MessagesSent,
	}
	for _, runErr := range record.Errors {
		entry.Errors = append(entry.Errors, runErrorSchema{
			Message:   runErr.Message,
			Timestamp: formatTime(runErr.Timestamp),
		})
	}
	for _, attempt := range record.Contacted {
		entry.Contacted = append(entry.Contacted, runContactedSchema{
			OfferID:   attempt.OfferID,
			Title:     attempt.Title,
			Success:   attempt.Success,
			Timestamp: formatTime(attempt.Timestamp),
		})
	}
	return entry
}

func fromRunSchema(entry runSchema) domain.RunRecord {
	record := domain.RunRecord{
		StartedAt:      parseTime(entry.StartedAt),
		EndedAt:        parseTime(entry.EndedAt),
		Status:         domain.RunStatus(entry.Status),
		DryRun:         entry.DryRun,
		OffersFound:    entry.OffersFound,
		OffersFiltered: entry.OffersFiltered,
		OffersNew:      entry.OffersNew,
		MessagesSent:   entry.MessagesSent,
	}
	for _, runErr := range entry.Errors {
		record.Errors = append(record.Errors, domain.RunError{
			Message:   runErr.Message,
			Timestamp: parseTime(runErr.Timestamp),
		})
	}
	for _, attempt := range entry.Contacted {
		record.Contacted = append(record.Contacted, domain.ContactAttempt{
			OfferID:   attempt.OfferID,
			Title:     attempt.Title,
			Success:   attempt.Success,
			Timestamp: parseTime(attempt.Timestamp),
		})
	}
	return record
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
