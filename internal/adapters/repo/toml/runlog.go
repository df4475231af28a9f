package toml

import (
	"context"

	"github.com/mhameln/wg-inquiry/internal/domain"
	"github.com/mhameln/wg-inquiry/internal/ports"
)

// runLogRetention caps the history file; older runs fall off the front.
const runLogRetention = 100

// RunLogRepository keeps an append-only history of dispatch runs, oldest
// first, trimmed to the most recent hundred.
type RunLogRepository struct {
	store store
}

var _ ports.RunLogRepository = (*RunLogRepository)(nil)

func NewRunLogRepository(dir string) (*RunLogRepository, error) {
	s, err := newStore(dir, runLogFileName)
	if err != nil {
		return nil, err
	}
	return &RunLogRepository{store: s}, nil
}

func (r *RunLogRepository) Append(ctx context.Context, record domain.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var file runLogFileSchema
	if _, err := r.store.read(&file); err != nil {
		return err
	}
	if err := validateVersion(runLogFileName, file.Version); err != nil {
		return err
	}

	file.Version = currentSchemaVersion
	file.Runs = append(file.Runs, toRunSchema(record))
	if len(file.Runs) > runLogRetention {
		file.Runs = file.Runs[len(file.Runs)-runLogRetention:]
	}

	return r.store.write(file)
}

func (r *RunLogRepository) List(ctx context.Context, n int) ([]domain.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var file runLogFileSchema
	if _, err := r.store.read(&file); err != nil {
		return nil, err
	}
	if err := validateVersion(runLogFileName, file.Version); err != nil {
		return nil, err
	}

	entries := file.Runs
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	records := make([]domain.RunRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, fromRunSchema(entry))
	}
	return records, nil
}
