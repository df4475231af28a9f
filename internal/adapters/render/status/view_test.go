package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

func TestRenderEmptyHistory(t *testing.T) {
	output, err := Render(nil, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, output, "WG-Gesucht Bot Status")
	assert.Contains(t, output, "No runs recorded yet.")
}

func TestRenderRunHistory(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	old := domain.NewRunRecord(now.Add(-48*time.Hour), false)
	old.OffersFound = 9
	old.OffersNew = 3
	old.MessagesSent = 3
	old.End(true, now.Add(-48*time.Hour+time.Minute))

	recent := domain.NewRunRecord(now.Add(-2*time.Hour), true)
	recent.OffersFound = 14
	recent.OffersNew = 5
	recent.MessagesSent = 2
	recent.End(true, now.Add(-2*time.Hour+time.Minute))

	failed := domain.NewRunRecord(now.Add(-time.Hour), false)
	failed.End(false, now.Add(-time.Hour+time.Second))

	output, err := Render([]domain.RunRecord{old, recent, failed}, RenderOptions{Now: now})
	require.NoError(t, err)

	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "3")
	assert.Contains(t, output, "Runs (last 24h):")
	assert.Contains(t, output, "Messages (last 24h):")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "[DRY]")
	assert.Contains(t, output, "Found: 14, New: 5, Sent: 2")
	assert.Contains(t, output, "✓")
	assert.Contains(t, output, "✗")
	assert.Contains(t, output, "2026-03-02 11:00:00")
}

func TestRenderRecentRunsAreCapped(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	records := make([]domain.RunRecord, 0, 8)
	for i := 0; i < 8; i++ {
		record := domain.NewRunRecord(now.Add(time.Duration(i-8)*time.Hour), false)
		record.OffersFound = i
		record.End(true, record.StartedAt.Add(time.Minute))
		records = append(records, record)
	}

	output, err := Render(records, RenderOptions{Now: now, RecentRuns: 2})
	require.NoError(t, err)
	assert.Contains(t, output, "Found: 7,")
	assert.Contains(t, output, "Found: 6,")
	assert.NotContains(t, output, "Found: 5,")
}
