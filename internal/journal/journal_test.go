package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regimport/internal/importer"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.BeginRun(ctx, "run-1", 42, started))

	result := &importer.Result{
		TeamsCreated:   1,
		TeamsSkipped:   1,
		MembersAdded:   2,
		MembersSkipped: 1,
		Teams: []importer.TeamOutcome{
			{
				Name: "Ants", RemoteID: 777, Status: importer.TeamCreated, Retried: true,
				Members: []importer.MemberOutcome{
					{First: "Ada", Last: "Lovelace", Email: "ada@example.org", Status: importer.MemberAdded},
					{First: "Alan", Last: "Turing", Email: "alan@example.org", Status: importer.MemberAttachFailed},
				},
			},
			{Name: "Bees", Status: importer.TeamSkippedIncomplete},
		},
	}
	require.NoError(t, j.FinishRun(ctx, "run-1", result, started.Add(time.Minute)))

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, int64(42), runs[0].ContestID)
	assert.False(t, runs[0].Cancelled)
	assert.Equal(t, 1, runs[0].TeamsCreated)
	assert.Equal(t, 1, runs[0].TeamsSkipped)
	assert.Equal(t, 2, runs[0].MembersAdded)
	assert.Equal(t, 1, runs[0].MembersSkipped)

	outcomes, err := j.TeamOutcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "Ants", outcomes[0].Name)
	assert.Equal(t, int64(777), outcomes[0].RemoteID)
	assert.Equal(t, importer.TeamCreated, outcomes[0].Status)
	assert.True(t, outcomes[0].Retried)
	assert.Equal(t, importer.TeamSkippedIncomplete, outcomes[1].Status)
}

func TestJournalCancelledRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.BeginRun(ctx, "run-2", 42, time.Now()))
	require.NoError(t, j.FinishRun(ctx, "run-2", &importer.Result{Cancelled: true}, time.Now()))

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Cancelled)
}

func TestJournalOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.BeginRun(context.Background(), "run-1", 1, time.Now()))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1, "reopening keeps previous runs")
}
